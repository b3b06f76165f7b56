package profile

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/profile-search/internal/ai"
	"github.com/spigell/profile-search/internal/logger"
)

const (
	systemInstruction   = "You are a helpful assistant that extracts structured data from unstructured text."
	defaultConcurrency  = 4
	defaultMaxLogLength = 200
)

//go:embed prompts/*.md
var prompts embed.FS

var (
	cvTemplate        = mustPrompt("prompts/cv.md")
	interviewTemplate = mustPrompt("prompts/interview.md")
)

// ErrMalformedExtraction is returned when the model answers with JSON that
// does not decode.
var ErrMalformedExtraction = errors.New("failed to parse extraction JSON")

func mustPrompt(name string) string {
	data, err := prompts.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("missing embedded prompt %s: %v", name, err))
	}
	return string(data)
}

// Consolidator turns candidate sources into profiles with the help of a
// language model.
type Consolidator struct {
	generator   ai.Generator
	logger      *zap.Logger
	concurrency int
	maxLogLen   int
}

// NewConsolidator creates a Consolidator. Non-positive concurrency and
// maxLogLength fall back to defaults.
func NewConsolidator(generator ai.Generator, log *zap.Logger, concurrency, maxLogLength int) *Consolidator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	log = logger.OrNop(log)
	if generator != nil {
		log = logger.WithCommonFields(log, "", generator.Model())
	}

	return &Consolidator{
		generator:   generator,
		logger:      log,
		concurrency: concurrency,
		maxLogLen:   maxLogLength,
	}
}

// Build consolidates every source, keeping the source order. The first
// failure cancels the remaining work.
func (c *Consolidator) Build(ctx context.Context, sources []*Source) ([]*Profile, error) {
	profiles := make([]*Profile, len(sources))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)

	for i, src := range sources {
		eg.Go(func() error {
			p, err := c.Consolidate(egCtx, src)
			if err != nil {
				return fmt.Errorf("candidate %s: %w", src.ID, err)
			}
			profiles[i] = p
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("profiles built", zap.Int("count", len(profiles)), zap.Strings("names", Names(profiles)))
	return profiles, nil
}

// Consolidate merges the CV, interview and network record of one candidate.
// A failed CV extraction is an error; a failed interview extraction only
// leaves the insights empty.
func (c *Consolidator) Consolidate(ctx context.Context, src *Source) (*Profile, error) {
	if src == nil {
		return nil, errors.New("source is required")
	}
	if c.generator == nil {
		return nil, errors.New("generator is required")
	}

	log := c.logger.With(zap.String(logger.FieldCandidate, src.ID))

	network := src.Network
	if network == nil {
		network = &NetworkRecord{}
	}

	cv := &cvExtraction{}
	if strings.TrimSpace(src.CVText) != "" {
		value, err := c.extract(ctx, log, cvTemplate, src.CVText)
		if err != nil {
			return nil, fmt.Errorf("extract cv: %w", err)
		}
		if err := decodeRecord(value, cv); err != nil {
			return nil, fmt.Errorf("decode cv extraction: %w", err)
		}
	}

	var insights []string
	if strings.TrimSpace(src.InterviewText) != "" {
		value, err := c.extract(ctx, log, interviewTemplate, src.InterviewText)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("interview extraction failed, continuing without insights", zap.Error(err))
		} else {
			insights = insightsFrom(value)
		}
	}

	p := &Profile{
		ID:     src.ID,
		Name:   firstNonEmpty(cv.Name, network.Name),
		Skills: mergeSkills(cv.Skills, network.Skills),
		Experience: Experience{
			CV:      nonNilJobs(cv.Experience),
			Network: nonNilJobs(network.Experience),
		},
		Education:          cv.Education,
		AdditionalInsights: insights,
	}
	if len(p.Education) == 0 {
		p.Education = network.Education
	}
	if p.Education == nil {
		p.Education = []Education{}
	}
	if p.AdditionalInsights == nil {
		p.AdditionalInsights = []string{}
	}

	log.Debug("profile consolidated",
		zap.String("name", p.Name),
		zap.Int("skills", len(p.Skills)),
		zap.Int("cv_jobs", len(p.Experience.CV)),
		zap.Int("degrees", len(p.Education)),
		zap.Int("insights", len(p.AdditionalInsights)),
	)

	return p, nil
}

func (c *Consolidator) extract(ctx context.Context, log *zap.Logger, template, text string) (any, error) {
	prompt := strings.ReplaceAll(template, "{{TEXT}}", strings.TrimSpace(text))

	log.Debug("extraction request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, c.maxLogLen)),
	)

	payload, err := ai.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExtraction, err)
	}

	return value, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nonNilJobs(jobs []Job) []Job {
	if jobs == nil {
		return []Job{}
	}
	return jobs
}
