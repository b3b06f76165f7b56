package criteria

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/profile-search/internal/ai"
	"github.com/spigell/profile-search/internal/logger"
	"github.com/spigell/profile-search/internal/profile"
)

const (
	systemInstruction   = "You are a helpful assistant that interprets search queries for a recruiter platform."
	defaultMaxLogLength = 200
	maxQueryRunes       = 500
)

//go:embed prompt.md
var promptTemplate string

// Interpreter asks a language model to translate a query into Criteria.
type Interpreter struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

// NewInterpreter creates an Interpreter.
func NewInterpreter(generator ai.Generator, log *zap.Logger, maxLogLength int) *Interpreter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	log = logger.OrNop(log)
	if generator != nil {
		log = logger.WithCommonFields(log, "", generator.Model())
	}

	return &Interpreter{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Interpret translates query into criteria for the given profiles. When the
// model answer cannot be used the error is an *InterpretError carrying the
// raw answer; generator failures are returned wrapped as they are.
func (i *Interpreter) Interpret(ctx context.Context, query string, profiles []*profile.Profile) (*Criteria, error) {
	if i.generator == nil {
		return nil, errors.New("generator is required")
	}

	query = sanitizeQuery(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if profiles == nil {
		profiles = []*profile.Profile{}
	}
	profilesJSON, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profiles: %w", err)
	}

	prompt := buildPrompt(query, string(profilesJSON))
	log := logger.WithFields(i.logger, logger.QueryFields(query, i.maxLogLen)...)

	log.Debug("interpret query request",
		zap.Int("profiles", len(profiles)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, i.maxLogLen)),
	)

	raw, err := i.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("interpret query: %w", err)
	}

	log.Debug("interpret query response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, i.maxLogLen)),
	)

	payload, err := ai.ExtractJSON(raw)
	if err != nil {
		log.Warn("model answer has no criteria block")
		return nil, &InterpretError{Err: err, Raw: raw}
	}

	c, err := Parse([]byte(payload))
	if err != nil {
		if !errors.Is(err, ErrMalformedJSON) {
			err = fmt.Errorf("%w: %w", ErrMalformedJSON, err)
		}
		log.Warn("model answer has unusable criteria", zap.Error(err))
		return nil, &InterpretError{Err: err, Raw: raw}
	}

	log.Info("query interpreted", zap.Stringer("criteria", c), zap.Int("active", c.ActiveCount()))
	return c, nil
}

func buildPrompt(query, profilesJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Query:\n{{QUERY}}\n\nProfiles:\n{{PROFILES_JSON}}\n\nJSON criteria:"
	}
	prompt := strings.ReplaceAll(template, "{{QUERY}}", query)
	prompt = strings.ReplaceAll(prompt, "{{PROFILES_JSON}}", profilesJSON)
	return prompt
}

// sanitizeQuery flattens the query onto one line, swaps characters that
// could close the quoted prompt slot and caps its length.
func sanitizeQuery(query string) string {
	replacer := strings.NewReplacer(
		`"`, "'",
		"`", "'",
		"{{", "(",
		"}}", ")",
	)
	query = replacer.Replace(query)

	query = strings.Join(strings.FieldsFunc(query, unicode.IsSpace), " ")

	runes := []rune(query)
	if len(runes) > maxQueryRunes {
		query = strings.TrimSpace(string(runes[:maxQueryRunes]))
	}
	return query
}
