// Package search runs the query pipeline: fetch candidate data, build
// profiles, interpret the query and filter.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/profile-search/internal/criteria"
	"github.com/spigell/profile-search/internal/filtering"
	"github.com/spigell/profile-search/internal/logger"
	"github.com/spigell/profile-search/internal/profile"
)

// FailedToInterpret is the error reported in a Result when the model answer
// could not be turned into criteria.
const FailedToInterpret = "Failed to interpret query"

// Interpreter translates a query into criteria.
type Interpreter interface {
	Interpret(ctx context.Context, query string, profiles []*profile.Profile) (*criteria.Criteria, error)
}

// Builder consolidates candidate sources into profiles.
type Builder interface {
	Build(ctx context.Context, sources []*profile.Source) ([]*profile.Profile, error)
}

// Syncer mirrors remote candidate data into a local directory.
type Syncer interface {
	Sync(ctx context.Context, prefix, dir string) (string, error)
}

// Config controls where candidate data comes from.
type Config struct {
	// DataDir holds the candidate files when no Syncer is set.
	DataDir string
	// Prefix selects the remote objects to sync.
	Prefix string
	// CacheDir receives synced objects. Defaults to the system temp dir.
	CacheDir string
	// ProfilesFile points at prebuilt profiles. When set, no data is synced
	// and no profiles are built.
	ProfilesFile string
}

// Deps are the collaborators of a Service. Store is optional.
type Deps struct {
	Interpreter Interpreter
	Builder     Builder
	Filter      *filtering.Filter
	Store       Syncer
	Logger      *zap.Logger
}

// Result is the pipeline answer. Either Profiles or Error is set.
type Result struct {
	Profiles []*profile.Profile
	Error    string
	Details  string
}

// MarshalJSON writes {"profiles": [...]} or {"error": ..., "details": ...}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}{r.Error, r.Details})
	}

	profiles := r.Profiles
	if profiles == nil {
		profiles = []*profile.Profile{}
	}
	return json.Marshal(struct {
		Profiles []*profile.Profile `json:"profiles"`
	}{profiles})
}

// Service runs the search pipeline.
type Service struct {
	cfg         Config
	interpreter Interpreter
	builder     Builder
	filter      *filtering.Filter
	store       Syncer
	logger      *zap.Logger
}

// New creates a Service.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Interpreter == nil {
		return nil, errors.New("interpreter is required")
	}
	if deps.Builder == nil && cfg.ProfilesFile == "" {
		return nil, errors.New("profile builder is required without a profiles file")
	}

	log := logger.OrNop(deps.Logger)
	filter := deps.Filter
	if filter == nil {
		filter = filtering.New(log)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.TempDir()
	}

	return &Service{
		cfg:         cfg,
		interpreter: deps.Interpreter,
		builder:     deps.Builder,
		filter:      filter,
		store:       deps.Store,
		logger:      log,
	}, nil
}

// Process answers query. A model answer that cannot be interpreted is
// reported in the Result, not as an error.
func (s *Service) Process(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, criteria.ErrEmptyQuery
	}

	profiles, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.interpreter.Interpret(ctx, query, profiles)
	if err != nil {
		var interpretErr *criteria.InterpretError
		if errors.As(err, &interpretErr) {
			s.logger.Warn("query not interpreted", zap.Error(err))
			return &Result{Error: FailedToInterpret, Details: interpretErr.Raw}, nil
		}
		return nil, err
	}

	matches, _, err := s.filter.Apply(ctx, c, profiles)
	if err != nil {
		return nil, fmt.Errorf("filter profiles: %w", err)
	}

	return &Result{Profiles: matches}, nil
}

// Profiles returns the candidate profiles, either prebuilt or consolidated
// from the candidate data.
func (s *Service) Profiles(ctx context.Context) ([]*profile.Profile, error) {
	if s.cfg.ProfilesFile != "" {
		profiles, err := profile.ReadFile(s.cfg.ProfilesFile)
		if err != nil {
			return nil, fmt.Errorf("read profiles: %w", err)
		}
		s.logger.Info("profiles loaded", zap.String("file", s.cfg.ProfilesFile), zap.Int("count", len(profiles)))
		return profiles, nil
	}

	dir := s.cfg.DataDir
	if s.store != nil {
		synced, err := s.store.Sync(ctx, s.cfg.Prefix, s.cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("sync candidate data: %w", err)
		}
		dir = synced
	}

	sources, err := profile.LoadSources(dir)
	if err != nil {
		return nil, err
	}

	return s.builder.Build(ctx, sources)
}

// Criteria interprets query against the current profiles without filtering.
func (s *Service) Criteria(ctx context.Context, query string) (*criteria.Criteria, error) {
	profiles, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	return s.interpreter.Interpret(ctx, query, profiles)
}

// Describe reports the predicates c enables.
func (s *Service) Describe(c *criteria.Criteria) []filtering.Status {
	return s.filter.Describe(c)
}
