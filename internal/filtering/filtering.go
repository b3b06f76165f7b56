// Package filtering evaluates structured criteria against candidate profiles.
package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/profile-search/internal/criteria"
	"github.com/spigell/profile-search/internal/logger"
	"github.com/spigell/profile-search/internal/profile"
)

// Predicate is a single criterion that can be checked against a profile.
type Predicate interface {
	Name() string
	// Active reports whether the criteria use this predicate at all.
	Active(c *criteria.Criteria) bool
	Match(c *criteria.Criteria, p *profile.Profile) bool
}

// Step describes the result of filtering a profile list.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Decision is the outcome for one profile. Results holds the value of every
// active predicate by name.
type Decision struct {
	Profile *profile.Profile
	Matched bool
	Results map[string]bool
}

// Status describes how a predicate is configured by the current criteria.
type Status struct {
	Name    string
	Enabled bool
	Details map[string]string
}

// statusProvider is implemented by predicates that can describe themselves.
type statusProvider interface {
	Status(c *criteria.Criteria) Status
}

// Filter combines predicates with the AND/OR logic of the criteria.
type Filter struct {
	predicates []Predicate
	logger     *zap.Logger
}

// DefaultPredicates returns the skills, education and experience predicates.
func DefaultPredicates() []Predicate {
	return []Predicate{NewSkills(), NewEducation(), NewExperience()}
}

// New creates a Filter. Without predicates the defaults are used.
func New(log *zap.Logger, predicates ...Predicate) *Filter {
	if len(predicates) == 0 {
		predicates = DefaultPredicates()
	}
	return &Filter{predicates: predicates, logger: logger.OrNop(log)}
}

// Evaluate decides whether p satisfies c. Every active predicate is
// evaluated; the results are combined with all() unless the logic is "or".
// A profile facing no active criteria matches, whatever the logic.
func (f *Filter) Evaluate(c *criteria.Criteria, p *profile.Profile) Decision {
	decision := Decision{Profile: p, Results: make(map[string]bool)}
	if c == nil {
		decision.Matched = true
		return decision
	}

	results := make([]bool, 0, len(f.predicates))
	for _, pred := range f.predicates {
		if !pred.Active(c) {
			continue
		}
		ok := pred.Match(c, p)
		decision.Results[pred.Name()] = ok
		results = append(results, ok)
	}

	switch {
	case len(results) == 0:
		decision.Matched = true
	case c.IsOr():
		decision.Matched = anyTrue(results)
	default:
		decision.Matched = allTrue(results)
	}
	return decision
}

// Apply keeps the profiles matching c, preserving their order.
func (f *Filter) Apply(ctx context.Context, c *criteria.Criteria, profiles []*profile.Profile) ([]*profile.Profile, Step, error) {
	initial := len(profiles)
	matched := make([]*profile.Profile, 0, initial)

	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, Step{}, err
		}
		if p == nil {
			continue
		}

		decision := f.Evaluate(c, p)
		if !decision.Matched {
			f.logger.Debug("profile rejected",
				zap.String(logger.FieldCandidate, p.ID),
				zap.String("name", p.Name),
				zap.Any("results", decision.Results),
			)
			continue
		}

		matched = append(matched, p)
	}

	step := Step{Initial: initial, Dropped: initial - len(matched), Left: len(matched)}
	f.logger.Info("filter step",
		zap.Stringer("criteria", c),
		zap.Int("initial", step.Initial),
		zap.Int("dropped", step.Dropped),
		zap.Int("left", step.Left),
	)

	return matched, step, nil
}

// Describe returns status entries for the predicates under c.
func (f *Filter) Describe(c *criteria.Criteria) []Status {
	statuses := make([]Status, 0, len(f.predicates))
	for _, pred := range f.predicates {
		if reporter, ok := pred.(statusProvider); ok {
			statuses = append(statuses, reporter.Status(c))
			continue
		}
		statuses = append(statuses, Status{Name: pred.Name(), Enabled: c != nil && pred.Active(c)})
	}
	return statuses
}

func allTrue(results []bool) bool {
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

func anyTrue(results []bool) bool {
	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}
