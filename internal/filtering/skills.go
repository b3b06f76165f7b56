package filtering

import (
	"strconv"
	"strings"

	"github.com/spigell/profile-search/internal/criteria"
	"github.com/spigell/profile-search/internal/profile"
)

// fractionTolerance absorbs float rounding in matched/required ratios.
const fractionTolerance = 1e-9

type skillsPredicate struct{}

// NewSkills creates the predicate matching required skills with the
// criteria's skill match mode.
func NewSkills() Predicate { return skillsPredicate{} }

func (skillsPredicate) Name() string { return "skills" }

func (skillsPredicate) Active(c *criteria.Criteria) bool { return c.HasSkills() }

func (skillsPredicate) Match(c *criteria.Criteria, p *profile.Profile) bool {
	return MatchSkills(c.SkillMatch, c.Skills, p.Skills)
}

func (s skillsPredicate) Status(c *criteria.Criteria) Status {
	status := Status{Name: s.Name(), Details: map[string]string{}}
	if c == nil || !s.Active(c) {
		return status
	}
	status.Enabled = true
	status.Details["skills"] = strings.Join(c.Skills, ",")
	status.Details["skill_match"] = c.SkillMatch.String()
	return status
}

// MatchSkills reports whether have covers required under mode. Skills are
// compared case-insensitively and duplicates in required count once.
func MatchSkills(mode criteria.SkillMatch, required, have []string) bool {
	wanted := uniqueFolded(required)
	if len(wanted) == 0 {
		return true
	}

	owned := make(map[string]struct{}, len(have))
	for _, skill := range have {
		owned[fold(skill)] = struct{}{}
	}

	matched := 0
	for _, skill := range wanted {
		if _, ok := owned[skill]; ok {
			matched++
		}
	}

	switch mode.Mode {
	case criteria.ModeAll:
		return matched == len(wanted)
	case criteria.ModeCount:
		return matched >= mode.Count
	case criteria.ModePercentage:
		return float64(matched)/float64(len(wanted))+fractionTolerance >= mode.Fraction
	default:
		return matched > 0
	}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func uniqueFolded(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := fold(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

type educationPredicate struct{}

// NewEducation creates the predicate requiring one of the listed degrees.
func NewEducation() Predicate { return educationPredicate{} }

func (educationPredicate) Name() string { return "education" }

func (educationPredicate) Active(c *criteria.Criteria) bool { return c.HasEducation() }

func (educationPredicate) Match(c *criteria.Criteria, p *profile.Profile) bool {
	degrees := make(map[string]struct{})
	for _, d := range p.Degrees() {
		degrees[fold(d)] = struct{}{}
	}

	for _, required := range uniqueFolded(c.Education) {
		if _, ok := degrees[required]; ok {
			return true
		}
	}
	return false
}

func (e educationPredicate) Status(c *criteria.Criteria) Status {
	status := Status{Name: e.Name(), Details: map[string]string{}}
	if c == nil || !e.Active(c) {
		return status
	}
	status.Enabled = true
	status.Details["education"] = strings.Join(c.Education, ",")
	return status
}

type experiencePredicate struct{}

// NewExperience creates the predicate requiring a minimum number of years of
// CV work history.
func NewExperience() Predicate { return experiencePredicate{} }

func (experiencePredicate) Name() string { return "experience" }

func (experiencePredicate) Active(c *criteria.Criteria) bool { return c.ExperienceYearsMin != nil }

func (experiencePredicate) Match(c *criteria.Criteria, p *profile.Profile) bool {
	return TotalYears(p.CVDurations()) >= *c.ExperienceYearsMin
}

func (e experiencePredicate) Status(c *criteria.Criteria) Status {
	status := Status{Name: e.Name(), Details: map[string]string{}}
	if c == nil || !e.Active(c) {
		return status
	}
	status.Enabled = true
	status.Details["experience_years_min"] = strconv.FormatFloat(*c.ExperienceYearsMin, 'f', -1, 64)
	return status
}
