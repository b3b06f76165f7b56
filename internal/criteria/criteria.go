// Package criteria turns recruiter queries into structured filter criteria.
package criteria

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/profile-search/internal/ai"
)

// Mode selects how required skills are matched against a profile.
type Mode int

const (
	// ModeAny needs at least one required skill.
	ModeAny Mode = iota
	// ModeAll needs every required skill.
	ModeAll
	// ModeCount needs at least Count required skills.
	ModeCount
	// ModePercentage needs at least Fraction of the required skills.
	ModePercentage
)

// SkillMatch is the skill matching strategy. The zero value is ModeAny.
type SkillMatch struct {
	Mode     Mode
	Count    int
	Fraction float64
}

// Any matches when at least one skill is present.
func Any() SkillMatch { return SkillMatch{Mode: ModeAny} }

// All matches when every skill is present.
func All() SkillMatch { return SkillMatch{Mode: ModeAll} }

// AtLeast matches when at least n skills are present.
func AtLeast(n int) SkillMatch { return SkillMatch{Mode: ModeCount, Count: n} }

// Percentage matches when at least fraction (0..1) of the skills are present.
func Percentage(fraction float64) SkillMatch {
	return SkillMatch{Mode: ModePercentage, Fraction: fraction}
}

func (m SkillMatch) String() string {
	switch m.Mode {
	case ModeAll:
		return "all"
	case ModeCount:
		return strconv.Itoa(m.Count)
	case ModePercentage:
		return strconv.FormatFloat(m.Fraction, 'f', -1, 64)
	default:
		return "any"
	}
}

// MarshalJSON writes the mode back in its wire form: "all", "any", an
// integer count or a fraction.
func (m SkillMatch) MarshalJSON() ([]byte, error) {
	switch m.Mode {
	case ModeCount:
		return []byte(strconv.Itoa(m.Count)), nil
	case ModePercentage:
		f := strconv.FormatFloat(m.Fraction, 'f', -1, 64)
		if !strings.ContainsAny(f, ".eE") {
			f += ".0"
		}
		return []byte(f), nil
	default:
		return json.Marshal(m.String())
	}
}

// UnmarshalJSON accepts the same forms as Parse.
func (m *SkillMatch) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}

	parsed, err := parseSkillMatch(v)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Logic combines the outcome of the active criteria.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Criteria is the structured form of a recruiter query. Nil or empty fields
// are inactive.
type Criteria struct {
	Skills             []string   `json:"skills,omitempty"`
	SkillMatch         SkillMatch `json:"skill_match"`
	Education          []string   `json:"education,omitempty"`
	ExperienceYearsMin *float64   `json:"experience_years_min,omitempty"`
	Logic              Logic      `json:"logic"`
}

// ErrInvalidCriteria marks criteria JSON that decodes but holds unusable values.
var ErrInvalidCriteria = errors.New("invalid criteria")

// Parse decodes a criteria object. Loosely typed values are coerced where the
// intent is clear: a single string for a list, a numeric string for a number.
func Parse(raw []byte) (*Criteria, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: criteria must be a JSON object", ErrMalformedJSON)
	}

	c := &Criteria{
		Skills:    ai.CoerceStrings(data["skills"]),
		Education: ai.CoerceStrings(data["education"]),
		Logic:     parseLogic(data["logic"]),
	}

	match, err := parseSkillMatch(data["skill_match"])
	if err != nil {
		return nil, err
	}
	c.SkillMatch = match

	if v, ok := data["experience_years_min"]; ok && v != nil {
		years := ai.CoerceFloat(v)
		if math.IsNaN(years) || math.IsInf(years, 0) || years < 0 {
			return nil, fmt.Errorf("%w: experience_years_min %v", ErrInvalidCriteria, v)
		}
		c.ExperienceYearsMin = &years
	}

	return c, nil
}

func parseSkillMatch(v any) (SkillMatch, error) {
	switch val := v.(type) {
	case nil:
		return Any(), nil
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		switch {
		case s == "" || s == "any":
			return Any(), nil
		case s == "all":
			return All(), nil
		case strings.HasSuffix(s, "%"):
			f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
			if err != nil || f < 0 || f > 100 {
				return SkillMatch{}, fmt.Errorf("%w: skill_match %q", ErrInvalidCriteria, val)
			}
			return Percentage(f / 100), nil
		}
		return SkillMatch{}, fmt.Errorf("%w: skill_match %q", ErrInvalidCriteria, val)
	case json.Number:
		return numericSkillMatch(val.String())
	case float64:
		return numericSkillMatch(strconv.FormatFloat(val, 'f', -1, 64))
	case int:
		return numericSkillMatch(strconv.Itoa(val))
	default:
		return SkillMatch{}, fmt.Errorf("%w: skill_match %v", ErrInvalidCriteria, v)
	}
}

// numericSkillMatch reads an integer literal as a count and any other number
// as a fraction. Fractions above 1 are taken as percentages.
func numericSkillMatch(literal string) (SkillMatch, error) {
	if !strings.ContainsAny(literal, ".eE") {
		n, err := strconv.Atoi(literal)
		if err != nil || n < 0 {
			return SkillMatch{}, fmt.Errorf("%w: skill_match %s", ErrInvalidCriteria, literal)
		}
		return AtLeast(n), nil
	}

	f, err := strconv.ParseFloat(literal, 64)
	if err != nil || f < 0 || f > 100 || math.IsNaN(f) {
		return SkillMatch{}, fmt.Errorf("%w: skill_match %s", ErrInvalidCriteria, literal)
	}
	if f > 1 {
		f /= 100
	}
	return Percentage(f), nil
}

func parseLogic(v any) Logic {
	if strings.EqualFold(strings.TrimSpace(ai.CoerceString(v)), string(LogicOr)) {
		return LogicOr
	}
	return LogicAnd
}

// ActiveCount returns the number of criteria that take part in matching.
func (c *Criteria) ActiveCount() int {
	if c == nil {
		return 0
	}
	n := 0
	if c.HasSkills() {
		n++
	}
	if c.HasEducation() {
		n++
	}
	if c.ExperienceYearsMin != nil {
		n++
	}
	return n
}

// HasSkills reports whether the skills criterion names at least one
// non-blank skill.
func (c *Criteria) HasSkills() bool {
	return c != nil && anyNonBlank(c.Skills)
}

// HasEducation reports whether the education criterion names at least one
// non-blank degree.
func (c *Criteria) HasEducation() bool {
	return c != nil && anyNonBlank(c.Education)
}

func anyNonBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// IsOr reports whether active criteria are combined with OR.
func (c *Criteria) IsOr() bool {
	return c != nil && c.Logic == LogicOr
}

func (c *Criteria) String() string {
	if c == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	if c.HasSkills() {
		parts = append(parts, fmt.Sprintf("skills(%s)=[%s]", c.SkillMatch, strings.Join(c.Skills, ", ")))
	}
	if c.HasEducation() {
		parts = append(parts, fmt.Sprintf("education=[%s]", strings.Join(c.Education, ", ")))
	}
	if c.ExperienceYearsMin != nil {
		parts = append(parts, fmt.Sprintf("experience>=%s", strconv.FormatFloat(*c.ExperienceYearsMin, 'f', -1, 64)))
	}
	if len(parts) == 0 {
		return "match all"
	}

	sep := " AND "
	if c.IsOr() {
		sep = " OR "
	}
	return strings.Join(parts, sep)
}
