package profile

import (
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/profile-search/internal/ai"
)

// NetworkRecord is the structured professional-network entry for a candidate.
type NetworkRecord struct {
	Name       string      `mapstructure:"name"`
	Skills     []string    `mapstructure:"skills"`
	Experience []Job       `mapstructure:"experience"`
	Education  []Education `mapstructure:"education"`
}

// cvExtraction is the shape requested from the model for a CV.
type cvExtraction struct {
	Name       string      `mapstructure:"Name"`
	Skills     []string    `mapstructure:"Skills"`
	Experience []Job       `mapstructure:"Experience"`
	Education  []Education `mapstructure:"Education"`
}

// keyAliases maps alternative spellings seen in model output and network
// exports onto the canonical field names.
var keyAliases = map[string]string{
	"title":           "Job Title",
	"job_title":       "Job Title",
	"position":        "Job Title",
	"role":            "Job Title",
	"employer":        "Company",
	"period":          "Duration",
	"school":          "Institution",
	"university":      "Institution",
	"graduation_year": "Graduation Year",
	"year":            "Graduation Year",
	"full_name":       "Name",
}

// decodeRecord decodes a loosely typed JSON value into out. Keys match
// case-insensitively, single values are lifted into lists and numbers are
// accepted where strings are expected.
func decodeRecord(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(normalize(input))
}

// normalize rewrites aliased keys and flattens skill objects such as
// {"name": "Go"} into plain strings.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			canonical := key
			if alias, ok := keyAliases[strings.ToLower(strings.TrimSpace(key))]; ok {
				if _, exists := val[alias]; !exists {
					canonical = alias
				}
			}
			if strings.EqualFold(canonical, "skills") {
				out[canonical] = skillNames(item)
				continue
			}
			out[canonical] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// skillNames flattens the skill shapes models return: a list of names, a
// list of {"name": ...} objects, or an object grouping lists by category.
// Categories are walked in key order.
func skillNames(v any) []string {
	switch val := v.(type) {
	case []any:
		names := make([]string, 0, len(val))
		for _, item := range val {
			names = append(names, skillNames(item)...)
		}
		return names
	case map[string]any:
		if name, ok := val["name"]; ok {
			return ai.CoerceStrings(name)
		}

		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		names := make([]string, 0)
		for _, key := range keys {
			names = append(names, skillNames(val[key])...)
		}
		return names
	default:
		return ai.CoerceStrings(v)
	}
}

// insightsFrom reads a list of insight strings out of model output. Objects
// wrapping a single list are unwrapped.
func insightsFrom(v any) []string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ai.CoerceStrings(v)
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if list, ok := obj[key].([]any); ok {
			return ai.CoerceStrings(list)
		}
	}
	return nil
}

// mergeSkills returns the union of the given skill lists in first-seen order.
// Duplicates are detected case-insensitively.
func mergeSkills(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, list := range lists {
		for _, skill := range list {
			skill = strings.TrimSpace(skill)
			if skill == "" {
				continue
			}
			key := strings.ToLower(skill)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, skill)
		}
	}
	return merged
}
