package filtering

import (
	"regexp"
	"strconv"
	"strings"
)

var durationRe = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([A-Za-z]*)`)

// ParseYears reads the leading number of a duration string such as
// "3 years" or "1.5 yrs". A month unit is converted to years. ok is false
// when the string does not start with a number.
func ParseYears(duration string) (years float64, ok bool) {
	m := durationRe.FindStringSubmatch(duration)
	if m == nil {
		return 0, false
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	if strings.HasPrefix(strings.ToLower(m[2]), "mo") {
		return n / 12, true
	}
	return n, true
}

// TotalYears sums the parseable durations. Unparseable entries count as zero.
func TotalYears(durations []string) float64 {
	total := 0.0
	for _, d := range durations {
		if years, ok := ParseYears(d); ok {
			total += years
		}
	}
	return total
}
