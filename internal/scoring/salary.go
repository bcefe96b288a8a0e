package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	hoursPerYear  = 2080
	monthsPerYear = 12
)

var (
	salaryNumber = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(k\b)?`)
	hourlyMarker = regexp.MustCompile(`\b(hour|hourly|hr)\b|/\s*h(ou)?r`)
	monthlyMark  = regexp.MustCompile(`\b(month|monthly|mo)\b|/\s*mo(nth)?`)
)

// ParseSalary reads annual bounds out of free text such as "$50k-$70k",
// "$50,000 - $70,000", "60000" or "$30/hour". Hourly figures are
// annualized at 2080 hours, monthly at 12 months.
func ParseSalary(text string) (lo, hi float64, ok bool) {
	t := strings.ToLower(text)

	var values []float64
	for _, m := range salaryNumber.FindAllStringSubmatch(t, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 1000
		}
		values = append(values, v)
		if len(values) == 2 {
			break
		}
	}
	if len(values) == 0 {
		return 0, 0, false
	}

	lo, hi = values[0], values[0]
	if len(values) == 2 {
		hi = values[1]
	}

	multiplier := 1.0
	switch {
	case hourlyMarker.MatchString(t):
		multiplier = hoursPerYear
	case monthlyMark.MatchString(t):
		multiplier = monthsPerYear
	}
	lo, hi = lo*multiplier, hi*multiplier

	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi, true
}
