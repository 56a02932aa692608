package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	monthlyPeriodPattern = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)
	annualPeriodPattern  = regexp.MustCompile(`^(\d{4})$`)
)

// Period is the calendar period an invoice covers: a month for monthly
// billing ("2025-02") or a year for annual billing ("2025").
type Period struct {
	Frequency Frequency
	Year      int
	Month     time.Month // zero for annual periods
}

// ParsePeriod validates s against the format expected for the frequency
func ParsePeriod(frequency Frequency, s string) (Period, error) {
	switch frequency {
	case FrequencyMonthly:
		m := monthlyPeriodPattern.FindStringSubmatch(s)
		if m == nil {
			return Period{}, ErrInvalidPeriod.Withf("Invalid period %q: monthly billing expects YYYY-MM", s)
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if year < 1 {
			return Period{}, ErrInvalidPeriod.Withf("Invalid period %q: year must be positive", s)
		}
		return Period{Frequency: frequency, Year: year, Month: time.Month(month)}, nil
	case FrequencyAnnual:
		m := annualPeriodPattern.FindStringSubmatch(s)
		if m == nil {
			return Period{}, ErrInvalidPeriod.Withf("Invalid period %q: annual billing expects YYYY", s)
		}
		year, _ := strconv.Atoi(m[1])
		if year < 1 {
			return Period{}, ErrInvalidPeriod.Withf("Invalid period %q: year must be positive", s)
		}
		return Period{Frequency: frequency, Year: year}, nil
	default:
		return Period{}, ErrInvalidFrequency.Withf("Invalid billing frequency %q", frequency)
	}
}

// PeriodFor returns the period of the given frequency that contains t
func PeriodFor(frequency Frequency, t time.Time) (Period, error) {
	switch frequency {
	case FrequencyMonthly:
		return Period{Frequency: frequency, Year: t.Year(), Month: t.Month()}, nil
	case FrequencyAnnual:
		return Period{Frequency: frequency, Year: t.Year()}, nil
	default:
		return Period{}, ErrInvalidFrequency.Withf("Invalid billing frequency %q", frequency)
	}
}

// String returns the period label
func (p Period) String() string {
	if p.Frequency == FrequencyAnnual {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is unset
func (p Period) IsZero() bool {
	return p.Year == 0
}

// Start returns the first instant of the period in UTC
func (p Period) Start() time.Time {
	if p.Frequency == FrequencyAnnual {
		return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant after the period in UTC (exclusive bound)
func (p Period) End() time.Time {
	if p.Frequency == FrequencyAnnual {
		return p.Start().AddDate(1, 0, 0)
	}
	return p.Start().AddDate(0, 1, 0)
}

// Contains reports whether t falls in the period, comparing calendar fields in t's own location
func (p Period) Contains(t time.Time) bool {
	if t.Year() != p.Year {
		return false
	}
	return p.Frequency == FrequencyAnnual || t.Month() == p.Month
}
