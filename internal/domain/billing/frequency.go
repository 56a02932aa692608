package billing

import "strings"

// Frequency is the billing cadence of a tenant
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyAnnual  Frequency = "annual"
)

// String returns the string representation of Frequency
func (f Frequency) String() string {
	return string(f)
}

// IsValid returns true if the frequency is one of the supported values
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyAnnual:
		return true
	}
	return false
}

// IsAnnual reports whether the frequency bills once a year
func (f Frequency) IsAnnual() bool {
	return f == FrequencyAnnual
}

// ParseFrequency parses a frequency name, ignoring case and surrounding spaces
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", ErrInvalidFrequency.Withf("Invalid billing frequency %q: must be monthly or annual", s)
	}
	return f, nil
}
