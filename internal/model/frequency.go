package model

import "fmt"

// Frequency is the billing cadence of a contract or expense.
type Frequency string

// Frequency constants.
const (
	FrequencyOneTime   Frequency = "one_time"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// Frequencies lists every supported billing cadence.
var Frequencies = []Frequency{
	FrequencyOneTime,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyAnnual,
}

// IsRecurring reports whether the cadence repeats.
func (f Frequency) IsRecurring() bool {
	return f != FrequencyOneTime
}

// Validate ensures the frequency is one of the known values.
func (f Frequency) Validate() error {
	switch f {
	case FrequencyOneTime, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual:
		return nil
	default:
		return fmt.Errorf("unknown frequency %q", string(f))
	}
}

// ParseFrequency converts user input into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	switch s {
	case "once", "one-time", "onetime":
		f = FrequencyOneTime
	case "yearly", "annually":
		f = FrequencyAnnual
	}
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}
