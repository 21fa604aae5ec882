package domain

import (
	"fmt"
	"time"
)

// SeasonalAdjuster scales trend-based forecasts by a fixed per-disease,
// per-month multiplier. The table constants are documented in the package
// comment; they encode monsoon, post-monsoon, and winter transmission
// patterns.
type SeasonalAdjuster struct {
	table map[Disease][12]float64
}

// NewSeasonalAdjuster builds the adjuster with the standard multiplier table
// and verifies coverage for every known disease. A missing or non-positive
// entry is a ConfigurationError: it fails fast at startup, never per request.
func NewSeasonalAdjuster() (*SeasonalAdjuster, error) {
	a := &SeasonalAdjuster{table: map[Disease][12]float64{
		Dengue:      monthTable(1.3, 0.8, time.June, time.September),
		Malaria:     monthTable(1.2, 0.9, time.June, time.September),
		Cholera:     monthTable(1.25, 0.85, time.June, time.September),
		Typhoid:     monthTable(1.15, 0.9, time.May, time.September),
		Hepatitis:   monthTable(1.1, 0.95, time.July, time.October),
		Diarrheal:   monthTable(1.2, 0.9, time.June, time.September),
		Respiratory: respiratoryTable(),
	}}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Multiplier returns the seasonal factor for a disease in a given month.
func (a *SeasonalAdjuster) Multiplier(disease Disease, month time.Month) (float64, error) {
	months, ok := a.table[disease]
	if !ok {
		return 0, &ConfigurationError{
			Component: "seasonal adjuster",
			Reason:    fmt.Sprintf("no multiplier table for disease %q", disease),
		}
	}
	return months[month-1], nil
}

func (a *SeasonalAdjuster) validate() error {
	for _, d := range KnownDiseases() {
		months, ok := a.table[d]
		if !ok {
			return &ConfigurationError{
				Component: "seasonal adjuster",
				Reason:    fmt.Sprintf("no multiplier table for disease %q", d),
			}
		}
		for m, v := range months {
			if v <= 0 {
				return &ConfigurationError{
					Component: "seasonal adjuster",
					Reason:    fmt.Sprintf("non-positive multiplier for %s in month %d", d, m+1),
				}
			}
		}
	}
	return nil
}

// monthTable builds a 12-month table with `peak` applied from `from` through
// `to` inclusive and `off` everywhere else.
func monthTable(peak, off float64, from, to time.Month) [12]float64 {
	var t [12]float64
	for m := time.January; m <= time.December; m++ {
		if m >= from && m <= to {
			t[m-1] = peak
		} else {
			t[m-1] = off
		}
	}
	return t
}

// respiratoryTable peaks in winter (Nov–Feb), holds neutral in the shoulder
// months (Mar, Oct), and drops through the hot season.
func respiratoryTable() [12]float64 {
	var t [12]float64
	for m := time.January; m <= time.December; m++ {
		switch m {
		case time.November, time.December, time.January, time.February:
			t[m-1] = 1.4
		case time.March, time.October:
			t[m-1] = 1.0
		default:
			t[m-1] = 0.7
		}
	}
	return t
}
