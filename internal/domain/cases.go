package domain

import "math"

// Per-tier daily transmission base rates, as a fraction of population.
// Derived from the surveillance dashboard's transmission-rate tables; like
// the risk rule table, these are heuristic placeholders for the BaseModel
// collaborator.
const (
	rateCritical = 0.008
	rateHigh     = 0.005
	rateMedium   = 0.003
	rateLow      = 0.001
	rateUnknown  = 0.002
)

// Per-disease additive multiplier contributions. Vector- and water-borne
// diseases stack hardest; the sum is uncapped when multiple diseases are
// active.
const (
	multVectorBorne = 0.3  // dengue, malaria, cholera
	multEpidemic    = 0.2  // respiratory, diarrheal
	multEnteric     = 0.15 // typhoid, hepatitis
)

// EstimateCases converts a risk tier, population, and active-disease set
// into an expected absolute case count:
//
//	estimated = round(population * base_rate(tier) * multiplier(diseases))
func EstimateCases(active []Disease, tier RiskLevel, population int) int {
	if population <= 0 {
		return 0
	}

	rate := rateUnknown
	switch tier {
	case RiskVeryHigh:
		rate = rateCritical
	case RiskHigh:
		rate = rateHigh
	case RiskMedium:
		rate = rateMedium
	case RiskLow:
		rate = rateLow
	}

	multiplier := 1.0
	for _, d := range dedupe(active) {
		switch d {
		case Dengue, Malaria, Cholera:
			multiplier += multVectorBorne
		case Respiratory, Diarrheal:
			multiplier += multEpidemic
		case Typhoid, Hepatitis:
			multiplier += multEnteric
		}
	}

	return int(math.Round(float64(population) * rate * multiplier))
}
