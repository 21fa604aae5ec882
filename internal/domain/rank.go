package domain

import (
	"math"
	"sort"
)

// Composite score composition: up to 50 points from normalized case density,
// up to 50 from the weather-derived risk score. Density saturates at
// densityCapPer100k recent cases per 100k population.
const (
	densityComponentMax = 50.0
	densityCapPer100k   = 500.0
)

// AreaSnapshot is the per-location input to high-risk-area ranking: the
// static profile, current weather, and recent case counts per disease.
type AreaSnapshot struct {
	Profile        LocationProfile
	Weather        WeatherObservation
	CasesByDisease map[Disease]int
}

// ActiveDiseases lists diseases with nonzero recent cases, in stable order.
func (a AreaSnapshot) ActiveDiseases() []Disease {
	active := make(map[Disease]int)
	for d, c := range a.CasesByDisease {
		if c > 0 {
			active[d] = c
		}
	}
	return sortedDiseases(active)
}

// RankHighRiskAreas blends normalized case density with the weather-derived
// risk score, sorts descending, truncates to limit, and assigns ranks 1..N.
// Ties break by location name for deterministic output.
func RankHighRiskAreas(areas []AreaSnapshot, limit int) []HighRiskArea {
	if limit <= 0 {
		return []HighRiskArea{}
	}

	ranked := make([]HighRiskArea, 0, len(areas))
	for _, a := range areas {
		breakdown := make(map[Disease]int, len(a.CasesByDisease))
		for d, c := range a.CasesByDisease {
			breakdown[d] = c
		}
		ranked = append(ranked, HighRiskArea{
			Location:         a.Profile.ID,
			Name:             a.Profile.Name,
			Province:         a.Profile.Province,
			CompositeScore:   CompositeScore(a),
			DiseaseBreakdown: breakdown,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CompositeScore != ranked[j].CompositeScore {
			return ranked[i].CompositeScore > ranked[j].CompositeScore
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// CompositeScore computes the 0–100 blended metric for one area.
func CompositeScore(a AreaSnapshot) float64 {
	total := 0
	for _, c := range a.CasesByDisease {
		total += c
	}

	density := 0.0
	if a.Profile.Population > 0 {
		per100k := float64(total) / float64(a.Profile.Population) * 100000
		density = math.Min(densityComponentMax, per100k/densityCapPer100k*densityComponentMax)
	}

	weather := float64(RiskScore(a.ActiveDiseases(), a.Weather.TemperatureC, a.Weather.HumidityPct)) / 2

	// One decimal place keeps scores readable and comparisons stable.
	return math.Round((density+weather)*10) / 10
}
