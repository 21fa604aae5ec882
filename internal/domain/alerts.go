package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Alert-tier horizon cutoffs, in forecast days.
const (
	urgentCutoffDays = 1
	watchCutoffDays  = 3
)

// PairAssessment is the fully annotated forecast for one (location, disease)
// pair: the prediction series plus the expected-case annotation. Built by
// the engine, consumed by TierAlerts.
type PairAssessment struct {
	Location       string
	LocationName   string
	Disease        Disease
	Predictions    []Prediction
	EstimatedCases int
	Stale          bool
}

// TierAlerts buckets assessments into the 24-hour urgent tier and 72-hour
// watch tier, ranks each tier, and produces the dashboard summary.
//
// A pair enters the 24h tier when a high or very_high risk level appears
// within one forecast day, and the 72h tier when it first appears on day 2
// or 3. Tiers are mutually exclusive; most-urgent wins. At most one alert
// per (location, disease) per tier. An empty result is a valid "no alerts"
// state, not an error.
func TierAlerts(assessments []PairAssessment) CriticalAlerts {
	var urgent, watch []Alert

	seen := make(map[string]struct{}, len(assessments))
	for _, pa := range assessments {
		key := pa.Location + "|" + string(pa.Disease)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		trigger, ok := thresholdCrossing(pa.Predictions)
		if !ok {
			continue
		}

		alert := Alert{
			ID:                 uuid.NewString(),
			Location:           pa.Location,
			LocationName:       pa.LocationName,
			Disease:            pa.Disease,
			RiskLevel:          trigger.RiskLevel,
			EstimatedCases:     pa.EstimatedCases,
			Confidence:         trigger.Confidence,
			RecommendedActions: RecommendedActions(pa.Disease, trigger.RiskLevel),
			Stale:              pa.Stale,
		}

		if trigger.HorizonDays <= urgentCutoffDays {
			alert.Tier = Tier24h
			urgent = append(urgent, alert)
		} else {
			alert.Tier = Tier72h
			watch = append(watch, alert)
		}
	}

	rankTier(urgent)
	rankTier(watch)

	return CriticalAlerts{
		Urgent24h: urgent,
		Watch72h:  watch,
		Summary:   summarize(urgent, watch),
	}
}

// thresholdCrossing returns the earliest prediction within the watch window
// whose risk level is high or very_high.
func thresholdCrossing(predictions []Prediction) (Prediction, bool) {
	for _, p := range predictions {
		if p.HorizonDays > watchCutoffDays {
			break
		}
		if p.RiskLevel == RiskHigh || p.RiskLevel == RiskVeryHigh {
			return p, true
		}
	}
	return Prediction{}, false
}

// rankTier orders alerts descending by confidence-weighted expected cases,
// breaking ties by location name and then disease so output is stable, and
// assigns 1-based priority ranks.
func rankTier(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		wi := alerts[i].Confidence * float64(alerts[i].EstimatedCases)
		wj := alerts[j].Confidence * float64(alerts[j].EstimatedCases)
		if wi != wj {
			return wi > wj
		}
		if alerts[i].LocationName != alerts[j].LocationName {
			return alerts[i].LocationName < alerts[j].LocationName
		}
		return alerts[i].Disease < alerts[j].Disease
	})
	for i := range alerts {
		alerts[i].PriorityRank = i + 1
	}
}

func summarize(urgent, watch []Alert) AlertSummary {
	highest := ""
	switch {
	case len(urgent) > 0:
		highest = urgent[0].LocationName
	case len(watch) > 0:
		highest = watch[0].LocationName
	}
	return AlertSummary{
		HighestPriority:     highest,
		TotalCriticalAlerts: len(urgent) + len(watch),
		Urgent24hCount:      len(urgent),
		Watch72hCount:       len(watch),
		GeneratedAt:         clock.Now(),
	}
}
