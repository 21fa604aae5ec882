package domain

import (
	"fmt"
	"sort"
	"time"
)

// Disease identifies a tracked notifiable disease.
type Disease string

const (
	Dengue      Disease = "dengue"
	Malaria     Disease = "malaria"
	Cholera     Disease = "cholera"
	Typhoid     Disease = "typhoid"
	Hepatitis   Disease = "hepatitis"
	Diarrheal   Disease = "diarrheal"
	Respiratory Disease = "respiratory"
)

// KnownDiseases returns every disease the engine tracks, in a stable order.
func KnownDiseases() []Disease {
	return []Disease{Dengue, Malaria, Cholera, Typhoid, Hepatitis, Diarrheal, Respiratory}
}

// ParseDisease validates a disease identifier from an external caller.
func ParseDisease(s string) (Disease, error) {
	switch d := Disease(s); d {
	case Dengue, Malaria, Cholera, Typhoid, Hepatitis, Diarrheal, Respiratory:
		return d, nil
	default:
		return "", &ValidationError{Field: "disease", Reason: fmt.Sprintf("unknown disease %q", s)}
	}
}

// RiskLevel is the ordinal risk classification used across predictions,
// alerts, and case estimation. VeryHigh corresponds to "critical" in the
// transmission-rate tables.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// AlertTier is the urgency bucket for a tiered alert.
type AlertTier string

const (
	Tier24h AlertTier = "24h" // urgent: threshold crossing within one day
	Tier72h AlertTier = "72h" // watch: threshold crossing within three days
)

// TimeSeriesPoint is a single recorded daily case count. Immutable once
// recorded.
type TimeSeriesPoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// DiseaseSeries holds the chronological case history for one disease at one
// location. Points are strictly increasing in date with no duplicates.
type DiseaseSeries struct {
	Disease  Disease           `json:"disease"`
	Location string            `json:"location"`
	Points   []TimeSeriesPoint `json:"points"`
}

// Validate checks the series invariants: non-negative counts and strictly
// increasing dates.
func (s DiseaseSeries) Validate() error {
	for i, p := range s.Points {
		if p.Count < 0 {
			return &ValidationError{Field: "points", Reason: fmt.Sprintf("negative count %d at index %d", p.Count, i)}
		}
		if i > 0 && !s.Points[i-1].Date.Before(p.Date) {
			return &ValidationError{Field: "points", Reason: fmt.Sprintf("dates not strictly increasing at index %d", i)}
		}
	}
	return nil
}

// Counts returns the case counts in chronological order.
func (s DiseaseSeries) Counts() []int {
	counts := make([]int, len(s.Points))
	for i, p := range s.Points {
		counts[i] = p.Count
	}
	return counts
}

// Tail returns the series restricted to its most recent n points.
func (s DiseaseSeries) Tail(n int) DiseaseSeries {
	if n <= 0 || len(s.Points) <= n {
		return s
	}
	return DiseaseSeries{Disease: s.Disease, Location: s.Location, Points: s.Points[len(s.Points)-n:]}
}

// TotalCases sums all counts in the series.
func (s DiseaseSeries) TotalCases() int {
	total := 0
	for _, p := range s.Points {
		total += p.Count
	}
	return total
}

// WeatherObservation is the current weather at a location. Historical
// observations form their own append-only series owned by the weather
// collaborator.
type WeatherObservation struct {
	Location     string    `json:"location"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	PressureHPa  float64   `json:"pressure_hpa"`
	WindSpeed    float64   `json:"wind_speed"`
	ObservedAt   time.Time `json:"observed_at"`
}

// LocationProfile describes a monitored location. Created at configuration
// time and read-only to the engine.
type LocationProfile struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Province      string          `json:"province"`
	Lat           float64         `json:"lat"`
	Lng           float64         `json:"lng"`
	Population    int             `json:"population"`
	BaselineCases map[Disease]int `json:"baseline_cases,omitempty"`
}

// Prediction is one forecast day for a (disease, location) pair. Produced
// fresh per forecast call, never mutated.
type Prediction struct {
	Disease        Disease   `json:"disease"`
	Location       string    `json:"location"`
	HorizonDays    int       `json:"horizon_days"` // 1-indexed day offset from today
	TargetDate     time.Time `json:"target_date"`
	PredictedCases int       `json:"predicted_cases"`
	Confidence     float64   `json:"confidence"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Trend          string    `json:"trend"` // "increasing", "stable", or "decreasing"
	Stale          bool      `json:"stale,omitempty"`
}

// Alert is a tiered, ranked outbreak alert. Derived and ephemeral: recomputed
// each evaluation cycle, never persisted by the engine.
type Alert struct {
	ID                 string    `json:"id"`
	Location           string    `json:"location"`
	LocationName       string    `json:"location_name"`
	Disease            Disease   `json:"disease"`
	Tier               AlertTier `json:"tier"`
	RiskLevel          RiskLevel `json:"risk_level"`
	EstimatedCases     int       `json:"estimated_cases"`
	Confidence         float64   `json:"confidence"`
	PriorityRank       int       `json:"priority_rank"`
	RecommendedActions []string  `json:"recommended_actions"`
	Stale              bool      `json:"stale,omitempty"`
}

// AlertSummary aggregates one evaluation cycle's alerts for the dashboard.
type AlertSummary struct {
	HighestPriority     string    `json:"highest_priority"`
	TotalCriticalAlerts int       `json:"total_critical_alerts"`
	Urgent24hCount      int       `json:"urgent_24h_count"`
	Watch72hCount       int       `json:"watch_72h_count"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// CriticalAlerts is the full tiered alert response. An empty tier is a valid,
// non-error state.
type CriticalAlerts struct {
	Urgent24h []Alert      `json:"24_hours"`
	Watch72h  []Alert      `json:"72_hours"`
	Summary   AlertSummary `json:"alert_summary"`
}

// HighRiskArea is one entry in the ranked high-risk-area listing.
type HighRiskArea struct {
	Location         string          `json:"location"`
	Name             string          `json:"name"`
	Province         string          `json:"province"`
	CompositeScore   float64         `json:"composite_score"`
	DiseaseBreakdown map[Disease]int `json:"disease_breakdown"`
	Rank             int             `json:"rank"`
}

// sortedDiseases returns the keys of a disease set in stable order, used
// wherever map iteration order would leak into output.
func sortedDiseases(set map[Disease]int) []Disease {
	out := make([]Disease, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
