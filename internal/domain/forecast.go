package domain

import (
	"fmt"
	"math"
)

// MaxHorizonDays bounds forecast requests. The linear trend model has no
// predictive value months out, so longer horizons are rejected as invalid
// rather than silently truncated.
const MaxHorizonDays = 90

// Confidence shape constants. Confidence starts from how much of the window
// the history fills and loses confidenceDecay per forecast day.
const (
	confidenceFloor   = 0.05
	confidenceCeiling = 0.95
	confidenceBase    = 0.55
	confidenceHistory = 0.40
	confidenceDecay   = 0.03

	// insufficientHistoryCap bounds confidence for flat forecasts
	// substituted when fewer than two history points exist.
	insufficientHistoryCap = 0.3
)

// Magnitude-to-risk thresholds, expressed as the ratio of a predicted value
// to the recent window average.
const (
	ratioVeryHigh = 2.0
	ratioHigh     = 1.5
	ratioMedium   = 1.1
)

// HorizonForecaster combines trend extrapolation, seasonal adjustment, and
// bounded variation into a per-day predicted-cases series. It is a pure
// function of its inputs plus the injected variation source.
type HorizonForecaster struct {
	seasonal  *SeasonalAdjuster
	variation VariationSource
	window    int
}

// NewHorizonForecaster creates a forecaster. A nil variation source disables
// variation; windowSize below 2 falls back to DefaultWindowSize.
func NewHorizonForecaster(seasonal *SeasonalAdjuster, variation VariationSource, windowSize int) *HorizonForecaster {
	if variation == nil {
		variation = NoVariation{}
	}
	if windowSize < 2 {
		windowSize = DefaultWindowSize
	}
	return &HorizonForecaster{seasonal: seasonal, variation: variation, window: windowSize}
}

// Forecast produces exactly horizonDays predictions for the pair. History
// with fewer than two points degrades to a flat forecast at the last known
// value with confidence capped at 0.3; it never aborts the call.
func (f *HorizonForecaster) Forecast(disease Disease, location string, history []TimeSeriesPoint, horizonDays int) ([]Prediction, error) {
	if _, err := ParseDisease(string(disease)); err != nil {
		return nil, err
	}
	if horizonDays < 1 {
		return nil, &ValidationError{Field: "horizon_days", Reason: fmt.Sprintf("must be positive, got %d", horizonDays)}
	}
	if horizonDays > MaxHorizonDays {
		return nil, &ValidationError{Field: "horizon_days", Reason: fmt.Sprintf("exceeds maximum of %d days", MaxHorizonDays)}
	}

	counts := make([]int, 0, len(history))
	for _, p := range history {
		counts = append(counts, p.Count)
	}
	window := WindowFromCounts(counts, f.window)

	trend, err := ComputeTrend(window.Values())
	insufficient := err != nil
	if insufficient {
		// Flat forecast at the last known value (0 for an empty series).
		trend = Trend{Avg: float64(window.Last()), Slope: 0, N: window.Len()}
	}

	today := clock.Now()
	predictions := make([]Prediction, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		target := today.AddDate(0, 0, i)

		mult, err := f.seasonal.Multiplier(disease, target.Month())
		if err != nil {
			return nil, err
		}

		value := trend.Project(i) * mult * f.variation.Factor()
		predicted := int(math.Round(value))
		if predicted < 0 {
			predicted = 0
		}

		confidence := f.confidence(window.Len(), i)
		if insufficient && confidence > insufficientHistoryCap {
			confidence = insufficientHistoryCap
		}

		predictions = append(predictions, Prediction{
			Disease:        disease,
			Location:       location,
			HorizonDays:    i,
			TargetDate:     target,
			PredictedCases: predicted,
			Confidence:     confidence,
			RiskLevel:      riskFromMagnitude(predicted, trend.Avg),
			Trend:          trend.Direction(),
		})
	}
	return predictions, nil
}

// confidence grows with the fraction of the window covered by history and
// decays linearly with horizon distance, clamped to [0.05, 0.95].
func (f *HorizonForecaster) confidence(historyLen, day int) float64 {
	histFactor := float64(historyLen) / float64(f.window)
	if histFactor > 1 {
		histFactor = 1
	}
	c := confidenceBase + confidenceHistory*histFactor - confidenceDecay*float64(day-1)
	if c > confidenceCeiling {
		c = confidenceCeiling
	}
	if c < confidenceFloor {
		c = confidenceFloor
	}
	return c
}

// riskFromMagnitude classifies a predicted value against the recent window
// average. With no meaningful baseline, any predicted cases read as medium.
func riskFromMagnitude(predicted int, avg float64) RiskLevel {
	if avg <= 0 {
		if predicted > 0 {
			return RiskMedium
		}
		return RiskLow
	}
	ratio := float64(predicted) / avg
	switch {
	case ratio >= ratioVeryHigh:
		return RiskVeryHigh
	case ratio >= ratioHigh:
		return RiskHigh
	case ratio >= ratioMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}
