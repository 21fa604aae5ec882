package domain

// Trend is the linear model fitted over a series window: the window mean and
// the endpoint slope. It deliberately assumes nothing beyond linearity.
type Trend struct {
	Avg   float64
	Slope float64
	N     int
}

// slopeStableBand is the per-day slope magnitude below which a trend is
// reported as "stable" rather than increasing or decreasing.
const slopeStableBand = 0.5

// ComputeTrend fits a Trend over the windowed counts. Returns
// ErrInsufficientHistory when fewer than two points are supplied; callers
// substitute a flat low-confidence forecast rather than aborting.
func ComputeTrend(counts []int) (Trend, error) {
	n := len(counts)
	if n < 2 {
		return Trend{}, ErrInsufficientHistory
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	avg := float64(sum) / float64(n)
	slope := float64(counts[n-1]-counts[0]) / float64(n-1)

	return Trend{Avg: avg, Slope: slope, N: n}, nil
}

// Project extrapolates the trend `step` days forward (1-indexed).
func (t Trend) Project(step int) float64 {
	return t.Avg + t.Slope*float64(step)
}

// Direction classifies the slope as "increasing", "decreasing", or "stable".
func (t Trend) Direction() string {
	switch {
	case t.Slope > slopeStableBand:
		return "increasing"
	case t.Slope < -slopeStableBand:
		return "decreasing"
	default:
		return "stable"
	}
}
