// Package domain implements the outbreak forecast and risk-tiering core:
// trend extrapolation, seasonal adjustment, horizon forecasting, composite
// risk scoring, expected-case estimation, alert tiering, and high-risk-area
// ranking. Everything in this package is a pure function of its inputs (plus
// an injectable clock and variation source); no I/O happens here.
//
// # Diseases
//
// The engine tracks seven notifiable diseases: dengue, malaria, cholera,
// typhoid, hepatitis, diarrheal, and respiratory. Unknown identifiers are
// rejected with a ValidationError, never coerced.
//
// # Forecast model
//
// Forecasts are a deliberate simplification, not a regression:
//
//	avg   = mean(last W counts)          (W = 7 by default)
//	slope = (last - first) / (n - 1)
//	base_i = avg + slope*i               (i = 1-indexed forecast day)
//
// Each base value is scaled by the seasonal multiplier for the disease and
// the calendar month of the forecast day, then by a bounded variation factor
// (uniform in [0.9, 1.1] by default). Variation is drawn from an injectable,
// seedable source so the whole pipeline can run deterministically; see
// [VariationSource]. Values are clamped to max(0, round(v)).
//
// # Seasonal multipliers
//
// Fixed per-disease, per-month constants reflecting Pakistan's monsoon
// (June–September), post-monsoon, and winter seasons:
//
//	dengue:      1.3 Jun–Sep, 0.8 otherwise
//	malaria:     1.2 Jun–Sep, 0.9 otherwise
//	cholera:     1.25 Jun–Sep, 0.85 otherwise
//	typhoid:     1.15 May–Sep, 0.9 otherwise
//	hepatitis:   1.1 Jul–Oct, 0.95 otherwise
//	diarrheal:   1.2 Jun–Sep, 0.9 otherwise
//	respiratory: 1.4 Nov–Feb, 1.0 Mar and Oct, 0.7 otherwise
//
// A missing table entry for a known disease is a configuration defect and
// fails at startup, not per request.
//
// # Risk scoring
//
// RiskScore is an explicit additive rule table (active-disease count,
// temperature band, humidity band, per-disease joint conditions) capped at
// 100. The rules are heuristic placeholders standing in for the opaque
// BaseModel collaborator; they have no statistical derivation and should not
// be read as a trained model.
//
// # Confidence
//
// Confidence is a [0,1] reliability estimate, not a calibrated probability.
// It grows with the amount of history backing the trend, decays with horizon
// distance, and is never reported above 0.95. Forecasts produced from fewer
// than two history points are capped at 0.3.
package domain
