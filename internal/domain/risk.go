package domain

// RiskScore computes the composite 0–100 risk score from the set of active
// diseases and current weather. It is a deterministic, side-effect-free rule
// table: a heuristic placeholder for the opaque BaseModel collaborator, not
// a trained model. Scoring is ordered, additive, then capped at 100.
func RiskScore(active []Disease, temperatureC, humidityPct float64) int {
	diseases := dedupe(active)

	score := 15 * len(diseases)
	score += temperatureBonus(temperatureC)
	score += humidityBonus(humidityPct)

	for _, d := range diseases {
		score += jointConditionBonus(d, temperatureC, humidityPct)
	}

	if score > 100 {
		return 100
	}
	return score
}

// RiskLevelFromScore maps a composite score onto the ordinal risk tiers.
func RiskLevelFromScore(score int) RiskLevel {
	switch {
	case score >= 75:
		return RiskVeryHigh
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

func temperatureBonus(tempC float64) int {
	switch {
	case tempC >= 45:
		return 30
	case tempC >= 42:
		return 25
	case tempC >= 40:
		return 20
	case tempC >= 35:
		return 15
	case tempC >= 30:
		return 10
	default:
		return 0
	}
}

func humidityBonus(humidityPct float64) int {
	switch {
	case humidityPct >= 80:
		return 20
	case humidityPct >= 70:
		return 15
	case humidityPct >= 60:
		return 10
	case humidityPct >= 50:
		return 5
	default:
		return 0
	}
}

// jointConditionBonus awards disease-specific points when current weather
// sits inside that disease's transmission-favorable band. Each bonus is
// independent and additive.
func jointConditionBonus(d Disease, temp, humidity float64) int {
	switch d {
	case Dengue:
		if temp >= 25 && temp <= 35 && humidity >= 60 {
			return 15
		}
	case Malaria:
		if temp >= 20 && temp <= 30 && humidity >= 70 {
			return 12
		}
	case Cholera:
		if temp >= 30 && humidity >= 75 {
			return 18
		}
	case Typhoid:
		if temp >= 25 && humidity >= 65 {
			return 10
		}
	case Respiratory:
		if temp >= 35 || humidity <= 40 {
			return 8
		}
	case Diarrheal:
		if temp >= 30 && humidity >= 70 {
			return 12
		}
	case Hepatitis:
		if temp >= 25 && humidity >= 60 {
			return 10
		}
	}
	return 0
}

func dedupe(diseases []Disease) []Disease {
	seen := make(map[Disease]struct{}, len(diseases))
	out := make([]Disease, 0, len(diseases))
	for _, d := range diseases {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
