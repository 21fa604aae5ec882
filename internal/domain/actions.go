package domain

// RecommendedActions returns the ordered response playbook for a disease at
// a given risk level. The lists follow national outbreak-response guidance
// for vector control, water safety, and respiratory surveillance.
func RecommendedActions(disease Disease, level RiskLevel) []string {
	elevated := level == RiskHigh || level == RiskVeryHigh

	switch disease {
	case Dengue:
		if elevated {
			return []string{
				"Eliminate standing water sources immediately",
				"Increase vector control activities",
				"Run public awareness campaigns on dengue prevention",
				"Enhance surveillance in high-risk areas",
				"Prepare healthcare facilities for a potential surge",
			}
		}
		return []string{"Maintain routine vector prevention measures"}

	case Malaria:
		if elevated {
			return []string{
				"Distribute insecticide-treated nets",
				"Conduct indoor residual spraying in high-risk areas",
				"Strengthen case management protocols",
				"Enhance diagnostic capabilities",
			}
		}
		return []string{"Maintain routine malaria prevention measures"}

	case Cholera:
		if level == RiskVeryHigh {
			return []string{
				"Begin immediate water quality testing and treatment",
				"Deploy emergency medical teams to affected areas",
				"Establish cholera treatment centers",
				"Distribute oral rehydration salts at scale",
				"Enforce strict water and food safety protocols",
			}
		}
		if level == RiskHigh {
			return []string{
				"Enhance water quality monitoring",
				"Raise public awareness on safe water practices",
				"Increase cholera surveillance",
				"Stage medical supplies for a potential outbreak",
			}
		}
		return []string{"Continue routine water quality monitoring"}

	case Typhoid:
		if elevated {
			return []string{
				"Ensure safe drinking water supply",
				"Run food safety inspections",
				"Launch typhoid vaccination campaigns in high-risk areas",
				"Enhance typhoid case surveillance",
			}
		}
		return []string{"Continue basic food and water safety education"}

	case Hepatitis:
		if elevated {
			return []string{
				"Vaccinate high-risk populations against hepatitis A",
				"Improve sanitation and hygiene facilities",
				"Distribute safe water in affected areas",
				"Enhance hepatitis case surveillance",
			}
		}
		return []string{"Continue routine hygiene education and vaccination"}

	case Diarrheal:
		if level == RiskVeryHigh {
			return []string{
				"Distribute oral rehydration salts and clean water at scale",
				"Open emergency diarrhea treatment centers",
				"Protect affected water sources immediately",
				"Dispatch mobile medical units to affected areas",
			}
		}
		if level == RiskHigh {
			return []string{
				"Increase oral rehydration salt availability",
				"Test and treat water supplies",
				"Run public education on diarrhea prevention",
				"Enhance diarrheal disease surveillance",
			}
		}
		return []string{"Continue routine water quality monitoring"}

	case Respiratory:
		if elevated {
			return []string{
				"Issue air quality monitoring and alerts",
				"Run vaccination campaigns for vulnerable populations",
				"Publish advisories limiting outdoor activity",
				"Enhance respiratory disease surveillance",
			}
		}
		return []string{"Continue routine respiratory health monitoring"}
	}

	return []string{"Increase general disease surveillance"}
}
