package synth

import (
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

// focusRisks is a fixed mapping from focus area to the risk annotations a
// synthesized query carries. The annotations are data; they are produced
// alongside synthesis and never mutated afterwards.
var focusRisks = map[models.FocusArea][]models.RiskAnnotation{
	models.FocusAged: {{
		Severity:       models.RiskHigh,
		Category:       "Credit Risk",
		Description:    "Aged balances indicate collection exposure and possible impairment",
		Recommendation: "Review collectability and provisioning for the oldest buckets",
	}},
	models.FocusUnusual: {{
		Severity:       models.RiskHigh,
		Category:       "Control Risk",
		Description:    "Manual and adjustment entries bypass standard posting controls",
		Recommendation: "Verify authorization and supporting documentation for each entry",
	}},
	models.FocusDuplicate: {{
		Severity:       models.RiskHigh,
		Category:       "Payment Control",
		Description:    "Matching payee, amount and date suggests duplicate disbursement",
		Recommendation: "Confirm whether flagged groups were paid more than once and recover overpayments",
	}},
	models.FocusVariance: {{
		Severity:       models.RiskMedium,
		Category:       "Financial Reporting",
		Description:    "Movements outside historical bands may indicate misstatement or reclassification",
		Recommendation: "Obtain explanations for accounts in the HIGH deviation band",
	}},
	models.FocusRound: {{
		Severity:       models.RiskMedium,
		Category:       "Fraud Indicator",
		Description:    "Round amounts occur disproportionately in estimated or fabricated entries",
		Recommendation: "Sample flagged transactions for supporting evidence",
	}},
	models.FocusCutoff: {{
		Severity:       models.RiskMedium,
		Category:       "Cutoff Risk",
		Description:    "Activity close to the period boundary may be recognized in the wrong period",
		Recommendation: "Trace flagged transactions to shipping or service dates",
	}},
	models.FocusLarge: {{
		Severity:       models.RiskMedium,
		Category:       "Materiality",
		Description:    "Individually significant items drive the population's overall assertion risk",
		Recommendation: "Test flagged items individually rather than by sampling",
	}},
	models.FocusGeneral: {{
		Severity:    models.RiskLow,
		Category:    "General Review",
		Description: "Broad metrics query with no specific risk targeting",
	}},
}

// identifyRisks collects the annotations for every detected focus area,
// de-duplicated by category, preserving detection order.
func identifyRisks(fc FocusContext) []models.RiskAnnotation {
	seen := map[string]bool{}
	var risks []models.RiskAnnotation
	for _, area := range fc.FocusAreas {
		for _, r := range focusRisks[area] {
			if seen[r.Category] {
				continue
			}
			seen[r.Category] = true
			risks = append(risks, r)
		}
	}
	return risks
}
