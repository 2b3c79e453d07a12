package assessor

import (
	"fmt"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

// Default values for enrichment fields that could not be resolved.
const (
	fieldUnavailable = "N/A"
	fieldUnknown     = "Unknown"
)

// Escalation constants for confirmed community reports.
const (
	// communityEscalationFloor is the minimum identity score once the
	// community has confirmed at least one report against a SAFE verdict.
	communityEscalationFloor = 70

	// communityReportIncrement is the per-report score increase applied
	// to verdicts already at WARNING or above.
	communityReportIncrement = 5

	maxIdentityScore = 100
)

// enrichment carries the best-effort technical details gathered in Step 5.
type enrichment struct {
	Carrier  string
	Location string
	LineType string

	// Extra is a free-form summary embedded in the model prompt.
	Extra string
}

func defaultEnrichment() enrichment {
	return enrichment{
		Carrier:  fieldUnavailable,
		Location: fieldUnavailable,
		LineType: fieldUnavailable,
		Extra:    "No additional technical information.",
	}
}

// blacklistVerdict is the verdict for queries on the confirmed-scam list.
func blacklistVerdict(rec *domain.ScamRecord, enrich enrichment) *domain.RiskVerdict {
	signs := []string{"Previously reported and verified as fraud"}
	if rec.Category != "" {
		signs = append(signs, rec.Category)
	}
	if rec.Description != "" {
		signs = append(signs, rec.Description)
	}

	return &domain.RiskVerdict{
		RiskLevel:     domain.RiskDangerous,
		IdentityScore: 100,
		Warning:       "WARNING: this entry is on the verified scam blacklist.",
		Details: domain.VerdictDetails{
			Identity:      "Verified fraud",
			CallType:      "Malicious activity",
			Carrier:       enrich.Carrier,
			Location:      enrich.Location,
			LineType:      enrich.LineType,
			Signs:         signs,
			Urgency:       "High",
			FinancialRisk: "Yes",
			Category:      "Fraud",
		},
		Recommendations: []string{
			"Block immediately",
			"Do not transact",
		},
	}
}

// highRiskPhoneVerdict is the verdict for phone numbers matching the
// high-risk pattern set.
func highRiskPhoneVerdict(enrich enrichment) *domain.RiskVerdict {
	return &domain.RiskVerdict{
		RiskLevel:     domain.RiskDangerous,
		IdentityScore: 90,
		Warning:       "This number shows signs of spoofing or high-risk activity.",
		Details: domain.VerdictDetails{
			Identity:      "Suspected impersonation",
			CallType:      "Cold call / spam",
			Carrier:       enrich.Carrier,
			Location:      enrich.Location,
			LineType:      enrich.LineType,
			Signs:         []string{"Unusual or VoIP prefix", "Abnormal vanity number pattern"},
			Urgency:       "High",
			FinancialRisk: "High",
			Category:      "Impersonation/Spoofing",
		},
		Recommendations: []string{
			"Do not answer",
			"Do not share personal information",
		},
	}
}

// safePhoneVerdict is the verdict for phone numbers with no risk signals.
func safePhoneVerdict(enrich enrichment) *domain.RiskVerdict {
	return &domain.RiskVerdict{
		RiskLevel:     domain.RiskSafe,
		IdentityScore: 15,
		Warning:       "No risk detected (advisory only).",
		Details: domain.VerdictDetails{
			Identity:      "Regular subscriber number",
			CallType:      "Communication",
			Carrier:       enrich.Carrier,
			Location:      enrich.Location,
			LineType:      enrich.LineType,
			Signs:         []string{"Valid carrier information"},
			Urgency:       "Low",
			FinancialRisk: "Low",
			Category:      "Safe",
		},
		Recommendations: []string{
			"Stay alert if asked to transfer money",
		},
	}
}

// fallbackVerdict is the deterministic default used when the generative
// model is unavailable or returns unparsable output.
func fallbackVerdict(enrich enrichment) *domain.RiskVerdict {
	return &domain.RiskVerdict{
		RiskLevel:     domain.RiskWarning,
		IdentityScore: 50,
		Warning:       "Automated check unavailable, please verify manually.",
		Details: domain.VerdictDetails{
			Identity:      fieldUnknown,
			CallType:      fieldUnknown,
			Carrier:       enrich.Carrier,
			Location:      enrich.Location,
			LineType:      enrich.LineType,
			Signs:         []string{},
			Urgency:       "Medium",
			FinancialRisk: fieldUnknown,
			Category:      fieldUnknown,
		},
		Recommendations: []string{},
	}
}

// applyRuleHits escalates a verdict with matched custom risk rules.
// Escalation-only: hits can raise the score and level, never lower them.
func applyRuleHits(v *domain.RiskVerdict, hits []domain.RuleHit) {
	for _, hit := range hits {
		if hit.Score > v.IdentityScore {
			v.IdentityScore = hit.Score
		}

		switch {
		case hit.Score >= 80 && v.RiskLevel != domain.RiskDangerous:
			v.RiskLevel = domain.RiskDangerous
		case hit.Score >= 40 && v.RiskLevel == domain.RiskSafe:
			v.RiskLevel = domain.RiskWarning
		}

		sign := "Matched risk rule: " + hit.Name
		if !containsSign(v.Details.Signs, sign) {
			v.Details.Signs = append(v.Details.Signs, sign)
		}
	}
}

// applyCommunityEscalation folds confirmed community reports into a verdict.
// Community evidence can only raise risk, never lower it.
func applyCommunityEscalation(v *domain.RiskVerdict, reportCount int) {
	if reportCount == 0 {
		return
	}

	sign := fmt.Sprintf("%d confirmed community report(s)", reportCount)
	if !containsSign(v.Details.Signs, sign) {
		v.Details.Signs = append([]string{sign}, v.Details.Signs...)
	}

	if v.RiskLevel == domain.RiskSafe {
		v.RiskLevel = domain.RiskWarning
		v.Warning = fmt.Sprintf("The community has filed %d report(s) against this query.", reportCount)
		if v.IdentityScore < communityEscalationFloor {
			v.IdentityScore = communityEscalationFloor
		}
		return
	}

	v.IdentityScore += reportCount * communityReportIncrement
	if v.IdentityScore > maxIdentityScore {
		v.IdentityScore = maxIdentityScore
	}
}

func containsSign(signs []string, sign string) bool {
	for _, s := range signs {
		if s == sign {
			return true
		}
	}
	return false
}
