package assessor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

// buildPrompt constructs the generative-model prompt for free-text and URL
// queries, embedding any enrichment gathered in Step 5. The model is asked
// for a JSON object constrained to the RiskVerdict shape.
func buildPrompt(query string, enrich enrichment) string {
	return fmt.Sprintf(
		`Analyze the scam risk for: %q. Technical info: %s. `+
			`Respond with JSON only, no prose, in this exact shape: `+
			`{"riskLevel": "SAFE"|"WARNING"|"DANGEROUS", "identityScore": 0-100, `+
			`"warning": "string", "details": {"identity": "string", "callType": "string", `+
			`"signs": [], "urgency": "string", "financialRisk": "string", "category": "string"}, `+
			`"recommendations": []}`,
		query, enrich.Extra,
	)
}

// parseModelVerdict parses raw model output into a verdict. It tolerates
// markdown code fences and clamps out-of-range scores; anything else that
// does not decode into a valid verdict is an error and the caller falls
// back to the deterministic default.
func parseModelVerdict(raw string, enrich enrichment) (*domain.RiskVerdict, error) {
	content := strings.TrimSpace(raw)
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)

	var v domain.RiskVerdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, fmt.Errorf("unparsable model output: %w", err)
	}

	if !v.RiskLevel.Valid() {
		return nil, fmt.Errorf("model returned unknown risk level %q", v.RiskLevel)
	}

	if v.IdentityScore < 0 {
		v.IdentityScore = 0
	}
	if v.IdentityScore > maxIdentityScore {
		v.IdentityScore = maxIdentityScore
	}

	if v.Details.Signs == nil {
		v.Details.Signs = []string{}
	}
	if v.Recommendations == nil {
		v.Recommendations = []string{}
	}

	// Model output never overrides locally gathered technical details.
	v.Details.Carrier = enrich.Carrier
	v.Details.Location = enrich.Location
	v.Details.LineType = enrich.LineType

	// The transient report list is assembled locally, not by the model.
	v.UserReports = nil

	return &v, nil
}
