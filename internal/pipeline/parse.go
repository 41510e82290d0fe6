package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/model"
)

// rawDecision accepts both key sets the oracle is known to emit: the current
// schema (outcome/rationale/liability) and the legacy one the older prompt
// generation trained it on (decision/reasoning/classification).
type rawDecision struct {
	Outcome           string   `json:"outcome"`
	Decision          string   `json:"decision"`
	Rationale         string   `json:"rationale"`
	Reasoning         string   `json:"reasoning"`
	Classification    string   `json:"classification"`
	AppliedConditions []string `json:"applied_conditions"`
	Liability         *float64 `json:"liability"`
}

// parseDecision extracts the first JSON object from a raw completion and
// validates it against the request. A nil error means the decision is usable
// as-is; any failure is a DecisionInvalidError and never a defaulted outcome.
func parseDecision(raw string, requestLiability float64, v config.ValidationConfig) (*model.Decision, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, &DecisionInvalidError{Reason: err.Error(), Raw: snippet(raw)}
	}

	var rd rawDecision
	if err := json.Unmarshal(body, &rd); err != nil {
		return nil, &DecisionInvalidError{Reason: "malformed JSON object: " + err.Error(), Raw: snippet(raw)}
	}

	outcomeStr := rd.Outcome
	if outcomeStr == "" {
		outcomeStr = rd.Decision
	}
	if outcomeStr == "" {
		return nil, &DecisionInvalidError{Reason: "missing outcome", Raw: snippet(raw)}
	}

	outcome, ok := model.ParseOutcome(outcomeStr, v.CaseSensitiveOutcomes)
	if !ok {
		return nil, &DecisionInvalidError{
			Reason: fmt.Sprintf("unknown outcome %q", outcomeStr),
			Raw:    snippet(raw),
		}
	}

	rationale := rd.Rationale
	if rationale == "" {
		rationale = rd.Reasoning
	}

	dec := &model.Decision{
		Outcome:           outcome,
		Rationale:         rationale,
		Classification:    rd.Classification,
		AppliedConditions: rd.AppliedConditions,
		SourceLiability:   requestLiability,
	}

	// The oracle echoes the liability figure back; a drifted echo means it
	// decided against the wrong numbers. Absence is fine, drift is not.
	if rd.Liability != nil {
		if math.Abs(*rd.Liability-requestLiability) > v.LiabilityTolerance {
			return nil, &DecisionInvalidError{
				Reason: fmt.Sprintf("echoed liability %v drifts from request %v beyond tolerance %v",
					*rd.Liability, requestLiability, v.LiabilityTolerance),
				Raw: snippet(raw),
			}
		}
		dec.SourceLiability = *rd.Liability
	}

	return dec, nil
}

// extractJSON returns the first complete JSON object in raw. Completions
// arrive wrapped in prose, markdown fences, or both; everything around the
// object is ignored.
func extractJSON(raw string) ([]byte, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in response")
	}

	dec := json.NewDecoder(strings.NewReader(cleaned[start:]))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("unterminated JSON object: %w", err)
	}
	return obj, nil
}

func snippet(raw string) string {
	const max = 300
	raw = strings.TrimSpace(raw)
	if len(raw) <= max {
		return raw
	}
	return raw[:max] + "..."
}
