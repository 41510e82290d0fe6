package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/model"
)

var looseValidation = config.ValidationConfig{LiabilityTolerance: 0.5}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		liability float64
		want      model.Outcome
	}{
		{
			name:      "bare object",
			raw:       `{"outcome":"ACCEPTED","rationale":"fine","liability":40}`,
			liability: 40,
			want:      model.OutcomeAccepted,
		},
		{
			name:      "fenced markdown",
			raw:       "Here is my analysis.\n```json\n{\"outcome\": \"REJECTED\", \"rationale\": \"expired license\"}\n```\nLet me know if you need more.",
			liability: 40,
			want:      model.OutcomeRejected,
		},
		{
			name:      "legacy key set",
			raw:       `{"decision":"ACCEPTED_WITH_RECOVERY","reasoning":"impairment","classification":"recovery","applied_conditions":["impairment"]}`,
			liability: 0,
			want:      model.OutcomeAcceptedWithRecovery,
		},
		{
			name:      "lowercase outcome",
			raw:       `{"outcome":"accepted"}`,
			liability: 100,
			want:      model.OutcomeAccepted,
		},
		{
			name:      "prose before object",
			raw:       `The claim looks routine. {"outcome":"ACCEPTED","liability":39.8} That is my final answer.`,
			liability: 40,
			want:      model.OutcomeAccepted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := parseDecision(tt.raw, tt.liability, looseValidation)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dec.Outcome)
		})
	}
}

func TestParseDecisionLegacyKeysCarryThrough(t *testing.T) {
	raw := `{"decision":"REJECTED","reasoning":"fled scene","classification":"rejection","applied_conditions":["fled_scene"]}`
	dec, err := parseDecision(raw, 50, looseValidation)
	require.NoError(t, err)

	assert.Equal(t, "fled scene", dec.Rationale)
	assert.Equal(t, "rejection", dec.Classification)
	assert.Equal(t, []string{"fled_scene"}, dec.AppliedConditions)
	assert.Equal(t, 50.0, dec.SourceLiability)
}

func TestParseDecisionFailures(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"no object", "I refuse to answer in JSON.", "no JSON object"},
		{"unterminated", `{"outcome":"ACCEPTED"`, "unterminated"},
		{"missing outcome", `{"rationale":"something"}`, "missing outcome"},
		{"unknown outcome", `{"outcome":"MAYBE"}`, "unknown outcome"},
		{"liability drift", `{"outcome":"ACCEPTED","liability":45}`, "drifts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDecision(tt.raw, 40, looseValidation)
			var invalid *DecisionInvalidError
			require.ErrorAs(t, err, &invalid)
			assert.Contains(t, invalid.Reason, tt.reason)
		})
	}
}

func TestParseDecisionCaseSensitiveMode(t *testing.T) {
	strict := config.ValidationConfig{CaseSensitiveOutcomes: true, LiabilityTolerance: 0.5}

	_, err := parseDecision(`{"outcome":"accepted"}`, 100, strict)
	var invalid *DecisionInvalidError
	require.ErrorAs(t, err, &invalid)

	dec, err := parseDecision(`{"outcome":"ACCEPTED"}`, 100, strict)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAccepted, dec.Outcome)
}

func TestParseDecisionLiabilityWithinTolerance(t *testing.T) {
	dec, err := parseDecision(`{"outcome":"ACCEPTED","liability":40.4}`, 40, looseValidation)
	require.NoError(t, err)
	assert.Equal(t, 40.4, dec.SourceLiability)
}
