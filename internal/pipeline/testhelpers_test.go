package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/rules"
)

// loadRules writes a rule file from doc overrides and loads it, so tests
// exercise the same path production configuration takes.
func loadRules(t *testing.T, mod model.Module, overrides map[string]any) *rules.ModuleConfig {
	t.Helper()

	doc := map[string]any{
		"main_prompt":             "Decide for party {party_index} with liability {liability}.\nDescription: {accident_description}\nReject if:\n{rejection_conditions}\nRecover if:\n{recovery_conditions}\nClaim:\n{data}",
		"compact_prompt_template": "Party {party_index}, liability {liability}: {accident_description}. Respond with JSON.",
		"rejection_conditions": []map[string]any{
			{"id": "expired_license", "description": "Driver license expired", "enabled": true},
		},
		"recovery_conditions": []map[string]any{
			{"id": "impairment", "description": "Driver impairment confirmed", "enabled": true},
		},
	}
	for k, v := range overrides {
		doc[k] = v
	}

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), string(mod)+".rules.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg, err := rules.Load(mod, path)
	require.NoError(t, err)
	return cfg
}

// testAppConfig returns process configuration tuned for fast tests: minimal
// backoff, generous rate limit.
func testAppConfig() *config.Config {
	return &config.Config{
		Oracle: config.OracleConfig{
			DecisionModel:    "qwen2.5:14b",
			TranslationModel: "llama3.2:latest",
			MaxAttempts:      3,
			BackoffMillis:    1,
			RequestsPerSec:   1000,
			MaxConcurrent:    4,
		},
		Validation: config.ValidationConfig{
			CaseSensitiveOutcomes: false,
			LiabilityTolerance:    0.5,
		},
	}
}

func testClaim(liabilities ...float64) *model.ClaimRecord {
	rec := &model.ClaimRecord{
		CaseNumber:          "C-100",
		AccidentDescription: "Rear-end collision at an intersection",
	}
	for i, l := range liabilities {
		rec.Parties = append(rec.Parties, model.Party{
			ID:        "P" + string(rune('1'+i)),
			Liability: l,
		})
	}
	return rec
}
