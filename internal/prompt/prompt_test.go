package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/rules"
)

func loadConfig(t *testing.T, overrides map[string]any) *rules.ModuleConfig {
	t.Helper()

	doc := map[string]any{
		"main_prompt":             "Case {party_index}: {accident_description}\nLiability: {liability}\nReject if:\n{rejection_conditions}\nRecover if:\n{recovery_conditions}\nData:\n{data}",
		"compact_prompt_template": "Party {party_index} liability {liability}: {accident_description}",
		"translation_prompt":      "Translate to English:\n{text}",
		"rejection_conditions": []map[string]any{
			{"id": "expired_license", "description": "Driver license expired at accident time", "enabled": true},
			{"id": "disabled_rule", "description": "Placeholder rule", "enabled": false},
			{"id": "fled_scene", "description": "Driver fled the scene", "enabled": true},
		},
		"recovery_conditions": []map[string]any{
			{"id": "impairment", "description": "Driver impairment confirmed by report", "enabled": true},
		},
	}
	for k, v := range overrides {
		doc[k] = v
	}

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg, err := rules.Load(model.ModuleTP, path)
	require.NoError(t, err)
	return cfg
}

func TestDecisionPrompt(t *testing.T) {
	b := NewBuilder(model.ModuleTP, loadConfig(t, nil))

	out, err := b.Decision(Input{
		Data:        `{"case_number":"C1"}`,
		PartyIndex:  1,
		Liability:   37.5,
		Description: "rear-end collision",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Case 2:")
	assert.Contains(t, out, "Liability: 37.5")
	assert.Contains(t, out, "rear-end collision")
	assert.Contains(t, out, `{"case_number":"C1"}`)
	assert.Contains(t, out, "1. Driver license expired at accident time")
	assert.Contains(t, out, "2. Driver fled the scene")
	assert.NotContains(t, out, "Placeholder rule")
	assert.Contains(t, out, "1. Driver impairment confirmed by report")
}

func TestDecisionPromptDeterministic(t *testing.T) {
	b := NewBuilder(model.ModuleTP, loadConfig(t, nil))
	in := Input{Data: "d", PartyIndex: 0, Liability: 100, Description: "x"}

	first, err := b.Decision(in)
	require.NoError(t, err)
	second, err := b.Decision(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecisionPromptFallsBackToCompact(t *testing.T) {
	b := NewBuilder(model.ModuleTP, loadConfig(t, map[string]any{
		"max_prompt_chars": 80,
	}))

	out, err := b.Decision(Input{
		Data:        strings.Repeat("x", 500),
		PartyIndex:  0,
		Liability:   40,
		Description: "collision",
	})
	require.NoError(t, err)

	// The compact template carries no {data}, so the oversized payload is
	// absent rather than truncated.
	assert.Equal(t, "Party 1 liability 40: collision", out)
}

func TestUnknownPlaceholder(t *testing.T) {
	b := NewBuilder(model.ModuleTP, loadConfig(t, map[string]any{
		"main_prompt": "Decide using {weather_report}",
	}))

	_, err := b.Decision(Input{Description: "collision"})
	var berr *BuildError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "main_prompt", berr.Template)
	assert.Equal(t, "weather_report", berr.Placeholder)
}

func TestTranslationPrompt(t *testing.T) {
	b := NewBuilder(model.ModuleTP, loadConfig(t, nil))

	out, err := b.Translation("اصطدام خلفي")
	require.NoError(t, err)
	assert.Equal(t, "Translate to English:\nاصطدام خلفي", out)
}

func TestCompactKeepsOverLimitOutput(t *testing.T) {
	// Only the main template falls back; an oversized compact render is
	// returned as-is because there is nothing smaller to try.
	b := NewBuilder(model.ModuleTP, loadConfig(t, map[string]any{
		"max_prompt_chars": 10,
	}))

	out, err := b.Compact(Input{PartyIndex: 0, Liability: 50, Description: "a long enough description"})
	require.NoError(t, err)
	assert.Greater(t, len(out), 10)
}
