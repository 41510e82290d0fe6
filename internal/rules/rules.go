// Package rules loads and validates a module's business-rule configuration.
// A ModuleConfig is read once at process start and is immutable afterwards;
// changing a rule file requires a restart.
package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"

	"github.com/gulfshield/claims-engine/internal/model"
)

// ConfigError marks a fatal configuration problem. A module whose rule file
// fails to load must not serve any request.
type ConfigError struct {
	Module model.Module
	Path   string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("rules: module %s config %s: %v", e.Module, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Condition is one entry in a module's ordered rejection or recovery list.
// Order in the file is the order the conditions appear in the prompt.
type Condition struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// ModuleConfig is one module's business-rule configuration. All fields are
// read-only after Load returns.
type ModuleConfig struct {
	module             model.Module
	mainPrompt         string
	compactPrompt      string
	translationPrompt  string
	rejections         []Condition
	recoveries         []Condition
	subrogationLimit   *float64
	maxPromptChars     int
}

// moduleConfigFile is the on-disk JSON shape of a rule file.
type moduleConfigFile struct {
	MainPrompt            string      `json:"main_prompt"`
	CompactPromptTemplate string      `json:"compact_prompt_template"`
	TranslationPrompt     string      `json:"translation_prompt"`
	RejectionConditions   []Condition `json:"rejection_conditions"`
	RecoveryConditions    []Condition `json:"recovery_conditions"`
	SubrogationThreshold  *float64    `json:"liability_subrogation_threshold"`
	MaxPromptChars        int         `json:"max_prompt_chars"`
}

const defaultMaxPromptChars = 12000

// Load reads and validates the rule file for one module. Any missing required
// field is fatal here, never deferred to request time.
func Load(mod model.Module, path string) (*ModuleConfig, error) {
	fail := func(err error) (*ModuleConfig, error) {
		return nil, &ConfigError{Module: mod, Path: path, Err: err}
	}

	if !mod.Valid() {
		return fail(eris.Errorf("unknown module %q", mod))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fail(eris.Wrap(err, "read rule file"))
	}

	var file moduleConfigFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fail(eris.Wrap(err, "parse rule file"))
	}

	if file.MainPrompt == "" {
		return fail(eris.New("missing required field main_prompt"))
	}
	if file.CompactPromptTemplate == "" {
		return fail(eris.New("missing required field compact_prompt_template"))
	}
	if len(file.RejectionConditions) == 0 {
		return fail(eris.New("missing required field rejection_conditions"))
	}
	if len(file.RecoveryConditions) == 0 {
		return fail(eris.New("missing required field recovery_conditions"))
	}
	if file.SubrogationThreshold != nil {
		t := *file.SubrogationThreshold
		if t < 0 || t > 100 {
			return fail(eris.Errorf("liability_subrogation_threshold %v out of range [0,100]", t))
		}
	}

	maxChars := file.MaxPromptChars
	if maxChars <= 0 {
		maxChars = defaultMaxPromptChars
	}

	return &ModuleConfig{
		module:            mod,
		mainPrompt:        file.MainPrompt,
		compactPrompt:     file.CompactPromptTemplate,
		translationPrompt: file.TranslationPrompt,
		rejections:        file.RejectionConditions,
		recoveries:        file.RecoveryConditions,
		subrogationLimit:  file.SubrogationThreshold,
		maxPromptChars:    maxChars,
	}, nil
}

// Module returns the module this configuration belongs to.
func (c *ModuleConfig) Module() model.Module { return c.module }

// MainPrompt returns the full decision prompt template.
func (c *ModuleConfig) MainPrompt() string { return c.mainPrompt }

// CompactPrompt returns the size-bounded fallback template.
func (c *ModuleConfig) CompactPrompt() string { return c.compactPrompt }

// TranslationPrompt returns the translation template, or "" when the
// translation stage is disabled for this module.
func (c *ModuleConfig) TranslationPrompt() string { return c.translationPrompt }

// TranslationEnabled reports whether the translation stage is active.
func (c *ModuleConfig) TranslationEnabled() bool { return c.translationPrompt != "" }

// RejectionConditions returns the ordered rejection list.
func (c *ModuleConfig) RejectionConditions() []Condition {
	out := make([]Condition, len(c.rejections))
	copy(out, c.rejections)
	return out
}

// RecoveryConditions returns the ordered recovery list.
func (c *ModuleConfig) RecoveryConditions() []Condition {
	out := make([]Condition, len(c.recoveries))
	copy(out, c.recoveries)
	return out
}

// SubrogationThreshold returns the liability threshold arming the subrogation
// upgrade. ok is false when the rule file omits it, which disables the rule
// entirely rather than defaulting to 100.
func (c *ModuleConfig) SubrogationThreshold() (threshold float64, ok bool) {
	if c.subrogationLimit == nil {
		return 0, false
	}
	return *c.subrogationLimit, true
}

// MaxPromptChars returns the rendered-prompt length ceiling above which the
// builder falls back to the compact template.
func (c *ModuleConfig) MaxPromptChars() int { return c.maxPromptChars }
