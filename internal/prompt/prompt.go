// Package prompt renders the oracle prompts from the module rule templates.
// Rendering is pure string substitution; no oracle call or claim mutation
// happens here, so the same input always yields the same prompt.
package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/rules"
)

// BuildError reports a placeholder the rule template uses but the renderer
// has no value for. It fails the claim rather than emitting a literal brace.
type BuildError struct {
	Template    string
	Placeholder string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("prompt: template %s references unknown placeholder {%s}", e.Template, e.Placeholder)
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// Input carries the per-party values substituted into a decision prompt.
// Description is the post-translation accident description.
type Input struct {
	Data        string
	PartyIndex  int
	Liability   float64
	Description string
}

// Builder renders prompts for one module's rule configuration.
type Builder struct {
	module model.Module
	cfg    *rules.ModuleConfig
}

func NewBuilder(module model.Module, cfg *rules.ModuleConfig) *Builder {
	return &Builder{module: module, cfg: cfg}
}

// Decision renders the main decision prompt. When the result would exceed the
// module's prompt ceiling it falls back to the compact template instead of
// truncating, so the oracle never sees a cut-off claim.
func (b *Builder) Decision(in Input) (string, error) {
	out, err := b.render("main_prompt", b.cfg.MainPrompt(), in)
	if err != nil {
		return "", err
	}
	if len(out) > b.cfg.MaxPromptChars() {
		return b.Compact(in)
	}
	return out, nil
}

// Compact renders the compact decision template. The pipeline also uses it
// for the single retry after an unparseable oracle response.
func (b *Builder) Compact(in Input) (string, error) {
	return b.render("compact_prompt_template", b.cfg.CompactPrompt(), in)
}

// Translation renders the translation prompt around the raw accident text.
func (b *Builder) Translation(text string) (string, error) {
	tmpl := b.cfg.TranslationPrompt()
	if tmpl == "" {
		return "", &BuildError{Template: "translation_prompt", Placeholder: "text"}
	}
	return substitute("translation_prompt", tmpl, map[string]string{"text": text})
}

func (b *Builder) render(name, tmpl string, in Input) (string, error) {
	vars := map[string]string{
		"data":                 in.Data,
		"party_index":          strconv.Itoa(in.PartyIndex + 1),
		"liability":            strconv.FormatFloat(in.Liability, 'f', -1, 64),
		"accident_description": in.Description,
		"rejection_conditions": formatConditions(b.cfg.RejectionConditions()),
		"recovery_conditions":  formatConditions(b.cfg.RecoveryConditions()),
		"module":               strings.ToUpper(string(b.module)),
	}
	return substitute(name, tmpl, vars)
}

func substitute(name, tmpl string, vars map[string]string) (string, error) {
	var buildErr *BuildError
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := vars[key]
		if !ok {
			if buildErr == nil {
				buildErr = &BuildError{Template: name, Placeholder: key}
			}
			return m
		}
		return v
	})
	if buildErr != nil {
		return "", buildErr
	}
	return out, nil
}

// formatConditions renders enabled conditions as a numbered list, one per
// line, the shape the rule templates were written against.
func formatConditions(conds []rules.Condition) string {
	var sb strings.Builder
	n := 0
	for _, c := range conds {
		if !c.Enabled {
			continue
		}
		n++
		if n > 1 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s", n, c.Description)
	}
	return sb.String()
}
