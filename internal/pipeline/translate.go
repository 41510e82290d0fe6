package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/prompt"
)

// translateDescription runs the translation stage when the module enables it
// and the description is Arabic. English text passes through untouched. Any
// failure is fatal for the claim; the decision prompt never sees text the
// stage could not translate.
func (p *Processor) translateDescription(ctx context.Context, rec *model.ClaimRecord) (string, error) {
	text := rec.AccidentDescription
	if !p.cfg.TranslationEnabled() || rec.DescriptionLang != language.Arabic {
		return text, nil
	}

	builder := prompt.NewBuilder(p.module, p.cfg)
	req, err := builder.Translation(text)
	if err != nil {
		return "", &TranslationError{Err: err}
	}

	out, err := p.oracle.translate(ctx, req)
	if err != nil {
		return "", &TranslationError{Err: err}
	}

	translated := cleanTranslation(out)
	if translated == "" {
		return "", &TranslationError{Err: errEmptyTranslation}
	}

	zap.L().Debug("translated accident description",
		zap.String("case", rec.CaseNumber),
		zap.Int("original_len", len(text)),
		zap.Int("translated_len", len(translated)),
	)
	return translated, nil
}

// cleanTranslation strips the framing chat models wrap translations in:
// leading "Translation:" style labels and surrounding quotes.
func cleanTranslation(raw string) string {
	out := strings.TrimSpace(raw)

	for _, label := range []string{"translation:", "english:", "here is the translation:"} {
		if len(out) >= len(label) && strings.EqualFold(out[:len(label)], label) {
			out = strings.TrimSpace(out[len(label):])
		}
	}

	if len(out) >= 2 && out[0] == '"' && out[len(out)-1] == '"' {
		out = strings.TrimSpace(out[1 : len(out)-1])
	}
	return out
}
