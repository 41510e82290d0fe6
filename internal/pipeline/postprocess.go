package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/rules"
)

// OverrideRule is a deterministic code-level adjustment applied after the
// oracle's decision is validated. Rules run in order; the first one that
// applies wins and the rest are skipped.
type OverrideRule struct {
	Name    string
	Applies func(party model.Party, dec model.Decision) bool
	Apply   func(party model.Party, dec model.Decision) model.Decision
}

// overridesFor builds the module's ordered override set. The subrogation
// upgrade only exists when the rule file carries a threshold; omitting the
// threshold disables the rule rather than defaulting it.
func overridesFor(cfg *rules.ModuleConfig) []OverrideRule {
	var out []OverrideRule

	if threshold, ok := cfg.SubrogationThreshold(); ok {
		out = append(out, OverrideRule{
			Name: "partial_liability_subrogation",
			Applies: func(party model.Party, dec model.Decision) bool {
				return dec.Outcome == model.OutcomeAccepted && party.Liability < threshold
			},
			Apply: func(party model.Party, dec model.Decision) model.Decision {
				dec.Outcome = model.OutcomeAcceptedWithSubrogation
				note := fmt.Sprintf("Upgraded to %s: party liability %v is below the subrogation threshold %v.",
					model.OutcomeAcceptedWithSubrogation, party.Liability, threshold)
				if dec.Rationale == "" {
					dec.Rationale = note
				} else {
					dec.Rationale += " " + note
				}
				dec.AppliedConditions = append(dec.AppliedConditions, "partial_liability_subrogation")
				return dec
			},
		})
	}

	return out
}

// postProcess applies the first matching override. An override may only raise
// the claimant's position; a rule whose result would rank below the oracle's
// outcome is discarded and the original decision stands.
func postProcess(overrides []OverrideRule, party model.Party, dec model.Decision) model.Decision {
	for _, rule := range overrides {
		if !rule.Applies(party, dec) {
			continue
		}
		next := rule.Apply(party, dec)
		if next.Outcome.BenefitRank() < dec.Outcome.BenefitRank() {
			zap.L().Warn("override would downgrade outcome, keeping original",
				zap.String("rule", rule.Name),
				zap.String("from", string(dec.Outcome)),
				zap.String("to", string(next.Outcome)),
			)
			return dec
		}
		zap.L().Info("override applied",
			zap.String("rule", rule.Name),
			zap.String("from", string(dec.Outcome)),
			zap.String("to", string(next.Outcome)),
		)
		return next
	}
	return dec
}
