package model

import (
	"strings"
	"time"
)

// Outcome is the final disposition of a claim for one party.
type Outcome string

const (
	OutcomeAccepted                Outcome = "ACCEPTED"
	OutcomeRejected                Outcome = "REJECTED"
	OutcomeAcceptedWithRecovery    Outcome = "ACCEPTED_WITH_RECOVERY"
	OutcomeAcceptedWithSubrogation Outcome = "ACCEPTED_WITH_SUBROGATION"
)

// AllOutcomes returns the four valid outcomes.
func AllOutcomes() []Outcome {
	return []Outcome{
		OutcomeAccepted,
		OutcomeRejected,
		OutcomeAcceptedWithRecovery,
		OutcomeAcceptedWithSubrogation,
	}
}

// ParseOutcome maps a raw string to an Outcome. Unknown values are rejected.
// With caseSensitive false the match ignores case and surrounding whitespace.
func ParseOutcome(s string, caseSensitive bool) (Outcome, bool) {
	candidate := strings.TrimSpace(s)
	for _, o := range AllOutcomes() {
		if candidate == string(o) {
			return o, true
		}
		if !caseSensitive && strings.EqualFold(candidate, string(o)) {
			return o, true
		}
	}
	return "", false
}

// BenefitRank orders outcomes by claimant benefit. Post-decision overrides
// may only move an outcome to a strictly higher rank.
func (o Outcome) BenefitRank() int {
	switch o {
	case OutcomeRejected:
		return 0
	case OutcomeAccepted:
		return 1
	case OutcomeAcceptedWithRecovery, OutcomeAcceptedWithSubrogation:
		return 2
	default:
		return -1
	}
}

// Decision is the validated result extracted from the oracle's output for a
// single party. SourceLiability echoes the liability figure supplied in the
// prompt and is cross-checked against the claim during parsing.
type Decision struct {
	Outcome           Outcome  `json:"outcome"`
	Rationale         string   `json:"rationale"`
	Classification    string   `json:"classification,omitempty"`
	AppliedConditions []string `json:"applied_conditions,omitempty"`
	SourceLiability   float64  `json:"liability"`
}

// PartyDecision pairs a Decision with the party it was made for.
type PartyDecision struct {
	PartyIndex int     `json:"party_index"`
	PartyID    string  `json:"party_id,omitempty"`
	PartyName  string  `json:"party_name,omitempty"`
	Liability  float64 `json:"liability"`
	Decision
}

// DecisionReport is the full per-request result returned to the caller.
type DecisionReport struct {
	ID         string          `json:"id"`
	Module     Module          `json:"module"`
	CaseNumber string          `json:"case_number"`
	Model      string          `json:"model"`
	Parties    []PartyDecision `json:"parties"`
	CreatedAt  time.Time       `json:"created_at"`
}
