package pipeline

import (
	"errors"
	"fmt"
)

var errEmptyTranslation = errors.New("oracle returned an empty translation")

// TranslationError marks a failed translation stage. Translation failure is
// fatal for the claim; the pipeline never falls through to the untranslated
// text.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("pipeline: translation failed: %v", e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// OracleUnavailableError marks an oracle call that failed after the full
// retry budget. Attempts is the number of tries made.
type OracleUnavailableError struct {
	Attempts int
	Err      error
}

func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("pipeline: oracle unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *OracleUnavailableError) Unwrap() error { return e.Err }

// DecisionInvalidError marks an oracle response that could not be turned into
// a valid decision. The claim fails; no default outcome is ever substituted.
type DecisionInvalidError struct {
	Reason string
	Raw    string
}

func (e *DecisionInvalidError) Error() string {
	return "pipeline: invalid decision: " + e.Reason
}
