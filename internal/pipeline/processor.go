// Package pipeline turns a normalized claim into a decision report: translate,
// prompt, infer, parse, post-process. Each module runs its own Processor so TP
// and CO never share rule state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/normalize"
	"github.com/gulfshield/claims-engine/internal/prompt"
	"github.com/gulfshield/claims-engine/internal/rules"
	"github.com/gulfshield/claims-engine/internal/store"
	"github.com/gulfshield/claims-engine/pkg/ollama"
)

// State names the stage a claim is in. Claims move strictly forward; a claim
// that leaves the happy path lands in StateFailed and stays there.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateTranslated State = "TRANSLATED"
	StatePrompted   State = "PROMPTED"
	StateInferred   State = "INFERRED"
	StateParsed     State = "PARSED"
	StateProcessed  State = "PROCESSED"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Failure is the terminal error for a claim, carrying the state it died in.
type Failure struct {
	State State
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("pipeline: failed in state %s: %v", f.State, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Processor runs the decision pipeline for one module.
type Processor struct {
	module        model.Module
	cfg           *rules.ModuleConfig
	oracle        *oracle
	validation    config.ValidationConfig
	overrides     []OverrideRule
	maxConcurrent int
	audit         store.Store
}

// NewProcessor wires a module's processor. audit may be nil to disable the
// decision trail.
func NewProcessor(cfg *rules.ModuleConfig, client ollama.Client, appCfg *config.Config, audit store.Store) *Processor {
	maxConcurrent := appCfg.Oracle.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Processor{
		module:        cfg.Module(),
		cfg:           cfg,
		oracle:        newOracle(client, appCfg.Oracle),
		validation:    appCfg.Validation,
		overrides:     overridesFor(cfg),
		maxConcurrent: maxConcurrent,
		audit:         audit,
	}
}

// Module returns the module this processor serves.
func (p *Processor) Module() model.Module { return p.module }

// Process decides every party of a normalized claim. Parties are decided
// concurrently; the first party to fail fails the whole claim, and the
// returned error is always a *Failure naming the stage.
func (p *Processor) Process(ctx context.Context, rec *model.ClaimRecord) (*model.DecisionReport, error) {
	log := zap.L().With(
		zap.String("module", string(p.module)),
		zap.String("case", rec.CaseNumber),
	)
	log.Info("processing claim",
		zap.String("state", string(StateReceived)),
		zap.Int("parties", len(rec.Parties)),
	)

	description, err := p.translateDescription(ctx, rec)
	if err != nil {
		return nil, p.fail(log, StateTranslated, err)
	}

	data, err := claimData(rec, description)
	if err != nil {
		return nil, p.fail(log, StatePrompted, err)
	}

	decisions := make([]model.PartyDecision, len(rec.Parties))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)

	for i := range rec.Parties {
		g.Go(func() error {
			dec, state, err := p.decideParty(gCtx, data, description, rec.Parties[i], i)
			if err != nil {
				return p.fail(log.With(zap.Int("party", i)), state, err)
			}
			decisions[i] = model.PartyDecision{
				PartyIndex: i,
				PartyID:    rec.Parties[i].ID,
				PartyName:  rec.Parties[i].Name,
				Liability:  rec.Parties[i].Liability,
				Decision:   *dec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &model.DecisionReport{
		ID:         uuid.NewString(),
		Module:     p.module,
		CaseNumber: rec.CaseNumber,
		Model:      p.oracle.decisionModel,
		Parties:    decisions,
		CreatedAt:  time.Now().UTC(),
	}

	if p.audit != nil {
		// The decision already exists; a broken trail must not retract it.
		if err := p.audit.RecordDecision(ctx, report); err != nil {
			log.Warn("failed to record decision trail", zap.Error(err))
		}
	}

	log.Info("claim decided",
		zap.String("report_id", report.ID),
		zap.String("state", string(StateDone)),
	)
	return report, nil
}

// decideParty runs prompt, inference, parse, and post-processing for one
// party. An unparseable response earns exactly one retry on the compact
// template; a second parse failure is terminal.
func (p *Processor) decideParty(ctx context.Context, data, description string, party model.Party, idx int) (*model.Decision, State, error) {
	builder := prompt.NewBuilder(p.module, p.cfg)
	in := prompt.Input{
		Data:        data,
		PartyIndex:  idx,
		Liability:   party.Liability,
		Description: description,
	}

	req, err := builder.Decision(in)
	if err != nil {
		return nil, StatePrompted, err
	}

	raw, err := p.oracle.decide(ctx, req)
	if err != nil {
		return nil, StateInferred, err
	}

	dec, err := parseDecision(raw, party.Liability, p.validation)
	if err != nil {
		var invalidErr *DecisionInvalidError
		if !errors.As(err, &invalidErr) {
			return nil, StateParsed, err
		}

		zap.L().Warn("unparseable oracle response, retrying with compact prompt",
			zap.String("module", string(p.module)),
			zap.Int("party", idx),
			zap.String("reason", invalidErr.Reason),
		)

		compact, berr := builder.Compact(in)
		if berr != nil {
			return nil, StatePrompted, berr
		}
		raw, err = p.oracle.decide(ctx, compact)
		if err != nil {
			return nil, StateInferred, err
		}
		dec, err = parseDecision(raw, party.Liability, p.validation)
		if err != nil {
			return nil, StateParsed, err
		}
	}

	final := postProcess(p.overrides, party, *dec)
	return &final, StateProcessed, nil
}

func (p *Processor) fail(log *zap.Logger, state State, err error) error {
	if f, ok := err.(*Failure); ok {
		return f
	}
	log.Error("claim failed",
		zap.String("state", string(state)),
		zap.Error(err),
	)
	return &Failure{State: state, Err: err}
}

// claimData renders the claim snapshot substituted into {data}, with the
// post-translation description so the oracle never sees mixed languages.
func claimData(rec *model.ClaimRecord, description string) (string, error) {
	snapshot := *rec
	snapshot.AccidentDescription = description
	out, err := normalize.SerializeClaim(&snapshot, normalize.FormatJSON)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
