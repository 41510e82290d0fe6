// Package store persists the decision audit trail. Every report the pipeline
// produces is recorded once; nothing here feeds back into decision-making, so
// a broken store never changes an outcome.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/model"
)

// DecisionFilter specifies criteria for listing recorded decisions.
type DecisionFilter struct {
	Module     model.Module `json:"module,omitempty"`
	CaseNumber string       `json:"case_number,omitempty"`
	Limit      int          `json:"limit,omitempty"`
	Offset     int          `json:"offset,omitempty"`
}

// Store defines the audit-trail persistence interface.
type Store interface {
	RecordDecision(ctx context.Context, report *model.DecisionReport) error
	GetDecision(ctx context.Context, id string) (*model.DecisionReport, error)
	ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.DecisionReport, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
