package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/store"
)

// MetricsSnapshot aggregates the recent decision trail for one module.
type MetricsSnapshot struct {
	Module        model.Module          `json:"module"`
	LookbackHours int                   `json:"lookback_hours"`
	Decisions     int                   `json:"decisions"`
	Parties       int                   `json:"parties"`
	ByOutcome     map[model.Outcome]int `json:"by_outcome"`
}

// Collector computes decision metrics from the audit store.
type Collector struct {
	store store.Store
}

// NewCollector creates a collector over the audit store.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// snapshotScanLimit bounds how much trail one snapshot reads.
const snapshotScanLimit = 1000

// Collect aggregates the module's decisions within the lookback window.
func (c *Collector) Collect(ctx context.Context, mod model.Module, lookbackHours int) (*MetricsSnapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	reports, err := c.store.ListDecisions(ctx, store.DecisionFilter{
		Module: mod,
		Limit:  snapshotScanLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list decisions")
	}

	snap := &MetricsSnapshot{
		Module:        mod,
		LookbackHours: lookbackHours,
		ByOutcome:     make(map[model.Outcome]int),
	}
	for _, r := range reports {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.Decisions++
		for _, pd := range r.Parties {
			snap.Parties++
			snap.ByOutcome[pd.Outcome]++
		}
	}
	return snap, nil
}
