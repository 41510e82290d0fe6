// Package monitoring watches the inference endpoint and the decision trail.
// The checker's cached status feeds the health endpoint so request handling
// never blocks on a live oracle ping.
package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/pkg/ollama"
)

// OracleStatus is a point-in-time view of the inference endpoint.
type OracleStatus struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Checker pings the oracle on an interval and raises alerts on transitions.
type Checker struct {
	client  ollama.Client
	alerter *Alerter
	cfg     config.MonitoringConfig

	mu     sync.RWMutex
	status OracleStatus
}

// NewChecker creates a background oracle health checker. alerter may be nil.
func NewChecker(client ollama.Client, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{client: client, alerter: alerter, cfg: cfg}
}

// Status returns the last observed oracle status. Before the first check runs
// CheckedAt is zero and Healthy is false.
func (c *Checker) Status() OracleStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Run starts the periodic check loop. It checks once immediately, then on the
// configured interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting oracle health checker", zap.Duration("interval", interval))

	c.check(ctx, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("oracle health checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	err := c.client.Health(ctx)

	next := OracleStatus{
		Healthy:   err == nil,
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		next.Error = err.Error()
	}

	c.mu.Lock()
	prev := c.status
	c.status = next
	c.mu.Unlock()

	switch {
	case !next.Healthy && (prev.Healthy || prev.CheckedAt.IsZero()):
		log.Warn("oracle became unhealthy", zap.String("error", next.Error))
		if c.alerter != nil {
			c.alerter.SendAlerts(ctx, []Alert{{
				Type:      AlertOracleUnavailable,
				Severity:  "high",
				Message:   "inference endpoint is unreachable: " + next.Error,
				Timestamp: next.CheckedAt,
			}})
		}
	case next.Healthy && !prev.Healthy && !prev.CheckedAt.IsZero():
		log.Info("oracle recovered")
	}
}
