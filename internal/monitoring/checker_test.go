package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/pkg/ollama"
)

func TestCheckerStatusTransitions(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	client := ollama.NewClient(ollama.WithBaseURL(srv.URL))
	c := NewChecker(client, nil, config.MonitoringConfig{})

	assert.False(t, c.Status().Healthy)
	assert.True(t, c.Status().CheckedAt.IsZero())

	c.check(context.Background(), testLogger())
	st := c.Status()
	assert.False(t, st.Healthy)
	assert.NotEmpty(t, st.Error)

	healthy.Store(true)
	c.check(context.Background(), testLogger())
	st = c.Status()
	assert.True(t, st.Healthy)
	assert.Empty(t, st.Error)
}

func TestCheckerSendsAlertOnFailure(t *testing.T) {
	var alerts atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		assert.Equal(t, AlertOracleUnavailable, a.Type)
		alerts.Add(1)
	}))
	defer hook.Close()

	oracle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer oracle.Close()

	client := ollama.NewClient(ollama.WithBaseURL(oracle.URL))
	alerter := NewAlerter(config.MonitoringConfig{WebhookURL: hook.URL})
	c := NewChecker(client, alerter, config.MonitoringConfig{})

	// Two consecutive failures alert only once: the transition, not the state.
	c.check(context.Background(), testLogger())
	c.check(context.Background(), testLogger())
	assert.Equal(t, int32(1), alerts.Load())
}

func TestAlerterNoWebhookIsNoop(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{
		Type:      AlertOracleUnavailable,
		Timestamp: time.Now(),
	}})
	assert.Zero(t, sent)
}
