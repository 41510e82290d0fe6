package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/resilience"
	"github.com/gulfshield/claims-engine/pkg/ollama"
)

// oracle wraps the inference client with the process-wide rate limit and the
// bounded retry policy. Every prompt the pipeline sends goes through here.
type oracle struct {
	client           ollama.Client
	limiter          *rate.Limiter
	policy           resilience.Policy
	decisionModel    string
	translationModel string
}

func newOracle(client ollama.Client, cfg config.OracleConfig) *oracle {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.MaxConcurrent
	if burst < 1 {
		burst = 1
	}

	policy := resilience.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BackoffMillis > 0 {
		policy.InitialBackoff = time.Duration(cfg.BackoffMillis) * time.Millisecond
	}
	policy.OnRetry = resilience.LogRetries("oracle generate")

	return &oracle{
		client:           client,
		limiter:          rate.NewLimiter(rate.Limit(rps), burst),
		policy:           policy,
		decisionModel:    cfg.DecisionModel,
		translationModel: cfg.TranslationModel,
	}
}

// generate sends one prompt and returns the raw completion. Exhausting the
// retry budget on transient failures yields OracleUnavailableError; a
// non-transient failure yields it immediately since retrying cannot help.
func (o *oracle) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := resilience.Do(ctx, o.policy, func(ctx context.Context) (*ollama.GenerateResponse, error) {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return o.client.Generate(ctx, ollama.GenerateRequest{
			Model:  model,
			Prompt: prompt,
		})
	})
	if err != nil {
		return "", &OracleUnavailableError{Attempts: o.policy.MaxAttempts, Err: err}
	}
	return resp.Response, nil
}

func (o *oracle) decide(ctx context.Context, prompt string) (string, error) {
	return o.generate(ctx, o.decisionModel, prompt)
}

func (o *oracle) translate(ctx context.Context, prompt string) (string, error) {
	return o.generate(ctx, o.translationModel, prompt)
}
