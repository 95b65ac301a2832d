package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/trip-planner/internal/models"
)

// scriptedProvider returns queued results/errors in order, repeating the
// last entry once the script runs out
type scriptedProvider struct {
	calls   int
	results []*ModelResult
	errs    []error
}

func (p *scriptedProvider) Generate(_ context.Context, _ string, _ models.Phase) (*ModelResult, error) {
	i := p.calls
	p.calls++
	if i >= len(p.errs) {
		i = len(p.errs) - 1
	}
	return p.results[i], p.errs[i]
}

func liveOK() *ModelResult {
	return &ModelResult{Text: "live answer", Confidence: LiveConfidence, ModelUsed: "test-model"}
}

func newTestGateway(t *testing.T, live ResponseProvider, cfg GatewayConfig) *Gateway {
	t.Helper()
	fallback, err := NewFallbackBankProvider()
	if err != nil {
		t.Fatalf("NewFallbackBankProvider() error: %v", err)
	}
	if cfg.Sleep == nil {
		cfg.Sleep = func(context.Context, time.Duration) error { return nil }
	}
	return NewGateway(live, fallback, cfg, nil)
}

func TestGateway_LiveSuccess(t *testing.T) {
	t.Parallel()

	live := &scriptedProvider{results: []*ModelResult{liveOK()}, errs: []error{nil}}
	g := newTestGateway(t, live, GatewayConfig{})

	result, err := g.Generate(context.Background(), "prompt", models.PhaseWelcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "live answer" {
		t.Errorf("got %q, want live answer", result.Text)
	}
	if live.calls != 1 {
		t.Errorf("live called %d times, want 1", live.calls)
	}
}

func TestGateway_NoCredentialsUsesFallback(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, nil, GatewayConfig{})

	result, err := g.Generate(context.Background(), "prompt", models.PhaseWelcome)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("error = %v, want ErrMissingCredentials", err)
	}
	if result == nil || result.ModelUsed != FallbackModelName {
		t.Errorf("expected fallback result, got %+v", result)
	}
	if g.RemainingBudget() != DefaultCallBudget {
		t.Errorf("budget consumed without a live provider: %d", g.RemainingBudget())
	}
}

func TestGateway_BudgetExhaustion(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	live := &scriptedProvider{results: []*ModelResult{liveOK()}, errs: []error{nil}}
	g := newTestGateway(t, live, GatewayConfig{
		Now: func() time.Time { return *clock },
	})

	ctx := context.Background()
	for i := 0; i < DefaultCallBudget; i++ {
		if _, err := g.Generate(ctx, "p", models.PhaseWelcome); err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
	}

	// call 61 is rejected locally
	result, err := g.Generate(ctx, "p", models.PhaseWelcome)
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("error = %v, want ErrRateLimitExceeded", err)
	}
	if result.ModelUsed != FallbackModelName {
		t.Errorf("over-budget call got %q, want fallback", result.ModelUsed)
	}
	if live.calls != DefaultCallBudget {
		t.Errorf("live called %d times, want %d", live.calls, DefaultCallBudget)
	}

	// the window elapses and the budget resets
	now = now.Add(DefaultBudgetWindow)
	if _, err := g.Generate(ctx, "p", models.PhaseWelcome); err != nil {
		t.Fatalf("post-reset call failed: %v", err)
	}
	if g.RemainingBudget() != DefaultCallBudget-1 {
		t.Errorf("remaining = %d, want %d", g.RemainingBudget(), DefaultCallBudget-1)
	}
}

func TestGateway_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	transient := errors.New("connection reset")
	live := &scriptedProvider{
		results: []*ModelResult{nil, liveOK()},
		errs:    []error{transient, nil},
	}

	var slept []time.Duration
	g := newTestGateway(t, live, GatewayConfig{
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})

	result, err := g.Generate(context.Background(), "p", models.PhaseWelcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "live answer" {
		t.Errorf("got %q, want the live answer", result.Text)
	}
	if live.calls != 2 {
		t.Errorf("live called %d times, want 2", live.calls)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Errorf("slept %v, want [2s]", slept)
	}
}

func TestGateway_ExhaustsRetriesThenFallsBack(t *testing.T) {
	t.Parallel()

	transient := errors.New("service unavailable")
	live := &scriptedProvider{
		results: []*ModelResult{nil},
		errs:    []error{transient},
	}

	var slept []time.Duration
	g := newTestGateway(t, live, GatewayConfig{
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})

	result, err := g.Generate(context.Background(), "p", models.PhaseRouteGeneration)
	if err == nil {
		t.Fatal("expected the transient error to surface")
	}
	if result.ModelUsed != FallbackModelName {
		t.Errorf("got %q, want fallback", result.ModelUsed)
	}
	if live.calls != MaxAttempts {
		t.Errorf("live called %d times, want %d", live.calls, MaxAttempts)
	}
	// backoff doubles from the 2s base
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(slept) != len(want) || slept[0] != want[0] || slept[1] != want[1] {
		t.Errorf("slept %v, want %v", slept, want)
	}
}

func TestGateway_QuotaErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	quota := &APIError{StatusCode: 429, Code: "insufficient_quota", IsPermanent: true, Message: "quota"}
	live := &scriptedProvider{
		results: []*ModelResult{nil},
		errs:    []error{quota},
	}

	g := newTestGateway(t, live, GatewayConfig{
		Sleep: func(context.Context, time.Duration) error {
			t.Fatal("slept on a non-retryable error")
			return nil
		},
	})

	result, err := g.Generate(context.Background(), "p", models.PhaseWelcome)
	if !IsQuotaError(err) {
		t.Errorf("error = %v, want a quota error", err)
	}
	if result.ModelUsed != FallbackModelName {
		t.Errorf("got %q, want fallback", result.ModelUsed)
	}
	if live.calls != 1 {
		t.Errorf("live called %d times, want 1", live.calls)
	}
}
