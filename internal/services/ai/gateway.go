package ai

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultCallBudget is how many live calls fit in one budget window
	DefaultCallBudget = 60
	// DefaultBudgetWindow is the length of the budget window
	DefaultBudgetWindow = 60 * time.Second
	// MaxAttempts bounds retries for a single live call
	MaxAttempts = 3
)

// callBudget is a fixed-window counter over live model calls. The window
// starts at the first call after a reset and all calls past the limit are
// rejected locally until the window elapses.
type callBudget struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	used        int
	windowStart time.Time
	now         func() time.Time
}

func newCallBudget(limit int, window time.Duration, now func() time.Time) *callBudget {
	if limit <= 0 {
		limit = DefaultCallBudget
	}
	if window <= 0 {
		window = DefaultBudgetWindow
	}
	if now == nil {
		now = time.Now
	}
	return &callBudget{limit: limit, window: window, now: now}
}

// take consumes one unit of budget, returning false when exhausted
func (b *callBudget) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.used = 0
	}
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// remaining reports how much budget is left in the current window
func (b *callBudget) remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.windowStart.IsZero() || b.now().Sub(b.windowStart) >= b.window {
		return b.limit
	}
	return b.limit - b.used
}

// GatewayConfig tunes the gateway; zero values select defaults
type GatewayConfig struct {
	CallBudget   int
	BudgetWindow time.Duration
	MaxAttempts  int

	// Now and Sleep are injectable for tests
	Now   func() time.Time
	Sleep func(context.Context, time.Duration) error
}

// Gateway routes generation requests to the live provider while the call
// budget allows and degrades to the fallback bank otherwise. The returned
// ModelResult is always usable; the error, when non-nil, classifies why
// the live path was skipped or failed.
type Gateway struct {
	live        ResponseProvider
	fallback    *FallbackBankProvider
	budget      *callBudget
	maxAttempts int
	sleep       func(context.Context, time.Duration) error
	logger      *zap.Logger
}

// NewGateway creates a gateway. live may be nil when no credentials are
// configured; every request then takes the fallback path.
func NewGateway(live ResponseProvider, fallback *FallbackBankProvider, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		live:        live,
		fallback:    fallback,
		budget:      newCallBudget(cfg.CallBudget, cfg.BudgetWindow, cfg.Now),
		maxAttempts: maxAttempts,
		sleep:       sleep,
		logger:      logger,
	}
}

// Generate produces a response for the phase. The error reports why the
// fallback was used; callers that only need a response may ignore it.
func (g *Gateway) Generate(ctx context.Context, prompt string, phase models.Phase) (*ModelResult, error) {
	if g.live == nil {
		result, err := g.fallback.Generate(ctx, prompt, phase)
		if err != nil {
			return nil, err
		}
		return result, ErrMissingCredentials
	}

	if !g.budget.take() {
		g.logger.Warn("llm_budget_exhausted",
			zap.String("phase", string(phase)),
			zap.String("session_id", ExtractSessionID(ctx)),
		)
		result, err := g.fallback.Generate(ctx, prompt, phase)
		if err != nil {
			return nil, err
		}
		return result, ErrRateLimitExceeded
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		result, err := g.live.Generate(ctx, prompt, phase)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsQuotaError(err) {
			g.logger.Warn("llm_quota_exceeded",
				zap.String("phase", string(phase)),
				zap.Error(err),
			)
			break
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
		if attempt < g.maxAttempts {
			delay := retryBackoff(attempt - 1)
			g.logger.Debug("llm_retry",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			if serr := g.sleep(ctx, delay); serr != nil {
				break
			}
		}
	}

	g.logger.Warn("llm_fallback_used",
		zap.String("phase", string(phase)),
		zap.Error(lastErr),
	)
	result, err := g.fallback.Generate(ctx, prompt, phase)
	if err != nil {
		return nil, err
	}
	return result, lastErr
}

// RemainingBudget reports how many live calls are left in the window
func (g *Gateway) RemainingBudget() int {
	return g.budget.remaining()
}

// QuickActions exposes the fallback bank's suggestions for a phase
func (g *Gateway) QuickActions(phase models.Phase) []models.QuickAction {
	return g.fallback.QuickActions(phase)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
