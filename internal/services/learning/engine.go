package learning

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/models"
	"go.uber.org/zap"
)

// Options holds the tuning constants of the feedback loop. The defaults are
// the values the system was tuned with; they are fields rather than
// constants so deployments can override them.
type Options struct {
	// RecencyWindow is the fallback correlation window between a rating
	// and the interaction it refers to when no message ID matches
	RecencyWindow time.Duration

	// BatchMinInteractions is the stored-interaction count that arms the
	// periodic batch pass
	BatchMinInteractions int
	// BatchWindow is how many recent interactions the batch pass examines
	BatchWindow int
	// HighQualityThreshold / LowQualityThreshold partition the batch window
	HighQualityThreshold float64
	LowQualityThreshold  float64
	// GroupMinSize is the minimum group size for a weight nudge
	GroupMinSize int
	// BatchDelta is the nudge applied by batch passes
	BatchDelta float64

	// RouteBatchMinRecords arms the route-level batch pass
	RouteBatchMinRecords int
	// RouteBatchWindow is how many recent route feedback records it examines
	RouteBatchWindow int
	// AcceptanceHigh / AcceptanceLow are the acceptance-ratio thresholds
	AcceptanceHigh float64
	AcceptanceLow  float64

	// FeedbackLogCapacity bounds the persisted feedback logs
	FeedbackLogCapacity int
}

// DefaultOptions returns the tuned defaults
func DefaultOptions() Options {
	return Options{
		RecencyWindow:        5 * time.Minute,
		BatchMinInteractions: 10,
		BatchWindow:          50,
		HighQualityThreshold: 0.8,
		LowQualityThreshold:  0.5,
		GroupMinSize:         3,
		BatchDelta:           0.1,
		RouteBatchMinRecords: 5,
		RouteBatchWindow:     20,
		AcceptanceHigh:       0.8,
		AcceptanceLow:        0.3,
		FeedbackLogCapacity:  200,
	}
}

// Engine consumes user and route feedback, updates quality scores on
// matching interactions, and nudges per-pattern weights within bounds.
type Engine struct {
	store   *InteractionStore
	weights *WeightStore
	kv      database.KVStore
	logger  *zap.Logger
	opts    Options

	mu            sync.Mutex
	userFeedback  []models.UserFeedback
	routeFeedback []models.RouteFeedback

	// now is injectable for tests
	now func() time.Time
}

// NewEngine creates a feedback engine over the given stores
func NewEngine(store *InteractionStore, weights *WeightStore, kv database.KVStore, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RecencyWindow == 0 {
		opts = DefaultOptions()
	}
	e := &Engine{
		store:   store,
		weights: weights,
		kv:      kv,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
	e.loadFeedbackLogs()
	return e
}

// RecordInteraction stores one conversational turn and, once enough
// interactions have accumulated, runs the periodic batch pass.
func (e *Engine) RecordInteraction(ctx context.Context, point models.TrainingDataPoint) models.TrainingDataPoint {
	stored := e.store.Append(ctx, point)
	if e.store.Len() >= e.opts.BatchMinInteractions {
		e.runInteractionBatch(ctx)
	}
	return stored
}

// RecordFeedback applies an explicit rating to the interaction it refers to
// and nudges the matching pattern weight.
func (e *Engine) RecordFeedback(ctx context.Context, fb models.UserFeedback) {
	if fb.Timestamp.IsZero() {
		fb.Timestamp = e.now()
	}
	e.appendUserFeedback(ctx, fb)

	point, ok := e.store.AttachFeedback(ctx, fb, e.opts.RecencyWindow, e.now())
	if !ok {
		e.logger.Debug("feedback_unmatched", zap.String("message_id", fb.MessageID))
		return
	}

	key := PatternKey(point.Input.Preferences)
	switch {
	case fb.Rating >= 4:
		updated := e.weights.Adjust(ctx, key, 0.05)
		e.logger.Debug("weight_increased",
			zap.String("pattern_key", key),
			zap.Float64("weight", updated),
			zap.Int("rating", fb.Rating),
		)
	case fb.Rating <= 2:
		updated := e.weights.Adjust(ctx, key, -0.1)
		e.logger.Debug("weight_decreased",
			zap.String("pattern_key", key),
			zap.Float64("weight", updated),
			zap.Int("rating", fb.Rating),
		)
	}
}

// RecordRouteFeedback stores an accept/reject signal and, once enough
// records exist, runs the route-level batch pass.
func (e *Engine) RecordRouteFeedback(ctx context.Context, fb models.RouteFeedback) {
	if fb.Timestamp.IsZero() {
		fb.Timestamp = e.now()
	}

	e.mu.Lock()
	e.refreshRouteFeedbackLocked(ctx)
	e.routeFeedback = append(e.routeFeedback, fb)
	if len(e.routeFeedback) > e.opts.FeedbackLogCapacity {
		e.routeFeedback = e.routeFeedback[len(e.routeFeedback)-e.opts.FeedbackLogCapacity:]
	}
	count := len(e.routeFeedback)
	data := e.encodeRouteFeedbackLocked()
	e.mu.Unlock()

	e.persistLog(ctx, database.KeyRouteFeedback, data)

	if count >= e.opts.RouteBatchMinRecords {
		e.runRouteBatch(ctx)
	}
}

// Weights returns a copy of the current weight table
func (e *Engine) Weights() map[string]float64 {
	return e.weights.Weights()
}

// runInteractionBatch partitions the recent interactions into high and low
// quality sets, groups them by pattern key, and nudges weights for any group
// large enough to be a signal rather than noise.
func (e *Engine) runInteractionBatch(ctx context.Context) {
	recent := e.store.Recent(e.opts.BatchWindow)

	high := make(map[string]int)
	low := make(map[string]int)
	for _, p := range recent {
		key := PatternKey(p.Input.Preferences)
		if p.QualityScore > e.opts.HighQualityThreshold {
			high[key]++
		} else if p.QualityScore < e.opts.LowQualityThreshold {
			low[key]++
		}
	}

	for key, n := range high {
		if n >= e.opts.GroupMinSize {
			updated := e.weights.Adjust(ctx, key, e.opts.BatchDelta)
			e.logger.Debug("batch_weight_increased",
				zap.String("pattern_key", key),
				zap.Int("group_size", n),
				zap.Float64("weight", updated),
			)
		}
	}
	for key, n := range low {
		if n >= e.opts.GroupMinSize {
			updated := e.weights.Adjust(ctx, key, -e.opts.BatchDelta)
			e.logger.Debug("batch_weight_decreased",
				zap.String("pattern_key", key),
				zap.Int("group_size", n),
				zap.Float64("weight", updated),
			)
		}
	}
}

// runRouteBatch groups recent route feedback by pattern key and nudges
// weights by acceptance ratio.
func (e *Engine) runRouteBatch(ctx context.Context) {
	e.mu.Lock()
	n := len(e.routeFeedback)
	if n > e.opts.RouteBatchWindow {
		n = e.opts.RouteBatchWindow
	}
	recent := make([]models.RouteFeedback, n)
	copy(recent, e.routeFeedback[len(e.routeFeedback)-n:])
	e.mu.Unlock()

	type group struct {
		total    int
		accepted int
	}
	groups := make(map[string]*group)
	for _, fb := range recent {
		key := PatternKey(fb.Preferences)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.total++
		if fb.Accepted {
			g.accepted++
		}
	}

	for key, g := range groups {
		if g.total < e.opts.GroupMinSize {
			continue
		}
		ratio := float64(g.accepted) / float64(g.total)
		switch {
		case ratio > e.opts.AcceptanceHigh:
			e.weights.Adjust(ctx, key, e.opts.BatchDelta)
		case ratio < e.opts.AcceptanceLow:
			e.weights.Adjust(ctx, key, -e.opts.BatchDelta)
		}
	}
}

func (e *Engine) appendUserFeedback(ctx context.Context, fb models.UserFeedback) {
	e.mu.Lock()
	e.refreshUserFeedbackLocked(ctx)
	e.userFeedback = append(e.userFeedback, fb)
	if len(e.userFeedback) > e.opts.FeedbackLogCapacity {
		e.userFeedback = e.userFeedback[len(e.userFeedback)-e.opts.FeedbackLogCapacity:]
	}
	data, err := json.Marshal(e.userFeedback)
	e.mu.Unlock()
	if err != nil {
		e.logger.Warn("user_feedback_encode_failed", zap.Error(err))
		return
	}
	e.persistLog(ctx, database.KeyUserFeedback, data)
}

func (e *Engine) encodeRouteFeedbackLocked() []byte {
	data, err := json.Marshal(e.routeFeedback)
	if err != nil {
		e.logger.Warn("route_feedback_encode_failed", zap.Error(err))
		return nil
	}
	return data
}

func (e *Engine) persistLog(ctx context.Context, key string, data []byte) {
	if e.kv == nil || data == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := e.kv.Set(ctx, key, data); err != nil {
		e.logger.Warn("feedback_persist_failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Engine) loadFeedbackLogs() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshUserFeedbackLocked(context.Background())
	e.refreshRouteFeedbackLocked(context.Background())
}

// The feedback logs are shared between the server and worker processes,
// so each append re-reads the persisted log before rewriting it. Read or
// decode errors keep the cached log.

func (e *Engine) refreshUserFeedbackLocked(ctx context.Context) {
	if e.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	data, err := e.kv.Get(ctx, database.KeyUserFeedback)
	if errors.Is(err, database.ErrKeyNotFound) {
		e.userFeedback = nil
		return
	}
	if err != nil {
		e.logger.Warn("user_feedback_load_failed", zap.Error(err))
		return
	}
	var log []models.UserFeedback
	if err := json.Unmarshal(data, &log); err != nil {
		e.logger.Warn("user_feedback_decode_failed", zap.Error(err))
		return
	}
	e.userFeedback = log
}

func (e *Engine) refreshRouteFeedbackLocked(ctx context.Context) {
	if e.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	data, err := e.kv.Get(ctx, database.KeyRouteFeedback)
	if errors.Is(err, database.ErrKeyNotFound) {
		e.routeFeedback = nil
		return
	}
	if err != nil {
		e.logger.Warn("route_feedback_load_failed", zap.Error(err))
		return
	}
	var log []models.RouteFeedback
	if err := json.Unmarshal(data, &log); err != nil {
		e.logger.Warn("route_feedback_decode_failed", zap.Error(err))
		return
	}
	e.routeFeedback = log
}
