package learning

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/models"
	"go.uber.org/zap"
)

// WeightStore owns the per-pattern weight table and its synchronization.
// Weights are created lazily at the default value and clamped to
// [PatternWeightMin, PatternWeightMax] on every update; they are never
// deleted. Every operation re-reads the persisted table first, so the
// server and worker processes sharing one key stay coherent.
type WeightStore struct {
	mu      sync.Mutex
	weights map[string]float64
	kv      database.KVStore
	logger  *zap.Logger
}

// NewWeightStore creates a weight store and loads any persisted table
func NewWeightStore(kv database.KVStore, logger *zap.Logger) *WeightStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WeightStore{
		weights: make(map[string]float64),
		kv:      kv,
		logger:  logger,
	}
	s.mu.Lock()
	s.refreshLocked(context.Background())
	s.mu.Unlock()
	return s
}

// refreshLocked re-reads the persisted table so concurrent processes see
// each other's adjustments. Read or decode errors keep the cached table.
func (s *WeightStore) refreshLocked(ctx context.Context) {
	if s.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	data, err := s.kv.Get(ctx, database.KeyModelWeights)
	if errors.Is(err, database.ErrKeyNotFound) {
		s.weights = make(map[string]float64)
		return
	}
	if err != nil {
		s.logger.Warn("weights_load_failed", zap.Error(err))
		return
	}
	var weights map[string]float64
	if err := json.Unmarshal(data, &weights); err != nil {
		s.logger.Warn("weights_decode_failed", zap.Error(err))
		return
	}
	s.weights = make(map[string]float64, len(weights))
	for key, w := range weights {
		s.weights[key] = clampWeight(w)
	}
}

// Get returns the weight for key, defaulting when the key is unknown
func (s *WeightStore) Get(key string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	if w, ok := s.weights[key]; ok {
		return w
	}
	return models.PatternWeightDefault
}

// Adjust nudges the weight for key by delta, clamped to the weight bounds,
// and returns the resulting weight. The key is created at the default value
// on first encounter.
func (s *WeightStore) Adjust(ctx context.Context, key string, delta float64) float64 {
	s.mu.Lock()
	s.refreshLocked(ctx)
	current, ok := s.weights[key]
	if !ok {
		current = models.PatternWeightDefault
	}
	updated := clampWeight(current + delta)
	s.weights[key] = updated
	data := s.encodeLocked()
	s.mu.Unlock()

	s.persist(ctx, data)
	return updated
}

// Weights returns a copy of the full weight table
func (s *WeightStore) Weights() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	out := make(map[string]float64, len(s.weights))
	for key, w := range s.weights {
		out[key] = w
	}
	return out
}

// Reset drops every weight back to the default by clearing the table
func (s *WeightStore) Reset(ctx context.Context) {
	s.mu.Lock()
	s.weights = make(map[string]float64)
	data := s.encodeLocked()
	s.mu.Unlock()
	s.persist(ctx, data)
}

func (s *WeightStore) encodeLocked() []byte {
	data, err := json.Marshal(s.weights)
	if err != nil {
		s.logger.Warn("weights_encode_failed", zap.Error(err))
		return nil
	}
	return data
}

func (s *WeightStore) persist(ctx context.Context, data []byte) {
	if s.kv == nil || data == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, database.KeyModelWeights, data); err != nil {
		s.logger.Warn("weights_persist_failed", zap.Error(err))
	}
}

func clampWeight(w float64) float64 {
	if w < models.PatternWeightMin {
		return models.PatternWeightMin
	}
	if w > models.PatternWeightMax {
		return models.PatternWeightMax
	}
	return w
}
