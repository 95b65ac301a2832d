package learning

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultStoreCapacity bounds the interaction log; oldest records are
	// evicted once the bound is exceeded
	DefaultStoreCapacity = 500

	// Quality score adjustment bounds
	qualityFloor = 0.1
	qualityCeil  = 1.0

	// Blended recompute weights: original score vs. normalized feedback
	blendOriginalWeight = 0.3
	blendFeedbackWeight = 0.7

	persistTimeout = 5 * time.Second
)

// InteractionStore is the append-only, capacity-bounded log of recorded
// conversational turns. Every operation re-reads the persisted log first,
// so the server and worker processes sharing one key stay coherent.
// Mutations are persisted to the key-value store on a best-effort basis;
// persistence failures are logged, never propagated.
type InteractionStore struct {
	mu       sync.Mutex
	points   []models.TrainingDataPoint
	capacity int
	kv       database.KVStore
	logger   *zap.Logger
}

// NewInteractionStore creates a store with the given capacity (0 means
// DefaultStoreCapacity) and loads any previously persisted log.
func NewInteractionStore(kv database.KVStore, capacity int, logger *zap.Logger) *InteractionStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &InteractionStore{
		capacity: capacity,
		kv:       kv,
		logger:   logger,
	}
	s.mu.Lock()
	s.refreshLocked(context.Background())
	s.mu.Unlock()
	return s
}

// refreshLocked re-reads the persisted log so processes sharing the key
// observe each other's writes before reading or rewriting the blob. Read
// or decode errors keep the cached records rather than dropping them.
func (s *InteractionStore) refreshLocked(ctx context.Context) {
	if s.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	data, err := s.kv.Get(ctx, database.KeyTrainingData)
	if errors.Is(err, database.ErrKeyNotFound) {
		s.points = nil
		return
	}
	if err != nil {
		s.logger.Warn("training_data_load_failed", zap.Error(err))
		return
	}
	var points []models.TrainingDataPoint
	if err := json.Unmarshal(data, &points); err != nil {
		s.logger.Warn("training_data_decode_failed", zap.Error(err))
		return
	}
	if len(points) > s.capacity {
		points = points[len(points)-s.capacity:]
	}
	s.points = points
}

// Append records a turn, evicting the oldest records once capacity is
// exceeded. Returns the stored point with its assigned ID.
func (s *InteractionStore) Append(ctx context.Context, point models.TrainingDataPoint) models.TrainingDataPoint {
	if point.ID == "" {
		point.ID = uuid.NewString()
	}
	if point.Timestamp.IsZero() {
		point.Timestamp = time.Now()
	}
	point.QualityScore = clampQuality(point.QualityScore)
	point.InitialScore = point.QualityScore

	s.mu.Lock()
	s.refreshLocked(ctx)
	s.points = append(s.points, point)
	if len(s.points) > s.capacity {
		s.points = s.points[len(s.points)-s.capacity:]
	}
	data := s.encodeLocked()
	s.mu.Unlock()

	s.persist(ctx, data)
	return point
}

// AttachFeedback locates the interaction the feedback refers to and applies
// it: exact message-ID match first, otherwise the most recent interaction
// within window of now. The feedback entry is appended, a rating-driven
// delta is applied, and once feedback has accumulated the score is
// recomputed as a blend of the original score and the normalized average
// rating. Returns a copy of the updated point and whether a match was found.
func (s *InteractionStore) AttachFeedback(ctx context.Context, fb models.UserFeedback, window time.Duration, now time.Time) (models.TrainingDataPoint, bool) {
	s.mu.Lock()
	s.refreshLocked(ctx)

	idx := s.matchLocked(fb.MessageID, window, now)
	if idx < 0 {
		s.mu.Unlock()
		return models.TrainingDataPoint{}, false
	}

	p := &s.points[idx]
	p.Feedback = append(p.Feedback, fb)

	switch {
	case fb.Rating >= 4:
		p.QualityScore = clampQuality(p.QualityScore + 0.1)
	case fb.Rating <= 2:
		p.QualityScore = p.QualityScore - 0.2
		if p.QualityScore < qualityFloor {
			p.QualityScore = qualityFloor
		}
	}

	if len(p.Feedback) > 1 {
		p.QualityScore = clampQuality(
			blendOriginalWeight*p.InitialScore + blendFeedbackWeight*normalizedAverageRating(p.Feedback))
	}

	updated := *p
	data := s.encodeLocked()
	s.mu.Unlock()

	s.persist(ctx, data)
	return updated, true
}

// matchLocked returns the index of the interaction feedback applies to.
// Exact message-ID correlation is preferred; the recency window is the
// fallback when no stable identifier matches.
func (s *InteractionStore) matchLocked(messageID string, window time.Duration, now time.Time) int {
	if messageID != "" {
		for i := len(s.points) - 1; i >= 0; i-- {
			if s.points[i].MessageID == messageID {
				return i
			}
		}
	}
	for i := len(s.points) - 1; i >= 0; i-- {
		if now.Sub(s.points[i].Timestamp) <= window {
			return i
		}
	}
	return -1
}

// Recent returns copies of the most recent n points, oldest first
func (s *InteractionStore) Recent(n int) []models.TrainingDataPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	if n <= 0 || n > len(s.points) {
		n = len(s.points)
	}
	out := make([]models.TrainingDataPoint, n)
	copy(out, s.points[len(s.points)-n:])
	return out
}

// All returns copies of every stored point, oldest first
func (s *InteractionStore) All() []models.TrainingDataPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	out := make([]models.TrainingDataPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Len returns the number of stored points
func (s *InteractionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	return len(s.points)
}

// Clear drops all stored points and persists the empty log
func (s *InteractionStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.points = nil
	data := s.encodeLocked()
	s.mu.Unlock()
	s.persist(ctx, data)
}

func (s *InteractionStore) encodeLocked() []byte {
	data, err := json.Marshal(s.points)
	if err != nil {
		s.logger.Warn("training_data_encode_failed", zap.Error(err))
		return nil
	}
	return data
}

func (s *InteractionStore) persist(ctx context.Context, data []byte) {
	if s.kv == nil || data == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, database.KeyTrainingData, data); err != nil {
		s.logger.Warn("training_data_persist_failed", zap.Error(err))
	}
}

func clampQuality(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > qualityCeil {
		return qualityCeil
	}
	return score
}

// normalizedAverageRating maps the 1-5 rating scale linearly onto [0,1] and
// averages across all feedback entries
func normalizedAverageRating(feedback []models.UserFeedback) float64 {
	if len(feedback) == 0 {
		return 0
	}
	var sum float64
	for _, fb := range feedback {
		sum += float64(fb.Rating-1) / 4.0
	}
	return sum / float64(len(feedback))
}
