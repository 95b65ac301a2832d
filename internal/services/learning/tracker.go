package learning

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/models"
	"go.uber.org/zap"
)

// Traits are the personalization signals the prompt composer renders:
// the user's preferred budget bucket, their favorite interests, and their
// travel style, as observed across a session.
type Traits struct {
	BudgetBucket      string             `json:"budget_bucket"`
	FavoriteInterests []string           `json:"favorite_interests,omitempty"`
	TravelStyle       models.TravelStyle `json:"travel_style,omitempty"`
}

// maxFavoriteInterests bounds how many interests the traits carry
const maxFavoriteInterests = 5

// SessionTracker keeps per-session counters of interaction-pattern
// frequency and success, merged into a global table for analytics. It also
// accumulates per-session preference traits that feed prompt
// personalization.
type SessionTracker struct {
	mu       sync.Mutex
	sessions map[string]map[string]*models.InteractionPattern
	traits   map[string]Traits
	global   map[string]models.InteractionPattern
	kv       database.KVStore
	logger   *zap.Logger
}

// NewSessionTracker creates a tracker and loads the persisted global table
func NewSessionTracker(kv database.KVStore, logger *zap.Logger) *SessionTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &SessionTracker{
		sessions: make(map[string]map[string]*models.InteractionPattern),
		traits:   make(map[string]Traits),
		global:   make(map[string]models.InteractionPattern),
		kv:       kv,
		logger:   logger,
	}
	t.mu.Lock()
	t.refreshGlobalLocked(context.Background())
	t.mu.Unlock()
	return t
}

// refreshGlobalLocked re-reads the persisted global table so processes
// sharing the key fold their sessions into each other's counters instead
// of a stale startup snapshot. Per-session state is process-local and is
// not refreshed.
func (t *SessionTracker) refreshGlobalLocked(ctx context.Context) {
	if t.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	data, err := t.kv.Get(ctx, database.KeyInteractionPatterns)
	if errors.Is(err, database.ErrKeyNotFound) {
		t.global = make(map[string]models.InteractionPattern)
		return
	}
	if err != nil {
		t.logger.Warn("patterns_load_failed", zap.Error(err))
		return
	}
	global := make(map[string]models.InteractionPattern)
	if err := json.Unmarshal(data, &global); err != nil {
		t.logger.Warn("patterns_decode_failed", zap.Error(err))
		return
	}
	t.global = global
}

// Record increments a session's counter for one action. Frequency never
// decreases within a session; success reflects the most recent outcome.
func (t *SessionTracker) Record(sessionID, action string, timeSpent time.Duration, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	patterns, ok := t.sessions[sessionID]
	if !ok {
		patterns = make(map[string]*models.InteractionPattern)
		t.sessions[sessionID] = patterns
	}
	p, ok := patterns[action]
	if !ok {
		p = &models.InteractionPattern{Action: action}
		patterns[action] = p
	}
	p.Frequency++
	p.TimeSpent += timeSpent
	p.Success = success
}

// ObservePreferences folds a turn's preferences into the session's traits
func (t *SessionTracker) ObservePreferences(sessionID string, prefs models.TravelPreferences) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr := t.traits[sessionID]
	if prefs.BudgetRange != nil {
		tr.BudgetBucket = BudgetBucket(prefs.BudgetRange)
	} else if tr.BudgetBucket == "" {
		tr.BudgetBucket = BudgetBucketAny
	}
	if prefs.TravelStyle != "" {
		tr.TravelStyle = prefs.TravelStyle
	}
	if len(prefs.Interests) > 0 {
		tr.FavoriteInterests = mergeInterests(tr.FavoriteInterests, prefs.Interests)
	}
	t.traits[sessionID] = tr
}

// Traits returns the accumulated traits for a session
func (t *SessionTracker) Traits(sessionID string) Traits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.traits[sessionID]
}

// SessionPatterns returns copies of a session's patterns
func (t *SessionTracker) SessionPatterns(sessionID string) []models.InteractionPattern {
	t.mu.Lock()
	defer t.mu.Unlock()

	patterns := t.sessions[sessionID]
	out := make([]models.InteractionPattern, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}

// MergeSession folds a session's counters into the global table, persists
// it, and discards the session's per-session state.
func (t *SessionTracker) MergeSession(ctx context.Context, sessionID string) {
	t.mu.Lock()
	t.refreshGlobalLocked(ctx)
	patterns := t.sessions[sessionID]
	for action, p := range patterns {
		g := t.global[action]
		g.Action = action
		g.Frequency += p.Frequency
		g.TimeSpent += p.TimeSpent
		g.Success = p.Success
		t.global[action] = g
	}
	delete(t.sessions, sessionID)
	delete(t.traits, sessionID)
	data, err := json.Marshal(t.global)
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn("patterns_encode_failed", zap.Error(err))
		return
	}
	t.persist(ctx, data)
}

// GlobalPatterns returns a copy of the merged global table
func (t *SessionTracker) GlobalPatterns() map[string]models.InteractionPattern {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshGlobalLocked(context.Background())
	out := make(map[string]models.InteractionPattern, len(t.global))
	for action, p := range t.global {
		out[action] = p
	}
	return out
}

// Reset clears all per-session and global state
func (t *SessionTracker) Reset(ctx context.Context) {
	t.mu.Lock()
	t.sessions = make(map[string]map[string]*models.InteractionPattern)
	t.traits = make(map[string]Traits)
	t.global = make(map[string]models.InteractionPattern)
	data, err := json.Marshal(t.global)
	t.mu.Unlock()
	if err != nil {
		return
	}
	t.persist(ctx, data)
}

func (t *SessionTracker) persist(ctx context.Context, data []byte) {
	if t.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := t.kv.Set(ctx, database.KeyInteractionPatterns, data); err != nil {
		t.logger.Warn("patterns_persist_failed", zap.Error(err))
	}
}

// mergeInterests adds new interest names to the favorites, keeping
// declaration order, bounded to maxFavoriteInterests
func mergeInterests(favorites []string, interests []models.Interest) []string {
	seen := make(map[string]bool, len(favorites))
	for _, name := range favorites {
		seen[name] = true
	}
	for _, i := range interests {
		if len(favorites) >= maxFavoriteInterests {
			break
		}
		if !seen[i.Name] {
			favorites = append(favorites, i.Name)
			seen[i.Name] = true
		}
	}
	return favorites
}
