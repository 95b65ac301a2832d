package database

import (
	"context"
	"errors"
)

// Logical keys for the persistence surface. Each key holds one bounded-size
// serialized collection.
const (
	KeyTrainingData        = "training-data"
	KeyUserFeedback        = "user-feedback"
	KeyRouteFeedback       = "route-feedback"
	KeyModelWeights        = "model-weights"
	KeyInteractionPatterns = "interaction-patterns"
	KeyRatelimitConfig     = "ratelimit-config"
)

// ErrKeyNotFound is returned when a key has no stored value
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the durable key-value persistence surface for training data,
// feedback logs, and the weight table
type KVStore interface {
	// Get retrieves the value stored under key; ErrKeyNotFound when absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error

	// Close closes the underlying connection
	Close() error
}
