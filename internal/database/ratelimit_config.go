package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/trip-planner/internal/models"
)

// RatelimitConfigRepository stores the HTTP rate limit configuration in the
// key-value store so it can be changed without redeploying.
type RatelimitConfigRepository struct {
	kv KVStore
}

// NewRatelimitConfigRepository creates a new ratelimit config repository
func NewRatelimitConfigRepository(kv KVStore) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{kv: kv}
}

// Get retrieves the rate limit config; nil when none is stored
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	data, err := r.kv.Get(ctx, KeyRatelimitConfig)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratelimit config: %w", err)
	}
	c := &models.RatelimitConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode ratelimit config: %w", err)
	}
	return c, nil
}

// Set stores the rate limit config. Rate format: e.g. "5-S", "100-M".
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	c.Rate = rate
	c.UpdatedAt = time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode ratelimit config: %w", err)
	}
	if err := r.kv.Set(ctx, KeyRatelimitConfig, data); err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}
	return nil
}
