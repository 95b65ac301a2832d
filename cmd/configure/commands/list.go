package commands

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/benvon/trip-planner/internal/config"
	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/services/learning"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored configuration and learning state",
		Long:  "Show the rate limit configuration and the global interaction patterns stored in Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			kv, err := database.NewRedisKV(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer func() {
				if err := kv.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close redis connection: %v\n", err)
				}
			}()

			ctx := context.Background()

			ratelimitRepo := database.NewRatelimitConfigRepository(kv)
			rl, err := ratelimitRepo.Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to get ratelimit config: %w", err)
			}
			if rl == nil {
				fmt.Println("Rate limit: (not configured, server default applies)")
			} else {
				fmt.Printf("Rate limit: %s\n", rl.Rate)
			}

			tracker := learning.NewSessionTracker(kv, zap.NewNop())
			patterns := tracker.GlobalPatterns()
			if len(patterns) == 0 {
				fmt.Println("Global interaction patterns: (none recorded yet)")
				return nil
			}

			keys := make([]string, 0, len(patterns))
			for key := range patterns {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			fmt.Println("Global interaction patterns:")
			for _, key := range keys {
				p := patterns[key]
				fmt.Printf("  - Action: %s\n", p.Action)
				fmt.Printf("    Frequency: %d\n", p.Frequency)
				fmt.Printf("    Time spent: %s\n", p.TimeSpent)
				fmt.Printf("    Success: %v\n", p.Success)
				fmt.Println()
			}

			return nil
		},
	}

	return cmd
}
