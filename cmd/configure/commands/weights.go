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

// NewWeightsCmd creates the weights command for inspecting and resetting
// the learned per-pattern weights.
func NewWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Manage learned pattern weights",
		Long:  "List or reset the per-pattern weights adjusted by the feedback loop. Stored in Redis.",
	}
	cmd.AddCommand(newWeightsListCmd())
	cmd.AddCommand(newWeightsResetCmd())
	return cmd
}

func newWeightsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned pattern weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, kv, err := openWeightStore()
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			weights := store.Weights()
			if len(weights) == 0 {
				fmt.Println("No learned weights yet.")
				return nil
			}

			keys := make([]string, 0, len(weights))
			for key := range weights {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			fmt.Println("Learned pattern weights:")
			for _, key := range keys {
				fmt.Printf("  %-40s %.3f\n", key, weights[key])
			}
			return nil
		},
	}
}

func newWeightsResetCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset all learned pattern weights to neutral",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("--yes is required to reset weights")
			}
			store, kv, err := openWeightStore()
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			store.Reset(context.Background())
			fmt.Println("Learned weights reset.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the reset")
	return cmd
}

func openWeightStore() (*learning.WeightStore, *database.RedisKV, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	kv, err := database.NewRedisKV(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: falling back to no-op logger: %v\n", err)
		logger = zap.NewNop()
	}
	return learning.NewWeightStore(kv, logger), kv, nil
}
