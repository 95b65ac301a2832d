package commands

import (
	"context"
	"fmt"

	"github.com/benvon/trip-planner/internal/config"
	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/services/learning"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewTrainingCmd creates the training command for inspecting and clearing
// the stored interaction log.
func NewTrainingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "training",
		Short: "Manage stored training interactions",
		Long:  "Show statistics for, or clear, the interaction log the learning loop trains on. Stored in Redis.",
	}
	cmd.AddCommand(newTrainingStatsCmd())
	cmd.AddCommand(newTrainingClearCmd())
	return cmd
}

func newTrainingStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show interaction log statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, kv, err := openInteractionStore()
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			points := store.All()
			fmt.Printf("Stored interactions: %d\n", len(points))
			if len(points) == 0 {
				return nil
			}

			var sum float64
			sessions := make(map[string]struct{})
			for _, p := range points {
				sum += p.QualityScore
				sessions[p.SessionID] = struct{}{}
			}
			fmt.Printf("Distinct sessions:   %d\n", len(sessions))
			fmt.Printf("Mean quality score:  %.3f\n", sum/float64(len(points)))
			fmt.Printf("Oldest:              %s\n", points[0].Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Printf("Newest:              %s\n", points[len(points)-1].Timestamp.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newTrainingClearCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the stored interaction log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("--yes is required to clear the interaction log")
			}
			store, kv, err := openInteractionStore()
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			store.Clear(context.Background())
			fmt.Println("Interaction log cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the clear")
	return cmd
}

func openInteractionStore() (*learning.InteractionStore, *database.RedisKV, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	kv, err := database.NewRedisKV(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return learning.NewInteractionStore(kv, 0, zap.NewNop()), kv, nil
}
