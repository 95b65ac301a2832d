package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/benvon/trip-planner/internal/config"
	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test backend connectivity",
		Long:  "Verify that Redis, RabbitMQ and the configured model endpoint are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			fmt.Printf("Testing Redis: %s\n", cfg.RedisURL)
			kv, err := database.NewRedisKV(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer func() {
				if err := kv.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close redis connection: %v\n", err)
				}
			}()
			if err := kv.HealthCheck(ctx); err != nil {
				return fmt.Errorf("redis health check failed: %w", err)
			}
			fmt.Println("✓ Redis is reachable")

			fmt.Println("\nTesting RabbitMQ")
			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ connection: %v\n", err)
				}
			}()
			if err := jobQueue.HealthCheck(ctx); err != nil {
				return fmt.Errorf("RabbitMQ health check failed: %w", err)
			}
			fmt.Println("✓ RabbitMQ is reachable")

			// Custom model endpoints expose /models on the OpenAI wire format
			if cfg.AIBaseURL != "" {
				modelsURL := cfg.AIBaseURL + "/models"
				fmt.Printf("\nTesting model endpoint: %s\n", modelsURL)
				client := &http.Client{Timeout: 10 * time.Second}
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL, nil)
				if err != nil {
					return fmt.Errorf("failed to build model endpoint request: %w", err)
				}
				if cfg.OpenAIKey != "" {
					req.Header.Set("Authorization", "Bearer "+cfg.OpenAIKey)
				}
				resp, err := client.Do(req)
				if err != nil {
					return fmt.Errorf("failed to reach model endpoint: %w", err)
				}
				defer func() {
					if err := resp.Body.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
					}
				}()
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("model endpoint returned status: %d", resp.StatusCode)
				}
				fmt.Println("✓ Model endpoint is accessible")
			}

			fmt.Println("\n✓ Connectivity test passed")
			return nil
		},
	}

	return cmd
}
