package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docketry/docketd/internal/core/config"
	redisclient "github.com/docketry/docketd/internal/infra/redis"
)

var resetQueueCmd = &cobra.Command{
	Use:   "reset-queue",
	Short: "Clear the summarization job queue",
	Run:   runResetQueue,
}

func init() {
	rootCmd.AddCommand(resetQueueCmd)
}

func runResetQueue(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Redis.URL == "" {
		fmt.Fprintln(os.Stderr, "redis is not configured")
		os.Exit(1)
	}

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to redis: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	depth, _ := client.Depth(ctx)
	if err := client.Clear(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to clear queue: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("cleared %d pending jobs\n", depth)
}
