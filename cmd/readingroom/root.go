package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ReadingRoom/internal/app"
	"ReadingRoom/internal/config"
	"ReadingRoom/internal/logging"
)

var flagMemory bool

var rootCmd = &cobra.Command{
	Use:   "readingroom",
	Short: "Crawl the reading room and turn declassified documents into reports and image prompts",
	Long: `readingroom crawls the public reading-room search, extracts document text,
generates a report, summary and video script per document, and stores image
prompts for later illustration.

Configuration is read from the YAML file named by READINGROOM_CONFIG, with
environment overrides such as DATABASE_DSN and CHATGPT_API_KEY.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagMemory, "memory", false, "Keep all state in process instead of the configured database")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if flagMemory {
		cfg.Database.Driver = app.MemoryDriver
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
