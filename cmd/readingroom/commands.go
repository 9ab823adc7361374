package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ReadingRoom/internal/app"
	"ReadingRoom/internal/domain"
)

var (
	flagNoScheduler bool
	flagKeyword     string
	flagStartDate   string
	flagEndDate     string
	flagDaily       bool
	flagTitle       string
	flagOutput      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily crawl scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Serve(ctx, !flagNoScheduler)
		})
	},
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a reading-room search and process every document found",
	Example: `  readingroom crawl --keyword stargate --start 1990-01-01 --end 2000-01-01
  readingroom crawl --daily`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			if flagDaily {
				return a.RunDaily(ctx)
			}
			results, err := a.Pipeline().RunSearch(ctx, domain.SearchQuery{
				Keyword:   flagKeyword,
				StartDate: flagStartDate,
				EndDate:   flagEndDate,
			})
			if perr := printJSON(cmd.OutOrStdout(), results); perr != nil {
				return perr
			}
			return err
		})
	},
}

var processCmd = &cobra.Command{
	Use:   "process <document-url>",
	Short: "Process a single document page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			result, err := a.Pipeline().ProcessOne(ctx, flagTitle, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search stored documents by keyword and processing date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		criteria := domain.SearchCriteria{Keyword: flagKeyword}
		var err error
		if criteria.After, err = parseDateFlag("start", flagStartDate); err != nil {
			return err
		}
		if criteria.Before, err = parseDateFlag("end", flagEndDate); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			docs, err := a.Store().Search(ctx, criteria)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), docs)
		})
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <document-url>",
	Short: "Write a zip of the document's generated images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			data, err := a.Archives().Build(ctx, args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(flagOutput, data, 0o644); err != nil {
				return fmt.Errorf("write archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", flagOutput, len(data))
			return nil
		})
	},
}

var illustrateCmd = &cobra.Command{
	Use:   "illustrate <document-url>",
	Short: "Generate images for the document's pending prompts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			n, err := a.Illustrator().Illustrate(ctx, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d images\n", n)
			return err
		})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&flagNoScheduler, "no-scheduler", false, "Serve the API without the daily crawl")

	for _, c := range []*cobra.Command{crawlCmd, searchCmd} {
		c.Flags().StringVar(&flagKeyword, "keyword", "", "Search keyword")
		c.Flags().StringVar(&flagStartDate, "start", "", "Start date (YYYY-MM-DD)")
		c.Flags().StringVar(&flagEndDate, "end", "", "End date (YYYY-MM-DD)")
	}
	crawlCmd.Flags().BoolVar(&flagDaily, "daily", false, "Run the scheduled daily crawl once")

	processCmd.Flags().StringVar(&flagTitle, "title", "", "Document title (defaults to the URL)")
	archiveCmd.Flags().StringVarP(&flagOutput, "output", "o", "images.zip", "Archive destination")

	rootCmd.AddCommand(serveCmd, crawlCmd, processCmd, searchCmd, archiveCmd, illustrateCmd)
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}
