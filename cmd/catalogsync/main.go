// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/catalogsync"
	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/ingestion"
	"github.com/poiesic/catalogsync/search"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().RunContext(ctx, os.Args)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "catalogsync:", err)
	}
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status.
// Operator interruption is a clean exit.
func exitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "catalogsync",
		Usage: "Keep the product knowledge base in sync with store catalogs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Sync every store forever on a fixed cadence",
				Action: runCommand,
			},
			{
				Name:   "once",
				Usage:  "Run a single sync cycle and print its summary",
				Action: onceCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Create the vector extension and the knowledge-base table",
				Action: migrateCommand,
			},
			{
				Name:      "search",
				Usage:     "Find products similar to a free-text query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Cosine similarity floor between 0 and 1",
						Value: float64(search.DefaultMinSimilarity),
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show the summary of the last finished cycle",
				Action: statusCommand,
			},
		},
	}
}

// newService loads the environment configuration and builds the service.
func newService(opts ...catalogsync.ServiceOption) (*catalogsync.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	opts = append([]catalogsync.ServiceOption{catalogsync.WithLogger(slog.Default())}, opts...)
	return catalogsync.NewService(cfg, opts...)
}

func runCommand(c *cli.Context) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	scheduler, err := svc.NewScheduler()
	if err != nil {
		return err
	}

	slog.Info("sync service started")
	err = scheduler.Run(c.Context)
	slog.Info("sync service stopped")
	return err
}

func onceCommand(c *cli.Context) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.RunOnce(c.Context)
	if report != nil {
		printReport(c.App.Writer, report)
	}
	return err
}

func migrateCommand(c *cli.Context) error {
	svc, err := newService(catalogsync.WithoutLocalState())
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Migrate(c.Context); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "schema is up to date")
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("search requires a query")
	}
	if c.Int("limit") < 1 {
		return fmt.Errorf("limit must be greater than 0")
	}

	svc, err := newService(catalogsync.WithoutLocalState())
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.Search(c.Context, query, c.Int("limit"),
		search.WithMinSimilarity(float32(c.Float64("min-similarity"))))
	if err != nil {
		return err
	}
	printResults(c.App.Writer, results)
	return nil
}

func statusCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	checkpoint, err := catalogsync.ReadCheckpoint(c.Context, cfg)
	if errors.Is(err, catalogsync.ErrServiceRunning) {
		return fmt.Errorf("status unavailable: %w", err)
	}
	if err != nil {
		return err
	}
	printCheckpoint(c.App.Writer, checkpoint)
	return nil
}

func printReport(w io.Writer, report *ingestion.CycleReport) {
	fmt.Fprintf(w, "Run:        %s\n", report.RunID)
	fmt.Fprintf(w, "Duration:   %s\n", report.Duration.Round(time.Second))
	fmt.Fprintf(w, "Stores:     %d (%d failed)\n", len(report.Stores), report.StoresFailed)
	fmt.Fprintf(w, "Processed:  %d\n", report.Processed)
	fmt.Fprintf(w, "Succeeded:  %d\n", report.Succeeded)
	fmt.Fprintf(w, "Failed:     %d\n", report.Failed)
	fmt.Fprintf(w, "Success:    %.1f%%\n", report.SuccessRate())
	for _, store := range report.Stores {
		if store.Err != nil {
			fmt.Fprintf(w, "  store %s (%s): %v\n", store.StoreID, store.Name, store.Err)
		}
	}
}

func printResults(w io.Writer, results []*core.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matching products")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%2d. [%.3f] product %s (store %s)\n", i+1, r.Score, r.Record.ProductID, r.Record.StoreID)
		fmt.Fprintf(w, "    %s\n", preview(r.Record.Content, 120))
	}
}

func printCheckpoint(w io.Writer, checkpoint *core.Checkpoint) {
	if checkpoint == nil {
		fmt.Fprintln(w, "no cycle has finished yet")
		return
	}
	fmt.Fprintf(w, "Run:        %s\n", checkpoint.RunID)
	fmt.Fprintf(w, "Finished:   %s\n", checkpoint.FinishedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Duration:   %s\n", checkpoint.Duration.Round(time.Second))
	fmt.Fprintf(w, "Stores:     %d (%d failed)\n", checkpoint.Stores, checkpoint.StoresFailed)
	fmt.Fprintf(w, "Processed:  %d (succeeded %d, failed %d)\n", checkpoint.Processed, checkpoint.Succeeded, checkpoint.Failed)
	if checkpoint.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", checkpoint.Error)
	}
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
