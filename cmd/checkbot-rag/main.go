// Copyright 2025 Faktenforum
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	checkbotrag "github.com/faktenforum/checkbot-rag"
	"github.com/faktenforum/checkbot-rag/config"
	"github.com/faktenforum/checkbot-rag/ingestion"
	"github.com/urfave/cli/v2"
)

// databaseOptions are passed to every database opened by a command.
var databaseOptions []checkbotrag.DatabaseOption

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "checkbot-rag",
		Usage: "Fact-check retrieval: import claims, search them, manage import jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (overrides " + config.EnvPrefix + "CONFIG)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import a JSON array of claims and wait for the job to finish",
				ArgsUsage: "FILE",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source label stored on the job (defaults to the file name)",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Language code of the claims (defaults to the configured search language)",
					},
					&cli.DurationFlag{
						Name:  "poll",
						Usage: "Interval between progress reports",
						Value: time.Second,
					},
				},
			},
			{
				Name:  "jobs",
				Usage: "Inspect and manage import jobs",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List recent import jobs",
						Action: jobsListCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Maximum number of jobs to list",
								Value: 20,
							},
						},
					},
					{
						Name:      "status",
						Usage:     "Show one import job",
						ArgsUsage: "JOB_ID",
						Action:    jobsStatusCommand,
					},
					{
						Name:      "cancel",
						Usage:     "Cancel a pending or running import job",
						ArgsUsage: "JOB_ID",
						Action:    jobsCancelCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete a finished import job",
						ArgsUsage: "JOB_ID",
						Action:    jobsDeleteCommand,
					},
					{
						Name:   "recover",
						Usage:  "Fail pending or running jobs whose importer is gone",
						Action: jobsRecoverCommand,
						Flags: []cli.Flag{
							&cli.DurationFlag{
								Name:  "stale-after",
								Usage: "How long a job may go without an update before it counts as abandoned",
								Value: ingestion.DefaultStaleAfter,
							},
						},
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid search",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of chunks to return",
						Value: 10,
					},
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Restrict to claims in any of these categories",
					},
					&cli.StringFlag{
						Name:  "rating-label",
						Usage: "Restrict to claims with this rating label",
					},
					&cli.StringFlag{
						Name:  "chunk-type",
						Usage: "Restrict to one chunk type (overview, fact_detail)",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Language code selecting the text-search configuration",
					},
				},
			},
			{
				Name:      "claim",
				Usage:     "Show a stored claim with its chunks",
				ArgsUsage: "ID",
				Action:    claimCommand,
			},
			{
				Name:   "claims",
				Usage:  "List stored claims",
				Action: claimsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number, starting at 1",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Claims per page",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "rating-label",
						Usage: "Only claims with this rating label",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only claims in this category",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only claims with this status",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show corpus statistics",
				Action: statsCommand,
			},
			{
				Name:   "categories",
				Usage:  "List categories with claim counts",
				Action: categoriesCommand,
			},
			{
				Name:   "rating-labels",
				Usage:  "List rating labels with claim counts",
				Action: ratingLabelsCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Recompute the embedding of every stored chunk",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch (defaults to the embedding batch size)",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for each embedding call",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "migrate",
				Usage:  "Create or verify the storage schema",
				Action: migrateCommand,
			},
		},
	}
}

// openDatabase loads the configuration and opens the configured store.
func openDatabase(c *cli.Context) (*checkbotrag.Database, error) {
	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := checkbotrag.Open(c.Context, cfg, databaseOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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
