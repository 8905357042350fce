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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/pairfinder"
	"github.com/poiesic/pairfinder/config"
	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/ingestion"
	"github.com/poiesic/pairfinder/ops"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pairfinder",
		Usage: "Bilingual translation pair similarity search",
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
				Usage:   "Path to config file (default $XDG_CONFIG_HOME/pairfinder/config.yaml)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to BadgerDB database directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "PostgreSQL connection string (overrides config and selects postgres)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the MCP tools and resources",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "transport",
						Usage: "MCP transport (stdio, http)",
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address for the http transport",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find translation pairs similar to the given text",
				ArgsUsage: "<text>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Aliases:  []string{"t"},
						Usage:    "Language column to match against (chinese, english)",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of pairs to return (1-20)",
						Value:   core.DefaultTopK,
					},
				},
			},
			{
				Name:      "get",
				Usage:     "Show a translation pair by ID",
				ArgsUsage: "<id>",
				Action:    getCommand,
			},
			{
				Name:   "health",
				Usage:  "Check the store and the embedding endpoint",
				Action: operationCommand(ops.OpHealthCheck),
			},
			{
				Name:   "info",
				Usage:  "Describe the service and its tools",
				Action: operationCommand(ops.OpGetServiceInfo),
			},
			{
				Name:      "import",
				Usage:     "Embed and store translation pairs from a JSONL file",
				ArgsUsage: "<file|->",
				Action:    importCommand,
				Flags:     ingestFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored pairs with the configured model",
				Action: reembedCommand,
				Flags:  ingestFlags(),
			},
			{
				Name:   "init-config",
				Usage:  "Write the effective configuration to the config file",
				Action: initConfigCommand,
			},
		},
	}
}

func ingestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of concurrent embedding workers (default from config)",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of pairs per embedding request (default from config)",
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N pairs",
			Value: ingestion.DefaultReportInterval,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum attempts per embedding request (default from config)",
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff (default from config)",
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if db := c.String("db"); db != "" {
		cfg.Store.Driver = config.DriverBadger
		cfg.Store.Path = db
	}
	if dsn := c.String("dsn"); dsn != "" {
		cfg.Store.Driver = config.DriverPostgres
		cfg.Store.DSN = dsn
	}
	return cfg, nil
}

func openService(c *cli.Context) (*pairfinder.Service, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	svc, err := pairfinder.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func serveCommand(c *cli.Context) error {
	svc, cfg, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	transport := cfg.Server.Transport
	if c.IsSet("transport") {
		transport = c.String("transport")
	}
	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	server, err := svc.NewMCPServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	slog.Info("starting server", "transport", transport, "store", svc.StoreDescription(), "model", svc.EmbeddingModel())
	return server.Serve(ctx, transport, addr)
}

func searchCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	topK := c.Int("top-k")
	return callOperation(c, ops.OpSearchSimilarPairs, ops.SearchArgs{
		UserInput:      text,
		TargetLanguage: c.String("target"),
		TopK:           &topK,
	})
}

func getCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: exactly one pair id is required", core.ErrInvalidInput)
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: pair id must be an integer", core.ErrInvalidInput)
	}
	return callOperation(c, ops.OpGetTranslationPair, ops.GetPairArgs{PairID: &id})
}

func operationCommand(name string) cli.ActionFunc {
	return func(c *cli.Context) error {
		return callOperation(c, name, nil)
	}
}

// callOperation dispatches through the same registry as the MCP server and
// prints the JSON result, or the rendered error, to stdout.
func callOperation(c *cli.Context, name string, args any) error {
	svc, _, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	var raw json.RawMessage
	if args != nil {
		if raw, err = json.Marshal(args); err != nil {
			return err
		}
	}

	out, err := svc.Registry().Call(c.Context, name, raw)
	if err != nil {
		if writeErr := writeJSON(c.App.Writer, ops.RenderError(err)); writeErr != nil {
			return writeErr
		}
		return err
	}
	return writeJSON(c.App.Writer, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPipeline(c *cli.Context, svc *pairfinder.Service, cfg *config.Config) (*ingestion.Pipeline, error) {
	workers := cfg.Ingest.Workers
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}
	batchSize := cfg.Ingest.BatchSize
	if c.IsSet("batch-size") {
		batchSize = c.Int("batch-size")
	}
	maxAttempts := cfg.Ingest.MaxAttempts
	if c.IsSet("max-retries") {
		maxAttempts = c.Int("max-retries")
	}
	retryDelay := cfg.Ingest.RetryDelay
	if c.IsSet("retry-delay") {
		retryDelay = c.Duration("retry-delay")
	}

	if batchSize <= 0 {
		return nil, fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("max-retries must be positive, got %d", maxAttempts)
	}

	return svc.NewIngestionPipeline(
		ingestion.WithPoolSize(workers),
		ingestion.WithBatchSize(batchSize),
		ingestion.WithRetry(maxAttempts, retryDelay),
		ingestion.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
	)
}

func importCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: an input file (or - for stdin) is required", core.ErrInvalidInput)
	}

	var in io.Reader = os.Stdin
	if path := c.Args().First(); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	pairs, err := ingestion.ReadJSONL(in)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	svc, cfg, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	pipeline, err := newPipeline(c, svc, cfg)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	stats, err := pipeline.Import(c.Context, pairs)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return writeJSON(c.App.Writer, stats)
}

func reembedCommand(c *cli.Context) error {
	svc, cfg, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	pipeline, err := newPipeline(c, svc, cfg)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	stats, err := pipeline.Reembed(c.Context)
	if err != nil {
		return fmt.Errorf("reembed failed: %w", err)
	}
	return writeJSON(c.App.Writer, stats)
}

func initConfigCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	path := c.String("config")
	if path == "" {
		if path, err = config.GetConfigPath(); err != nil {
			return err
		}
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "wrote %s\n", path)
	return nil
}

// exitCode maps an error kind to a process exit status.
func exitCode(err error) int {
	switch core.KindOf(err) {
	case core.KindInvalidInput:
		return 2
	case core.KindNotFound:
		return 3
	}
	return 1
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

	// stdout carries MCP stdio traffic and command output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
