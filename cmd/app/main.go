package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dagaz/internal"
	"github.com/starford/dagaz/internal/bujo"
	"github.com/starford/dagaz/internal/errreport"
	"github.com/starford/dagaz/internal/imagestore"
	"github.com/starford/dagaz/internal/mcpserver"
	"github.com/starford/dagaz/internal/ocr"
	"github.com/starford/dagaz/internal/scan"
	"github.com/starford/dagaz/internal/store"
	pkgconfig "github.com/starford/dagaz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// buildPipeline wires the scan service the CLI subcommands share.
func buildPipeline(cfg *internal.Config, logger *slog.Logger) (*scan.Service, *ocr.Orchestrator, imagestore.Store, func(), error) {
	db, err := store.Open(cfg.Journal.DBPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init store: %w", err)
	}
	images, err := imagestore.NewFS(cfg.Archive.Path)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("init image store: %w", err)
	}

	providers := internal.BuildProviders(cfg.OCR.Providers)
	orch := ocr.NewOrchestrator(providers,
		ocr.WithOrchestratorLogger(logger),
		ocr.WithReporter(errreport.NewLogReporter(logger)),
		ocr.WithDefaultOptions(internal.DefaultOCROptions(cfg.OCR)))

	parser := bujo.New(bujo.WithLogger(logger))
	svc := scan.NewService(orch, parser, db, scan.WithLogger(logger))

	cleanup := func() {
		for _, d := range providers {
			_ = d.Provider.Close()
		}
		db.Close()
	}
	return svc, orch, images, cleanup, nil
}

func scanImages(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

	svc, _, _, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := ocr.Options{Preferred: cmd.String("provider")}
	if tier := cmd.String("max-tier"); tier != "" {
		t, err := ocr.ParseTier(tier)
		if err != nil {
			return err
		}
		opts.MaxTier = t
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, path := range cmd.Args().Slice() {
		g.Go(func() error {
			res, err := svc.ScanImage(gCtx, path, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(os.Stderr, "%s: %d entries via %s (confidence %.2f)\n",
				path, len(res.Entries), res.Provider, res.Confidence)
			return nil
		})
	}
	return g.Wait()
}

func parseText(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	svc, _, _, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var text []byte
	if file := cmd.String("file"); file != "" {
		text, err = os.ReadFile(file)
	} else {
		text, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	entries, err := svc.ParseText(ctx, string(text))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Logs go to stderr: stdout is the MCP transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	svc, orch, images, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpserver.New(svc, orch, images).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "dagaz",
		Usage: "Bullet journal scanner: OCR handwritten pages into structured entries",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream, and inbox watcher",
				Action: serve,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:      "scan",
				Usage:     "Scan one or more page images and store the entries",
				ArgsUsage: "IMAGE...",
				Action:    scanImages,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Provider id to try first (vision, ocrspace, claude, tesseract)",
					},
					&cli.StringFlag{
						Name:  "max-tier",
						Usage: "Cost tier cap (free, standard, premium)",
					},
				},
			},
			{
				Name:   "parse",
				Usage:  "Parse bullet journal text from stdin or a file into JSON entries",
				Action: parseText,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read text from a file instead of stdin",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve journal tools over the Model Context Protocol on stdio",
				Action: serveMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
