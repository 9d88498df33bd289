package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"effortwatch/internal/config"
	"effortwatch/internal/observability"
)

var (
	configPath    = flag.String("config", "./effortwatch.toml", "Path to config file")
	modeFlag      = flag.String("mode", "dev", "Tracking mode id, comma-separated list, or 'all'")
	directionFlag = flag.String("direction", "up", "Transition direction: up, down, or both")
	updateCurrent = flag.Bool("update-current", false, "Refresh only the current month in the persisted dataset")
	force         = flag.Bool("force", false, "Update the current month even when the dataset was written today")
	serve         = flag.Bool("serve", false, "Serve the dashboard API instead of running an analysis")
	verbose       = flag.Bool("verbose", false, "Enable verbose logging")
	version       = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("effortwatch v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./effortwatch.toml" {
			cfg, err = config.Load("./effortwatch.example.toml")
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *serve {
		if err := app.Serve(ctx); err != nil {
			slog.Error("dashboard server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	modes, err := app.parseModes(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	directions, err := parseDirections(*directionFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if *updateCurrent {
		if err := app.UpdateCurrent(ctx, modes, directions, *force); err != nil {
			slog.Error("current month update failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := app.RunFull(ctx, modes, directions); err != nil {
		slog.Error("analysis run failed", "error", err)
		os.Exit(1)
	}
}
