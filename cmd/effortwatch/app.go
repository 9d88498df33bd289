package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"effortwatch/internal/analysis"
	"effortwatch/internal/config"
	"effortwatch/internal/dashboard"
	"effortwatch/internal/dataset"
	"effortwatch/internal/errors"
	"effortwatch/internal/history"
	"effortwatch/internal/jira"
	"effortwatch/internal/mode"
	"effortwatch/internal/run"
	"effortwatch/internal/timeframe"
)

// App wires the configured issue source, mode registry, runner, and run
// history together for the CLI entry points.
type App struct {
	cfg      *config.Config
	registry *mode.Registry
	runner   *run.Runner
	history  *history.Store
}

func NewApp(cfg *config.Config) (*App, error) {
	registry, err := mode.NewRegistry(cfg.TrackingModes())
	if err != nil {
		return nil, err
	}

	client := jira.NewClient(jira.ClientOptions{
		BaseURL:           cfg.Jira.BaseURL,
		AuthToken:         cfg.Jira.AuthToken,
		Project:           cfg.Jira.Project,
		Statuses:          cfg.Jira.Statuses,
		PageSize:          cfg.Limits.PageSize,
		RequestsPerSecond: cfg.Limits.RequestsPerSecond,
		Burst:             cfg.Limits.Burst,
		Timeout:           cfg.Jira.Timeout,
	})

	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		registry: registry,
		runner:   run.NewRunner(client, cfg.Jira.Project),
		history:  store,
	}, nil
}

func (a *App) Close() error {
	return a.history.Close()
}

// parseDirections expands the -direction flag value. "both" covers up and
// down in that order.
func parseDirections(value string) ([]analysis.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "up":
		return []analysis.Direction{analysis.DirectionUp}, nil
	case "down":
		return []analysis.Direction{analysis.DirectionDown}, nil
	case "both":
		return []analysis.Direction{analysis.DirectionUp, analysis.DirectionDown}, nil
	default:
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("invalid direction %q, valid directions are: up, down, both", value))
	}
}

// parseModes resolves a comma-separated mode list, or every registered mode
// for "all".
func (a *App) parseModes(value string) ([]mode.TrackingMode, error) {
	ids := strings.Split(value, ",")
	if strings.TrimSpace(value) == "all" {
		ids = a.registry.IDs()
	}

	modes := make([]mode.TrackingMode, 0, len(ids))
	for _, id := range ids {
		m, err := a.registry.Get(strings.TrimSpace(id))
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// RunFull analyzes every month from the configured start date for each
// mode/direction pair, writing the dataset JSON, the text report, and a run
// history row per pair.
func (a *App) RunFull(ctx context.Context, modes []mode.TrackingMode, directions []analysis.Direction) error {
	now := time.Now()
	windows := timeframe.Generate(a.cfg.StartDate(), now)
	if len(windows) == 0 {
		return errors.New(errors.CodeValidation,
			fmt.Sprintf("no analyzable months between %s and now", a.cfg.Analysis.StartDate))
	}

	for _, m := range modes {
		for _, direction := range directions {
			result, err := a.runner.Run(ctx, windows, m, direction)
			if err != nil {
				return err
			}

			dataPath := a.cfg.DataFile(m.ID, string(direction))
			if err := saveDataset(dataPath, result); err != nil {
				return err
			}

			reportPath := a.cfg.ReportFile(m.ID, string(direction))
			if err := os.WriteFile(reportPath, []byte(result.Report), 0o644); err != nil {
				return errors.Wrap(err, errors.CodePersistence, "write report")
			}

			if err := a.recordRun(m, direction, result); err != nil {
				slog.Warn("recording run history failed", "run_id", result.RunID, "error", err)
			}

			fmt.Print(result.Report)
			slog.Info("run complete",
				"run_id", result.RunID, "mode", m.ID, "direction", direction,
				"months", result.MonthsAnalyzed, "failed", result.MonthsFailed,
				"data", dataPath, "report", reportPath)
		}
	}
	return nil
}

// UpdateCurrent refreshes only the current month in each persisted dataset.
// A dataset already written today is skipped unless force is set.
func (a *App) UpdateCurrent(ctx context.Context, modes []mode.TrackingMode, directions []analysis.Direction, force bool) error {
	now := time.Now()
	for _, m := range modes {
		for _, direction := range directions {
			dataPath := a.cfg.DataFile(m.ID, string(direction))
			if !force && a.runner.CurrentMonthFresh(dataPath, now) {
				slog.Info("dataset already updated today, skipping",
					"mode", m.ID, "direction", direction, "data", dataPath)
				continue
			}
			if _, err := a.runner.UpdateCurrentMonth(ctx, dataPath, m, direction, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// Serve runs the dashboard HTTP server with a file watcher that reloads a
// dataset whenever its JSON file changes. Blocks until the context is
// cancelled by a signal.
func (a *App) Serve(ctx context.Context) error {
	paths := make(map[string]string)
	for _, id := range a.registry.IDs() {
		for _, direction := range []analysis.Direction{analysis.DirectionUp, analysis.DirectionDown} {
			name := fmt.Sprintf("%s-%s", id, direction)
			paths[name] = a.cfg.DataFile(id, string(direction))
		}
	}

	basePoints := defaultServerBasePoints(a.registry)
	server, err := dashboard.NewServer(a.cfg.Dashboard.Addr, basePoints, paths)
	if err != nil {
		return err
	}

	watcher, err := dashboard.NewWatcher(a.cfg.Dashboard.Debounce, a.cfg.Dashboard.WatchGlobs, func(changed []string) {
		for _, path := range changed {
			if err := server.ReloadPath(path); err != nil {
				slog.Error("dataset reload failed", "path", path, "error", err)
			}
		}
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := os.MkdirAll(a.cfg.Paths.DataDir, 0o755); err != nil {
		return err
	}
	if err := watcher.Watch([]string{a.cfg.Paths.DataDir}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("shutting down dashboard server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func (a *App) recordRun(m mode.TrackingMode, direction analysis.Direction, result run.Result) error {
	return a.history.SaveRun(history.RunRecord{
		RunID:          result.RunID,
		Mode:           m.ID,
		Direction:      string(direction),
		SchemaVersion:  history.SchemaVersion,
		StartedAt:      result.StartedAt,
		FinishedAt:     result.FinishedAt,
		MonthsAnalyzed: result.MonthsAnalyzed,
		MonthsFailed:   result.MonthsFailed,
		TotalIssues:    result.TotalIssues,
		TotalChanges:   result.TotalChanges,
	})
}

func saveDataset(path string, result run.Result) error {
	if err := dataset.Save(path, result.Months); err != nil {
		return errors.Wrap(err, errors.CodePersistence, "write dataset")
	}
	return nil
}

// defaultServerBasePoints uses the dev mode's base points when registered,
// falling back to the first mode alphabetically.
func defaultServerBasePoints(registry *mode.Registry) []float64 {
	if m, err := registry.Get("dev"); err == nil {
		return m.BasePoints
	}
	ids := registry.IDs()
	if len(ids) == 0 {
		return nil
	}
	m, _ := registry.Get(ids[0])
	return m.BasePoints
}
