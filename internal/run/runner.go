// Package run drives the month-by-month analysis: fetch, detect, tabulate,
// aggregate, and assemble one statistics record per month.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"effortwatch/internal/analysis"
	"effortwatch/internal/dataset"
	"effortwatch/internal/errors"
	"effortwatch/internal/jira"
	"effortwatch/internal/mode"
	"effortwatch/internal/observability"
	"effortwatch/internal/timeframe"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// IssueSource yields the issues of one month window with change histories
// attached. The production implementation is jira.Client.
type IssueSource interface {
	FetchIssues(ctx context.Context, startDate, endDate string, m mode.TrackingMode) ([]jira.Issue, error)
}

// Result is one completed analysis run over a month range.
type Result struct {
	RunID          string
	Months         dataset.Months
	Report         string
	MonthsAnalyzed int
	MonthsFailed   int
	TotalIssues    int
	TotalChanges   int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Runner is the monthly orchestrator. Execution is strictly sequential: one
// month is fully fetched and analyzed before the next begins, because the
// issue source is a rate-limited external API.
type Runner struct {
	source     IssueSource
	projectKey string
	now        func() time.Time
}

func NewRunner(source IssueSource, projectKey string) *Runner {
	return &Runner{source: source, projectKey: projectKey, now: time.Now}
}

// Run analyzes every window in order. A single month's failure is logged,
// annotated in the report, and skipped; the failed month is absent from the
// result mapping rather than present with zeros.
func (r *Runner) Run(ctx context.Context, windows []timeframe.Window, m mode.TrackingMode, direction analysis.Direction) (Result, error) {
	if !direction.Valid() {
		return Result{}, errors.New(errors.CodeValidation, fmt.Sprintf("invalid direction %q", direction))
	}

	runID := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "runner.Run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("mode", m.ID),
		attribute.String("direction", string(direction)),
	))
	defer span.End()

	result := Result{
		RunID:     runID,
		Months:    dataset.Months{},
		StartedAt: r.now().UTC(),
	}
	report := newReport(m, direction, r.now().UTC())

	for _, window := range windows {
		stats, err := r.analyzeWindow(ctx, window, m, direction)
		if err != nil {
			slog.Error("month analysis failed, continuing",
				"run_id", runID, "mode", m.ID, "month", window.Name, "error", err)
			report.addError(window, err)
			observability.MonthsFailedTotal.Inc()
			result.MonthsFailed++
			continue
		}

		result.Months[window.Key] = stats
		result.MonthsAnalyzed++
		result.TotalIssues += stats.TotalIssues
		result.TotalChanges += stats.TotalChanges
		report.addMonth(window, stats)
		observability.MonthsAnalyzedTotal.Inc()

		slog.Info("month analyzed",
			"run_id", runID, "mode", m.ID, "month", window.Name,
			"issues", stats.TotalIssues, "changes", stats.TotalChanges)
	}

	result.Report = report.render()
	result.FinishedAt = r.now().UTC()
	return result, nil
}

// UpdateCurrentMonth recomputes only the month containing now and merges it
// into the dataset persisted at dataPath. Every other month's entry is left
// untouched.
func (r *Runner) UpdateCurrentMonth(ctx context.Context, dataPath string, m mode.TrackingMode, direction analysis.Direction, now time.Time) (dataset.Months, error) {
	if !direction.Valid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("invalid direction %q", direction))
	}

	window := timeframe.Current(now)
	ctx, span := observability.Tracer.Start(ctx, "runner.UpdateCurrentMonth", trace.WithAttributes(
		attribute.String("mode", m.ID),
		attribute.String("month", window.Name),
	))
	defer span.End()

	existing, err := dataset.Load(dataPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "load persisted dataset")
	}

	stats, err := r.analyzeWindow(ctx, window, m, direction)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxMonth, window.Name)
	}

	merged := dataset.Merge(existing, window.Key, stats)
	if err := dataset.Save(dataPath, merged); err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "save merged dataset")
	}

	slog.Info("current month updated",
		"mode", m.ID, "month", window.Name,
		"issues", stats.TotalIssues, "changes", stats.TotalChanges)
	return merged, nil
}

// CurrentMonthFresh reports whether the dataset at dataPath was already
// written today. Callers may skip the incremental update on a fresh dataset.
func (r *Runner) CurrentMonthFresh(dataPath string, now time.Time) bool {
	return dataset.FreshToday(dataPath, now)
}

func (r *Runner) analyzeWindow(ctx context.Context, window timeframe.Window, m mode.TrackingMode, direction analysis.Direction) (dataset.MonthStatistics, error) {
	ctx, span := observability.Tracer.Start(ctx, "runner.analyzeWindow", trace.WithAttributes(
		attribute.String("month", window.Name),
	))
	defer span.End()

	issues, err := r.source.FetchIssues(ctx, window.StartDate(), window.EndDate(), m)
	if err != nil {
		return dataset.MonthStatistics{}, err
	}

	started := time.Now()
	transitions := analysis.DetectTransitions(issues, m.BasePoints, direction, m.FieldID, m.FieldName, r.projectKey)
	distribution := analysis.TabulateDistribution(issues, m.FieldID)
	grouped := analysis.GroupByBaseAndTarget(transitions, m.BasePoints)
	observability.AnalysisDuration.WithLabelValues(m.ID).Observe(time.Since(started).Seconds())
	observability.TransitionsDetectedTotal.WithLabelValues(m.ID, string(direction)).Add(float64(len(transitions)))

	keys := make([]analysis.Transition, len(transitions))
	copy(keys, transitions)

	return dataset.MonthStatistics{
		Name:            window.Name,
		TotalIssues:     len(issues),
		TotalChanges:    len(transitions),
		ByBaseAndTarget: grouped,
		Distribution:    distribution,
		Keys:            keys,
	}, nil
}
