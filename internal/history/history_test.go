package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStore_OpenInitializesSchemaAndSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first := RunRecord{
		RunID:          "run-1",
		Mode:           "dev",
		Direction:      "up",
		StartedAt:      base,
		FinishedAt:     base.Add(2 * time.Minute),
		MonthsAnalyzed: 5,
		MonthsFailed:   1,
		TotalIssues:    420,
		TotalChanges:   17,
	}
	second := RunRecord{
		RunID:          "run-2",
		Mode:           "dev",
		Direction:      "down",
		StartedAt:      base.Add(2 * time.Hour),
		FinishedAt:     base.Add(2*time.Hour + time.Minute),
		MonthsAnalyzed: 5,
		TotalIssues:    420,
		TotalChanges:   3,
	}
	qa := RunRecord{
		RunID:     "run-3",
		Mode:      "qa",
		Direction: "up",
		StartedAt: base.Add(3 * time.Hour),
	}

	for _, record := range []RunRecord{first, second, qa} {
		if err := store.SaveRun(record); err != nil {
			t.Fatalf("save run %s: %v", record.RunID, err)
		}
	}

	devRuns, err := store.LoadRuns("dev", time.Time{})
	if err != nil {
		t.Fatalf("load dev runs: %v", err)
	}
	if len(devRuns) != 2 {
		t.Fatalf("expected 2 dev runs, got %d", len(devRuns))
	}
	if devRuns[0].RunID != "run-1" || devRuns[1].RunID != "run-2" {
		t.Fatalf("expected chronological order, got %s then %s", devRuns[0].RunID, devRuns[1].RunID)
	}
	if devRuns[0].MonthsFailed != 1 || devRuns[0].TotalChanges != 17 {
		t.Fatalf("run fields lost: %+v", devRuns[0])
	}
	if !devRuns[0].StartedAt.Equal(base) {
		t.Fatalf("expected started timestamp to roundtrip, got %v", devRuns[0].StartedAt)
	}

	recent, err := store.LoadRuns("dev", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("load recent runs: %v", err)
	}
	if len(recent) != 1 || recent[0].RunID != "run-2" {
		t.Fatalf("since filter failed: %+v", recent)
	}
}

func TestStore_SaveRunUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	record := RunRecord{RunID: "run-1", Mode: "dev", Direction: "up", StartedAt: time.Now().UTC(), TotalChanges: 2}
	if err := store.SaveRun(record); err != nil {
		t.Fatalf("save: %v", err)
	}
	record.TotalChanges = 7
	if err := store.SaveRun(record); err != nil {
		t.Fatalf("resave: %v", err)
	}

	runs, err := store.LoadRuns("dev", time.Time{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected upsert to keep 1 row, got %d", len(runs))
	}
	if runs[0].TotalChanges != 7 {
		t.Fatalf("expected updated row, got %+v", runs[0])
	}
}

func TestStore_LastRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if _, found, err := store.LastRun("dev", "up"); err != nil || found {
		t.Fatalf("expected no run yet, found=%v err=%v", found, err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, dir := range []string{"up", "down", "up"} {
		record := RunRecord{
			RunID:     "run-" + dir + string(rune('0'+i)),
			Mode:      "dev",
			Direction: dir,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.SaveRun(record); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	last, found, err := store.LastRun("dev", "up")
	if err != nil || !found {
		t.Fatalf("expected last up run, found=%v err=%v", found, err)
	}
	if !last.StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("expected most recent up run, got %+v", last)
	}
}

func TestStore_RejectsEmptyRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if err := store.SaveRun(RunRecord{Mode: "dev"}); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

func TestStore_OpenRejectsDirectory(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path")
	}
}
