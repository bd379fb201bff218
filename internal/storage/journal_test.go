package storage

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"timeledger/internal/core"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func run(id, job string, start time.Time, status core.RunStatus) core.JobRun {
	return core.JobRun{
		ID: id, Job: job, StartedAt: start, FinishedAt: start.Add(time.Second),
		Status: status, Stats: core.RunStats{Written: 3, Skipped: 1},
	}
}

func TestRecordAndListRuns(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	base := time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)

	for i, r := range []core.JobRun{
		run("a", "collect", base, core.RunSucceeded),
		run("b", "reconcile", base.Add(time.Minute), core.RunSucceeded),
		run("c", "collect", base.Add(2*time.Minute), core.RunFailed),
	} {
		if i == 2 {
			r.Error = "read registry: boom"
		}
		if err := j.RecordRun(ctx, r); err != nil {
			t.Fatalf("record %s: %v", r.ID, err)
		}
	}

	all, err := j.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order %+v", all)
	}
	if all[0].Status != core.RunFailed || all[0].Error != "read registry: boom" || all[0].Duration() != time.Second {
		t.Fatalf("unexpected run %+v", all[0])
	}
	if all[1].Stats.Written != 3 || all[1].Stats.Skipped != 1 {
		t.Fatalf("stats not stored: %+v", all[1].Stats)
	}

	collect, err := j.ListRuns(ctx, "collect", 1)
	if err != nil {
		t.Fatalf("list collect: %v", err)
	}
	if len(collect) != 1 || collect[0].ID != "c" {
		t.Fatalf("unexpected filter result %+v", collect)
	}
}

func TestRecordRunUpserts(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	r := run("a", "report", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), core.RunFailed)
	_ = j.RecordRun(ctx, r)
	r.Status = core.RunSucceeded
	if err := j.RecordRun(ctx, r); err != nil {
		t.Fatalf("record: %v", err)
	}
	runs, _ := j.ListRuns(ctx, "report", 0)
	if len(runs) != 1 || runs[0].Status != core.RunSucceeded {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestOpenTwiceKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = j.RecordRun(context.Background(), run("a", "collect", time.Now(), core.RunSucceeded))
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	runs, _ := j.ListRuns(context.Background(), "", 0)
	if len(runs) != 1 {
		t.Fatalf("runs after reopen = %d", len(runs))
	}
}

func TestOpenReportsSchemaVersion(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil || len(ups) == 0 {
		t.Fatalf("embedded migrations: %v, %v", ups, err)
	}
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := j.SchemaVersion(); got != uint(len(ups)) {
		t.Fatalf("SchemaVersion() = %d, want %d", got, len(ups))
	}
	j.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer db.Close()
	var version int
	if err := db.QueryRow("SELECT version FROM " + journalMigrationsTable).Scan(&version); err != nil {
		t.Fatalf("schema history: %v", err)
	}
	if version != len(ups) {
		t.Fatalf("recorded version = %d, want %d", version, len(ups))
	}
}
