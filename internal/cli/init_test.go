package cli

import (
	"context"
	"errors"
	"testing"

	"timeledger/internal/amqp"
	"timeledger/internal/config"
	"timeledger/internal/core"
	"timeledger/internal/log"
	"timeledger/internal/runner"
	"timeledger/internal/sheets"
	"timeledger/internal/sheets/memory"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.GoogleSpreadsheetID = "master"
	return cfg
}

func TestJobsEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := memory.New()
	store.Put(MasterTable(cfg, cfg.RegistrySheet), [][]any{
		{"Source Sheet Link", "Owner Name", "Hourly Cost", "Hide in Monthly Report"},
		{"ana", "Ana", 20.0, false},
	})
	store.Put(MasterTable(cfg, cfg.PaymentsSheet), [][]any{
		{"Employee Name", "Payment Month", "Payment Year", "Amount"},
		{"Ana", "March", 2024.0, 50.0},
	})
	store.Put(sheets.TableRef{SpreadsheetID: "ana", Sheet: cfg.SourceSheet}, [][]any{
		{"Event Type", "Date", "Start Time", "End Time", "Global Amount", "Notes", "Travel Cost"},
		{"Shift", "2024-03-05", "13:00:00", "16:00:00", "", "", ""},
	})

	r := runner.New(log.Discard(), Jobs(cfg, store, log.Discard()))
	if got := r.Jobs(); len(got) != 3 {
		t.Fatalf("jobs = %v", got)
	}
	for _, job := range []string{"collect", "reconcile", "report"} {
		run, err := r.Run(ctx, job)
		if err != nil {
			t.Fatalf("%s: %v", job, err)
		}
		if run.Status != core.RunSucceeded {
			t.Fatalf("%s: %+v", job, run)
		}
	}

	master, err := store.ReadTable(ctx, MasterTable(cfg, cfg.MasterReportSheet))
	if err != nil {
		t.Fatalf("read master report: %v", err)
	}
	if len(master) != 4 || master[0][2] != "3/2024" {
		t.Fatalf("master report = %v", master)
	}
	if master[1][2] != 60.0 || master[2][2] != 50.0 {
		t.Fatalf("deserves/got = %v / %v", master[1][2], master[2][2])
	}
	if bold := store.Bolded(MasterTable(cfg, cfg.MasterReportSheet)); len(bold) != 1 || bold[0] != 3 {
		t.Fatalf("bold rows = %v", bold)
	}

	summary, err := store.ReadTable(ctx, sheets.TableRef{SpreadsheetID: "ana", Sheet: cfg.WorkerReportSheet})
	if err != nil {
		t.Fatalf("read worker summary: %v", err)
	}
	if len(summary) != 2 || summary[1][0] != "3/2024" || summary[1][1] != 60.0 || summary[1][2] != 1 {
		t.Fatalf("worker summary = %v", summary)
	}
}

type fakeStarter struct {
	err     error
	started []string
}

func (f *fakeStarter) Start(_ context.Context, name string) (<-chan core.JobRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.started = append(f.started, name)
	return make(chan core.JobRun, 1), nil
}

func TestRunRequestHandler(t *testing.T) {
	ctx := context.Background()
	msg := &amqp.RunRequestMessage{Job: "collect", RequestedBy: "ops"}

	s := &fakeStarter{}
	if err := RunRequestHandler(s, log.Discard())(ctx, msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(s.started) != 1 || s.started[0] != "collect" {
		t.Fatalf("started = %v", s.started)
	}

	busy := &fakeStarter{err: runner.ErrAlreadyRunning}
	if err := RunRequestHandler(busy, log.Discard())(ctx, msg); err != nil {
		t.Fatalf("a busy job should be acked, got %v", err)
	}

	unknown := &fakeStarter{err: runner.ErrUnknownJob}
	if err := RunRequestHandler(unknown, log.Discard())(ctx, msg); !errors.Is(err, runner.ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug")
	if logger.Component() != log.ComponentApp {
		t.Fatalf("component = %q", logger.Component())
	}
}
