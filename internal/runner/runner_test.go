package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"timeledger/internal/core"
	"timeledger/internal/log"
)

type fakeJob struct {
	name  string
	stats core.RunStats
	err   error
	block chan struct{}
	fn    func(ctx context.Context) error
}

func (f *fakeJob) Name() string { return f.name }

func (f *fakeJob) Run(ctx context.Context) (core.RunStats, error) {
	if f.block != nil {
		<-f.block
	}
	if f.fn != nil {
		return f.stats, f.fn(ctx)
	}
	return f.stats, f.err
}

type recorder struct {
	mu       sync.Mutex
	runs     []core.JobRun
	notified []core.JobRun
	err      error
}

func (r *recorder) RecordRun(_ context.Context, run core.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return r.err
}

func (r *recorder) PublishJobCompleted(_ context.Context, run core.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, run)
	return r.err
}

func newTestRunner(jobs []Job, opts ...Option) *Runner {
	r := New(log.Discard(), jobs, opts...)
	tick := time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	r.newID = func() string { return "run-1" }
	return r
}

func TestRunSuccessRecordsAndNotifies(t *testing.T) {
	rec := &recorder{}
	job := &fakeJob{name: "collect", stats: core.RunStats{Written: 4, Skipped: 1}}
	r := newTestRunner([]Job{job}, WithJournal(rec), WithNotifier(rec))

	run, err := r.Run(context.Background(), "collect")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.ID != "run-1" || run.Status != core.RunSucceeded || run.Stats.Written != 4 || run.Duration() != time.Second {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(rec.runs) != 1 || len(rec.notified) != 1 || rec.runs[0].Job != "collect" {
		t.Fatalf("journal=%v notified=%v", rec.runs, rec.notified)
	}
}

func TestRunFailure(t *testing.T) {
	rec := &recorder{err: errors.New("journal down")}
	boom := errors.New("boom")
	r := newTestRunner([]Job{&fakeJob{name: "reconcile", err: boom}}, WithJournal(rec))

	run, err := r.Run(context.Background(), "reconcile")
	if !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
	if run.Status != core.RunFailed || run.Error != "boom" {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(rec.runs) != 1 || rec.runs[0].Status != core.RunFailed {
		t.Fatalf("failed run should still be journaled: %v", rec.runs)
	}
}

func TestRunPanicBecomesFailure(t *testing.T) {
	job := &fakeJob{name: "report", fn: func(context.Context) error { panic("nil map") }}
	r := newTestRunner([]Job{job})
	run, err := r.Run(context.Background(), "report")
	if err == nil || run.Status != core.RunFailed {
		t.Fatalf("expected failure, got %+v, %v", run, err)
	}
	if r.Running("report") {
		t.Fatal("guard must be released after a panic")
	}
}

func TestRunUnknownJob(t *testing.T) {
	r := newTestRunner(nil)
	if _, err := r.Run(context.Background(), "nope"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestRunRejectsOverlap(t *testing.T) {
	job := &fakeJob{name: "collect", block: make(chan struct{})}
	r := newTestRunner([]Job{job})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "collect")
		done <- err
	}()
	deadline := time.Now().Add(time.Second)
	for !r.Running("collect") {
		if time.Now().After(deadline) {
			t.Fatal("job never started")
		}
		time.Sleep(time.Millisecond)
	}
	if _, err := r.Run(context.Background(), "collect"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	close(job.block)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if r.Running("collect") {
		t.Fatal("guard should be released")
	}
}

func TestRunTimeout(t *testing.T) {
	job := &fakeJob{name: "collect", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	r := newTestRunner([]Job{job}, WithTimeout(10*time.Millisecond))
	if _, err := r.Run(context.Background(), "collect"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestJobs(t *testing.T) {
	r := newTestRunner([]Job{&fakeJob{name: "report"}, &fakeJob{name: "collect"}})
	names := r.Jobs()
	if len(names) != 2 || names[0] != "collect" || names[1] != "report" {
		t.Fatalf("Jobs = %v", names)
	}
	if !r.Has("report") || r.Has("nope") {
		t.Fatal("Has mismatch")
	}
}

func TestStart(t *testing.T) {
	job := &fakeJob{name: "report", block: make(chan struct{}), stats: core.RunStats{Written: 2}}
	r := newTestRunner([]Job{job})

	done, err := r.Start(context.Background(), "report")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.Running("report") {
		t.Fatal("Start must claim the job before returning")
	}
	if _, err := r.Start(context.Background(), "report"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	close(job.block)
	run := <-done
	if run.Status != core.RunSucceeded || run.Stats.Written != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	if _, err := r.Start(context.Background(), "missing"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}
