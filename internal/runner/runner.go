// Package runner executes jobs one at a time per job name and records the
// outcome of every run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"timeledger/internal/core"
	"timeledger/internal/log"
)

const (
	DefaultTimeout = 5 * time.Minute
	sideEffectWait = 10 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("job already running")
	ErrUnknownJob     = errors.New("unknown job")
)

// Job is one batch pass.
type Job interface {
	Name() string
	Run(ctx context.Context) (core.RunStats, error)
}

// Journal stores finished runs.
type Journal interface {
	RecordRun(ctx context.Context, run core.JobRun) error
}

// Notifier announces finished runs.
type Notifier interface {
	PublishJobCompleted(ctx context.Context, run core.JobRun) error
}

type Runner struct {
	jobs     map[string]Job
	timeout  time.Duration
	journal  Journal
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	running map[string]bool
}

type Option func(*Runner)

func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithJournal(j Journal) Option {
	return func(r *Runner) { r.journal = j }
}

func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

func New(logger *log.Logger, jobs []Job, opts ...Option) *Runner {
	r := &Runner{
		jobs:    make(map[string]Job, len(jobs)),
		timeout: DefaultTimeout,
		logger:  logger.WithComponent(log.ComponentRunner),
		now:     time.Now,
		newID:   uuid.NewString,
		running: make(map[string]bool),
	}
	for _, j := range jobs {
		r.jobs[j.Name()] = j
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Jobs lists the registered job names, sorted.
func (r *Runner) Jobs() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a job is registered under name.
func (r *Runner) Has(name string) bool {
	_, ok := r.jobs[name]
	return ok
}

// Running reports whether name is executing right now.
func (r *Runner) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[name]
}

func (r *Runner) acquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[name] {
		return false
	}
	r.running[name] = true
	return true
}

func (r *Runner) release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, name)
}

// Run executes the named job under the run timeout. A second call for a job
// that is still running returns ErrAlreadyRunning without starting it.
// Journal and notification failures are logged only.
func (r *Runner) Run(ctx context.Context, name string) (core.JobRun, error) {
	job, err := r.claim(name)
	if err != nil {
		return core.JobRun{}, err
	}
	return r.execute(ctx, name, job)
}

// Start claims the job like Run but executes it in the background. The
// channel receives the finished run once.
func (r *Runner) Start(ctx context.Context, name string) (<-chan core.JobRun, error) {
	job, err := r.claim(name)
	if err != nil {
		return nil, err
	}
	done := make(chan core.JobRun, 1)
	go func() {
		run, _ := r.execute(ctx, name, job)
		done <- run
	}()
	return done, nil
}

func (r *Runner) claim(name string) (Job, error) {
	job, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if !r.acquire(name) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	return job, nil
}

func (r *Runner) execute(ctx context.Context, name string, job Job) (core.JobRun, error) {
	defer r.release(name)

	run := core.JobRun{ID: r.newID(), Job: name, StartedAt: r.now()}
	logger := r.logger.WithJob(name, run.ID)
	logger.Info("run started")

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	stats, err := safeRun(runCtx, job)
	cancel()

	run.FinishedAt = r.now()
	run.Stats = stats
	run.Status = core.RunSucceeded
	if err != nil {
		run.Status = core.RunFailed
		run.Error = err.Error()
		logger.Error("run failed",
			log.FieldDuration, run.Duration().Milliseconds(),
			log.FieldError, run.Error)
	} else {
		logger.Info("run finished",
			log.FieldDuration, run.Duration().Milliseconds(),
			log.FieldWritten, stats.Written,
			log.FieldSkipped, stats.Skipped)
	}

	r.record(ctx, logger, run)
	return run, err
}

func safeRun(ctx context.Context, job Job) (stats core.RunStats, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return job.Run(ctx)
}

// record runs after the job's own deadline, so it gets a fresh one.
func (r *Runner) record(ctx context.Context, logger *log.Logger, run core.JobRun) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectWait)
	defer cancel()
	if r.journal != nil {
		if err := r.journal.RecordRun(ctx, run); err != nil {
			logger.Warn("journal write failed", log.FieldError, err.Error())
		}
	}
	if r.notifier != nil {
		if err := r.notifier.PublishJobCompleted(ctx, run); err != nil {
			logger.Warn("completion notification failed", log.FieldError, err.Error())
		}
	}
}
