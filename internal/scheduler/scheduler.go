// Package scheduler fires jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"timeledger/internal/core"
	"timeledger/internal/log"
	"timeledger/internal/runner"
)

// Trigger runs a job by name.
type Trigger interface {
	Run(ctx context.Context, name string) (core.JobRun, error)
}

// Planned is a scheduled job and its next fire time.
type Planned struct {
	Job  string    `json:"job"`
	Spec string    `json:"schedule"`
	Next time.Time `json:"next"`
}

type Scheduler struct {
	cron    *cron.Cron
	trigger Trigger
	logger  *log.Logger

	mu      sync.Mutex
	ctx     context.Context
	entries map[cron.EntryID]Planned
}

func New(loc *time.Location, trigger Trigger, logger *log.Logger) *Scheduler {
	logger = logger.WithComponent(log.ComponentScheduler)
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		trigger: trigger,
		logger:  logger,
		ctx:     context.Background(),
		entries: make(map[cron.EntryID]Planned),
	}
}

// Disabled reports whether a schedule string turns a job off.
func Disabled(spec string) bool {
	s := strings.ToLower(strings.TrimSpace(spec))
	return s == "" || s == "off" || s == "-"
}

// Validate checks a standard five-field spec or descriptor such as @daily.
func Validate(spec string) error {
	if Disabled(spec) {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Add schedules job. A disabled spec is accepted and ignored.
func (s *Scheduler) Add(job, spec string) error {
	if Disabled(spec) {
		s.logger.Info("job not scheduled", log.FieldJob, job)
		return nil
	}
	id, err := s.cron.AddFunc(spec, func() { s.fire(job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job, err)
	}
	s.mu.Lock()
	s.entries[id] = Planned{Job: job, Spec: spec}
	s.mu.Unlock()
	s.logger.Info("job scheduled", log.FieldJob, job, log.FieldSchedule, spec)
	return nil
}

func (s *Scheduler) fire(job string) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if _, err := s.trigger.Run(ctx, job); err != nil {
		if errors.Is(err, runner.ErrAlreadyRunning) {
			s.logger.Info("tick skipped, job still running", log.FieldJob, job)
			return
		}
		s.logger.Debug("scheduled run failed", log.FieldJob, job, log.FieldError, err.Error())
	}
}

// Planned lists scheduled jobs with their next fire time, soonest first.
func (s *Scheduler) Planned() []Planned {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Planned
	for _, e := range s.cron.Entries() {
		p, ok := s.entries[e.ID]
		if !ok {
			continue
		}
		p.Next = e.Next
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// in-flight jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// cronLogger adapts log.Logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, log.FieldError, err.Error())...)
}
