package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"timeledger/internal/core"
	"timeledger/internal/log"
	"timeledger/internal/runner"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type jobStatus struct {
	Name     string     `json:"name"`
	Running  bool       `json:"running"`
	Schedule string     `json:"schedule,omitempty"`
	Next     *time.Time `json:"next,omitempty"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	planned := make(map[string]jobStatus)
	if s.schedule != nil {
		for _, p := range s.schedule.Planned() {
			next := p.Next
			planned[p.Job] = jobStatus{Schedule: p.Spec, Next: &next}
		}
	}

	names := s.jobs.Jobs()
	out := make([]jobStatus, 0, len(names))
	for _, name := range names {
		st := planned[name]
		st.Name = name
		st.Running = s.jobs.Running(name)
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}

type runView struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Status     string    `json:"status"`
	Written    int       `json:"written"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

func newRunView(run core.JobRun) runView {
	return runView{
		ID:         run.ID,
		Job:        run.Job,
		Status:     string(run.Status),
		Written:    run.Stats.Written,
		Skipped:    run.Stats.Skipped,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMS: run.Duration().Milliseconds(),
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run journal disabled")
		return
	}

	q := r.URL.Query()
	job := strings.TrimSpace(q.Get("job"))
	limit := defaultRunLimit
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRunLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxRunLimit))
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), job, limit)
	if err != nil {
		log.FromContext(r.Context()).Error("list runs failed", log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "could not read run journal")
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRunView(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("job")
	logger := log.FromContext(r.Context()).With(log.FieldJob, name)

	done, err := s.jobs.Start(s.baseCtx, name)
	switch {
	case errors.Is(err, runner.ErrUnknownJob):
		writeError(w, http.StatusNotFound, "unknown job "+strconv.Quote(name))
		return
	case errors.Is(err, runner.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "job already running")
		return
	case err != nil:
		logger.Error("trigger failed", log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "could not start job")
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		run := <-done
		logger.Info("triggered run finished", log.FieldRunID, run.ID, "status", string(run.Status))
	}()

	logger.Info("run triggered")
	writeJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": "accepted"})
}
