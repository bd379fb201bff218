package cli

import (
	"context"
	"errors"

	"timeledger/internal/amqp"
	"timeledger/internal/core"
	"timeledger/internal/log"
	"timeledger/internal/runner"
)

// Starter launches a job without waiting for it.
type Starter interface {
	Start(ctx context.Context, name string) (<-chan core.JobRun, error)
}

// RunRequestHandler starts requested jobs in the background. A request for a
// job that is already running is acknowledged and dropped; unknown jobs are
// rejected.
func RunRequestHandler(jobs Starter, logger *log.Logger) func(context.Context, *amqp.RunRequestMessage) error {
	return func(ctx context.Context, msg *amqp.RunRequestMessage) error {
		_, err := jobs.Start(ctx, msg.Job)
		if errors.Is(err, runner.ErrAlreadyRunning) {
			logger.Info("run request ignored, job already running", log.FieldJob, msg.Job)
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("run requested", log.FieldJob, msg.Job, "requested_by", msg.RequestedBy)
		return nil
	}
}
