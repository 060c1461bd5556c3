package jobs

import (
	"context"
	"log/slog"

	"boxoffice/internal/pkg/config"
	"boxoffice/internal/usecase/commands"

	"github.com/robfig/cron/v3"
)

// ExpirySweepJob periodically expires pending orders whose payment deadline
// has lapsed, releasing their inventory back to the quotas.
type ExpirySweepJob struct {
	transitions *commands.OrderTransitions
	schedule    string
	cron        *cron.Cron
	logger      *slog.Logger
}

func NewExpirySweepJob(transitions *commands.OrderTransitions, cfg config.SweepConfig, logger *slog.Logger) *ExpirySweepJob {
	return &ExpirySweepJob{
		transitions: transitions,
		schedule:    cfg.ExpirySchedule,
		cron:        cron.New(cron.WithSeconds()),
		logger:      logger.With("component", "expiry_sweep_job"),
	}
}

func (j *ExpirySweepJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx := context.Background()

		expired, err := j.transitions.ExpireOverdue(ctx)
		if err != nil {
			j.logger.ErrorContext(ctx, "Expiry sweep failed", "error", err)
			return
		}
		if expired > 0 {
			j.logger.InfoContext(ctx, "Expiry sweep completed", "expired", expired)
		}
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Expiry sweep job started", "schedule", j.schedule)
	return nil
}

func (j *ExpirySweepJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Expiry sweep job stopped")
}
