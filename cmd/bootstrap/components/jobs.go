package components

import (
	"context"
	"log/slog"

	"boxoffice/internal/jobs"
	"boxoffice/internal/pkg/config"
	"boxoffice/internal/usecase/commands"

	"go.uber.org/fx"
)

var JobsModule = fx.Module("jobs",
	fx.Provide(
		NewExpirySweepJob,
	),
	fx.Invoke(registerExpirySweep),
)

func NewExpirySweepJob(transitions *commands.OrderTransitions, cfg config.Config, logger *slog.Logger) *jobs.ExpirySweepJob {
	return jobs.NewExpirySweepJob(transitions, cfg.Sweep, logger)
}

func registerExpirySweep(lc fx.Lifecycle, job *jobs.ExpirySweepJob) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return job.Start()
		},
		OnStop: func(_ context.Context) error {
			job.Stop()
			return nil
		},
	})
}
