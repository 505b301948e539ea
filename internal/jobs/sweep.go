package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/robfig/cron/v3"
)

type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, asOf time.Time) (*loan.SweepResult, error)
}

// SweepJob runs the overdue sweep on a cron schedule. Runs never overlap.
type SweepJob struct {
	sweeper OverdueSweeper
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewSweepJob(sweeper OverdueSweeper, logger *slog.Logger) *SweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepJob{
		sweeper: sweeper,
		logger:  logger,
		timeout: 10 * time.Minute,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (j *SweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.sweeper.SweepOverdue(ctx, j.now()); err != nil {
		j.logger.Error("overdue sweep aborted", "err", err)
	}
}

// Schedule registers the job on a new cron scheduler. The caller starts and
// stops the returned scheduler.
func (j *SweepJob) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddJob(spec, j); err != nil {
		return nil, err
	}
	return c, nil
}
