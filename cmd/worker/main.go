package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kural1554/Finance/internal/config"
	"github.com/kural1554/Finance/internal/db"
	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/domain/sequence"
	"github.com/kural1554/Finance/internal/jobs"
	"github.com/kural1554/Finance/internal/notify"
	"github.com/kural1554/Finance/internal/observability"
	postgresrepo "github.com/kural1554/Finance/internal/repository/postgres"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	sender, err := notify.NewSenderFromConfig(cfg, observability.Component(logger, "notify"))
	if err != nil {
		logger.Error("failed to configure notifier", "err", err)
		os.Exit(1)
	}

	worker := jobs.NewWorker(
		postgresrepo.NewOutboxRepository(pool).WithLease(cfg.WorkerClaimLease),
		postgresrepo.NewApplicantRepository(pool),
		sender,
		observability.Component(logger, "outbox"),
	)

	allocator := sequence.NewAllocator(sequence.Config{
		Prefix:      cfg.LoanIDPrefix,
		MinWidth:    int(cfg.LoanIDMinWidth),
		MaxAttempts: int(cfg.LoanIDMaxAttempts),
	}, observability.Component(logger, "sequence"))
	loanService := loan.NewService(postgresrepo.NewStore(pool), allocator, cfg.LoanPaidEpsilon, observability.Component(logger, "loan"))

	sweeper, err := jobs.NewSweepJob(loanService, observability.Component(logger, "sweep")).Schedule(cfg.OverdueSweepSchedule)
	if err != nil {
		logger.Error("invalid overdue sweep schedule", "schedule", cfg.OverdueSweepSchedule, "err", err)
		os.Exit(1)
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	interval := cfg.WorkerPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started",
		"interval", interval.String(),
		"batch_size", cfg.WorkerBatchSize,
		"sweep_schedule", cfg.OverdueSweepSchedule,
	)
	for {
		select {
		case <-sigCtx.Done():
			logger.Info("worker stopped")
			return
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := worker.RunOnce(runCtx, cfg.WorkerBatchSize)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker run failed", "err", err)
			}
		}
	}
}
