package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kural1554/Finance/internal/domain/applicant"
	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/notify"
)

type OutboxJob struct {
	ID          int64
	Topic       string
	Payload     []byte
	Status      string
	Attempts    int32
	LastError   string
	AvailableAt time.Time
}

type OutboxRepository interface {
	ClaimPending(ctx context.Context, limit int32) ([]OutboxJob, error)
	MarkDone(ctx context.Context, jobID int64) error
	MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, jobID int64, lastError string) error
}

type ApplicantReader interface {
	GetByID(ctx context.Context, id string) (*applicant.Entity, error)
}

type Worker struct {
	outboxRepo    OutboxRepository
	applicantRepo ApplicantReader
	sender        notify.Sender
	logger        *slog.Logger
	maxAttempts   int32
	now           func() time.Time
	retryBackoff  func(attempt int32) time.Duration
}

func NewWorker(outboxRepo OutboxRepository, applicantRepo ApplicantReader, sender notify.Sender, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		outboxRepo:    outboxRepo,
		applicantRepo: applicantRepo,
		sender:        sender,
		logger:        logger,
		maxAttempts:   5,
		now:           func() time.Time { return time.Now().UTC() },
		retryBackoff: func(attempt int32) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return time.Duration(attempt*15) * time.Second
		},
	}
}

func (w *Worker) RunOnce(ctx context.Context, batchSize int32) error {
	jobs, err := w.outboxRepo.ClaimPending(ctx, batchSize)
	if err != nil {
		return err
	}

	// One job failing to record its outcome must not strand the rest of the
	// batch; the stranded job is reclaimed once its lease expires.
	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("outbox job not recorded", "job", job.ID, "topic", job.Topic, "err", err)
			errs = append(errs, fmt.Errorf("job %d: %w", job.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (w *Worker) processJob(ctx context.Context, job OutboxJob) error {
	switch job.Topic {
	case loan.TopicApplicantNotification:
		return w.processApplicantNotification(ctx, job)
	default:
		return w.handleJobError(ctx, job, errors.New("unsupported_topic"))
	}
}

func (w *Worker) processApplicantNotification(ctx context.Context, job OutboxJob) error {
	var payload loan.Notification
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return w.outboxRepo.MarkFailed(ctx, job.ID, "invalid_payload")
	}
	if payload.ApplicantID == "" {
		return w.outboxRepo.MarkFailed(ctx, job.ID, "missing_applicant_id")
	}

	a, err := w.applicantRepo.GetByID(ctx, payload.ApplicantID)
	if errors.Is(err, applicant.ErrNotFound) {
		return w.outboxRepo.MarkFailed(ctx, job.ID, "applicant_not_found")
	}
	if err != nil {
		return w.handleJobError(ctx, job, err)
	}

	change := notify.StatusChange{
		ApplicantName: a.FirstName + " " + a.LastName,
		Email:         a.Email,
		FromStatus:    string(payload.FromStatus),
		ToStatus:      string(payload.ToStatus),
	}
	if payload.LoanID != nil {
		change.LoanID = *payload.LoanID
	}
	if err := w.sender.Send(ctx, notify.StatusChangeMessage(change)); err != nil {
		return w.handleJobError(ctx, job, fmt.Errorf("send: %w", err))
	}

	w.logger.Debug("applicant notified", "job", job.ID, "loan", payload.LoanRecordID, "status", payload.ToStatus)
	return w.outboxRepo.MarkDone(ctx, job.ID)
}

func (w *Worker) handleJobError(ctx context.Context, job OutboxJob, err error) error {
	msg := err.Error()
	if job.Attempts >= w.maxAttempts {
		w.logger.Warn("outbox job failed permanently", "job", job.ID, "topic", job.Topic, "attempts", job.Attempts, "err", msg)
		return w.outboxRepo.MarkFailed(ctx, job.ID, msg)
	}
	next := w.now().Add(w.retryBackoff(job.Attempts))
	return w.outboxRepo.MarkRetry(ctx, job.ID, next, msg)
}
