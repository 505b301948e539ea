package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kural1554/Finance/internal/domain/applicant"
	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/jobs"
	"github.com/kural1554/Finance/internal/notify"
)

type fakeOutboxRepo struct {
	jobs      []jobs.OutboxJob
	doneIDs   []int64
	retryIDs  []int64
	failedIDs []int64
	lastError string
	retryErr  error
}

func (r *fakeOutboxRepo) ClaimPending(_ context.Context, _ int32) ([]jobs.OutboxJob, error) {
	return r.jobs, nil
}

func (r *fakeOutboxRepo) MarkDone(_ context.Context, jobID int64) error {
	r.doneIDs = append(r.doneIDs, jobID)
	return nil
}

func (r *fakeOutboxRepo) MarkRetry(_ context.Context, jobID int64, _ time.Time, lastError string) error {
	r.retryIDs = append(r.retryIDs, jobID)
	r.lastError = lastError
	return r.retryErr
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, jobID int64, lastError string) error {
	r.failedIDs = append(r.failedIDs, jobID)
	r.lastError = lastError
	return nil
}

type fakeApplicants struct{}

func (fakeApplicants) GetByID(_ context.Context, id string) (*applicant.Entity, error) {
	if id != "app-1" {
		return nil, applicant.ErrNotFound
	}
	return &applicant.Entity{ID: id, FirstName: "Asha", LastName: "Kumar", Email: "asha@example.com"}, nil
}

type fakeSender struct {
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const approvedPayload = `{"loan_record_id":"rec-1","loan_id":"SPK001","applicant_id":"app-1","from_status":"MANAGER_APPROVED","to_status":"APPROVED"}`

func TestWorkerSendsApplicantNotification(t *testing.T) {
	outbox := &fakeOutboxRepo{jobs: []jobs.OutboxJob{{ID: 1, Topic: loan.TopicApplicantNotification, Attempts: 1, Payload: []byte(approvedPayload)}}}
	sender := &fakeSender{}
	worker := jobs.NewWorker(outbox, fakeApplicants{}, sender, quietLogger())

	if err := worker.RunOnce(context.Background(), 10); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(outbox.doneIDs) != 1 || outbox.doneIDs[0] != 1 {
		t.Fatalf("expected job marked done, got %+v", outbox)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "asha@example.com" || sender.sent[0].Subject != "Loan SPK001 update" {
		t.Fatalf("unexpected messages: %+v", sender.sent)
	}
}

func TestWorkerRetriesOnSendError(t *testing.T) {
	outbox := &fakeOutboxRepo{jobs: []jobs.OutboxJob{{ID: 1, Topic: loan.TopicApplicantNotification, Attempts: 1, Payload: []byte(approvedPayload)}}}
	worker := jobs.NewWorker(outbox, fakeApplicants{}, &fakeSender{err: errors.New("smtp down")}, quietLogger())

	if err := worker.RunOnce(context.Background(), 10); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(outbox.retryIDs) != 1 || outbox.lastError != "send: smtp down" {
		t.Fatalf("expected retry, got %+v", outbox)
	}
}

func TestWorkerFailsAfterMaxAttempts(t *testing.T) {
	outbox := &fakeOutboxRepo{jobs: []jobs.OutboxJob{{ID: 1, Topic: loan.TopicApplicantNotification, Attempts: 5, Payload: []byte(approvedPayload)}}}
	worker := jobs.NewWorker(outbox, fakeApplicants{}, &fakeSender{err: errors.New("smtp down")}, quietLogger())

	if err := worker.RunOnce(context.Background(), 10); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(outbox.failedIDs) != 1 {
		t.Fatalf("expected job marked failed")
	}
}

func TestWorkerFailsUnrecoverablePayloads(t *testing.T) {
	outbox := &fakeOutboxRepo{jobs: []jobs.OutboxJob{
		{ID: 1, Topic: loan.TopicApplicantNotification, Attempts: 1, Payload: []byte(`not-json`)},
		{ID: 2, Topic: loan.TopicApplicantNotification, Attempts: 1, Payload: []byte(`{"applicant_id":"ghost","to_status":"PAID"}`)},
	}}
	worker := jobs.NewWorker(outbox, fakeApplicants{}, &fakeSender{}, quietLogger())

	if err := worker.RunOnce(context.Background(), 10); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(outbox.failedIDs) != 2 || outbox.lastError != "applicant_not_found" {
		t.Fatalf("expected both jobs failed, got %+v", outbox)
	}
}

func TestWorkerRetriesUnsupportedTopic(t *testing.T) {
	outbox := &fakeOutboxRepo{jobs: []jobs.OutboxJob{{ID: 3, Topic: "register_loan", Attempts: 1, Payload: []byte(`{}`)}}}
	worker := jobs.NewWorker(outbox, fakeApplicants{}, &fakeSender{}, quietLogger())

	if err := worker.RunOnce(context.Background(), 10); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(outbox.retryIDs) != 1 || outbox.lastError != "unsupported_topic" {
		t.Fatalf("expected retry for unsupported topic, got %+v", outbox)
	}
}

type countingSweeper struct {
	calls atomic.Int32
	asOf  time.Time
}

func (s *countingSweeper) SweepOverdue(_ context.Context, asOf time.Time) (*loan.SweepResult, error) {
	s.calls.Add(1)
	s.asOf = asOf
	return &loan.SweepResult{}, nil
}

func TestSweepJobRunsSweeper(t *testing.T) {
	sweeper := &countingSweeper{}
	job := jobs.NewSweepJob(sweeper, quietLogger())
	job.Run()
	if sweeper.calls.Load() != 1 || sweeper.asOf.IsZero() {
		t.Fatalf("expected one sweep with a timestamp")
	}

	if _, err := job.Schedule("@every 1h"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := job.Schedule("not a schedule"); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
}

func TestWorkerFinishesBatchWhenRecordingFails(t *testing.T) {
	outbox := &fakeOutboxRepo{
		jobs: []jobs.OutboxJob{
			{ID: 1, Topic: "unknown_topic", Attempts: 1, Payload: []byte(`{}`)},
			{ID: 2, Topic: loan.TopicApplicantNotification, Attempts: 1, Payload: []byte(approvedPayload)},
			{ID: 3, Topic: loan.TopicApplicantNotification, Attempts: 1, Payload: []byte(`not-json`)},
		},
		retryErr: errors.New("connection reset"),
	}
	sender := &fakeSender{}
	worker := jobs.NewWorker(outbox, fakeApplicants{}, sender, quietLogger())

	err := worker.RunOnce(context.Background(), 10)
	if err == nil || !errors.Is(err, outbox.retryErr) {
		t.Fatalf("expected the recording error to be reported, got %v", err)
	}
	if len(outbox.retryIDs) != 1 || outbox.retryIDs[0] != 1 {
		t.Fatalf("expected job 1 retried, got %v", outbox.retryIDs)
	}
	if len(outbox.doneIDs) != 1 || outbox.doneIDs[0] != 2 {
		t.Fatalf("expected job 2 to complete after job 1 failed, got %v", outbox.doneIDs)
	}
	if len(outbox.failedIDs) != 1 || outbox.failedIDs[0] != 3 {
		t.Fatalf("expected job 3 to be failed, got %v", outbox.failedIDs)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message sent, got %d", len(sender.sent))
	}
}
