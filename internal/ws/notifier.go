package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kural1554/Finance/internal/domain/loan"
)

// EventSource is the read side of the loan event log.
type EventSource interface {
	ListSince(ctx context.Context, lastID int64, limit int32) ([]loan.Event, error)
	LatestID(ctx context.Context) (int64, error)
}

// Event ids are allocated before commit, so a transaction holding a lower id
// can become visible after a higher one was published. Each poll re-reads
// this many ids below the cursor and skips the ones already sent.
const defaultReplayWindow = 64

const pollBatch = 100

// Notifier tails the loan event log and fans status changes out to
// websocket subscribers.
type Notifier struct {
	source       EventSource
	hub          *Hub
	pollInterval time.Duration
	logger       *slog.Logger
	window       int64
	startID      int64
	lastID       int64
	sent         map[int64]struct{}
}

func NewNotifier(source EventSource, hub *Hub, pollInterval time.Duration, logger *slog.Logger) *Notifier {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		source:       source,
		hub:          hub,
		pollInterval: pollInterval,
		logger:       logger,
		window:       defaultReplayWindow,
		sent:         map[int64]struct{}{},
	}
}

// Run publishes only events recorded after it starts.
func (n *Notifier) Run(ctx context.Context) error {
	latest, err := n.source.LatestID(ctx)
	if err != nil {
		return err
	}
	n.startID = latest
	n.lastID = latest

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.tick(ctx); err != nil {
				n.logger.Warn("realtime poll failed", "err", err)
			}
		}
	}
}

type statusChangedData struct {
	LoanRecordID  string      `json:"loanRecordId"`
	LoanID        *string     `json:"loanID"`
	FromStatus    loan.Status `json:"fromStatus"`
	ToStatus      loan.Status `json:"toStatus"`
	ActorUsername string      `json:"actorUsername"`
	ActorRole     string      `json:"actorRole"`
	OccurredAt    string      `json:"occurredAt"`
}

func (n *Notifier) tick(ctx context.Context) error {
	floor := max(n.lastID-n.window, n.startID)
	events, err := n.source.ListSince(ctx, floor, int32(n.window)+pollBatch)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if _, done := n.sent[ev.ID]; done {
			continue
		}
		payload, err := json.Marshal(map[string]any{
			"event": "loan_status_changed",
			"data": statusChangedData{
				LoanRecordID:  ev.LoanRecordID,
				LoanID:        ev.LoanID,
				FromStatus:    ev.FromStatus,
				ToStatus:      ev.ToStatus,
				ActorUsername: ev.ActorUsername,
				ActorRole:     ev.ActorRole,
				OccurredAt:    ev.CreatedAt.UTC().Format(time.RFC3339),
			},
		})
		if err != nil {
			return err
		}
		n.hub.Publish(LoanStatusChannel(ev.LoanRecordID), payload)
		n.hub.Publish(QueueChannel, payload)
		n.sent[ev.ID] = struct{}{}
		if ev.ID > n.lastID {
			n.lastID = ev.ID
		}
	}

	for id := range n.sent {
		if id <= n.lastID-n.window {
			delete(n.sent, id)
		}
	}
	return nil
}
