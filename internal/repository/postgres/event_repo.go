package postgres

import (
	"context"

	"github.com/kural1554/Finance/internal/domain/loan"
)

const eventColumns = `id, loan_application_id, loan_id, from_status, to_status, actor_id, actor_username, actor_role, created_at`

type EventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row rowScanner) (*loan.Event, error) {
	out := &loan.Event{}
	err := row.Scan(
		&out.ID, &out.LoanRecordID, &out.LoanID, &out.FromStatus, &out.ToStatus,
		&out.ActorID, &out.ActorUsername, &out.ActorRole, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EventRepository) Append(ctx context.Context, ev loan.Event) (*loan.Event, error) {
	q := `
INSERT INTO loan_events (loan_application_id, loan_id, from_status, to_status, actor_id, actor_username, actor_role)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING ` + eventColumns
	return scanEvent(r.db.QueryRow(ctx, q,
		ev.LoanRecordID, ev.LoanID, string(ev.FromStatus), string(ev.ToStatus),
		ev.ActorID, ev.ActorUsername, ev.ActorRole,
	))
}

func (r *EventRepository) ListByLoan(ctx context.Context, loanID string) ([]loan.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM loan_events WHERE loan_application_id = $1 ORDER BY id ASC`
	return r.list(ctx, q, loanID)
}

// ListSince feeds the realtime notifier.
func (r *EventRepository) ListSince(ctx context.Context, lastID int64, limit int32) ([]loan.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + eventColumns + ` FROM loan_events WHERE id > $1 ORDER BY id ASC LIMIT $2`
	return r.list(ctx, q, lastID, limit)
}

func (r *EventRepository) LatestID(ctx context.Context) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM loan_events`).Scan(&id)
	return id, err
}

func (r *EventRepository) list(ctx context.Context, q string, args ...any) ([]loan.Event, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
