package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kural1554/Finance/internal/domain/schedule"
)

const scheduleColumns = `id, month, emi_start_date, emi_total_month, interest, principal_paid,
       remaining_balance, payment_amount, pending_amount, payment_processed_by, payment_processed_at`

type ScheduleRepository struct {
	db DBTX
}

func NewScheduleRepository(db DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func scanEntry(row rowScanner) (*schedule.Entry, error) {
	out := &schedule.Entry{}
	err := row.Scan(
		&out.ID, &out.Month, &out.EMIStartDate, &out.EMITotalMonth, &out.Interest, &out.PrincipalPaid,
		&out.RemainingBalance, &out.PaymentAmount, &out.PendingAmount, &out.PaymentProcessedBy, &out.PaymentProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Replace must run inside the transaction that locked the loan.
func (r *ScheduleRepository) Replace(ctx context.Context, loanID string, entries []schedule.Entry) ([]schedule.Entry, error) {
	if _, err := r.db.Exec(ctx, `DELETE FROM emi_entries WHERE loan_application_id = $1`, loanID); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []schedule.Entry{}, nil
	}

	q := `
INSERT INTO emi_entries (
  loan_application_id, position, month, emi_start_date, emi_total_month, interest, principal_paid,
  remaining_balance, payment_amount, pending_amount, payment_processed_by, payment_processed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING ` + scheduleColumns
	batch := &pgx.Batch{}
	for i, e := range entries {
		batch.Queue(q, loanID, i, e.Month, e.EMIStartDate, e.EMITotalMonth, e.Interest, e.PrincipalPaid,
			e.RemainingBalance, e.PaymentAmount, e.PendingAmount, e.PaymentProcessedBy, e.PaymentProcessedAt)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	out := make([]schedule.Entry, 0, len(entries))
	for i := range entries {
		item, err := scanEntry(results.QueryRow())
		if hasCode(err, numericOutOfRange) {
			return nil, &schedule.ValidationError{Index: i, Field: "amount", Message: "out of range"}
		}
		if err != nil {
			return nil, fmt.Errorf("insert entry %d: %w", i, err)
		}
		out = append(out, *item)
	}
	return out, nil
}

func (r *ScheduleRepository) ListByLoan(ctx context.Context, loanID string) ([]schedule.Entry, error) {
	q := `SELECT ` + scheduleColumns + ` FROM emi_entries WHERE loan_application_id = $1 ORDER BY position ASC`
	rows, err := r.db.Query(ctx, q, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]schedule.Entry, 0)
	for rows.Next() {
		item, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
