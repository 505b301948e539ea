package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// SequenceRepository keeps one counter row per loan identifier prefix.
type SequenceRepository struct {
	db DBTX
}

func NewSequenceRepository(db DBTX) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) LockCounter(ctx context.Context, prefix string) (int64, bool, error) {
	var last int64
	err := r.db.QueryRow(ctx, `SELECT last_value FROM loan_id_sequences WHERE prefix = $1 FOR UPDATE`, prefix).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return last, true, nil
}

// SeedCounter is a no-op when another transaction seeded the prefix first.
func (r *SequenceRepository) SeedCounter(ctx context.Context, prefix string, value int64) error {
	q := `
INSERT INTO loan_id_sequences (prefix, last_value)
VALUES ($1, $2)
ON CONFLICT (prefix) DO NOTHING
`
	_, err := r.db.Exec(ctx, q, prefix, value)
	return err
}

func (r *SequenceRepository) AdvanceCounter(ctx context.Context, prefix string, value int64) error {
	q := `UPDATE loan_id_sequences SET last_value = $2, updated_at = NOW() WHERE prefix = $1`
	_, err := r.db.Exec(ctx, q, prefix, value)
	return err
}

// GreatestAssigned orders by length first so SPK1000 sorts after SPK999.
func (r *SequenceRepository) GreatestAssigned(ctx context.Context, prefix string) (string, bool, error) {
	q := `
SELECT loan_id FROM loan_applications
WHERE loan_id LIKE $1 || '%'
ORDER BY length(loan_id) DESC, loan_id DESC
LIMIT 1
`
	var id string
	err := r.db.QueryRow(ctx, q, prefix).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (r *SequenceRepository) IdentifierExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loan_applications WHERE loan_id = $1)`, id).Scan(&exists)
	return exists, err
}
