package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kural1554/Finance/internal/domain/loan"
)

const nomineeColumns = `id, name, phone, email, relationship, address, id_proof_type, id_proof_number,
       profile_photo_ref, id_proof_file_ref`

type NomineeRepository struct {
	db DBTX
}

func NewNomineeRepository(db DBTX) *NomineeRepository {
	return &NomineeRepository{db: db}
}

func scanNominee(row rowScanner) (*loan.Nominee, error) {
	out := &loan.Nominee{}
	err := row.Scan(
		&out.ID, &out.Name, &out.Phone, &out.Email, &out.Relationship, &out.Address,
		&out.IDProofType, &out.IDProofNumber, &out.ProfilePhoto, &out.IDProofFile,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NomineeRepository) Replace(ctx context.Context, loanID string, nominees []loan.Nominee) ([]loan.Nominee, error) {
	if _, err := r.db.Exec(ctx, `DELETE FROM nominees WHERE loan_application_id = $1`, loanID); err != nil {
		return nil, err
	}
	if len(nominees) == 0 {
		return []loan.Nominee{}, nil
	}

	q := `
INSERT INTO nominees (
  loan_application_id, position, name, phone, email, relationship, address,
  id_proof_type, id_proof_number, profile_photo_ref, id_proof_file_ref
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING ` + nomineeColumns
	batch := &pgx.Batch{}
	for i, n := range nominees {
		batch.Queue(q, loanID, i, n.Name, n.Phone, n.Email, n.Relationship, n.Address,
			n.IDProofType, n.IDProofNumber, n.ProfilePhoto, n.IDProofFile)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	out := make([]loan.Nominee, 0, len(nominees))
	for i := range nominees {
		item, err := scanNominee(results.QueryRow())
		if err != nil {
			return nil, fmt.Errorf("insert nominee %d: %w", i, err)
		}
		out = append(out, *item)
	}
	return out, nil
}

func (r *NomineeRepository) ListByLoan(ctx context.Context, loanID string) ([]loan.Nominee, error) {
	q := `SELECT ` + nomineeColumns + ` FROM nominees WHERE loan_application_id = $1 ORDER BY position ASC`
	rows, err := r.db.Query(ctx, q, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Nominee, 0)
	for rows.Next() {
		item, err := scanNominee(rows)
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
