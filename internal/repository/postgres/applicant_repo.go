package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/kural1554/Finance/internal/domain/applicant"
)

const applicantColumns = `id, user_id, first_name, last_name, email, phone, address, city, state, postal_code,
       COALESCE(created_by::text, ''), created_at, updated_at`

type ApplicantRepository struct {
	db DBTX
}

func NewApplicantRepository(db DBTX) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

func scanApplicant(row rowScanner) (*applicant.Entity, error) {
	out := &applicant.Entity{}
	err := row.Scan(
		&out.ID, &out.UserID, &out.FirstName, &out.LastName, &out.Email, &out.Phone,
		&out.Address, &out.City, &out.State, &out.PostalCode, &out.CreatedBy, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ApplicantRepository) Create(ctx context.Context, in applicant.CreateInput) (*applicant.Entity, error) {
	q := `
INSERT INTO applicants (user_id, first_name, last_name, email, phone, address, city, state, postal_code, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10, '')::uuid)
RETURNING ` + applicantColumns
	out, err := scanApplicant(r.db.QueryRow(ctx, q,
		in.UserID, in.FirstName, in.LastName, in.Email, in.Phone,
		in.Address, in.City, in.State, in.PostalCode, in.CreatedBy,
	))
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, applicant.ErrDuplicate
		}
		return nil, err
	}
	return out, nil
}

func (r *ApplicantRepository) GetByID(ctx context.Context, id string) (*applicant.Entity, error) {
	q := `SELECT ` + applicantColumns + ` FROM applicants WHERE id = $1 AND NOT is_deleted`
	out, err := scanApplicant(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err, applicant.ErrNotFound)
	}
	return out, nil
}

// LockByID serializes loan creation per applicant.
func (r *ApplicantRepository) LockByID(ctx context.Context, id string) (*applicant.Entity, error) {
	q := `SELECT ` + applicantColumns + ` FROM applicants WHERE id = $1 AND NOT is_deleted FOR UPDATE`
	out, err := scanApplicant(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err, applicant.ErrNotFound)
	}
	return out, nil
}

func (r *ApplicantRepository) List(ctx context.Context, f applicant.ListFilter) ([]applicant.Entity, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + applicantColumns + ` FROM applicants WHERE NOT is_deleted`)
	args := make([]any, 0, 3)

	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := "$" + strconv.Itoa(len(args))
		b.WriteString(" AND lower(first_name || ' ' || last_name || ' ' || email || ' ' || phone || ' ' || user_id) LIKE " + n)
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]applicant.Entity, 0)
	for rows.Next() {
		item, err := scanApplicant(rows)
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
