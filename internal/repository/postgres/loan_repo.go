package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/domain/sequence"
)

const loanColumns = `id, loan_id, applicant_id, amount, term, term_type, interest_rate, purpose,
       repayment_source, agree_terms, agree_credit_check, agree_data_sharing,
       translator_name, translator_place, remarks, manager_remarks, admin_remarks,
       registered_on, start_date, status, COALESCE(created_by::text, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type LoanRepository struct {
	db DBTX
}

func NewLoanRepository(db DBTX) *LoanRepository {
	return &LoanRepository{db: db}
}

func scanLoan(row rowScanner) (*loan.Entity, error) {
	out := &loan.Entity{}
	err := row.Scan(
		&out.ID, &out.LoanID, &out.ApplicantID, &out.Amount, &out.Term, &out.TermType, &out.InterestRate, &out.Purpose,
		&out.RepaymentSource, &out.AgreeTerms, &out.AgreeCreditCheck, &out.AgreeDataSharing,
		&out.TranslatorName, &out.TranslatorPlace, &out.Remarks, &out.ManagerRemarks, &out.AdminRemarks,
		&out.RegisteredOn, &out.StartDate, &out.Status, &out.CreatedBy, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LoanRepository) Create(ctx context.Context, in loan.CreateRecord) (*loan.Entity, error) {
	q := `
INSERT INTO loan_applications (
  applicant_id, amount, term, term_type, interest_rate, purpose, repayment_source,
  agree_terms, agree_credit_check, agree_data_sharing, translator_name, translator_place,
  remarks, registered_on, start_date, status, created_by
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NULLIF($17, '')::uuid)
RETURNING ` + loanColumns
	out, err := scanLoan(r.db.QueryRow(ctx, q,
		in.ApplicantID, in.Amount, in.Term, in.TermType, in.InterestRate, in.Purpose, in.RepaymentSource,
		in.AgreeTerms, in.AgreeCreditCheck, in.AgreeDataSharing, in.TranslatorName, in.TranslatorPlace,
		in.Remarks, in.RegisteredOn, in.StartDate, string(in.Status), in.CreatedBy,
	))
	if err != nil {
		if isUniqueViolation(err, unresolvedLoanIndex) {
			return nil, loan.ErrDuplicateActiveLoan
		}
		if hasCode(err, numericOutOfRange) {
			return nil, fmt.Errorf("%w: amount or interest rate out of range", loan.ErrInvalidInput)
		}
		return nil, err
	}
	return out, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*loan.Entity, error) {
	q := `SELECT ` + loanColumns + ` FROM loan_applications WHERE id = $1`
	out, err := scanLoan(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err, loan.ErrNotFound)
	}
	return out, nil
}

func (r *LoanRepository) GetForUpdate(ctx context.Context, id string) (*loan.Entity, error) {
	q := `SELECT ` + loanColumns + ` FROM loan_applications WHERE id = $1 FOR UPDATE`
	out, err := scanLoan(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err, loan.ErrNotFound)
	}
	return out, nil
}

func (r *LoanRepository) List(ctx context.Context, f loan.ListFilter) ([]loan.Entity, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + loanColumns + ` FROM loan_applications WHERE 1=1`)
	args := make([]any, 0, 6)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Status != "" {
		b.WriteString(" AND status = " + arg(string(f.Status)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		b.WriteString(" AND status = ANY(" + arg(statuses) + ")")
	}
	if f.ApplicantID != "" {
		b.WriteString(" AND applicant_id = " + arg(f.ApplicantID) + "::uuid")
	}
	if f.LoanID != "" {
		b.WriteString(" AND loan_id = " + arg(f.LoanID))
	}
	if f.After != nil {
		b.WriteString(" AND (created_at, id) < (" + arg(f.After.CreatedAt) + ", " + arg(f.After.ID) + "::uuid)")
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.After == nil && f.Offset > 0 {
		b.WriteString(" OFFSET " + arg(f.Offset))
	}

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Entity, 0)
	for rows.Next() {
		item, err := scanLoan(rows)
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

func (r *LoanRepository) HasUnresolved(ctx context.Context, applicantID string) (bool, error) {
	q := `
SELECT EXISTS (
  SELECT 1 FROM loan_applications
  WHERE applicant_id = $1 AND status NOT IN ('PAID', 'REJECTED', 'CANCELLED')
)`
	var exists bool
	if err := r.db.QueryRow(ctx, q, applicantID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *LoanRepository) UpdateStatus(ctx context.Context, id string, status loan.Status, loanID *string) error {
	q := `
UPDATE loan_applications
SET status = $2, loan_id = COALESCE($3, loan_id), updated_at = NOW()
WHERE id = $1
`
	tag, err := r.db.Exec(ctx, q, id, string(status), loanID)
	if err != nil {
		if isUniqueViolation(err, loanIdentifierUniqueKey) {
			return sequence.ErrAllocationConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) UpdateRemarks(ctx context.Context, id string, in loan.RemarksInput) error {
	q := `
UPDATE loan_applications
SET remarks = COALESCE($2, remarks),
    manager_remarks = COALESCE($3, manager_remarks),
    admin_remarks = COALESCE($4, admin_remarks),
    updated_at = NOW()
WHERE id = $1
`
	tag, err := r.db.Exec(ctx, q, id, in.Remarks, in.ManagerRemarks, in.AdminRemarks)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrNotFound
	}
	return nil
}
