package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/kural1554/Finance/internal/domain/staff"
)

const staffColumns = `id, username, full_name, email, password_hash, role, active,
       COALESCE(created_by::text, ''), created_at, updated_at`

type StaffRepository struct {
	db DBTX
}

func NewStaffRepository(db DBTX) *StaffRepository {
	return &StaffRepository{db: db}
}

func scanStaff(row rowScanner) (*staff.Entity, error) {
	out := &staff.Entity{}
	var role string
	err := row.Scan(
		&out.ID, &out.Username, &out.FullName, &out.Email, &out.PasswordHash, &role, &out.Active,
		&out.CreatedBy, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if out.Role, err = staff.ParseRole(role); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StaffRepository) Create(ctx context.Context, in staff.CreateRecord) (*staff.Entity, error) {
	q := `
INSERT INTO staff_users (username, full_name, email, password_hash, role, created_by)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
RETURNING ` + staffColumns
	out, err := scanStaff(r.db.QueryRow(ctx, q, in.Username, in.FullName, in.Email, in.PasswordHash, in.Role.String(), in.CreatedBy))
	if err != nil {
		if isUniqueViolation(err, "staff_users_username_idx") {
			return nil, staff.ErrUsernameTaken
		}
		return nil, err
	}
	return out, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id string) (*staff.Entity, error) {
	out, err := scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff_users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, staff.ErrNotFound)
	}
	return out, nil
}

func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*staff.Entity, error) {
	out, err := scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff_users WHERE lower(username) = lower($1)`, username))
	if err != nil {
		return nil, notFound(err, staff.ErrNotFound)
	}
	return out, nil
}

// List returns accounts newest first; a zero role matches every role.
func (r *StaffRepository) List(ctx context.Context, role staff.Role, limit, offset int32) ([]staff.Entity, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + staffColumns + ` FROM staff_users WHERE 1=1`)
	args := make([]any, 0, 3)
	if role.Valid() {
		args = append(args, role.String())
		b.WriteString(" AND role = $" + strconv.Itoa(len(args)))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	args = append(args, limit, offset)
	b.WriteString(" LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args)))

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]staff.Entity, 0)
	for rows.Next() {
		item, err := scanStaff(rows)
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
