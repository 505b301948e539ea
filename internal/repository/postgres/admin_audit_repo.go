package postgres

import (
	"context"

	"github.com/kural1554/Finance/internal/domain/staff"
)

type AdminAuditRepository struct {
	db DBTX
}

func NewAdminAuditRepository(db DBTX) *AdminAuditRepository {
	return &AdminAuditRepository{db: db}
}

func (r *AdminAuditRepository) Log(ctx context.Context, in staff.AuditLogInput) error {
	payload := in.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	q := `
INSERT INTO admin_audit_logs (admin_user_id, action, target_type, target_id, payload)
VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5::jsonb)
`
	_, err := r.db.Exec(ctx, q, in.AdminUserID, in.Action, in.TargetType, in.TargetID, payload)
	return err
}
