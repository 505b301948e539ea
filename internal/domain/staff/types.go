package staff

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("staff_not_found")
	ErrUsernameTaken     = errors.New("username_taken")
	ErrForbiddenCreation = errors.New("forbidden_role_creation")
	ErrInvalidInput      = errors.New("invalid_staff_input")
)

// Actor is the authenticated staff member performing an operation.
type Actor struct {
	UserID   string
	Username string
	Role     Role
}

type Entity struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateInput struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	FullName string `json:"fullName" binding:"max=128"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,oneof=STAFF MANAGER ADMIN"`
}

type CreateRecord struct {
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedBy    string
}

type Repository interface {
	Create(ctx context.Context, in CreateRecord) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	GetByUsername(ctx context.Context, username string) (*Entity, error)
	List(ctx context.Context, role Role, limit, offset int32) ([]Entity, error)
}

type AuditRepository interface {
	Log(ctx context.Context, in AuditLogInput) error
}

type AuditLogInput struct {
	AdminUserID string
	Action      string
	TargetType  string
	TargetID    string
	Payload     []byte
}
