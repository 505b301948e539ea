package applicant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("applicant_not_found")
	ErrDuplicate    = errors.New("applicant_exists")
	ErrInvalidInput = errors.New("invalid_applicant_input")
)

type Entity struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userID"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postalCode"`
	CreatedBy  string    `json:"createdBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateInput struct {
	UserID     string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    string
	City       string
	State      string
	PostalCode string
	CreatedBy  string
}

type ListFilter struct {
	Search string
	Limit  int32
	Offset int32
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	List(ctx context.Context, f ListFilter) ([]Entity, error)
}

// NewUserID returns a public applicant code such as AP3F9C1B.
func NewUserID() string {
	return "AP" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
