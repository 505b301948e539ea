package applicant

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoMock struct {
	created    []CreateInput
	lastFilter ListFilter
}

func (m *repoMock) Create(_ context.Context, in CreateInput) (*Entity, error) {
	for _, c := range m.created {
		if c.Email == in.Email {
			return nil, ErrDuplicate
		}
	}
	m.created = append(m.created, in)
	return &Entity{ID: "a-1", UserID: in.UserID, FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Phone: in.Phone, CreatedBy: in.CreatedBy}, nil
}

func (m *repoMock) GetByID(_ context.Context, id string) (*Entity, error) {
	if id == "a-1" && len(m.created) > 0 {
		return &Entity{ID: id}, nil
	}
	return nil, ErrNotFound
}

func (m *repoMock) List(_ context.Context, f ListFilter) ([]Entity, error) {
	m.lastFilter = f
	return nil, nil
}

func TestCreateNormalizesAndStampsCreator(t *testing.T) {
	repo := &repoMock{}
	svc := NewService(repo)

	out, err := svc.Create(context.Background(), "staff-1", CreateInput{
		FirstName: "  Asha ",
		LastName:  "Rao",
		Email:     " Asha.Rao@Example.COM ",
		Phone:     "9876543210",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", out.FirstName)
	assert.Equal(t, "asha.rao@example.com", out.Email)
	assert.Equal(t, "staff-1", out.CreatedBy)
	assert.Regexp(t, regexp.MustCompile(`^AP[0-9A-F]{6}$`), out.UserID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := NewService(&repoMock{})

	cases := map[string]CreateInput{
		"missing name":  {LastName: "Rao", Email: "a@example.com", Phone: "1"},
		"missing phone": {FirstName: "Asha", LastName: "Rao", Email: "a@example.com"},
		"bad email":     {FirstName: "Asha", LastName: "Rao", Email: "not-an-email", Phone: "1"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "staff-1", in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(&repoMock{})
	in := CreateInput{FirstName: "Asha", LastName: "Rao", Email: "a@example.com", Phone: "1"}

	_, err := svc.Create(context.Background(), "staff-1", in)
	require.NoError(t, err)
	in.Email = "A@example.com"
	_, err = svc.Create(context.Background(), "staff-1", in)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestListClampsPaging(t *testing.T) {
	repo := &repoMock{}
	svc := NewService(repo)

	_, err := svc.List(context.Background(), ListFilter{Limit: 1000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, int32(50), repo.lastFilter.Limit)
	assert.Equal(t, int32(0), repo.lastFilter.Offset)
}

func TestNewUserIDFormat(t *testing.T) {
	id := NewUserID()
	if len(id) != 8 || id[:2] != "AP" {
		t.Fatalf("unexpected user id %q", id)
	}
}
