package staff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kural1554/Finance/internal/auth"
)

type Service struct {
	repo      Repository
	auditRepo AuditRepository
	logger    *slog.Logger
}

func NewService(repo Repository, auditRepo AuditRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, auditRepo: auditRepo, logger: logger}
}

// Create adds a staff account on behalf of actor. Admins create managers and
// staff, managers create staff.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*Entity, error) {
	role, err := ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: role", ErrInvalidInput)
	}
	if !actor.Role.CanCreate(role) {
		return nil, ErrForbiddenCreation
	}
	created, err := s.create(ctx, actor.UserID, role, in)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]any{"username": created.Username, "role": created.Role.String(), "created_by": actor.Username})
	if err := s.auditRepo.Log(ctx, AuditLogInput{
		AdminUserID: actor.UserID,
		Action:      "staff_created",
		TargetType:  "staff_user",
		TargetID:    created.ID,
		Payload:     payload,
	}); err != nil {
		s.logger.Warn("audit log write failed", "action", "staff_created", "target", created.ID, "err", err)
	}
	return created, nil
}

func (s *Service) create(ctx context.Context, createdBy string, role Role, in CreateInput) (*Entity, error) {
	username := strings.TrimSpace(in.Username)
	if len(username) < 3 || strings.ContainsAny(username, " \t\n") {
		return nil, fmt.Errorf("%w: username", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password", ErrInvalidInput)
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, CreateRecord{
		Username:     username,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Role:         role,
		CreatedBy:    createdBy,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Entity, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, role Role, limit, offset int32) ([]Entity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, role, limit, offset)
}

// EnsureBootstrapAdmin creates the first admin account when no account with
// that username exists yet. It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	existing, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		if existing.Role != RoleAdmin {
			s.logger.Warn("bootstrap admin username belongs to a non-admin account", "username", username, "role", existing.Role.String())
		}
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	created, err := s.create(ctx, "", RoleAdmin, CreateInput{Username: username, Password: password, FullName: "Administrator"})
	if err != nil {
		return false, err
	}
	payload, _ := json.Marshal(map[string]any{"username": created.Username, "role": created.Role.String()})
	if err := s.auditRepo.Log(ctx, AuditLogInput{
		Action:     "admin_bootstrapped",
		TargetType: "staff_user",
		TargetID:   created.ID,
		Payload:    payload,
	}); err != nil {
		s.logger.Warn("audit log write failed", "action", "admin_bootstrapped", "target", created.ID, "err", err)
	}
	s.logger.Info("bootstrap admin created", "username", created.Username)
	return true, nil
}
