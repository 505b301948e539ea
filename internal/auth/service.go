package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kural1554/Finance/internal/db"
)

var (
	ErrAccountDisabled = errors.New("account_disabled")
	ErrInvalidSession  = errors.New("invalid_session")
)

type Repository interface {
	GetUserByUsername(ctx context.Context, username string) (*db.User, error)
	GetUserByID(ctx context.Context, userID string) (*db.User, error)
	TouchLastLogin(ctx context.Context, userID string) error
	CreateSession(ctx context.Context, userID, refreshHash, userAgent, ipAddress string, expiresAt time.Time) (*db.Session, error)
	GetSessionByID(ctx context.Context, sessionID string) (*db.Session, error)
	RevokeSession(ctx context.Context, sessionID string) error
	UpdateSessionRefreshHash(ctx context.Context, sessionID, refreshHash string) error
}

// Service issues staff sessions. A refresh always rotates the session, so a
// refresh token is good for exactly one use.
type Service struct {
	repo       Repository
	jwt        *JWTManager
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	User         *db.User
}

func NewService(repo Repository, jwt *JWTManager, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		jwt:        jwt,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Login(ctx context.Context, username, password, userAgent, ipAddress string) (*AuthTokens, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	tokens, err := s.issue(ctx, user, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}
	_ = s.repo.TouchLastLogin(ctx, user.ID)
	return tokens, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*AuthTokens, error) {
	session, err := s.liveSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	// Role and active flag are re-read so demotions apply on the next refresh.
	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	if err := s.repo.RevokeSession(ctx, session.ID); err != nil {
		return nil, err
	}
	return s.issue(ctx, user, userAgent, ipAddress)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.Parse(refreshToken)
	if err != nil || claims.Type != TokenTypeRefresh || claims.SessionID == "" {
		return nil
	}
	return s.repo.RevokeSession(ctx, claims.SessionID)
}

func (s *Service) Me(ctx context.Context, userID string) (*db.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) liveSession(ctx context.Context, refreshToken string) (*db.Session, error) {
	claims, err := s.jwt.Parse(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Type != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: token type %q", ErrInvalidSession, claims.Type)
	}

	session, err := s.repo.GetSessionByID(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	switch {
	case session.RevokedAt != nil:
		return nil, fmt.Errorf("%w: revoked", ErrInvalidSession)
	case s.now().After(session.ExpiresAt):
		return nil, fmt.Errorf("%w: expired", ErrInvalidSession)
	case session.RefreshTokenHash != hashToken(refreshToken):
		return nil, fmt.Errorf("%w: refresh token mismatch", ErrInvalidSession)
	}
	return session, nil
}

// issue opens a session and mints the token pair bound to it. The session is
// created with a throwaway hash first because the refresh token embeds the
// session id.
func (s *Service) issue(ctx context.Context, user *db.User, userAgent, ipAddress string) (*AuthTokens, error) {
	session, err := s.repo.CreateSession(ctx, user.ID, hashToken(uuid.NewString()), userAgent, ipAddress, s.now().Add(s.refreshTTL))
	if err != nil {
		return nil, err
	}

	sub := Subject{UserID: user.ID, Username: user.Username, Role: user.Role}
	accessToken, err := s.jwt.Mint(sub, session.ID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwt.Mint(sub, session.ID, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSessionRefreshHash(ctx, session.ID, hashToken(refreshToken)); err != nil {
		return nil, err
	}

	return &AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken, SessionID: session.ID, User: user}, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ClientIP prefers the first X-Forwarded-For hop over the socket address.
func ClientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil {
		return host
	}
	return r.RemoteAddr
}
