// Package auth issues and checks the access/refresh credential pair. Tokens
// are opaque values stored server-side; every request exchanges its bearer
// token for an rbac.Identity before any operation runs.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
	"github.com/mintzusung/restaurant-orders/internal/rbac"
	"github.com/mintzusung/restaurant-orders/internal/user"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

type Token struct {
	Value     string
	UserID    string
	Kind      string
	ExpiresAt time.Time
}

type TokenRepository interface {
	Insert(ctx context.Context, t *Token) error
	Get(ctx context.Context, value string) (*Token, error)
}

// Pair is what a successful login returns.
// swagger:model
type Pair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitempty"`
}

type Service struct {
	tokens     TokenRepository
	users      user.Repository
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(tokens TokenRepository, users user.Repository, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		tokens:     tokens,
		users:      users,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *Service) issue(ctx context.Context, userID, kind string, ttl time.Duration) (*Token, error) {
	t := &Token{
		Value:     uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		ExpiresAt: s.now().UTC().Add(ttl),
	}
	if err := s.tokens.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Login verifies the password and issues a fresh access/refresh pair.
func (s *Service) Login(ctx context.Context, email, password string) (*Pair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !user.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.New(apperr.Authentication, "invalid email or password")
	}
	access, err := s.issue(ctx, u.ID, KindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(ctx, u.ID, KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:      access.Value,
		RefreshToken:     refresh.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// Refresh exchanges an unexpired refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	t, err := s.lookup(ctx, refreshToken, KindRefresh)
	if err != nil {
		return nil, err
	}
	access, err := s.issue(ctx, t.UserID, KindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access.Value, AccessExpiresAt: access.ExpiresAt}, nil
}

// Identify resolves an access token to the caller's identity and role set.
func (s *Service) Identify(ctx context.Context, accessToken string) (rbac.Identity, error) {
	t, err := s.lookup(ctx, accessToken, KindAccess)
	if err != nil {
		return rbac.Identity{}, err
	}
	roles, err := s.users.Roles(ctx, t.UserID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return rbac.Identity{}, apperr.New(apperr.Authentication, "credential does not match a known user")
		}
		return rbac.Identity{}, err
	}
	return rbac.Identity{UserID: t.UserID, Roles: roles}, nil
}

func (s *Service) lookup(ctx context.Context, value, kind string) (*Token, error) {
	if value == "" {
		return nil, apperr.New(apperr.Authentication, "missing credential")
	}
	t, err := s.tokens.Get(ctx, value)
	if err != nil {
		return nil, err
	}
	if t.Kind != kind {
		return nil, apperr.New(apperr.Authentication, "invalid credential")
	}
	if !s.now().UTC().Before(t.ExpiresAt) {
		return nil, apperr.New(apperr.Authentication, "credential expired")
	}
	return t, nil
}
