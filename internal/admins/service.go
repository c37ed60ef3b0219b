package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/auth"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// TokenIssuer mints access tokens after a successful login.
type TokenIssuer interface {
	Issue(subject, role string, perms []string) (string, time.Time, error)
}

// Session is returned by Login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Admin     *Admin    `json:"admin"`
}

// Service manages admin accounts and their permissions.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, tokens TokenIssuer, logger *logging.Logger) *Service {
	if repo == nil {
		panic("admins: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, tokens: tokens, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Login authenticates an active admin and records the login time.
// Deactivated accounts are reported as bad credentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !a.IsActive || !auth.CheckPassword(a.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if s.tokens == nil {
		return nil, errors.New("admins: token issuer not configured")
	}
	token, exp, err := s.tokens.Issue(a.ID, a.Role, a.Permissions.Claims())
	if err != nil {
		return nil, fmt.Errorf("admins: issue token: %w", err)
	}

	at := s.now()
	if err := s.repo.RecordLogin(ctx, a.ID, at); err != nil {
		s.logger.Warn("failed to record admin login", "error", err, "admin_id", a.ID)
	} else {
		a.LastLoginAt = &at
	}
	return &Session{Token: token, ExpiresAt: exp, Admin: a}, nil
}

// Create adds a new active admin. Role defaults to admin.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Admin, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("admins: %w", err)
	}
	role := req.Role
	if role == "" {
		role = auth.RoleAdmin
	}
	now := s.now()
	a := &Admin{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         role,
		Permissions:  req.Permissions,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("admin created", "admin_id", a.ID, "role", a.Role)
	return a, nil
}

func (s *Service) List(ctx context.Context) ([]*Admin, error) {
	return s.repo.List(ctx)
}

// UpdatePermissions replaces the grants held by id. The change applies to
// tokens issued after it.
func (s *Service) UpdatePermissions(ctx context.Context, id string, perms Permissions) (*Admin, error) {
	a, err := s.repo.UpdatePermissions(ctx, id, perms)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin permissions updated", "admin_id", id, "permissions", perms.Claims())
	return a, nil
}

// Deactivate soft-deletes id on behalf of actorID.
func (s *Service) Deactivate(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDeactivation
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info("admin deactivated", "admin_id", id, "actor_id", actorID)
	return nil
}
