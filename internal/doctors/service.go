package doctors

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
	Doctor    *Doctor   `json:"doctor"`
}

// Service handles doctor registration and login.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, tokens TokenIssuer, logger *logging.Logger) *Service {
	if repo == nil {
		panic("doctors: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, tokens: tokens, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Register validates req, hashes the password and stores the doctor.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Doctor, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("doctors: %w", err)
	}
	consult := req.ConsultType
	if consult == "" {
		consult = ConsultOnline
	}
	now := s.now()
	d := &Doctor{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Email:         normalizeEmail(req.Email),
		PasswordHash:  hash,
		Phone:         strings.TrimSpace(req.Phone),
		Speciality:    strings.TrimSpace(req.Speciality),
		Experience:    req.Experience,
		FeesCents:     req.FeesCents,
		ConsultType:   consult,
		LicenseNumber: strings.TrimSpace(req.LicenseNumber),
		Education:     strings.TrimSpace(req.Education),
		Document:      req.Document,
		Image:         req.Image,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info("doctor registered", "doctor_id", d.ID)
	return withoutBlobs(d), nil
}

// Login checks credentials and issues a doctor token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	d, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(d.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if s.tokens == nil {
		return nil, errors.New("doctors: token issuer not configured")
	}
	token, exp, err := s.tokens.Issue(d.ID, auth.RoleDoctor, nil)
	if err != nil {
		return nil, fmt.Errorf("doctors: issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp, Doctor: d}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Doctor, error) {
	return s.repo.List(ctx)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("doctor deleted", "doctor_id", id)
	return nil
}

func (s *Service) Blob(ctx context.Context, id, kind string) ([]byte, error) {
	return s.repo.Blob(ctx, id, kind)
}
