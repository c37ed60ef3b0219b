package patients

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/auth"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// OTPTTL is how long a password reset code stays valid.
const OTPTTL = 10 * time.Minute

// MaxOTPAttempts is how many checks one reset code allows before it stops
// matching.
const MaxOTPAttempts = 5

// TokenIssuer mints access tokens after a successful login.
type TokenIssuer interface {
	Issue(subject, role string, perms []string) (string, time.Time, error)
}

// ResetMailer delivers password reset codes.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, name, code string, expiresAt time.Time) error
}

// Session is returned by Login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Patient   *Patient  `json:"patient"`
}

// Service handles patient accounts and password recovery.
type Service struct {
	repo    Repository
	tokens  TokenIssuer
	mailer  ResetMailer
	logger  *logging.Logger
	now     func() time.Time
	newCode func() (string, error)
}

func NewService(repo Repository, tokens TokenIssuer, mailer ResetMailer, logger *logging.Logger) *Service {
	if repo == nil {
		panic("patients: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:    repo,
		tokens:  tokens,
		mailer:  mailer,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: sixDigitCode,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Patient, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("patients: %w", err)
	}
	now := s.now()
	p := &Patient{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
		Gender:       req.Gender,
		Age:          req.Age,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("patient registered", "patient_id", p.ID)
	return p, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(p.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if s.tokens == nil {
		return nil, errors.New("patients: token issuer not configured")
	}
	token, exp, err := s.tokens.Issue(p.ID, auth.RolePatient, nil)
	if err != nil {
		return nil, fmt.Errorf("patients: issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp, Patient: p}, nil
}

// ForgotPassword emails a reset code when the address is known. Unknown
// addresses return nil so callers cannot probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	p, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, ErrNotFound) {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("patients: generate otp: %w", err)
	}
	hash, err := auth.HashPassword(code)
	if err != nil {
		return fmt.Errorf("patients: hash otp: %w", err)
	}
	expires := s.now().Add(OTPTTL)
	if err := s.repo.SetOTP(ctx, p.ID, hash, expires); err != nil {
		return err
	}
	if s.mailer == nil {
		s.logger.Warn("no mailer configured, reset code not sent", "patient_id", p.ID)
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, p.Email, p.Name, code, expires); err != nil {
		s.logger.Error("reset email failed", "error", err, "patient_id", p.ID)
	}
	return nil
}

// ResetPassword replaces the password when the OTP matches and is unexpired.
// Every check, right or wrong, spends one of the code's MaxOTPAttempts.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	p, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	otpHash, expires, err := s.repo.ClaimOTPAttempt(ctx, p.ID, MaxOTPAttempts)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	if !s.now().Before(expires) {
		return ErrInvalidOTP
	}
	if !auth.CheckPassword(otpHash, req.OTP) {
		s.logger.Warn("patient reset code mismatch", "patient_id", p.ID)
		return ErrInvalidOTP
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("patients: %w", err)
	}
	if err := s.repo.ResetPassword(ctx, p.ID, hash); err != nil {
		return err
	}
	s.logger.Info("patient password reset", "patient_id", p.ID)
	return nil
}

// SweepExpiredOTPs clears reset codes past their expiry.
func (s *Service) SweepExpiredOTPs(ctx context.Context) (int64, error) {
	return s.repo.ClearExpiredOTPs(ctx, s.now())
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	return s.repo.List(ctx)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
