package patients

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for patient storage
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	Count(ctx context.Context) (int64, error)
	// SetOTP stores a fresh reset code and zeroes its attempt counter.
	SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	// ClaimOTPAttempt counts one check against the outstanding reset code and
	// returns it. It returns ErrNotFound when no code is outstanding or
	// maxAttempts checks have already been made.
	ClaimOTPAttempt(ctx context.Context, id string, maxAttempts int) (otpHash string, expiresAt time.Time, err error)
	// ResetPassword stores the new hash and clears any outstanding OTP.
	ResetPassword(ctx context.Context, id, passwordHash string) error
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// InMemoryRepository keeps patients in memory.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{patients: make(map[string]*Patient)}
}

func (r *InMemoryRepository) Create(ctx context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.patients {
		if existing.Email == p.Email {
			return ErrEmailTaken
		}
	}
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*Patient, error) {
	r.mu.RLock()
	out := make([]*Patient, 0, len(r.patients))
	for _, p := range r.patients {
		cp := *p
		out = append(out, &cp)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.patients)), nil
}

func (r *InMemoryRepository) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.OTPHash = otpHash
	p.OTPExpiresAt = &expiresAt
	p.OTPAttempts = 0
	return nil
}

func (r *InMemoryRepository) ClaimOTPAttempt(ctx context.Context, id string, maxAttempts int) (string, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || p.OTPHash == "" || p.OTPExpiresAt == nil || p.OTPAttempts >= maxAttempts {
		return "", time.Time{}, ErrNotFound
	}
	p.OTPAttempts++
	return p.OTPHash, *p.OTPExpiresAt, nil
}

func (r *InMemoryRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.PasswordHash = passwordHash
	p.OTPHash = ""
	p.OTPExpiresAt = nil
	p.OTPAttempts = 0
	return nil
}

func (r *InMemoryRepository) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.patients {
		if p.OTPExpiresAt != nil && !p.OTPExpiresAt.After(now) {
			p.OTPHash = ""
			p.OTPExpiresAt = nil
			p.OTPAttempts = 0
			n++
		}
	}
	return n, nil
}

var _ Repository = (*InMemoryRepository)(nil)
