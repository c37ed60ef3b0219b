package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Service manages the price list.
type Service struct {
	repo            Repository
	defaultCurrency string
	logger          *logging.Logger
	now             func() time.Time
}

// NewService returns a pricing service. Entries created without a currency
// use defaultCurrency.
func NewService(repo Repository, defaultCurrency string, logger *logging.Logger) *Service {
	if repo == nil {
		panic("pricing: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &Service{
		repo:            repo,
		defaultCurrency: strings.ToLower(defaultCurrency),
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Entry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	now := s.now()
	e := &Entry{
		ID:                   uuid.NewString(),
		Name:                 strings.TrimSpace(req.Name),
		Type:                 req.Type,
		Description:          strings.TrimSpace(req.Description),
		BasePriceCents:       req.BasePriceCents,
		DiscountedPriceCents: req.DiscountedPriceCents,
		Currency:             currency,
		DurationMinutes:      req.DurationMinutes,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := checkDiscount(e); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("pricing entry created", "pricing_id", e.ID, "type", e.Type)
	return e, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]*Entry, error) {
	return s.repo.List(ctx, includeInactive)
}

// Update applies the present fields of req to entry id.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Entry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		e.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		e.Type = *req.Type
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.BasePriceCents != nil {
		e.BasePriceCents = *req.BasePriceCents
	}
	if req.ClearDiscount {
		e.DiscountedPriceCents = nil
	} else if req.DiscountedPriceCents != nil {
		e.DiscountedPriceCents = req.DiscountedPriceCents
	}
	if req.Currency != nil {
		e.Currency = strings.ToLower(*req.Currency)
	}
	if req.DurationMinutes != nil {
		e.DurationMinutes = *req.DurationMinutes
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}
	if err := checkDiscount(e); err != nil {
		return nil, err
	}
	e.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("pricing entry updated", "pricing_id", e.ID)
	return e, nil
}

// Deactivate hides an entry from the public list.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info("pricing entry deactivated", "pricing_id", id)
	return nil
}

// Delete removes an entry permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("pricing entry deleted", "pricing_id", id)
	return nil
}

func checkDiscount(e *Entry) error {
	if e.DiscountedPriceCents != nil && *e.DiscountedPriceCents > e.BasePriceCents {
		return ErrDiscountExceedsBase
	}
	return nil
}
