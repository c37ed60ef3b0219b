package pricing

import "time"

// Entry types.
const (
	TypeConsultation = "consultation"
	TypeFollowUp     = "followup"
	TypePackage      = "package"
	TypeCoins        = "coins"
)

// Entry is one price list item. Amounts are minor units of Currency.
type Entry struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	Description          string    `json:"description,omitempty"`
	BasePriceCents       int64     `json:"basePriceCents"`
	DiscountedPriceCents *int64    `json:"discountedPriceCents,omitempty"`
	Currency             string    `json:"currency"`
	DurationMinutes      int       `json:"durationMinutes,omitempty"`
	IsActive             bool      `json:"isActive"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// EffectivePriceCents is the discounted price when one is set.
func (e *Entry) EffectivePriceCents() int64 {
	if e.DiscountedPriceCents != nil {
		return *e.DiscountedPriceCents
	}
	return e.BasePriceCents
}

type CreateRequest struct {
	Name                 string `json:"name" validate:"required,max=120"`
	Type                 string `json:"type" validate:"required,oneof=consultation followup package coins"`
	Description          string `json:"description" validate:"max=1000"`
	BasePriceCents       int64  `json:"basePriceCents" validate:"gte=0"`
	DiscountedPriceCents *int64 `json:"discountedPriceCents" validate:"omitempty,gte=0"`
	Currency             string `json:"currency" validate:"omitempty,len=3,alpha"`
	DurationMinutes      int    `json:"durationMinutes" validate:"gte=0"`
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	Name                 *string `json:"name" validate:"omitempty,min=1,max=120"`
	Type                 *string `json:"type" validate:"omitempty,oneof=consultation followup package coins"`
	Description          *string `json:"description" validate:"omitempty,max=1000"`
	BasePriceCents       *int64  `json:"basePriceCents" validate:"omitempty,gte=0"`
	DiscountedPriceCents *int64  `json:"discountedPriceCents" validate:"omitempty,gte=0"`
	ClearDiscount        bool    `json:"clearDiscount"`
	Currency             *string `json:"currency" validate:"omitempty,len=3,alpha"`
	DurationMinutes      *int    `json:"durationMinutes" validate:"omitempty,gte=0"`
	IsActive             *bool   `json:"isActive"`
}
