package patients

import (
	"strings"
	"time"
)

// Patient is a registered end user. Wallet and coin balances are changed only
// by the payments package.
type Patient struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Phone              string     `json:"phone,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	Age                int        `json:"age,omitempty"`
	WalletBalanceCents int64      `json:"walletBalanceCents"`
	Coins              int64      `json:"coins"`
	OTPHash            string     `json:"-"`
	OTPExpiresAt       *time.Time `json:"-"`
	OTPAttempts        int        `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender" validate:"omitempty,oneof=male female other"`
	Age      int    `json:"age" validate:"gte=0,lte=150"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
