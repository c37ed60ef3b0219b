package patients

import "errors"

var (
	ErrNotFound           = errors.New("patient not found")
	ErrEmailTaken         = errors.New("a patient with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidOTP covers a wrong, expired or never-issued reset code.
	ErrInvalidOTP = errors.New("invalid or expired reset code")
)
