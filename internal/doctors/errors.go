package doctors

import "errors"

var (
	// ErrNotFound is returned when a doctor is not found
	ErrNotFound = errors.New("doctor not found")

	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("a doctor with this email already exists")

	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNoBlob is returned when the requested document or image was never uploaded.
	ErrNoBlob = errors.New("file not found")
)
