package admins

import "errors"

var (
	ErrNotFound           = errors.New("admin not found")
	ErrEmailTaken         = errors.New("an admin with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSelfDeactivation   = errors.New("admins cannot deactivate themselves")
)
