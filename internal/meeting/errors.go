package meeting

import "errors"

var (
	// ErrTokenExchange is returned when the OAuth client-credentials exchange fails.
	ErrTokenExchange = errors.New("meeting: token exchange failed")
	// ErrProvisionFailed is returned when the provider rejects a meeting create
	// or answers without a meeting id.
	ErrProvisionFailed = errors.New("meeting: provisioning failed")
)
