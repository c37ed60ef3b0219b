package payments

import "errors"

var (
	ErrInsufficientFunds   = errors.New("insufficient wallet balance")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCheckoutUnavailable = errors.New("card checkout is not configured")
)
