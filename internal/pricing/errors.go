package pricing

import "errors"

var (
	ErrNotFound            = errors.New("pricing entry not found")
	ErrDiscountExceedsBase = errors.New("discounted price cannot exceed the base price")
)
