package accessory

import "errors"

// Domain errors for the accessory package.
var (
	// ErrInvalidValue is returned when a value cannot be coerced to the
	// characteristic's format.
	ErrInvalidValue = errors.New("accessory: invalid value")
)
