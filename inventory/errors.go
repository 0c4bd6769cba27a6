package inventory

import "github.com/rotisserie/eris"

// Sentinel errors returned by the engine. Callers match them with eris.Is.
var (
	ErrNotFound          = eris.New("inventory: not found")
	ErrInsufficientStock = eris.New("inventory: insufficient stock")
	ErrInvalidInput      = eris.New("inventory: invalid input")
)

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return eris.Is(err, ErrNotFound)
}

// IsInsufficientStock reports whether err is, or wraps, ErrInsufficientStock.
func IsInsufficientStock(err error) bool {
	return eris.Is(err, ErrInsufficientStock)
}

// IsInvalidInput reports whether err is, or wraps, ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return eris.Is(err, ErrInvalidInput)
}
