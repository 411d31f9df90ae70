package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable wraps every failure of the underlying storage.
	ErrUnavailable = errors.New("template store unavailable")

	// ErrUnsupportedBackend is returned by Open for unknown file types.
	ErrUnsupportedBackend = errors.New("unsupported store backend")

	// ErrNilTemplate is returned when Store is called with nil.
	ErrNilTemplate = errors.New("template is nil")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
