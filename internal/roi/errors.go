package roi

import (
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrInvalidInput is returned when segments or masks handed to a chain
	// disagree on chromosome or strand, or when coordinates are malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutOfRange is returned for coordinates outside a chain.
	ErrOutOfRange = errors.New("coordinate out of range")

	// ErrMissingArgument is returned when a required bound is undefined.
	ErrMissingArgument = errors.New("missing argument")

	// ErrExportPrecondition is returned when a feature cannot be rendered
	// in the requested format.
	ErrExportPrecondition = errors.New("export precondition not met")
)

var logger = zap.NewNop()

// SetLogger sets the logger used for advisories, such as fetching sequence
// or counts for a chain with no segments.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
