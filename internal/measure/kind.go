package measure

import (
	"fmt"

	"github.com/kinemetry/kinemetry/internal/errors"
)

// Kind indicates the type of movement measurement.
type Kind int

const (
	// KindTremor is a tremor measurement.
	KindTremor Kind = iota
	// KindDyskinesia is a dyskinesia measurement.
	KindDyskinesia
)

// String returns a human-readable representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindTremor:
		return "tremor"
	case KindDyskinesia:
		return "dyskinesia"
	default:
		return "unknown"
	}
}

// ParseKind parses a measurement kind string.
// Anything other than the two supported kinds is a validation error.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "tremor":
		return KindTremor, nil
	case "dyskinesia":
		return KindDyskinesia, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, errors.ErrInvalidMeasurement)
	}
}
