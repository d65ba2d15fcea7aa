package assist

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is wrapped by configuration errors when no API key is set.
var ErrMissingAPIKey = errors.New("no API key configured")

// Kind classifies an assist failure.
type Kind int

const (
	// KindConfig means the client cannot make requests as configured.
	KindConfig Kind = iota + 1
	// KindUpstream covers transport failures and non-2xx responses.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by Client operations.
type Error struct {
	Kind Kind
	Op   string
	// Status is the HTTP status of a non-2xx response, zero otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindConfig:
		return fmt.Sprintf("assist %s: %v (set assist.api_key or the variable named by assist.api_key_env)", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("assist %s: service responded %d: %v", e.Op, e.Status, e.Err)
	default:
		return fmt.Sprintf("assist %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfig reports whether err is an assist configuration error.
func IsConfig(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindConfig
}
