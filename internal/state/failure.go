package state

import (
	"errors"

	"github.com/alextreichler/shopfront/internal/gateway"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// KindValidation failures are caught before any network call.
	KindValidation Kind = iota + 1
	// KindTransport failures mean the gateway could not be reached.
	KindTransport
	// KindApplication failures carry the backend's own message.
	KindApplication
	// KindProvider failures come from the external payment provider.
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	case KindProvider:
		return "provider"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Failure is the error payload stored in a slice.
type Failure struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Err        error  `json:"-"`
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

func Validation(msg string) *Failure {
	return &Failure{Kind: KindValidation, Message: msg}
}

func Provider(msg string) *Failure {
	return &Failure{Kind: KindProvider, Message: msg}
}

// FailureFrom classifies err. The fallback message is used for transport
// failures and for application failures that came back without a message.
func FailureFrom(err error, fallback string) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return &Failure{Kind: KindApplication, Message: msg, StatusCode: apiErr.StatusCode, Err: err}
	}

	return &Failure{Kind: KindTransport, Message: fallback, Err: err}
}

// IsKind reports whether err is a Failure of kind k.
func IsKind(err error, k Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == k
}
