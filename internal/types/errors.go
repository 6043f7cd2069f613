package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for mmdsgate operations.
var (
	// ErrMalformedRequest matches any RequestError of kind KindMalformed.
	ErrMalformedRequest = errors.New("malformed MMDS request")

	// ErrBodyDecode matches any RequestError of kind KindBodyDecodeFailed.
	ErrBodyDecode = errors.New("MMDS request body could not be decoded")

	// ErrUnknownVersion indicates a version tag outside SupportedVersions.
	ErrUnknownVersion = errors.New("unsupported MMDS version")

	// ErrInvalidIPv4 indicates an ipv4_address that is not a dotted-quad IPv4 address.
	ErrInvalidIPv4 = errors.New("invalid IPv4 address")

	// ErrInvalidConfig indicates an MMDS config that decoded but violates a constraint.
	ErrInvalidConfig = errors.New("invalid MMDS configuration")

	// ErrBodyTooLarge indicates a request body above the configured limit.
	ErrBodyTooLarge = errors.New("request body exceeds maximum size")
)

// ErrorKind classifies a RequestError.
type ErrorKind int

const (
	// KindMalformed is a client addressing error such as an unknown path token.
	KindMalformed ErrorKind = iota + 1

	// KindBodyDecodeFailed means the body did not decode into the shape the path requires.
	KindBodyDecodeFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindBodyDecodeFailed:
		return "body_decode_failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// RequestError is the only error type returned by the translator.
// Every RequestError is terminal for its request and never affects later requests.
type RequestError struct {
	Kind ErrorKind

	// StatusCode is the HTTP classification. Set for KindMalformed;
	// KindBodyDecodeFailed always reports http.StatusBadRequest.
	StatusCode int

	// Message is the human-readable text for KindMalformed.
	Message string

	// Cause is the underlying decode diagnostic for KindBodyDecodeFailed.
	Cause error
}

// NewMalformed builds a KindMalformed error.
func NewMalformed(statusCode int, message string) *RequestError {
	return &RequestError{Kind: KindMalformed, StatusCode: statusCode, Message: message}
}

// NewBodyDecodeFailed wraps a decode diagnostic.
func NewBodyDecodeFailed(cause error) *RequestError {
	return &RequestError{Kind: KindBodyDecodeFailed, StatusCode: http.StatusBadRequest, Cause: cause}
}

// HTTPStatus returns the status a transport should answer with.
func (e *RequestError) HTTPStatus() int {
	if e.StatusCode == 0 {
		return http.StatusBadRequest
	}
	return e.StatusCode
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindMalformed:
		return e.Message
	case KindBodyDecodeFailed:
		return fmt.Sprintf("An error occurred when deserializing the json body of a request: %v.", e.Cause)
	default:
		return "unknown MMDS request error"
	}
}

// Unwrap exposes the decode cause so errors.Is reaches ErrUnknownVersion and friends.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinels.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrMalformedRequest:
		return e.Kind == KindMalformed
	case ErrBodyDecode:
		return e.Kind == KindBodyDecodeFailed
	}
	return false
}
