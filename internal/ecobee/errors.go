package ecobee

import (
	"errors"
	"fmt"
)

// Kind classifies a failed vendor call
type Kind int

const (
	// KindTransport covers unreachable endpoints, non-2xx responses and a
	// non-zero vendor status code.
	KindTransport Kind = iota + 1
	// KindDecode covers malformed or incomplete response payloads.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport failure"
	case KindDecode:
		return "decode failure"
	default:
		return "unknown failure"
	}
}

// RequestError is returned by every Client call that fails
type RequestError struct {
	Kind       Kind
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[ECOBEE] %s: %s (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("[ECOBEE] %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func transportError(op string, status int, err error) error {
	return &RequestError{Kind: KindTransport, Op: op, StatusCode: status, Err: err}
}

func decodeError(op string, err error) error {
	return &RequestError{Kind: KindDecode, Op: op, Err: err}
}

// IsTransport reports whether err is a transport failure from the vendor API
func IsTransport(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == KindTransport
}

// IsDecode reports whether err is a decode failure from the vendor API
func IsDecode(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == KindDecode
}
