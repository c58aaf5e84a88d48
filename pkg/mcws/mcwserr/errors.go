// Package mcwserr defines the error kinds shared by the MCWS client packages.
package mcwserr

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode classifies an error for logs and metrics.
type ErrorCode string

const (
	ErrorCodeUnresolvableKey ErrorCode = "UNRESOLVABLE_KEY"
	ErrorCodeUnreachable     ErrorCode = "UNREACHABLE"
	ErrorCodeTransport       ErrorCode = "TRANSPORT_ERROR"
	ErrorCodeDecode          ErrorCode = "DECODE_ERROR"
	ErrorCodeEncode          ErrorCode = "ENCODE_ERROR"
	ErrorCodeServerFailure   ErrorCode = "SERVER_FAILURE"
	ErrorCodeUnknown         ErrorCode = "UNKNOWN"
)

// ErrUnreachable is returned by requests when resolution finished but no
// candidate address answered.
var ErrUnreachable = errors.New("mcws: server unreachable")

// UnresolvableKeyError is returned when the lookup service rejects an access key.
type UnresolvableKeyError struct {
	Key     string
	Message string
}

func (e *UnresolvableKeyError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mcws: access key %q could not be resolved", e.Key)
	}
	return fmt.Sprintf("mcws: access key %q could not be resolved: %s", e.Key, e.Message)
}

// TransportError is a failed HTTP exchange: either a non-success status or a
// network error. StatusCode is zero for network errors.
type TransportError struct {
	Extension  string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("mcws request %s failed: http %d", e.Extension, e.StatusCode)
	}
	return fmt.Sprintf("mcws request %s failed: %v", e.Extension, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError indicates a malformed or unexpected response payload.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("mcws decode %s", e.What)
	}
	return fmt.Sprintf("mcws decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError indicates a value that cannot be serialized for its field.
type EncodeError struct {
	Field string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("mcws encode field %q: %v", e.Field, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// FailureError is a well-formed reply whose root carries Status="Failure".
type FailureError struct {
	Information string
}

func (e *FailureError) Error() string {
	if e.Information == "" {
		return "mcws server reported failure"
	}
	return "mcws server reported failure: " + e.Information
}

// CodeOf maps an error to its ErrorCode.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var unresolvable *UnresolvableKeyError
	var transport *TransportError
	var decode *DecodeError
	var encode *EncodeError
	var failure *FailureError

	switch {
	case errors.Is(err, ErrUnreachable):
		return ErrorCodeUnreachable
	case errors.As(err, &unresolvable):
		return ErrorCodeUnresolvableKey
	case errors.As(err, &transport):
		return ErrorCodeTransport
	case errors.As(err, &decode):
		return ErrorCodeDecode
	case errors.As(err, &encode):
		return ErrorCodeEncode
	case errors.As(err, &failure):
		return ErrorCodeServerFailure
	default:
		return ErrorCodeUnknown
	}
}

// IsRetryable reports whether a request failure may be recovered by
// re-resolving the endpoint and trying again.
func IsRetryable(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}

// StatusCode returns the HTTP status carried by a TransportError, or zero.
func StatusCode(err error) int {
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.StatusCode
	}
	return 0
}
