// Package errs implements the RDAP client's error taxonomy.
//
// Every error the client returns to a caller is one of the kinds below. Each
// kind carries a machine-readable Code, a human Message, optional Context,
// and wraps the underlying cause (if any) so callers can use errors.As and
// errors.Is against both the kind and the cause.
package errs

import "fmt"

// Code identifies an error kind from the RDAP client error taxonomy.
type Code string

const (
	CodeValidation     Code = "validation"
	CodeSSRF           Code = "ssrf"
	CodeBootstrap      Code = "bootstrap"
	CodeNoServerFound  Code = "no_server_found"
	CodeNetwork        Code = "network"
	CodeTimeout        Code = "timeout"
	CodeRateLimited    Code = "rate_limited"
	CodeNotFound       Code = "not_found"
	CodeProtocol       Code = "protocol"
	CodeParse          Code = "parse"
	CodeCancelled      Code = "cancelled"
)

// Error is the common shape of every error kind in the taxonomy.
type Error struct {
	Code    Code
	Message string
	Context map[string]any
	Cause   error

	retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rdap: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("rdap: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the Fetcher's retry wrapper should re-attempt
// the operation that produced this error.
func (e *Error) Retryable() bool {
	return e.retryable
}

func newErr(code Code, retryable bool, message string, context map[string]any, cause error) *Error {
	return &Error{Code: code, Message: message, Context: context, Cause: cause, retryable: retryable}
}

// Validation wraps a ValidationError: bad input before any I/O. Not retryable.
func Validation(message string, context map[string]any) *Error {
	return newErr(CodeValidation, false, message, context, nil)
}

// SSRF wraps an SSRFError: URL blocked by the SSRF guard. Not retryable.
func SSRF(message string, context map[string]any) *Error {
	return newErr(CodeSSRF, false, message, context, nil)
}

// Bootstrap wraps a BootstrapError: registry fetch/parse failed. Retryable once.
func Bootstrap(message string, cause error, context map[string]any) *Error {
	return newErr(CodeBootstrap, true, message, context, cause)
}

// NoServerFound wraps a NoServerFoundError: no registry entry covers the query. Not retryable.
func NoServerFound(message string, context map[string]any) *Error {
	return newErr(CodeNoServerFound, false, message, context, nil)
}

// Network wraps a NetworkError: DNS/connect/TLS/socket failure. Retryable.
func Network(message string, cause error, context map[string]any) *Error {
	return newErr(CodeNetwork, true, message, context, cause)
}

// Timeout wraps a TimeoutError: any phase timeout. Retryable.
func Timeout(message string, cause error, context map[string]any) *Error {
	return newErr(CodeTimeout, true, message, context, cause)
}

// RateLimited wraps a RateLimitedError: 429 from the server. Retryable, honors Retry-After.
func RateLimited(message string, retryAfter float64, context map[string]any) *Error {
	if context == nil {
		context = map[string]any{}
	}
	context["retryAfterSeconds"] = retryAfter
	return newErr(CodeRateLimited, true, message, context, nil)
}

// NotFound wraps a NotFoundError: 404 from the server. Not retried.
func NotFound(message string, context map[string]any) *Error {
	return newErr(CodeNotFound, false, message, context, nil)
}

// Protocol wraps a ProtocolError: 4xx != 429, malformed JSON, or wrong objectClass. Not retried.
func Protocol(message string, context map[string]any) *Error {
	return newErr(CodeProtocol, false, message, context, nil)
}

// Parse wraps a ParseError: normalizer failure. Not retried.
func Parse(message string, cause error, context map[string]any) *Error {
	return newErr(CodeParse, false, message, context, cause)
}

// Cancelled wraps a CancelledError: caller aborted. Not retried.
func Cancelled(cause error) *Error {
	return newErr(CodeCancelled, false, "operation cancelled", nil, cause)
}
