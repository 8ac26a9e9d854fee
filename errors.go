package rdap

import "github.com/rdapkit/rdap/errs"

// Error is the error type returned by every Client operation. Use
// errors.As with a target of type *rdap.Error (var e *rdap.Error;
// errors.As(err, &e)) and check e.Code against the Code* constants
// to branch on error kind without importing rdap/errs directly.
type Error = errs.Error

// Code identifies an error kind from the taxonomy in spec.md §7.
type Code = errs.Code

const (
	CodeValidation    = errs.CodeValidation
	CodeSSRF          = errs.CodeSSRF
	CodeBootstrap     = errs.CodeBootstrap
	CodeNoServerFound = errs.CodeNoServerFound
	CodeNetwork       = errs.CodeNetwork
	CodeTimeout       = errs.CodeTimeout
	CodeRateLimited   = errs.CodeRateLimited
	CodeNotFound      = errs.CodeNotFound
	CodeProtocol      = errs.CodeProtocol
	CodeParse         = errs.CodeParse
	CodeCancelled     = errs.CodeCancelled
)
