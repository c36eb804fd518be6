// Package rterrors provides unified, structured error handling for the
// runtime, following the ServiceError pattern the host service layer uses
// for its own HTTP-facing errors, re-keyed to the seven error kinds this
// runtime distinguishes (config, registration, privilege, message-build,
// engine, integrity, timeout).
package rterrors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an error kind/subkind pair.
type ErrorCode string

const (
	// Config errors: malformed config file, unresolvable path label,
	// duplicate module/realm/class at startup.
	ErrCodeConfigParse       ErrorCode = "CFG_001"
	ErrCodeConfigPathLabel   ErrorCode = "CFG_002"
	ErrCodeConfigDuplicate   ErrorCode = "CFG_003"

	// Registration errors: duplicate type id, duplicate class, overload
	// ambiguity.
	ErrCodeRegDuplicateType    ErrorCode = "REG_001"
	ErrCodeRegDuplicateClass   ErrorCode = "REG_002"
	ErrCodeRegOverloadConflict ErrorCode = "REG_003"
	ErrCodeRegOverloadNoMatch  ErrorCode = "REG_004"

	// Privilege errors: caller privileges don't intersect the guard mask.
	ErrCodePrivilegeDenied ErrorCode = "PRIV_001"

	// Message-build errors.
	ErrCodeMsgBadArgs         ErrorCode = "MSG_001"
	ErrCodeMsgReceiverNotReady ErrorCode = "MSG_002"
	ErrCodeMsgRateLimited     ErrorCode = "MSG_003"

	// Engine errors: the embedded script engine returned Failed/Error.
	ErrCodeEngineFailed ErrorCode = "ENG_001"
	ErrCodeEngineError  ErrorCode = "ENG_002"

	// Integrity-check errors.
	ErrCodeIntegrityDangling         ErrorCode = "INT_001"
	ErrCodeIntegrityHalfInit         ErrorCode = "INT_002"
	ErrCodeIntegrityHashMismatch     ErrorCode = "INT_003"
	ErrCodeIntegrityResourcePressure ErrorCode = "INT_004"

	// Timeout: the engine's instruction counter exceeded its ceiling.
	ErrCodeTimeout ErrorCode = "TMO_001"
)

// RuntimeError is a structured error carrying a code, a human message, and
// an optional cause and detail map, the way ServiceError does for the host
// service layer's HTTP errors.
type RuntimeError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a detail key/value and returns the receiver for
// chaining.
func (e *RuntimeError) WithDetails(key string, value any) *RuntimeError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a RuntimeError with no cause.
func New(code ErrorCode, message string) *RuntimeError {
	return &RuntimeError{Code: code, Message: message}
}

// Wrap creates a RuntimeError around an existing cause.
func Wrap(code ErrorCode, message string, err error) *RuntimeError {
	return &RuntimeError{Code: code, Message: message, Err: err}
}

// Is reports whether err is a RuntimeError with the given code, the way
// callers distinguish error kinds without string matching.
func Is(err error, code ErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// PrivilegeDenied builds the script-visible "Process does not have
// authority" error.
func PrivilegeDenied(call string, have, need uint32) *RuntimeError {
	return New(ErrCodePrivilegeDenied, fmt.Sprintf("process does not have authority to call %s", call)).
		WithDetails("have", have).
		WithDetails("need", need)
}

// MessageBadArgs builds a BuildBadArgs message-construction error.
func MessageBadArgs(function string, reason string) *RuntimeError {
	return New(ErrCodeMsgBadArgs, fmt.Sprintf("bad arguments building message %s: %s", function, reason))
}

// MessageReceiverNotReady builds a BuildReceiverNotReady error.
func MessageReceiverNotReady(function string) *RuntimeError {
	return New(ErrCodeMsgReceiverNotReady, fmt.Sprintf("receiver not ready for %s", function))
}

// OverloadNoMatch builds the structured "no overload matches" error,
// naming the function and the actual argument types.
func OverloadNoMatch(function string, argTypeNames []string) *RuntimeError {
	return New(ErrCodeRegOverloadNoMatch, fmt.Sprintf("no overload of %s matches argument types %v", function, argTypeNames))
}

// IntegrityDangling builds an AssureIntegrity failure for a dangling
// reference.
func IntegrityDangling(what string) *RuntimeError {
	return New(ErrCodeIntegrityDangling, fmt.Sprintf("dangling reference: %s", what))
}

// IntegrityHashMismatch builds an AssureIntegrity failure for a class or
// script file whose on-disk content no longer matches the hash recorded
// when it was last scanned.
func IntegrityHashMismatch(what, path string) *RuntimeError {
	return New(ErrCodeIntegrityHashMismatch, fmt.Sprintf("content hash mismatch: %s (%s) changed on disk since it was scanned", what, path)).
		WithDetails("path", path)
}

// IntegrityResourcePressure builds an AssureIntegrity failure for host
// resource usage over a configured threshold.
func IntegrityResourcePressure(detail string) *RuntimeError {
	return New(ErrCodeIntegrityResourcePressure, detail)
}
