package model

import (
	"errors"
	"fmt"
)

// Kind is a stable error category. Callers branch on Kind (or Code) and never on
// Error() strings.
type Kind string

const (
	KindConfiguration    Kind = "Configuration"
	KindTransientNetwork Kind = "TransientNetwork"
	KindRejection        Kind = "Rejection"
	KindResource         Kind = "Resource"
	KindTimeout          Kind = "Timeout"
	KindInternal         Kind = "Internal"
)

// Code names one failure within a Kind.
type Code string

const (
	CodeInvalidKeyFormat   Code = "INVALID_KEY_FORMAT"
	CodeKeyMismatch        Code = "KEY_MISMATCH"
	CodeUnknownNetwork     Code = "UNKNOWN_NETWORK"
	CodeInvalidEntityID    Code = "INVALID_ENTITY_ID"
	CodeInvalidConfig      Code = "INVALID_CONFIG"
	CodeNodeUnreachable    Code = "NODE_UNREACHABLE"
	CodeSubmissionRejected Code = "SUBMISSION_REJECTED"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"
	CodeTransactionFailed  Code = "TRANSACTION_FAILED"
	CodeResourceNotFound   Code = "RESOURCE_NOT_FOUND"
	CodeDecodeError        Code = "DECODE_ERROR"
	CodeReceiptTimeout     Code = "RECEIPT_TIMEOUT"
	CodeSessionClosed      Code = "SESSION_CLOSED"
	CodeInternal           Code = "INTERNAL"
)

var codeKinds = map[Code]Kind{
	CodeInvalidKeyFormat:   KindConfiguration,
	CodeKeyMismatch:        KindConfiguration,
	CodeUnknownNetwork:     KindConfiguration,
	CodeInvalidEntityID:    KindConfiguration,
	CodeInvalidConfig:      KindConfiguration,
	CodeSessionClosed:      KindConfiguration,
	CodeNodeUnreachable:    KindTransientNetwork,
	CodeSubmissionRejected: KindRejection,
	CodePayloadTooLarge:    KindRejection,
	CodeTransactionFailed:  KindRejection,
	CodeResourceNotFound:   KindResource,
	CodeDecodeError:        KindResource,
	CodeReceiptTimeout:     KindTimeout,
	CodeInternal:           KindInternal,
}

// Kind returns the category for c.
func (c Code) Kind() Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return KindInternal
}

// Error is the structured error type surfaced by every layer.
//
// Message is intended for humans; do not match on it. Cause holds the original
// lower-layer error when there is one.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Message == "" && e.Cause == nil:
		return string(e.Code)
	case e.Cause == nil:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error carrying the same Code, so the exported sentinels work
// with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Kind returns the category of the error.
func (e *Error) Kind() Kind {
	if e == nil {
		return ""
	}
	return e.Code.Kind()
}

var (
	ErrInvalidKeyFormat   = &Error{Code: CodeInvalidKeyFormat}
	ErrKeyMismatch        = &Error{Code: CodeKeyMismatch}
	ErrUnknownNetwork     = &Error{Code: CodeUnknownNetwork}
	ErrInvalidEntityID    = &Error{Code: CodeInvalidEntityID}
	ErrInvalidConfig      = &Error{Code: CodeInvalidConfig}
	ErrNodeUnreachable    = &Error{Code: CodeNodeUnreachable}
	ErrSubmissionRejected = &Error{Code: CodeSubmissionRejected}
	ErrPayloadTooLarge    = &Error{Code: CodePayloadTooLarge}
	ErrTransactionFailed  = &Error{Code: CodeTransactionFailed}
	ErrResourceNotFound   = &Error{Code: CodeResourceNotFound}
	ErrDecodeError        = &Error{Code: CodeDecodeError}
	ErrReceiptTimeout     = &Error{Code: CodeReceiptTimeout}
	ErrSessionClosed      = &Error{Code: CodeSessionClosed}
)

// NewError returns an *Error without a cause.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf formats a message into a new *Error.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the Code of the outermost *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

// IsCode reports whether err is (or wraps) an *Error with the given Code.
func IsCode(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal
	}
	return e.Kind()
}

// Retriable reports whether err may succeed against another node.
func Retriable(err error) bool {
	return KindOf(err) == KindTransientNetwork
}

// LookupCode returns the Code spelled s when it is one of the known codes.
func LookupCode(s string) (Code, bool) {
	c := Code(s)
	_, ok := codeKinds[c]
	return c, ok
}
