package model

import "fmt"

// ErrorCode names a stable failure class. Codes are part of the JSON
// surface, so programs may branch on them; messages are for humans only.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrInvalidCID       ErrorCode = "INVALID_CID"
	ErrInvalidKind      ErrorCode = "INVALID_KIND"
	ErrInvalidAddress   ErrorCode = "INVALID_ADDRESS"
	ErrInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrInvalidPayload   ErrorCode = "INVALID_PAYLOAD"
	ErrInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	ErrMissingCAS       ErrorCode = "MISSING_CAS"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrCIDMismatch      ErrorCode = "CID_MISMATCH"
	ErrInternal         ErrorCode = "INTERNAL"
)

// CodedError pairs an ErrorCode with a human-readable message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return ""
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// Errorf is NewError with Sprintf formatting for the message.
func Errorf(code ErrorCode, format string, args ...any) *CodedError {
	return NewError(code, fmt.Sprintf(format, args...))
}
