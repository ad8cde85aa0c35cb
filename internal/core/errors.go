package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnknownRecipient = "unknown_recipient"
	ErrCodeNotRecipient     = "not_recipient"
	ErrCodeMessageNotFound  = "message_not_found"
	ErrCodeStoreError       = "store_error"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrBadRequest      = errors.New("bad request")
	ErrMessageNotFound = errors.New("message not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
