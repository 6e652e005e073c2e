package core

import "fmt"

// Error codes for domain errors.
const (
	ErrCodeNotYourTurn        = "not_your_turn"
	ErrCodeIllegalMove        = "illegal_move"
	ErrCodeMatchNotReady      = "match_not_ready"
	ErrCodeMatchFinished      = "match_finished"
	ErrCodeMatchFull          = "match_full"
	ErrCodeAlreadyJoined      = "already_joined"
	ErrCodeNotInMatch         = "not_in_match"
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeInvalidMessage     = "invalid_message"
	ErrCodeUnsupportedVersion = "unsupported_version"
	ErrCodeShuttingDown       = "shutting_down"
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

func coreErrorf(code, format string, args ...any) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}
