package domain

import "fmt"

// AppError is the base domain error type. Code is the stable discriminator
// surfaced to clients; Message is advisory and may change.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrInvalidInput(msg string) *AppError {
	return &AppError{Code: "INVALID_INPUT", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrDuplicate(key string) *AppError {
	return &AppError{Code: "DUPLICATE", Message: fmt.Sprintf("idempotency key already used: %s", key), Status: 409}
}

func ErrInsufficientFunds() *AppError {
	return &AppError{Code: "INSUFFICIENT_FUNDS", Message: "insufficient funds", Status: 400}
}

func ErrWrongPhase(phase string) *AppError {
	return &AppError{Code: "WRONG_PHASE", Message: fmt.Sprintf("operation not valid in phase %s", phase), Status: 409}
}

func ErrCooldown(msg string) *AppError {
	return &AppError{Code: "COOLDOWN", Message: msg, Status: 429}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: msg, Status: 429}
}

func ErrLimitExceeded(msg string) *AppError {
	return &AppError{Code: "LIMIT_EXCEEDED", Message: msg, Status: 400}
}

func ErrSolvencyBlocked(msg string) *AppError {
	return &AppError{Code: "SOLVENCY_BLOCKED", Message: msg, Status: 503}
}

func ErrTimingBuffer() *AppError {
	return &AppError{Code: "TIMING_BUFFER", Message: "cashout inside the buffer-to-crash window", Status: 409}
}

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrChainPending(msg string) *AppError {
	return &AppError{Code: "CHAIN_PENDING", Message: msg, Status: 202}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL", Message: msg, Status: 500, Cause: cause}
}
