package model

import "fmt"

// ErrValidation is returned by service methods when the caller supplies invalid
// input. Handlers should convert this to HTTP 400 rather than 500.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }

// ErrAuthorization is returned when the acting principal lacks rights over
// the target entity. Handlers convert this to HTTP 403.
type ErrAuthorization struct{ Msg string }

func (e *ErrAuthorization) Error() string { return e.Msg }

// ErrConflict is returned on unique-key or monotonicity violations — e.g. an
// offer that is already purchased. Handlers convert this to HTTP 409; callers
// must never retry it.
type ErrConflict struct{ Msg string }

func (e *ErrConflict) Error() string { return e.Msg }

// ErrInsufficientFunds is a distinguished validation error raised by the
// balance keeper when an escrow would exceed available balance.
type ErrInsufficientFunds struct {
	Available, Requested float64
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: available %.2f, requested %.2f", e.Available, e.Requested)
}

// ErrAgent is returned when the LLM provider fails or produces an
// unparseable response after all retries. The inspection engine treats this
// as a no-op for the current step; the bot dispatcher treats it as "emit no
// offer".
type ErrAgent struct{ Msg string }

func (e *ErrAgent) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ErrValidation{Msg: fmt.Sprintf(format, args...)}
}

func Authorizationf(format string, args ...any) error {
	return &ErrAuthorization{Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &ErrConflict{Msg: fmt.Sprintf(format, args...)}
}
