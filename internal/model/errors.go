package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidAmount is returned for non-positive transfer amounts and negative stored values.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidQuantity is returned for purchase quantities outside the allowed range.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrItemNotFound is returned when an item ID is not in the catalog.
	ErrItemNotFound = errors.New("item not found")

	// ErrInsufficientFunds is matched by *InsufficientFundsError.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer is returned when sender and recipient are the same user.
	ErrSelfTransfer = errors.New("cannot transfer to self")

	// ErrAlreadyClaimed is matched by *AlreadyClaimedError.
	ErrAlreadyClaimed = errors.New("daily bonus already claimed")
)

// InsufficientFundsError carries the amounts behind a rejected debit.
type InsufficientFundsError struct {
	Need int64
	Have int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d, have %d", e.Need, e.Have)
}

// Is lets errors.Is match ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Shortfall returns how many cookies are missing.
func (e *InsufficientFundsError) Shortfall() int64 {
	return e.Need - e.Have
}

// AlreadyClaimedError carries the time left until the next daily claim.
type AlreadyClaimedError struct {
	Remaining time.Duration
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("daily bonus already claimed, %s remaining", e.Remaining)
}

// Is lets errors.Is match ErrAlreadyClaimed.
func (e *AlreadyClaimedError) Is(target error) bool {
	return target == ErrAlreadyClaimed
}

// IsUserError reports whether err is an expected, user-facing economy outcome
// rather than a system failure.
func IsUserError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrAlreadyClaimed):
		return true
	}
	return false
}
