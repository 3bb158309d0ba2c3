package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected action.
type ErrorKind string

const (
	KindWrongTurnHolder           ErrorKind = "wrong_turn_holder"
	KindWrongRoundOrStep          ErrorKind = "wrong_round_or_step"
	KindItemNotAuctionable        ErrorKind = "item_not_auctionable"
	KindBidBelowMinimum           ErrorKind = "bid_below_minimum"
	KindBidNotMultipleOfIncrement ErrorKind = "bid_not_multiple_of_increment"
	KindInsufficientFunds         ErrorKind = "insufficient_funds"
	KindAlreadyPassed             ErrorKind = "already_passed"
	KindResourceUnavailable       ErrorKind = "resource_unavailable"
	// KindNotHeld rejects selling, discarding or exchanging something the actor does not own.
	KindNotHeld ErrorKind = "not_held"
)

// RuleError is a recoverable validation failure. State is unchanged when one is returned.
type RuleError struct {
	Kind   ErrorKind
	Detail string
}

func (e *RuleError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

// Is matches any RuleError of the same kind, so errors.Is(err, ErrAlreadyPassed) works on detailed errors.
func (e *RuleError) Is(target error) bool {
	var t *RuleError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrWrongTurnHolder           = &RuleError{Kind: KindWrongTurnHolder}
	ErrWrongRoundOrStep          = &RuleError{Kind: KindWrongRoundOrStep}
	ErrItemNotAuctionable        = &RuleError{Kind: KindItemNotAuctionable}
	ErrBidBelowMinimum           = &RuleError{Kind: KindBidBelowMinimum}
	ErrBidNotMultipleOfIncrement = &RuleError{Kind: KindBidNotMultipleOfIncrement}
	ErrInsufficientFunds         = &RuleError{Kind: KindInsufficientFunds}
	ErrAlreadyPassed             = &RuleError{Kind: KindAlreadyPassed}
	ErrResourceUnavailable       = &RuleError{Kind: KindResourceUnavailable}
	ErrNotHeld                   = &RuleError{Kind: KindNotHeld}
)

// Reject builds a RuleError with a formatted detail.
func Reject(kind ErrorKind, format string, args ...any) error {
	return &RuleError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind of a rejection.
func KindOf(err error) (ErrorKind, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

// invariant panics when an internal invariant does not hold. Legal action sequences never trigger it.
func invariant(ok bool, format string, args ...any) {
	if !ok {
		panic("invariant violated: " + fmt.Sprintf(format, args...))
	}
}
