package spendbuilder

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrConfiguration is returned when a payment plan is composed
	// incorrectly: a second change output, a second spend policy, or a
	// missing policy at resolution time.
	ErrConfiguration = errors.New("invalid payment plan")

	// ErrInsufficientFunds is returned when the coins selected under the
	// active spend policy cannot cover the requested outputs plus fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrValidation is returned when a redeemer cannot produce a witness
	// that satisfies its coin's locking script.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidKey is returned when a secret or public key fails basic
	// domain checks.
	ErrInvalidKey = errors.New("invalid key")
)

// InsufficientFundsError describes a failed coin selection. It unwraps to
// ErrInsufficientFunds.
type InsufficientFundsError struct {
	// Available is the value of the coins that were selected (or of the
	// whole ledger when selection ran out of coins).
	Available btcutil.Amount

	// Requested is the sum of all non-change outputs.
	Requested btcutil.Amount

	// Fee is the fee that was required on top of Requested.
	Fee btcutil.Amount
}

// Error satisfies the builtin error interface.
func (e *InsufficientFundsError) Error() string {
	total := e.Requested + e.Fee
	if e.Fee == 0 {
		return fmt.Sprintf("insufficient funds: transaction requires "+
			"%v input but only %v spendable", total, e.Available)
	}
	return fmt.Sprintf("insufficient funds: transaction requires %v input "+
		"(%v output + %v fee) but only %v spendable", total,
		e.Requested, e.Fee, e.Available)
}

// Unwrap returns ErrInsufficientFunds so callers can use errors.Is.
func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
