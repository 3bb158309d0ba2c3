package ports

import "errors"

// BankID is the holder id of the bank in every collaborator.
const BankID = "bank"

// ErrInsufficientCash is returned when a holder cannot cover a transfer from unblocked cash.
var ErrInsufficientCash = errors.New("insufficient unblocked cash")

// Ledger owns every cash balance: participants, companies and the bank.
type Ledger interface {
	// Cash returns the total cash of a holder, blocked amounts included.
	Cash(holder string) int64

	// Blocked returns the cash escrowed against standing bids.
	Blocked(holder string) int64

	// Transfer moves amount from one holder to another. Only the bank may go negative.
	Transfer(from, to string, amount int64) error

	// BlockCash escrows amount of a participant's cash.
	BlockCash(participant string, amount int64) error

	// UnblockCash releases previously escrowed cash.
	UnblockCash(participant string, amount int64) error

	// BankCash returns what is left in the bank.
	BankCash() int64
}
