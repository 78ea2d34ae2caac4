// Package ledger keeps the denormalized per-account balances in sync with the
// append-style transaction event history. All balance mutations are expressed
// as signed deltas applied through the store's atomic increment, never as
// read-modify-write.
package ledger

import (
	"errors"

	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/event"
)

var (
	ErrAccountNotFound       = errors.New("ledger: account not found")
	ErrInvalidTransferTarget = errors.New("ledger: invalid transfer target")
	ErrNegativeOrZeroAmount  = errors.New("ledger: amount must be positive")
	ErrInsufficientBalance   = errors.New("ledger: insufficient balance")
)

// Entry is the signed contribution of one event to one account's balance.
type Entry struct {
	AccountID uuid.UUID
	Delta     int64
}

// Effects returns the balance entries produced by an event. A self-transfer
// yields two cancelling entries rather than none, so history stays complete
// for audit and reconciliation.
func Effects(ev *event.Event) []Entry {
	switch ev.Kind {
	case event.KindIncome:
		return []Entry{{AccountID: ev.SourceAccountID, Delta: ev.Amount}}
	case event.KindExpense:
		return []Entry{{AccountID: ev.SourceAccountID, Delta: -ev.Amount}}
	case event.KindTransfer:
		if ev.TargetAccountID == nil {
			return []Entry{{AccountID: ev.SourceAccountID, Delta: -ev.Amount}}
		}

		return []Entry{
			{AccountID: ev.SourceAccountID, Delta: -ev.Amount},
			{AccountID: *ev.TargetAccountID, Delta: ev.Amount},
		}
	}

	return nil
}

// Reversed returns the entries that undo the event's effect.
func Reversed(ev *event.Event) []Entry {
	entries := Effects(ev)
	reversed := make([]Entry, len(entries))

	for i, e := range entries {
		reversed[i] = Entry{AccountID: e.AccountID, Delta: -e.Delta}
	}

	return reversed
}
