package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("event not found")

// Kind represents the type of transaction event.
type Kind string

const (
	KindIncome   Kind = "income"
	KindExpense  Kind = "expense"
	KindTransfer Kind = "transfer"
)

// Event is a single entry in the append-style transaction history.
//
// Amount is always a positive number of minor currency units; the sign of its
// balance effect is derived from Kind. TargetAccountID is set if and only if
// Kind is KindTransfer. Deleted events stay in history for audit and
// reconciliation but contribute nothing to balances.
type Event struct {
	ID              uuid.UUID
	Kind            Kind
	Amount          int64 // Minor currency units (cents)
	SourceAccountID uuid.UUID
	TargetAccountID *uuid.UUID
	Category        string
	Note            string
	OccurredAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	DeletedAt       *time.Time
}

// Deleted reports whether the event has been soft-deleted.
func (e *Event) Deleted() bool {
	return e.DeletedAt != nil
}
