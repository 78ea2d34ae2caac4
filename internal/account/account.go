package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("account not found")

// Account represents a named bookkeeping account.
//
// Balance is derived state: it must equal InitialBalance plus the summed
// effect of every non-deleted transaction event referencing the account.
// Only the ledger synchronizer (incremental deltas) and the reconciliation
// repair step (absolute overwrite) are allowed to mutate it.
type Account struct {
	ID             uuid.UUID
	Name           string
	Balance        int64 // Minor currency units (cents)
	InitialBalance int64
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
