package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/account"
	"github.com/dmaia/kakeibo/internal/event"
)

//go:generate mockgen -source=service.go -destination=balance_store_mock.go -package=ledger
type BalanceStore interface {
	GetBalance(ctx context.Context, id uuid.UUID) (int64, error)
	ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) error
}

// NotifyFunc is called with the affected account ids after balances change.
type NotifyFunc func(accountIDs []uuid.UUID)

// Policy holds the write-time rules the synchronizer enforces.
type Policy struct {
	// EnforceNonNegative rejects expenses that would take the source
	// account below zero.
	EnforceNonNegative bool
}

// Synchronizer applies the balance effect of a single event mutation to the
// balance store. It holds no in-process lock: concurrent calls touching the
// same account serialize at the store's atomic increment.
type Synchronizer struct {
	balances BalanceStore
	policy   Policy
	notify   NotifyFunc
}

func NewSynchronizer(balances BalanceStore, policy Policy) *Synchronizer {
	return &Synchronizer{balances: balances, policy: policy}
}

// OnBalancesChanged registers a callback invoked after successful balance
// mutations. Used by caches and UI refresh hooks.
func (s *Synchronizer) OnBalancesChanged(fn NotifyFunc) {
	s.notify = fn
}

// ApplyCreate validates the event and applies its effect. Each referenced
// account is mutated with one atomic increment; for transfers the two legs
// are independent writes, so a failed second leg leaves a transient imbalance
// that reconciliation detects and repairs.
func (s *Synchronizer) ApplyCreate(ctx context.Context, ev *event.Event) error {
	if err := s.validate(ctx, ev); err != nil {
		return err
	}

	if _, err := s.applyEntries(ctx, Effects(ev)); err != nil {
		return err
	}

	s.notifyChanged(ev)

	return nil
}

// ApplyUpdate treats an edit as "reverse old effect, apply new effect" in one
// logical unit. If applying the new effect fails after the old one was
// reversed, the old effect is re-applied before returning, so callers never
// observe a half-applied update.
func (s *Synchronizer) ApplyUpdate(ctx context.Context, oldEv, newEv *event.Event) error {
	if err := s.validate(ctx, newEv); err != nil {
		return err
	}

	oldEntries := Effects(oldEv)

	if n, err := s.applyEntries(ctx, Reversed(oldEv)); err != nil {
		s.compensate(ctx, oldEntries[:n])
		return fmt.Errorf("reversing old effect: %w", err)
	}

	if n, err := s.applyEntries(ctx, Effects(newEv)); err != nil {
		s.compensate(ctx, Reversed(newEv)[:n])
		s.compensate(ctx, oldEntries)

		return fmt.Errorf("applying new effect: %w", err)
	}

	s.notifyChanged(oldEv, newEv)

	return nil
}

// ApplyDelete reverses the event's effect. Legs referencing accounts that no
// longer exist are skipped: there is no balance left to correct.
func (s *Synchronizer) ApplyDelete(ctx context.Context, ev *event.Event) error {
	for _, e := range Reversed(ev) {
		err := s.balances.ApplyDelta(ctx, e.AccountID, e.Delta)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				slog.Warn("skipping reversal for orphaned account",
					"event_id", ev.ID, "account_id", e.AccountID)
				continue
			}

			return fmt.Errorf("reversing effect: %w", err)
		}
	}

	s.notifyChanged(ev)

	return nil
}

func (s *Synchronizer) validate(ctx context.Context, ev *event.Event) error {
	if ev.Amount <= 0 {
		return ErrNegativeOrZeroAmount
	}

	switch ev.Kind {
	case event.KindIncome, event.KindExpense:
		if ev.TargetAccountID != nil {
			return ErrInvalidTransferTarget
		}
	case event.KindTransfer:
		if ev.TargetAccountID == nil {
			return ErrInvalidTransferTarget
		}
	default:
		return fmt.Errorf("ledger: unknown event kind %q", ev.Kind)
	}

	sourceBalance, err := s.balances.GetBalance(ctx, ev.SourceAccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrAccountNotFound
		}

		return fmt.Errorf("resolving source account: %w", err)
	}

	if ev.Kind == event.KindTransfer && *ev.TargetAccountID != ev.SourceAccountID {
		if _, err := s.balances.GetBalance(ctx, *ev.TargetAccountID); err != nil {
			if errors.Is(err, account.ErrNotFound) {
				return ErrInvalidTransferTarget
			}

			return fmt.Errorf("resolving target account: %w", err)
		}
	}

	if s.policy.EnforceNonNegative && ev.Kind == event.KindExpense && sourceBalance < ev.Amount {
		return ErrInsufficientBalance
	}

	return nil
}

// applyEntries applies deltas one atomic increment at a time and returns how
// many were applied. There is no cross-account transaction in the store, so a
// partial apply is left in place for the caller to compensate or for
// reconciliation to repair.
func (s *Synchronizer) applyEntries(ctx context.Context, entries []Entry) (int, error) {
	for i, e := range entries {
		if err := s.balances.ApplyDelta(ctx, e.AccountID, e.Delta); err != nil {
			return i, fmt.Errorf("applying delta to account %s: %w", e.AccountID, err)
		}
	}

	return len(entries), nil
}

// compensate re-applies entries to undo a partial mutation. Best effort: a
// failed write here only widens the drift that reconciliation repairs.
func (s *Synchronizer) compensate(ctx context.Context, entries []Entry) {
	for _, e := range entries {
		if err := s.balances.ApplyDelta(ctx, e.AccountID, e.Delta); err != nil {
			slog.Error("failed to compensate balance delta",
				"account_id", e.AccountID, "delta", e.Delta, "error", err)
		}
	}
}

func (s *Synchronizer) notifyChanged(evs ...*event.Event) {
	if s.notify == nil {
		return
	}

	seen := make(map[uuid.UUID]struct{})

	var ids []uuid.UUID

	for _, ev := range evs {
		for _, e := range Effects(ev) {
			if _, ok := seen[e.AccountID]; ok {
				continue
			}

			seen[e.AccountID] = struct{}{}

			ids = append(ids, e.AccountID)
		}
	}

	s.notify(ids)
}
