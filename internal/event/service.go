package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=event
type Repository interface {
	CreateEvent(ctx context.Context, ev *Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	ListEvents(ctx context.Context, filter ListFilter) ([]*Event, error)
	UpdateEvent(ctx context.Context, ev *Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	RemoveEvent(ctx context.Context, id uuid.UUID) error
}

// LedgerSync applies the balance effect of an event mutation to the account
// balance store. Implemented by the ledger synchronizer.
type LedgerSync interface {
	ApplyCreate(ctx context.Context, ev *Event) error
	ApplyUpdate(ctx context.Context, oldEv, newEv *Event) error
	ApplyDelete(ctx context.Context, ev *Event) error
}

type Service struct {
	repo   Repository
	ledger LedgerSync
}

func NewService(repo Repository, ledger LedgerSync) *Service {
	return &Service{repo: repo, ledger: ledger}
}

type CreateParams struct {
	Kind            Kind
	Amount          int64
	SourceAccountID uuid.UUID
	TargetAccountID *uuid.UUID
	Category        string
	Note            string
	OccurredAt      time.Time
}

type ListFilter struct {
	AccountID *uuid.UUID
	Kind      *Kind
	StartDate *time.Time
	EndDate   *time.Time
}

// Create persists the event and then synchronizes account balances. If the
// synchronizer rejects the event, the persisted row is removed again so
// history only contains events that took effect. A balance write failure
// after persistence is left for reconciliation to repair.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Event, error) {
	ev := &Event{
		Kind:            params.Kind,
		Amount:          params.Amount,
		SourceAccountID: params.SourceAccountID,
		TargetAccountID: params.TargetAccountID,
		Category:        params.Category,
		Note:            params.Note,
		OccurredAt:      params.OccurredAt,
	}

	if err := s.repo.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}

	if err := s.ledger.ApplyCreate(ctx, ev); err != nil {
		if removeErr := s.repo.RemoveEvent(ctx, ev.ID); removeErr != nil {
			slog.Error("failed to remove rejected event", "event_id", ev.ID, "error", removeErr)
		}

		return nil, err
	}

	return ev, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.repo.GetEvent(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Event, error) {
	return s.repo.ListEvents(ctx, filter)
}

type UpdateParams struct {
	Kind            *Kind
	Amount          *int64
	SourceAccountID *uuid.UUID
	TargetAccountID *uuid.UUID
	Category        *string
	Note            *string
	OccurredAt      *time.Time
}

// Update edits an event as "reverse old effect, apply new effect". The stored
// row is written first; if the synchronizer rejects the new shape, the old row
// is restored so callers never observe a half-applied update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Event, error) {
	oldEv, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	newEv := *oldEv
	if params.Kind != nil {
		newEv.Kind = *params.Kind
	}

	if params.Amount != nil {
		newEv.Amount = *params.Amount
	}

	if params.SourceAccountID != nil {
		newEv.SourceAccountID = *params.SourceAccountID
	}

	if params.TargetAccountID != nil {
		newEv.TargetAccountID = params.TargetAccountID
	}

	if params.Category != nil {
		newEv.Category = *params.Category
	}

	if params.Note != nil {
		newEv.Note = *params.Note
	}

	if params.OccurredAt != nil {
		newEv.OccurredAt = *params.OccurredAt
	}

	// A kind change away from transfer drops the target automatically; a
	// change to transfer still requires an explicit target.
	if newEv.Kind != KindTransfer {
		newEv.TargetAccountID = nil
	}

	if err := s.repo.UpdateEvent(ctx, &newEv); err != nil {
		return nil, err
	}

	if err := s.ledger.ApplyUpdate(ctx, oldEv, &newEv); err != nil {
		if restoreErr := s.repo.UpdateEvent(ctx, oldEv); restoreErr != nil {
			slog.Error("failed to restore event after rejected update",
				"event_id", oldEv.ID, "error", restoreErr)
		}

		return nil, err
	}

	return &newEv, nil
}

// Delete soft-deletes the event and reverses its balance effect.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ev, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return err
	}

	if err := s.ledger.ApplyDelete(ctx, ev); err != nil {
		return fmt.Errorf("reversing deleted event: %w", err)
	}

	return nil
}
