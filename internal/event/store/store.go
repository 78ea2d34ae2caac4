package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/event"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*event.Event, error) {
	var ev event.Event

	var kindStr string

	if err := s.Scan(
		&ev.ID, &kindStr, &ev.Amount, &ev.SourceAccountID, &ev.TargetAccountID,
		&ev.Category, &ev.Note, &ev.OccurredAt,
		&ev.CreatedAt, &ev.UpdatedAt, &ev.DeletedAt,
	); err != nil {
		return nil, err
	}

	ev.Kind = event.Kind(kindStr)

	return &ev, nil
}

const selectEventColumns = `
	id, kind, amount, source_account_id, target_account_id,
	category, note, occurred_at, created_at, updated_at, deleted_at
`

func (s *Store) CreateEvent(ctx context.Context, ev *event.Event) error {
	query := `
		INSERT INTO transaction_events
			(kind, amount, source_account_id, target_account_id, category, note, occurred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		ev.Kind,
		ev.Amount,
		ev.SourceAccountID,
		ev.TargetAccountID,
		ev.Category,
		ev.Note,
		ev.OccurredAt,
	).Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}

	return nil
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	query := `SELECT ` + selectEventColumns + `
		FROM transaction_events
		WHERE id = $1 AND deleted_at IS NULL`

	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, event.ErrNotFound
		}

		return nil, fmt.Errorf("getting event: %w", err)
	}

	return ev, nil
}

func (s *Store) ListEvents(ctx context.Context, filter event.ListFilter) ([]*event.Event, error) {
	query := `SELECT ` + selectEventColumns + `
		FROM transaction_events
		WHERE deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND (source_account_id = $%d OR target_account_id = $%d)", argIdx, argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)

		args = append(args, *filter.Kind)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY occurred_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var evs []*event.Event

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		evs = append(evs, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}

	return evs, nil
}

// ListEventsPage returns one page of non-deleted events in a stable order,
// so reconciliation can stream an unbounded history without materializing it.
func (s *Store) ListEventsPage(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	query := `SELECT ` + selectEventColumns + `
		FROM transaction_events
		WHERE deleted_at IS NULL
		ORDER BY occurred_at ASC, id ASC
		LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing event page: %w", err)
	}
	defer rows.Close()

	var evs []*event.Event

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		evs = append(evs, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}

	return evs, nil
}

func (s *Store) UpdateEvent(ctx context.Context, ev *event.Event) error {
	query := `
		UPDATE transaction_events
		SET kind = $1, amount = $2, source_account_id = $3, target_account_id = $4,
			category = $5, note = $6, occurred_at = $7, updated_at = NOW()
		WHERE id = $8 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query,
		ev.Kind,
		ev.Amount,
		ev.SourceAccountID,
		ev.TargetAccountID,
		ev.Category,
		ev.Note,
		ev.OccurredAt,
		ev.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrNotFound
	}

	return nil
}

// DeleteEvent soft-deletes: the row stays in history for audit and
// reconciliation but no longer contributes to balances.
func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE transaction_events
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrNotFound
	}

	return nil
}

// RemoveEvent deletes the row permanently. Used only to compensate a create
// that was rejected by the ledger synchronizer before it ever took effect.
func (s *Store) RemoveEvent(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transaction_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("removing event: %w", err)
	}

	return nil
}
