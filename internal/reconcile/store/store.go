package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/reconcile"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RecordRun(ctx context.Context, report *reconcile.Report) error {
	query := `
		INSERT INTO reconciliation_runs
			(id, started_at, finished_at, dry_run, events_scanned, accounts_checked, findings_count, repair_applied)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		report.RunID,
		report.StartedAt,
		report.FinishedAt,
		report.DryRun,
		report.EventsScanned,
		report.AccountsChecked,
		len(report.Findings),
		report.RepairApplied,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	return nil
}

func (s *Store) RecordRepair(ctx context.Context, runID uuid.UUID, outcome reconcile.RepairOutcome) error {
	query := `
		INSERT INTO balance_repairs (run_id, account_id, balance_before, balance_after, failed, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := s.db.ExecContext(ctx, query,
		runID,
		outcome.AccountID,
		outcome.BalanceBefore,
		outcome.BalanceAfter,
		outcome.Err != nil,
	)
	if err != nil {
		return fmt.Errorf("recording repair: %w", err)
	}

	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]*reconcile.RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, dry_run, events_scanned, accounts_checked, findings_count, repair_applied
		FROM reconciliation_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*reconcile.RunRecord

	for rows.Next() {
		var run reconcile.RunRecord

		if err := rows.Scan(
			&run.ID, &run.StartedAt, &run.FinishedAt, &run.DryRun,
			&run.EventsScanned, &run.AccountsChecked, &run.FindingsCount, &run.RepairApplied,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}

	return runs, nil
}
