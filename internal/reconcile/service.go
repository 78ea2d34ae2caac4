package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/account"
	"github.com/dmaia/kakeibo/internal/event"
)

//go:generate mockgen -source=service.go -destination=sources_mock.go -package=reconcile
type AccountSource interface {
	ListAccounts(ctx context.Context) ([]*account.Account, error)
	SetBalance(ctx context.Context, id uuid.UUID, balance int64) error
}

type EventSource interface {
	ListEventsPage(ctx context.Context, limit, offset int) ([]*event.Event, error)
}

// RunStore persists the audit trail of reconciliation runs and repairs.
type RunStore interface {
	RecordRun(ctx context.Context, report *Report) error
	RecordRepair(ctx context.Context, runID uuid.UUID, outcome RepairOutcome) error
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)
}

// RunRecord is one persisted run log entry.
type RunRecord struct {
	ID              uuid.UUID
	StartedAt       time.Time
	FinishedAt      time.Time
	DryRun          bool
	EventsScanned   int
	AccountsChecked int
	FindingsCount   int
	RepairApplied   bool
}

type Config struct {
	Tolerance         int64
	CriticalTolerance int64
	PageSize          int
}

type Engine struct {
	accounts AccountSource
	events   EventSource
	runs     RunStore
	cfg      Config
}

func NewEngine(accounts AccountSource, events EventSource, runs RunStore, cfg Config) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}

	return &Engine{accounts: accounts, events: events, runs: runs, cfg: cfg}
}

// RunFullCheck recomputes theoretical balances from the full event history,
// diffs them against the cached balances, and, unless dryRun is set, repairs
// any drifted account by overwriting its balance with the theoretical value.
// The history is streamed page by page, never loaded wholesale.
func (e *Engine) RunFullCheck(ctx context.Context, dryRun bool) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
	}

	accounts, err := e.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}

	actual := make(map[uuid.UUID]int64, len(accounts))
	initial := make(map[uuid.UUID]int64, len(accounts))

	for _, acc := range accounts {
		actual[acc.ID] = acc.Balance
		initial[acc.ID] = acc.InitialBalance
	}

	report.AccountsChecked = len(accounts)

	theoretical, scanned, err := e.recomputeTheoretical(ctx, initial)
	if err != nil {
		return nil, err
	}

	report.EventsScanned = scanned
	report.Findings = DetectDrift(actual, theoretical, e.cfg.Tolerance, e.cfg.CriticalTolerance)

	if !dryRun && len(report.Findings) > 0 {
		report.Repairs = e.repair(ctx, report.RunID, report.Findings)
		report.RepairApplied = true
	}

	report.FinishedAt = time.Now().UTC()

	// The report is the product; a failed audit write must not fail the run.
	if err := e.runs.RecordRun(ctx, report); err != nil {
		slog.Error("failed to record reconciliation run", "run_id", report.RunID, "error", err)
	}

	return report, nil
}

// ListRuns returns the most recent persisted run log entries.
func (e *Engine) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	return e.runs.ListRuns(ctx, limit)
}

func (e *Engine) recomputeTheoretical(ctx context.Context, initial map[uuid.UUID]int64) (map[uuid.UUID]int64, int, error) {
	theoretical := initial
	scanned := 0

	for offset := 0; ; offset += e.cfg.PageSize {
		page, err := e.events.ListEventsPage(ctx, e.cfg.PageSize, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("loading event page at offset %d: %w", offset, err)
		}

		theoretical = Recompute(theoretical, page)
		scanned += len(page)

		if len(page) < e.cfg.PageSize {
			break
		}
	}

	return theoretical, scanned, nil
}

// repair overwrites each drifted balance with its theoretical value. Event
// history is the source of truth, so the cached value always yields. A failed
// write is retried once with the same value, then surfaced in the outcome.
func (e *Engine) repair(ctx context.Context, runID uuid.UUID, findings []Finding) []RepairOutcome {
	outcomes := make([]RepairOutcome, 0, len(findings))

	for _, f := range findings {
		outcome := RepairOutcome{
			AccountID:     f.AccountID,
			BalanceBefore: f.ActualBalance,
			BalanceAfter:  f.TheoreticalBalance,
		}

		err := e.accounts.SetBalance(ctx, f.AccountID, f.TheoreticalBalance)
		if err != nil {
			slog.Warn("repair write failed, retrying once",
				"run_id", runID, "account_id", f.AccountID, "error", err)
			err = e.accounts.SetBalance(ctx, f.AccountID, f.TheoreticalBalance)
		}

		if err != nil {
			outcome.Err = fmt.Errorf("repairing account %s: %w", f.AccountID, err)
			slog.Error("repair failed after retry",
				"run_id", runID, "account_id", f.AccountID, "error", err)
		} else {
			slog.Info("repaired account balance",
				"run_id", runID, "account_id", f.AccountID,
				"before", f.ActualBalance, "after", f.TheoreticalBalance)
		}

		if recordErr := e.runs.RecordRepair(ctx, runID, outcome); recordErr != nil {
			slog.Error("failed to record repair audit entry",
				"run_id", runID, "account_id", f.AccountID, "error", recordErr)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
