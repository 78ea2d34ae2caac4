// Package reconcile recomputes theoretical account balances from the full
// transaction event history and repairs drift in the cached balances. All
// triggers (HTTP action, scheduled job, ops tooling) share the same engine.
package reconcile

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/event"
	"github.com/dmaia/kakeibo/internal/ledger"
)

// Severity classifies how far a balance has drifted.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Finding reports one account whose cached balance disagrees with the value
// derived from history. Findings are ephemeral: they are computed fresh on
// every run and never treated as authoritative state.
type Finding struct {
	AccountID          uuid.UUID
	ActualBalance      int64
	TheoreticalBalance int64
	Difference         int64 // actual - theoretical
	Severity           Severity
}

// RepairOutcome records one balance overwrite performed during repair.
type RepairOutcome struct {
	AccountID     uuid.UUID
	BalanceBefore int64
	BalanceAfter  int64
	Err           error
}

// Report is the consumer-facing output of a full consistency check.
type Report struct {
	RunID           uuid.UUID
	StartedAt       time.Time
	FinishedAt      time.Time
	DryRun          bool
	EventsScanned   int
	AccountsChecked int
	Findings        []Finding
	RepairApplied   bool
	Repairs         []RepairOutcome
}

// Recompute folds the balance effect of each non-deleted event into a copy of
// the given balance map and returns the result. The fold is commutative, so
// streaming callers feed pages through it in any order, passing the returned
// map back in as the next page's input.
//
// Effects referencing an account absent from the map are orphaned (the
// account was deleted after the event was recorded); they are skipped with a
// warning rather than treated as fatal.
func Recompute(balances map[uuid.UUID]int64, events []*event.Event) map[uuid.UUID]int64 {
	result := make(map[uuid.UUID]int64, len(balances))
	for id, b := range balances {
		result[id] = b
	}

	for _, ev := range events {
		if ev.Deleted() {
			continue
		}

		for _, e := range ledger.Effects(ev) {
			if _, ok := result[e.AccountID]; !ok {
				slog.Warn("skipping effect for orphaned account",
					"event_id", ev.ID, "account_id", e.AccountID)
				continue
			}

			result[e.AccountID] += e.Delta
		}
	}

	return result
}

// DetectDrift compares cached balances against theoretical ones for every
// account present in either map. A finding is produced when the absolute
// difference exceeds tolerance; it is critical when it also exceeds
// criticalTolerance. Output order is deterministic.
func DetectDrift(actual, theoretical map[uuid.UUID]int64, tolerance, criticalTolerance int64) []Finding {
	ids := make(map[uuid.UUID]struct{}, len(actual))
	for id := range actual {
		ids[id] = struct{}{}
	}

	for id := range theoretical {
		ids[id] = struct{}{}
	}

	var findings []Finding

	for id := range ids {
		diff := actual[id] - theoretical[id]
		if abs(diff) <= tolerance {
			continue
		}

		severity := SeverityWarning
		if abs(diff) > criticalTolerance {
			severity = SeverityCritical
		}

		findings = append(findings, Finding{
			AccountID:          id,
			ActualBalance:      actual[id],
			TheoreticalBalance: theoretical[id],
			Difference:         diff,
			Severity:           severity,
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		return findings[i].AccountID.String() < findings[j].AccountID.String()
	})

	return findings
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}
