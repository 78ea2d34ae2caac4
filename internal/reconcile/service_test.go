package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaia/kakeibo/internal/account"
	"github.com/dmaia/kakeibo/internal/event"
	"github.com/dmaia/kakeibo/internal/reconcile"
)

// In-memory fakes for the engine's sources.

type fakeAccounts struct {
	accounts map[uuid.UUID]*account.Account
	setFails map[uuid.UUID]int // remaining SetBalance failures per account
}

func newFakeAccounts(accs ...*account.Account) *fakeAccounts {
	f := &fakeAccounts{
		accounts: make(map[uuid.UUID]*account.Account),
		setFails: make(map[uuid.UUID]int),
	}
	for _, acc := range accs {
		f.accounts[acc.ID] = acc
	}

	return f
}

func (f *fakeAccounts) ListAccounts(_ context.Context) ([]*account.Account, error) {
	var out []*account.Account
	for _, acc := range f.accounts {
		out = append(out, acc)
	}

	return out, nil
}

func (f *fakeAccounts) SetBalance(_ context.Context, id uuid.UUID, balance int64) error {
	if f.setFails[id] > 0 {
		f.setFails[id]--
		return errors.New("write failed")
	}

	acc, ok := f.accounts[id]
	if !ok {
		return account.ErrNotFound
	}

	acc.Balance = balance

	return nil
}

type fakeEvents struct {
	events    []*event.Event
	pageCalls int
}

func (f *fakeEvents) ListEventsPage(_ context.Context, limit, offset int) ([]*event.Event, error) {
	f.pageCalls++

	if offset >= len(f.events) {
		return nil, nil
	}

	end := offset + limit
	if end > len(f.events) {
		end = len(f.events)
	}

	return f.events[offset:end], nil
}

type fakeRuns struct {
	runs    []*reconcile.Report
	repairs []reconcile.RepairOutcome
}

func (f *fakeRuns) RecordRun(_ context.Context, report *reconcile.Report) error {
	f.runs = append(f.runs, report)
	return nil
}

func (f *fakeRuns) RecordRepair(_ context.Context, _ uuid.UUID, outcome reconcile.RepairOutcome) error {
	f.repairs = append(f.repairs, outcome)
	return nil
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]*reconcile.RunRecord, error) {
	var out []*reconcile.RunRecord
	for _, r := range f.runs {
		out = append(out, &reconcile.RunRecord{ID: r.RunID})
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func testConfig() reconcile.Config {
	return reconcile.Config{Tolerance: 1, CriticalTolerance: 50, PageSize: 500}
}

func TestEngine_RunFullCheck_DryRun(t *testing.T) {
	// Cached balance says 900, history says 1000-200=800.
	accA := &account.Account{ID: accountA, Balance: 900, InitialBalance: 1000}
	accounts := newFakeAccounts(accA)
	events := &fakeEvents{events: []*event.Event{expense(accountA, 200)}}
	runs := &fakeRuns{}

	engine := reconcile.NewEngine(accounts, events, runs, testConfig())

	report, err := engine.RunFullCheck(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, accountA, report.Findings[0].AccountID)
	assert.Equal(t, int64(900), report.Findings[0].ActualBalance)
	assert.Equal(t, int64(800), report.Findings[0].TheoreticalBalance)
	assert.Equal(t, int64(100), report.Findings[0].Difference)
	assert.Equal(t, reconcile.SeverityCritical, report.Findings[0].Severity)

	assert.True(t, report.DryRun)
	assert.False(t, report.RepairApplied)
	assert.Equal(t, int64(900), accA.Balance, "dry run must not mutate balances")

	require.Len(t, runs.runs, 1, "run must be recorded for audit")
}

func TestEngine_RunFullCheck_RepairIsIdempotent(t *testing.T) {
	accA := &account.Account{ID: accountA, Balance: 900, InitialBalance: 1000}
	accounts := newFakeAccounts(accA)
	events := &fakeEvents{events: []*event.Event{expense(accountA, 200)}}
	runs := &fakeRuns{}

	engine := reconcile.NewEngine(accounts, events, runs, testConfig())

	first, err := engine.RunFullCheck(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, first.Findings, 1)
	assert.True(t, first.RepairApplied)
	assert.Equal(t, int64(800), accA.Balance, "repair overwrites from history")

	require.Len(t, runs.repairs, 1)
	assert.Equal(t, int64(900), runs.repairs[0].BalanceBefore)
	assert.Equal(t, int64(800), runs.repairs[0].BalanceAfter)

	// Second run with no new events must find nothing.
	second, err := engine.RunFullCheck(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, second.Findings)
	assert.False(t, second.RepairApplied)
}

func TestEngine_RunFullCheck_NoDriftWithinTolerance(t *testing.T) {
	// Drift of exactly the tolerance (1 minor unit) is ignored.
	accA := &account.Account{ID: accountA, Balance: 801, InitialBalance: 1000}
	accounts := newFakeAccounts(accA)
	events := &fakeEvents{events: []*event.Event{expense(accountA, 200)}}

	engine := reconcile.NewEngine(accounts, events, &fakeRuns{}, testConfig())

	report, err := engine.RunFullCheck(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
}

func TestEngine_RunFullCheck_StreamsPages(t *testing.T) {
	accA := &account.Account{ID: accountA, Balance: 100, InitialBalance: 500}
	accounts := newFakeAccounts(accA)

	var evs []*event.Event
	for i := 0; i < 5; i++ {
		evs = append(evs, expense(accountA, 100))
	}

	events := &fakeEvents{events: evs}

	cfg := testConfig()
	cfg.PageSize = 2

	engine := reconcile.NewEngine(accounts, events, &fakeRuns{}, cfg)

	report, err := engine.RunFullCheck(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 5, report.EventsScanned)
	assert.Equal(t, 3, events.pageCalls)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, int64(0), report.Findings[0].TheoreticalBalance)
}

func TestEngine_Repair_RetriesOnce(t *testing.T) {
	t.Run("SucceedsOnRetry", func(t *testing.T) {
		accA := &account.Account{ID: accountA, Balance: 900, InitialBalance: 1000}
		accounts := newFakeAccounts(accA)
		accounts.setFails[accountA] = 1

		events := &fakeEvents{events: []*event.Event{expense(accountA, 200)}}
		engine := reconcile.NewEngine(accounts, events, &fakeRuns{}, testConfig())

		report, err := engine.RunFullCheck(context.Background(), false)
		require.NoError(t, err)

		require.Len(t, report.Repairs, 1)
		assert.NoError(t, report.Repairs[0].Err)
		assert.Equal(t, int64(800), accA.Balance)
	})

	t.Run("SurfacesFailureAfterRetry", func(t *testing.T) {
		accA := &account.Account{ID: accountA, Balance: 900, InitialBalance: 1000}
		accounts := newFakeAccounts(accA)
		accounts.setFails[accountA] = 2

		events := &fakeEvents{events: []*event.Event{expense(accountA, 200)}}
		runs := &fakeRuns{}
		engine := reconcile.NewEngine(accounts, events, runs, testConfig())

		report, err := engine.RunFullCheck(context.Background(), false)
		require.NoError(t, err)

		require.Len(t, report.Repairs, 1)
		assert.Error(t, report.Repairs[0].Err)
		assert.Equal(t, int64(900), accA.Balance, "failed repair leaves balance untouched")

		require.Len(t, runs.repairs, 1, "failed repair still audited")
	})
}
