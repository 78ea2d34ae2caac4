package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaia/kakeibo/internal/account"
	"github.com/dmaia/kakeibo/internal/event"
	"github.com/dmaia/kakeibo/internal/ledger"
)

// memBalances is an in-memory stand-in for the account balance store.
type memBalances struct {
	balances map[uuid.UUID]int64
}

func (m *memBalances) GetBalance(_ context.Context, id uuid.UUID) (int64, error) {
	b, ok := m.balances[id]
	if !ok {
		return 0, account.ErrNotFound
	}

	return b, nil
}

func (m *memBalances) ApplyDelta(_ context.Context, id uuid.UUID, delta int64) error {
	if _, ok := m.balances[id]; !ok {
		return account.ErrNotFound
	}

	m.balances[id] += delta

	return nil
}

// memRepo is an in-memory event repository.
type memRepo struct {
	events  map[uuid.UUID]*event.Event
	removed []uuid.UUID
}

func newMemRepo() *memRepo {
	return &memRepo{events: make(map[uuid.UUID]*event.Event)}
}

func (m *memRepo) CreateEvent(_ context.Context, ev *event.Event) error {
	ev.ID = uuid.New()
	ev.CreatedAt = time.Now()
	m.events[ev.ID] = ev

	return nil
}

func (m *memRepo) GetEvent(_ context.Context, id uuid.UUID) (*event.Event, error) {
	ev, ok := m.events[id]
	if !ok || ev.Deleted() {
		return nil, event.ErrNotFound
	}

	copied := *ev

	return &copied, nil
}

func (m *memRepo) ListEvents(_ context.Context, _ event.ListFilter) ([]*event.Event, error) {
	var out []*event.Event
	for _, ev := range m.events {
		if !ev.Deleted() {
			out = append(out, ev)
		}
	}

	return out, nil
}

func (m *memRepo) UpdateEvent(_ context.Context, ev *event.Event) error {
	if _, ok := m.events[ev.ID]; !ok {
		return event.ErrNotFound
	}

	copied := *ev
	m.events[ev.ID] = &copied

	return nil
}

func (m *memRepo) DeleteEvent(_ context.Context, id uuid.UUID) error {
	ev, ok := m.events[id]
	if !ok {
		return event.ErrNotFound
	}

	now := time.Now()
	ev.DeletedAt = &now

	return nil
}

func (m *memRepo) RemoveEvent(_ context.Context, id uuid.UUID) error {
	delete(m.events, id)
	m.removed = append(m.removed, id)

	return nil
}

type fixture struct {
	svc      *event.Service
	repo     *memRepo
	balances *memBalances
	accountA uuid.UUID
	accountB uuid.UUID
}

func newFixture(policy ledger.Policy) *fixture {
	f := &fixture{
		repo:     newMemRepo(),
		accountA: uuid.New(),
		accountB: uuid.New(),
	}
	f.balances = &memBalances{balances: map[uuid.UUID]int64{
		f.accountA: 1000,
		f.accountB: 0,
	}}
	f.svc = event.NewService(f.repo, ledger.NewSynchronizer(f.balances, policy))

	return f
}

// Account A starts at 1000. Create Expense(200) -> 800, update to 300 -> 700,
// delete -> back to 1000.
func TestService_ExpenseLifecycle(t *testing.T) {
	f := newFixture(ledger.Policy{})
	ctx := context.Background()

	ev, err := f.svc.Create(ctx, event.CreateParams{
		Kind:            event.KindExpense,
		Amount:          200,
		SourceAccountID: f.accountA,
		OccurredAt:      time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(800), f.balances.balances[f.accountA])

	newAmount := int64(300)

	_, err = f.svc.Update(ctx, ev.ID, event.UpdateParams{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, int64(700), f.balances.balances[f.accountA])

	require.NoError(t, f.svc.Delete(ctx, ev.ID))
	assert.Equal(t, int64(1000), f.balances.balances[f.accountA])

	// Soft-deleted: gone from reads, kept in history.
	_, err = f.svc.Get(ctx, ev.ID)
	assert.ErrorIs(t, err, event.ErrNotFound)
	assert.True(t, f.repo.events[ev.ID].Deleted())
}

// A=1000, B=0. Transfer 500 A->B, then delete it.
func TestService_TransferRoundTrip(t *testing.T) {
	f := newFixture(ledger.Policy{})
	ctx := context.Background()

	ev, err := f.svc.Create(ctx, event.CreateParams{
		Kind:            event.KindTransfer,
		Amount:          500,
		SourceAccountID: f.accountA,
		TargetAccountID: &f.accountB,
		OccurredAt:      time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), f.balances.balances[f.accountA])
	assert.Equal(t, int64(500), f.balances.balances[f.accountB])

	require.NoError(t, f.svc.Delete(ctx, ev.ID))
	assert.Equal(t, int64(1000), f.balances.balances[f.accountA])
	assert.Equal(t, int64(0), f.balances.balances[f.accountB])
}

func TestService_SelfTransferLeavesBalanceUnchanged(t *testing.T) {
	f := newFixture(ledger.Policy{})
	ctx := context.Background()

	ev, err := f.svc.Create(ctx, event.CreateParams{
		Kind:            event.KindTransfer,
		Amount:          400,
		SourceAccountID: f.accountA,
		TargetAccountID: &f.accountA,
		OccurredAt:      time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), f.balances.balances[f.accountA])

	// Still recorded in history.
	got, err := f.svc.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, event.KindTransfer, got.Kind)
}

// A create rejected by the synchronizer must not leave a row behind.
func TestService_RejectedCreateIsRemoved(t *testing.T) {
	f := newFixture(ledger.Policy{EnforceNonNegative: true})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, event.CreateParams{
		Kind:            event.KindExpense,
		Amount:          5000,
		SourceAccountID: f.accountA,
		OccurredAt:      time.Now(),
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	assert.Empty(t, f.repo.events)
	assert.Len(t, f.repo.removed, 1)
	assert.Equal(t, int64(1000), f.balances.balances[f.accountA])
}

// A rejected update must restore both the stored row and the balances.
func TestService_RejectedUpdateRestoresEvent(t *testing.T) {
	f := newFixture(ledger.Policy{})
	ctx := context.Background()

	ev, err := f.svc.Create(ctx, event.CreateParams{
		Kind:            event.KindExpense,
		Amount:          200,
		SourceAccountID: f.accountA,
		OccurredAt:      time.Now(),
	})
	require.NoError(t, err)

	badAmount := int64(-10)

	_, err = f.svc.Update(ctx, ev.ID, event.UpdateParams{Amount: &badAmount})
	assert.ErrorIs(t, err, ledger.ErrNegativeOrZeroAmount)

	got, err := f.svc.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.Amount)
	assert.Equal(t, int64(800), f.balances.balances[f.accountA])
}

func TestService_UpdateKindChangeDropsTarget(t *testing.T) {
	f := newFixture(ledger.Policy{})
	ctx := context.Background()

	ev, err := f.svc.Create(ctx, event.CreateParams{
		Kind:            event.KindTransfer,
		Amount:          500,
		SourceAccountID: f.accountA,
		TargetAccountID: &f.accountB,
		OccurredAt:      time.Now(),
	})
	require.NoError(t, err)

	kind := event.KindExpense

	got, err := f.svc.Update(ctx, ev.ID, event.UpdateParams{Kind: &kind})
	require.NoError(t, err)

	assert.Nil(t, got.TargetAccountID)
	assert.Equal(t, int64(500), f.balances.balances[f.accountA])
	assert.Equal(t, int64(0), f.balances.balances[f.accountB], "transfer credit reversed")
}
