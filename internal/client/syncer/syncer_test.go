package syncer

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/cache"
	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/client/netmon"
	"github.com/dmitrijs2005/finkeeper/internal/client/queue"
	"github.com/dmitrijs2005/finkeeper/internal/client/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory finance server.
type fakeAPI struct {
	mu      sync.Mutex
	records map[models.Collection][]map[string]any
	seq     int
	calls   []string
	fail    func(call string, data map[string]any) error
	listErr map[models.Collection]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{records: map[models.Collection][]map[string]any{}, listErr: map[models.Collection]error{}}
}

func (f *fakeAPI) record(call string, data map[string]any) error {
	f.calls = append(f.calls, call)
	if f.fail != nil {
		return f.fail(call, data)
	}
	return nil
}

func (f *fakeAPI) List(ctx context.Context, c models.Collection) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[c]; err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(f.records[c]))
	for _, r := range f.records[c] {
		out = append(out, maps.Clone(r))
	}
	return out, nil
}

func (f *fakeAPI) Create(ctx context.Context, c models.Collection, data map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create "+string(c), data); err != nil {
		return nil, err
	}
	f.seq++
	rec := maps.Clone(data)
	rec["id"] = fmt.Sprintf("srv-%d", f.seq)
	f.records[c] = append(f.records[c], rec)
	return maps.Clone(rec), nil
}

func (f *fakeAPI) Update(ctx context.Context, c models.Collection, id string, data map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update "+string(c)+"/"+id, data); err != nil {
		return nil, err
	}
	for i, r := range f.records[c] {
		if r["id"] == id {
			rec := maps.Clone(data)
			rec["id"] = id
			f.records[c][i] = rec
			return maps.Clone(rec), nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeAPI) Delete(ctx context.Context, c models.Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete "+string(c)+"/"+id, nil); err != nil {
		return err
	}
	f.records[c] = slices.DeleteFunc(f.records[c], func(r map[string]any) bool { return r["id"] == id })
	return nil
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// countingStore counts every write reaching the store.
type countingStore struct {
	store.Backend
	writes     atomic.Int32
	failDelete error
}

func (s *countingStore) Put(ctx context.Context, c store.Collection, key string, value []byte) error {
	s.writes.Add(1)
	return s.Backend.Put(ctx, c, key, value)
}

func (s *countingStore) Delete(ctx context.Context, c store.Collection, key string) error {
	s.writes.Add(1)
	if s.failDelete != nil && c == store.SyncQueue {
		return s.failDelete
	}
	return s.Backend.Delete(ctx, c, key)
}

func (s *countingStore) Clear(ctx context.Context, c store.Collection) error {
	s.writes.Add(1)
	return s.Backend.Clear(ctx, c)
}

func (s *countingStore) Update(ctx context.Context, fn func(ctx context.Context, tx store.Ops) error) error {
	s.writes.Add(1)
	return s.Backend.Update(ctx, fn)
}

type switchNet struct{ online atomic.Bool }

func (n *switchNet) IsOnline() bool { return n.online.Load() }

type fixture struct {
	api   *fakeAPI
	kv    *countingStore
	cache *cache.Manager
	queue *queue.Queue
	net   *switchNet
	sync  *Coordinator
	clock *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.New(store.MemoryPath)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	kv := &countingStore{Backend: s}
	f := &fixture{
		api:   newFakeAPI(),
		kv:    kv,
		cache: cache.New(kv, cache.WithClock(clock)),
		queue: queue.New(kv, queue.WithClock(clock)),
		net:   &switchNet{},
		clock: &now,
	}
	f.net.online.Store(true)
	f.sync = New(f.api, kv, f.cache, f.queue, f.net, WithClock(clock))
	return f
}

func (f *fixture) pending(t *testing.T) []models.SyncQueueItem {
	t.Helper()
	items, err := f.queue.ListPending(context.Background())
	require.NoError(t, err)
	return items
}

func (f *fixture) cached(t *testing.T, c models.Collection) []map[string]any {
	t.Helper()
	var list []map[string]any
	_, err := f.cache.Get(context.Background(), c.CacheKey(), &list)
	require.NoError(t, err)
	return list
}

func TestSync_OfflineIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.queue.Enqueue(ctx, models.OpCreate, "/expenses", map[string]any{"amount": 42.0})
	require.NoError(t, err)
	require.NoError(t, f.cache.Set(ctx, "expenses", []map[string]any{{"id": "e1"}}, 0))
	before := f.pending(t)

	f.net.online.Store(false)
	f.kv.writes.Store(0)

	require.NoError(t, f.sync.SyncPendingOperations(ctx))

	assert.Zero(t, f.kv.writes.Load(), "no storage writes while offline")
	assert.Empty(t, f.api.callLog())
	assert.Equal(t, before, f.pending(t))
	assert.Equal(t, []map[string]any{{"id": "e1"}}, f.cached(t, models.Expenses))

	assert.ErrorIs(t, f.sync.SyncNow(ctx), ErrOffline)
	assert.ErrorIs(t, f.sync.RefreshAllCache(ctx), ErrOffline)
}

func TestSync_PartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var items []models.SyncQueueItem
	for _, amount := range []float64{1, 2, 3} {
		it, err := f.queue.Enqueue(ctx, models.OpCreate, "/expenses", map[string]any{"amount": amount})
		require.NoError(t, err)
		items = append(items, it)
	}
	f.api.fail = func(call string, data map[string]any) error {
		if data["amount"] == 2.0 {
			return errors.New("502 bad gateway")
		}
		return nil
	}

	require.NoError(t, f.sync.SyncPendingOperations(ctx))

	left := f.pending(t)
	require.Len(t, left, 1)
	assert.Equal(t, items[1].ID, left[0].ID)
	assert.Equal(t, 1, left[0].RetryCount)
	assert.Equal(t, "502 bad gateway", left[0].LastError)
	assert.Len(t, f.api.callLog(), 3)
}

func TestSync_RetryCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.fail = func(string, map[string]any) error { return errors.New("rejected") }

	item, err := f.queue.Enqueue(ctx, models.OpDelete, "/goals/g1", nil)
	require.NoError(t, err)

	for i := 1; i <= models.MaxRetries; i++ {
		require.NoError(t, f.sync.SyncPendingOperations(ctx))
		got, err := f.queue.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.RetryCount)
	}
	require.Len(t, f.api.callLog(), models.MaxRetries)

	require.NoError(t, f.sync.SyncPendingOperations(ctx))
	assert.Len(t, f.api.callLog(), models.MaxRetries, "parked item is not replayed")

	left := f.pending(t)
	require.Len(t, left, 1)
	assert.Equal(t, models.MaxRetries, left[0].RetryCount)

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.PendingOperations)
	assert.Equal(t, 1, st.StuckOperations)
}

func TestSync_RemoveFailureBumps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	item, err := f.queue.Enqueue(ctx, models.OpCreate, "/accounts", map[string]any{"name": "Cash"})
	require.NoError(t, err)
	f.kv.failDelete = fmt.Errorf("%w: disk full", store.ErrStorageOperationFailed)

	require.NoError(t, f.sync.SyncPendingOperations(ctx))

	got, err := f.queue.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Contains(t, got.LastError, "disk full")
}

func TestSync_OfflineCreateThenSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.net.online.Store(false)

	mon := netmon.New(probe(func() error { return nil }), time.Hour)
	mon.OnOnline(func(ctx context.Context) {
		assert.NoError(t, f.sync.SyncPendingOperations(ctx))
	})
	f.sync.net = mon

	id, err := f.sync.Create(ctx, models.Expenses, map[string]any{"amount": 42.0})
	require.NoError(t, err)
	assert.True(t, id.IsLocal())

	list := f.cached(t, models.Expenses)
	require.Len(t, list, 1)
	assert.True(t, strings.HasPrefix(list[0]["id"].(string), "temp_"))
	assert.Equal(t, 42.0, list[0]["amount"])
	require.Len(t, f.pending(t), 1)

	mon.SetOnline(ctx, true)

	assert.Empty(t, f.pending(t))
	list = f.cached(t, models.Expenses)
	require.Len(t, list, 1)
	assert.Equal(t, "srv-1", list[0]["id"])
	assert.Equal(t, 42.0, list[0]["amount"])

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsOnline)
	assert.Zero(t, st.PendingOperations)
	require.NotNil(t, st.LastSyncTime)
	assert.Equal(t, *f.clock, *st.LastSyncTime)
}

type probe func() error

func (p probe) Ping(ctx context.Context) error { return p() }

func TestSync_TempIDsAreRewritten(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.net.online.Store(false)

	catID, err := f.sync.Create(ctx, models.Categories, map[string]any{"name": "Groceries"})
	require.NoError(t, err)
	expID, err := f.sync.Create(ctx, models.Expenses, map[string]any{"amount": 9.5, "category_id": catID.String()})
	require.NoError(t, err)
	require.NotEqual(t, catID, expID)
	require.NoError(t, f.sync.Update(ctx, models.Expenses, expID.String(), map[string]any{"amount": 10.0}))

	f.net.online.Store(true)
	require.NoError(t, f.sync.SyncPendingOperations(ctx))

	assert.Equal(t, []string{"create categories", "create expenses", "update expenses/srv-2"}, f.api.callLog())
	assert.Empty(t, f.pending(t))

	exp := f.cached(t, models.Expenses)
	require.Len(t, exp, 1)
	assert.Equal(t, "srv-2", exp[0]["id"])
	assert.Equal(t, "srv-1", exp[0]["category_id"])
	assert.Equal(t, 10.0, exp[0]["amount"])
}

func TestSync_DependentItemsWaitForCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.net.online.Store(false)

	catID, err := f.sync.Create(ctx, models.Categories, map[string]any{"name": "Rent"})
	require.NoError(t, err)
	_, err = f.sync.Create(ctx, models.Expenses, map[string]any{"amount": 800.0, "category_id": catID.String()})
	require.NoError(t, err)
	_, err = f.sync.Create(ctx, models.Goals, map[string]any{"name": "Holiday"})
	require.NoError(t, err)

	f.api.fail = func(call string, _ map[string]any) error {
		if call == "create categories" {
			return errors.New("timeout")
		}
		return nil
	}
	f.net.online.Store(true)
	require.NoError(t, f.sync.SyncPendingOperations(ctx))

	assert.Equal(t, []string{"create categories", "create goals"}, f.api.callLog())

	left := f.pending(t)
	require.Len(t, left, 2)
	assert.Equal(t, 1, left[0].RetryCount)
	assert.Zero(t, left[1].RetryCount, "deferred item is not bumped")

	exp := f.cached(t, models.Expenses)
	require.Len(t, exp, 1, "queued create stays visible after refresh")
	assert.Equal(t, catID.String(), exp[0]["category_id"])

	f.api.fail = nil
	require.NoError(t, f.sync.SyncPendingOperations(ctx))
	assert.Empty(t, f.pending(t))
	exp = f.cached(t, models.Expenses)
	require.Len(t, exp, 1)
	assert.Equal(t, "srv-2", exp[0]["category_id"])
}

func TestSync_DependentOfStuckCreateIsParked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.net.online.Store(false)

	catID, err := f.sync.Create(ctx, models.Categories, map[string]any{"name": "Fuel"})
	require.NoError(t, err)
	_, err = f.sync.Create(ctx, models.Expenses, map[string]any{"amount": 60.0, "category_id": catID.String()})
	require.NoError(t, err)

	f.api.fail = func(call string, _ map[string]any) error {
		if call == "create categories" {
			return errors.New("rejected")
		}
		return nil
	}
	f.net.online.Store(true)
	for i := 0; i < 2*models.MaxRetries; i++ {
		require.NoError(t, f.sync.SyncPendingOperations(ctx))
	}

	assert.Equal(t, []string{"create categories", "create categories", "create categories"}, f.api.callLog())

	left := f.pending(t)
	require.Len(t, left, 2)
	assert.True(t, left[0].Parked())
	assert.True(t, left[1].Parked())
	assert.Contains(t, left[1].LastError, ErrWaitsForStuckCreate.Error())
	assert.Contains(t, left[1].LastError, catID.String())

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.PendingOperations)
	assert.Equal(t, 2, st.StuckOperations)
}

func TestSync_ConfirmedIDSurvivesFailedRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.net.online.Store(false)

	id, err := f.sync.Create(ctx, models.Expenses, map[string]any{"amount": 42.0})
	require.NoError(t, err)

	f.net.online.Store(true)
	f.api.listErr[models.Expenses] = errors.New("unavailable")
	require.Error(t, f.sync.SyncPendingOperations(ctx))
	assert.Empty(t, f.pending(t))

	exp := f.cached(t, models.Expenses)
	require.Len(t, exp, 1)
	assert.Equal(t, "srv-1", exp[0]["id"], "snapshot is relabeled without a refresh")
	assert.Equal(t, "srv-1", f.sync.ResolveID(ctx, id.String()))

	require.NoError(t, f.sync.Update(ctx, models.Expenses, id.String(), map[string]any{"amount": 50.0}))
	items := f.pending(t)
	require.Len(t, items, 1)
	assert.Equal(t, "/expenses/srv-1", items[0].Endpoint)
	assert.Equal(t, "srv-1", items[0].Data["id"])

	delete(f.api.listErr, models.Expenses)
	require.NoError(t, f.sync.SyncPendingOperations(ctx))

	assert.Equal(t, []string{"create expenses", "update expenses/srv-1"}, f.api.callLog())
	assert.Empty(t, f.pending(t))
	assert.Equal(t, 50.0, f.api.records[models.Expenses][0]["amount"])
}

func TestSync_ConfirmedIDsOutliveTheCoordinator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.net.online.Store(false)

	id, err := f.sync.Create(ctx, models.Goals, map[string]any{"name": "Bike"})
	require.NoError(t, err)
	f.net.online.Store(true)
	require.NoError(t, f.sync.SyncPendingOperations(ctx))

	_, err = f.queue.Enqueue(ctx, models.OpDelete, models.Endpoint(models.Goals, id.String()), map[string]any{"id": id.String()})
	require.NoError(t, err)

	restarted := New(f.api, f.kv, f.cache, f.queue, f.net)
	require.NoError(t, restarted.SyncPendingOperations(ctx))

	assert.Equal(t, []string{"create goals", "delete goals/srv-1"}, f.api.callLog())
	assert.Empty(t, f.pending(t))
	assert.Empty(t, f.cached(t, models.Goals))
}

func TestSync_ConfirmedCreateIsNotReplayed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.net.online.Store(false)

	_, err := f.sync.Create(ctx, models.Accounts, map[string]any{"name": "Cash"})
	require.NoError(t, err)

	f.net.online.Store(true)
	f.kv.failDelete = fmt.Errorf("%w: disk full", store.ErrStorageOperationFailed)
	require.NoError(t, f.sync.SyncPendingOperations(ctx))
	require.Len(t, f.pending(t), 1)

	f.kv.failDelete = nil
	require.NoError(t, f.sync.SyncPendingOperations(ctx))

	assert.Equal(t, []string{"create accounts"}, f.api.callLog())
	assert.Empty(t, f.pending(t))
}

func TestSync_ConcurrentDrainsReplayOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		_, err := f.queue.Enqueue(ctx, models.OpCreate, "/goals", map[string]any{"n": float64(i)})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.sync.SyncPendingOperations(ctx))
		}()
	}
	wg.Wait()

	assert.Len(t, f.api.callLog(), 5)
	assert.Empty(t, f.pending(t))
}

func TestRefreshAllCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.records[models.Accounts] = []map[string]any{{"id": "a1", "name": "Wallet"}}

	require.NoError(t, f.sync.RefreshAllCache(ctx))
	for _, c := range models.AllCollections {
		entry, found, err := f.cache.Entry(ctx, c.CacheKey())
		require.NoError(t, err)
		assert.True(t, found, c)
		assert.NotEmpty(t, entry.Data)
	}
	assert.Equal(t, []map[string]any{{"id": "a1", "name": "Wallet"}}, f.cached(t, models.Accounts))

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.LastSyncTime)
}

func TestRefreshAllCache_PartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.listErr[models.Budgets] = errors.New("unavailable")

	err := f.sync.RefreshAllCache(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budgets")

	_, found, err := f.cache.Entry(ctx, models.Goals.CacheKey())
	require.NoError(t, err)
	assert.True(t, found, "other collections are still refreshed")

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.LastSyncTime)
}

func TestOptimisticUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.records[models.Goals] = []map[string]any{
		{"id": "g1", "name": "Bike", "target_amount": 500.0},
		{"id": "g2", "name": "Car", "target_amount": 9000.0},
	}
	require.NoError(t, f.sync.RefreshAllCache(ctx))
	f.net.online.Store(false)

	require.NoError(t, f.sync.Update(ctx, models.Goals, "g1", map[string]any{"saved_amount": 50.0}))
	require.NoError(t, f.sync.Delete(ctx, models.Goals, "g2"))

	goals := f.cached(t, models.Goals)
	require.Len(t, goals, 1)
	assert.Equal(t, map[string]any{"id": "g1", "name": "Bike", "target_amount": 500.0, "saved_amount": 50.0}, goals[0])

	items := f.pending(t)
	require.Len(t, items, 2)
	assert.Equal(t, models.OpUpdate, items[0].Type)
	assert.Equal(t, "/goals/g1", items[0].Endpoint)
	assert.Equal(t, "Bike", items[0].Data["name"], "update carries the full record")
	assert.Equal(t, "/goals/g2", items[1].Endpoint)

	f.net.online.Store(true)
	require.NoError(t, f.sync.SyncNow(ctx))
	assert.Equal(t, []string{"update goals/g1", "delete goals/g2"}, f.api.callLog())
	assert.Equal(t, goals, f.cached(t, models.Goals))
}

func TestOptimistic_UnknownCollection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sync.Create(ctx, "invoices", nil)
	assert.Error(t, err)
	assert.Error(t, f.sync.Update(ctx, "invoices", "x", nil))
	assert.Error(t, f.sync.Delete(ctx, "invoices", "x"))
	assert.Empty(t, f.pending(t))
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.net.online.Store(false)

	_, err := f.sync.Create(ctx, models.Budgets, map[string]any{"limit": 300.0})
	require.NoError(t, err)

	require.NoError(t, f.sync.ClearAll(ctx))

	cached, err := f.kv.GetAll(ctx, store.Cache)
	require.NoError(t, err)
	assert.Empty(t, cached)
	assert.Empty(t, f.pending(t))

	st, err := f.sync.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.PendingOperations)
}

func TestOverlay(t *testing.T) {
	pending := []models.SyncQueueItem{
		{Type: models.OpCreate, Endpoint: "/expenses", Data: map[string]any{"id": "temp_1", "amount": 5.0}},
		{Type: models.OpUpdate, Endpoint: "/expenses/e1", Data: map[string]any{"id": "e1", "amount": 7.0}},
		{Type: models.OpDelete, Endpoint: "/expenses/e2", Data: map[string]any{"id": "e2"}},
		{Type: models.OpCreate, Endpoint: "/goals", Data: map[string]any{"id": "temp_2"}},
	}
	server := []map[string]any{{"id": "e1", "amount": 1.0}, {"id": "e2", "amount": 2.0}}

	got := overlay(models.Expenses, server, pending)
	assert.Equal(t, []map[string]any{
		{"id": "e1", "amount": 7.0},
		{"id": "temp_1", "amount": 5.0},
	}, got)

	assert.Equal(t, []map[string]any{}, overlay(models.Accounts, nil, pending))
}
