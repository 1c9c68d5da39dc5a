// Package readers gives each finance entity a uniform read view over the
// cache: the cached data plus loading, error and sync indicators. Readers
// never talk to the API; refreshing goes through the sync coordinator.
package readers

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
)

// Cache reads snapshots.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
}

// Syncer is the part of the sync coordinator a reader needs.
type Syncer interface {
	RefreshAllCache(ctx context.Context) error
	Status(ctx context.Context) (models.SyncStatus, error)
}

// State is what a reader exposes to its consumer.
type State[T any] struct {
	Data              []T
	Loading           bool
	Error             string
	IsOnline          bool
	PendingOperations int
}

type Reader[T any] struct {
	collection models.Collection
	cache      Cache
	sync       Syncer

	mu    sync.Mutex
	state State[T]
}

func New[T any](c models.Collection, cache Cache, s Syncer) *Reader[T] {
	return &Reader[T]{collection: c, cache: cache, sync: s}
}

func Expenses(c Cache, s Syncer) *Reader[models.Expense] {
	return New[models.Expense](models.Expenses, c, s)
}

func Accounts(c Cache, s Syncer) *Reader[models.Account] {
	return New[models.Account](models.Accounts, c, s)
}

func Categories(c Cache, s Syncer) *Reader[models.Category] {
	return New[models.Category](models.Categories, c, s)
}

func Budgets(c Cache, s Syncer) *Reader[models.Budget] {
	return New[models.Budget](models.Budgets, c, s)
}

func Goals(c Cache, s Syncer) *Reader[models.Goal] {
	return New[models.Goal](models.Goals, c, s)
}

func (r *Reader[T]) Collection() models.Collection { return r.collection }

// Load reads the cached snapshot and the sync status. An absent snapshot
// leaves Data nil and is not an error.
func (r *Reader[T]) Load(ctx context.Context) State[T] {
	r.mu.Lock()
	r.state.Loading = true
	r.mu.Unlock()

	var data []T
	_, err := r.cache.Get(ctx, r.collection.CacheKey(), &data)

	st, statusErr := r.sync.Status(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Loading = false
	if err != nil {
		r.state.Error = err.Error()
	} else {
		r.state.Data = data
		r.state.Error = ""
	}
	r.state.IsOnline = st.IsOnline
	if statusErr == nil {
		r.state.PendingOperations = st.PendingOperations
	}
	return r.snapshot()
}

// Snapshot returns the last loaded state.
func (r *Reader[T]) Snapshot() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Refresh asks the coordinator to refresh every snapshot and then reloads.
// The refresh error is returned alongside the reloaded state; State.Error
// only reflects the cache read.
func (r *Reader[T]) Refresh(ctx context.Context) (State[T], error) {
	err := r.sync.RefreshAllCache(ctx)
	return r.Load(ctx), err
}

func (r *Reader[T]) snapshot() State[T] {
	s := r.state
	if s.Data != nil {
		s.Data = append([]T(nil), s.Data...)
	}
	return s
}
