// Package syncer replays queued mutations against the finance API and keeps
// the cached snapshots in line with the server.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/cache"
	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/client/queue"
	"github.com/dmitrijs2005/finkeeper/internal/client/store"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/metrics"
)

var (
	ErrOffline = errors.New("offline")

	// ErrWaitsForStuckCreate is recorded on items referencing a local record
	// whose create has been parked.
	ErrWaitsForStuckCreate = errors.New("waits for a stuck create")
)

// API is the part of the finance API client used for replay and refresh.
type API interface {
	List(ctx context.Context, c models.Collection) ([]map[string]any, error)
	Create(ctx context.Context, c models.Collection, data map[string]any) (map[string]any, error)
	Update(ctx context.Context, c models.Collection, id string, data map[string]any) (map[string]any, error)
	Delete(ctx context.Context, c models.Collection, id string) error
}

// Connectivity reports the believed network state.
type Connectivity interface {
	IsOnline() bool
}

type Coordinator struct {
	api     API
	kv      store.Backend
	cache   *cache.Manager
	queue   *queue.Queue
	net     Connectivity
	now     func() time.Time
	metrics *metrics.Collector
	log     logging.Logger

	drainMu sync.Mutex

	mu        sync.Mutex
	lastSync  time.Time
	lastLocal int64
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

func New(api API, kv store.Backend, cm *cache.Manager, q *queue.Queue, net Connectivity, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:   api,
		kv:    kv,
		cache: cm,
		queue: q,
		net:   net,
		now:   time.Now,
		log:   logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("module", "syncer")
	return c
}

// SyncPendingOperations drains the queue once. It does nothing while
// offline. Items are replayed one at a time in enqueue order; a failed item
// is bumped and the pass continues. The cache is refreshed afterwards
// whatever the outcome of individual items. Only refresh and listing
// errors are returned.
func (c *Coordinator) SyncPendingOperations(ctx context.Context) error {
	if !c.net.IsOnline() {
		return nil
	}

	c.drainMu.Lock()
	defer c.drainMu.Unlock()

	start := c.now()
	drainErr := c.drain(ctx)
	c.metrics.ObserveDrain(c.now().Sub(start))

	return errors.Join(drainErr, c.RefreshAllCache(ctx))
}

// SyncNow is the user-triggered drain. Unlike SyncPendingOperations it
// reports ErrOffline instead of silently returning.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	if !c.net.IsOnline() {
		return ErrOffline
	}
	return c.SyncPendingOperations(ctx)
}

func (c *Coordinator) drain(ctx context.Context) error {
	items, err := c.queue.ListPending(ctx)
	if err != nil {
		c.log.Error(ctx, "cannot list queued mutations", "error", err)
		return err
	}

	ids := c.confirmedIDs(ctx)
	unconfirmed := pendingCreates(items)

	var replayed, failed, deferred, confirmed int
	for _, item := range items {
		if item.Parked() {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		if _, done := ids[item.RecordID()]; done && item.Type == models.OpCreate {
			// Confirmed by an earlier pass that could not remove it.
			if err := c.queue.Remove(ctx, item.ID); err != nil {
				failed++
				c.fail(ctx, item, err)
			}
			continue
		}

		if rewritten, ok := rewriteIDs(item, ids); ok {
			if err := c.queue.Rewrite(ctx, rewritten); err != nil {
				c.log.Warn(ctx, "cannot persist rewritten ids", "id", item.ID, "error", err)
			}
			item = rewritten
		}

		if ref := unconfirmedRef(item, unconfirmed); ref != "" {
			if unconfirmed[ref] {
				failed++
				c.fail(ctx, item, fmt.Errorf("%w: %s", ErrWaitsForStuckCreate, ref))
				continue
			}
			deferred++
			c.log.Debug(ctx, "mutation waits for create", "id", item.ID, "ref", ref)
			continue
		}

		created, err := c.replay(ctx, item)
		if err == nil && c.confirm(ctx, ids, item, created) {
			confirmed++
			delete(unconfirmed, item.RecordID())
		}
		if err == nil {
			err = c.queue.Remove(ctx, item.ID)
		}
		if err != nil {
			failed++
			c.fail(ctx, item, err)
			continue
		}

		replayed++
		c.metrics.Replayed(string(item.Type))
	}

	if confirmed > 0 {
		c.relabelCached(ctx, ids)
	}

	c.log.Info(ctx, "drain finished", "replayed", replayed, "failed", failed, "deferred", deferred)
	return nil
}

func (c *Coordinator) replay(ctx context.Context, item models.SyncQueueItem) (map[string]any, error) {
	col, id, err := models.ParseEndpoint(item.Endpoint)
	if err != nil {
		return nil, err
	}

	payload := maps.Clone(item.Data)
	delete(payload, "id")

	switch item.Type {
	case models.OpCreate:
		if id != "" {
			return nil, fmt.Errorf("create on item endpoint %q", item.Endpoint)
		}
		return c.api.Create(ctx, col, payload)
	case models.OpUpdate:
		if id == "" {
			return nil, fmt.Errorf("update without id on %q", item.Endpoint)
		}
		return c.api.Update(ctx, col, id, payload)
	case models.OpDelete:
		if id == "" {
			return nil, fmt.Errorf("delete without id on %q", item.Endpoint)
		}
		return nil, c.api.Delete(ctx, col, id)
	default:
		return nil, fmt.Errorf("unknown operation %q", item.Type)
	}
}

func (c *Coordinator) fail(ctx context.Context, item models.SyncQueueItem, cause error) {
	bumped, err := c.queue.Bump(ctx, item.ID, cause)
	if err != nil {
		c.log.Error(ctx, "cannot record failed replay", "id", item.ID, "error", err)
		return
	}
	c.metrics.ReplayFailed(string(item.Type), bumped.Parked())
	c.log.Warn(ctx, "replay failed", "id", item.ID, "type", item.Type,
		"endpoint", item.Endpoint, "retry", bumped.RetryCount, "error", cause)
}

// RefreshAllCache replaces every collection snapshot with the server's
// list. Mutations still waiting in the queue are laid over the fresh list
// so the user keeps seeing their own writes. A collection that cannot be
// listed keeps its old snapshot; the others are still refreshed and the
// joined error is returned.
func (c *Coordinator) RefreshAllCache(ctx context.Context) error {
	if !c.net.IsOnline() {
		return ErrOffline
	}

	pending, err := c.queue.ListPending(ctx)
	if err != nil {
		c.log.Warn(ctx, "refresh without queue overlay", "error", err)
		pending = nil
	}
	ids := c.confirmedIDs(ctx)
	for i := range pending {
		pending[i], _ = rewriteIDs(pending[i], ids)
	}

	var errs []error
	for _, col := range models.AllCollections {
		list, err := c.api.List(ctx, col)
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", col, err))
			continue
		}
		list = overlay(col, list, pending)
		if err := c.cache.Set(ctx, col.CacheKey(), list, 0); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", col, err))
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.log.Warn(ctx, "cache refresh incomplete", "error", err)
		return err
	}

	c.mu.Lock()
	c.lastSync = c.now()
	c.mu.Unlock()
	return nil
}

// Status reports connectivity and queue counters.
func (c *Coordinator) Status(ctx context.Context) (models.SyncStatus, error) {
	st := models.SyncStatus{IsOnline: c.net.IsOnline()}

	c.mu.Lock()
	if !c.lastSync.IsZero() {
		t := c.lastSync
		st.LastSyncTime = &t
	}
	c.mu.Unlock()

	items, err := c.queue.ListPending(ctx)
	if err != nil {
		return st, err
	}
	st.PendingOperations = len(items)
	for _, it := range items {
		if it.Parked() {
			st.StuckOperations++
		}
	}
	c.metrics.SetPending(st.PendingOperations)
	return st, nil
}

// ClearAll empties the cache and the queue in one transaction.
func (c *Coordinator) ClearAll(ctx context.Context) error {
	err := c.kv.Update(ctx, func(ctx context.Context, tx store.Ops) error {
		if err := tx.Clear(ctx, store.Cache); err != nil {
			return err
		}
		return tx.Clear(ctx, store.SyncQueue)
	})
	if err != nil {
		return err
	}
	c.metrics.SetPending(0)
	c.log.Info(ctx, "cache and queue cleared")
	return nil
}
