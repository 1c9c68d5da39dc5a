// Package queue is the durable, ordered list of mutations that still have
// to be confirmed by the server. Items keep their enqueue position for
// their whole life; failed replays only raise their retry counter.
package queue

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/client/store"
	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/metrics"
)

// MaxRetries mirrors models.MaxRetries.
const MaxRetries = models.MaxRetries

type Queue struct {
	kv      store.Backend
	now     func() time.Time
	suffix  func() string
	metrics *metrics.Collector
	log     logging.Logger
}

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithSuffix replaces the random part of item ids.
func WithSuffix(fn func() string) Option {
	return func(q *Queue) { q.suffix = fn }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(q *Queue) { q.metrics = c }
}

func WithLogger(l logging.Logger) Option {
	return func(q *Queue) { q.log = l }
}

func New(kv store.Backend, opts ...Option) *Queue {
	q := &Queue{
		kv:     kv,
		now:    time.Now,
		suffix: func() string { return hex.EncodeToString(common.GenerateRandByteArray(4)) },
		log:    logging.Nop(),
	}
	for _, o := range opts {
		o(q)
	}
	q.log = q.log.With("module", "queue")
	return q
}

// Enqueue records a mutation. The endpoint is stored as given; resolving
// it is up to whoever replays the item. The item is durable once Enqueue
// returns.
func (q *Queue) Enqueue(ctx context.Context, op models.OperationType, endpoint string, data map[string]any) (models.SyncQueueItem, error) {
	if !op.Valid() {
		return models.SyncQueueItem{}, fmt.Errorf("queue: unknown operation %q", op)
	}
	if endpoint == "" {
		return models.SyncQueueItem{}, fmt.Errorf("queue: %w: empty", common.ErrInvalidEndpoint)
	}
	if data == nil {
		data = map[string]any{}
	}

	now := q.now().UnixMilli()
	item := models.SyncQueueItem{
		ID:        strconv.FormatInt(now, 10) + "_" + q.suffix(),
		Type:      op,
		Endpoint:  endpoint,
		Data:      maps.Clone(data),
		Timestamp: now,
	}

	if err := q.put(ctx, q.kv, item); err != nil {
		return models.SyncQueueItem{}, err
	}

	q.metrics.Enqueued(string(op))
	q.log.Debug(ctx, "mutation queued", "id", item.ID, "type", op, "endpoint", endpoint)
	return item, nil
}

// ListPending returns every item, parked ones included, oldest first.
func (q *Queue) ListPending(ctx context.Context) ([]models.SyncQueueItem, error) {
	return list(ctx, q.kv)
}

// Active returns the items still eligible for replay.
func (q *Queue) Active(ctx context.Context) ([]models.SyncQueueItem, error) {
	return q.filter(ctx, func(i models.SyncQueueItem) bool { return !i.Parked() })
}

// Stuck returns the parked items.
func (q *Queue) Stuck(ctx context.Context) ([]models.SyncQueueItem, error) {
	return q.filter(ctx, models.SyncQueueItem.Parked)
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	all, err := list(ctx, q.kv)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (q *Queue) Get(ctx context.Context, id string) (models.SyncQueueItem, error) {
	return get(ctx, q.kv, id)
}

// Remove deletes a confirmed item.
func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.kv.Delete(ctx, store.SyncQueue, id)
}

// Bump records a failed replay. The returned item carries the new counter.
func (q *Queue) Bump(ctx context.Context, id string, cause error) (models.SyncQueueItem, error) {
	var out models.SyncQueueItem
	err := q.kv.Update(ctx, func(ctx context.Context, tx store.Ops) error {
		item, err := get(ctx, tx, id)
		if err != nil {
			return err
		}
		item.RetryCount++
		if cause != nil {
			item.LastError = cause.Error()
		}
		out = item
		return q.put(ctx, tx, item)
	})
	if err != nil {
		return models.SyncQueueItem{}, err
	}

	if out.Parked() {
		q.log.Warn(ctx, "mutation parked after retries", "id", id, "endpoint", out.Endpoint, "error", out.LastError)
	}
	return out, nil
}

// Rewrite replaces the endpoint and payload of an existing item in place.
func (q *Queue) Rewrite(ctx context.Context, item models.SyncQueueItem) error {
	return q.kv.Update(ctx, func(ctx context.Context, tx store.Ops) error {
		cur, err := get(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		cur.Endpoint = item.Endpoint
		cur.Data = item.Data
		return q.put(ctx, tx, cur)
	})
}

// Retry makes a parked item eligible again.
func (q *Queue) Retry(ctx context.Context, id string) error {
	return q.kv.Update(ctx, func(ctx context.Context, tx store.Ops) error {
		item, err := get(ctx, tx, id)
		if err != nil {
			return err
		}
		item.RetryCount = 0
		item.LastError = ""
		return q.put(ctx, tx, item)
	})
}

func (q *Queue) Clear(ctx context.Context) error {
	return q.kv.Clear(ctx, store.SyncQueue)
}

func (q *Queue) filter(ctx context.Context, keep func(models.SyncQueueItem) bool) ([]models.SyncQueueItem, error) {
	all, err := list(ctx, q.kv)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, i := range all {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (q *Queue) put(ctx context.Context, ops store.Ops, item models.SyncQueueItem) error {
	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("queue: encode %s: %w", item.ID, err)
	}
	return ops.Put(ctx, store.SyncQueue, item.ID, b)
}

func get(ctx context.Context, ops store.Ops, id string) (models.SyncQueueItem, error) {
	raw, err := ops.Get(ctx, store.SyncQueue, id)
	if err != nil {
		return models.SyncQueueItem{}, err
	}
	var item models.SyncQueueItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("%w: decode %s: %w", store.ErrStorageOperationFailed, id, err)
	}
	return item, nil
}

func list(ctx context.Context, ops store.Ops) ([]models.SyncQueueItem, error) {
	records, err := ops.GetAll(ctx, store.SyncQueue)
	if err != nil {
		return nil, err
	}
	out := make([]models.SyncQueueItem, 0, len(records))
	for _, r := range records {
		var item models.SyncQueueItem
		if err := json.Unmarshal(r.Value, &item); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", store.ErrStorageOperationFailed, r.Key, err)
		}
		out = append(out, item)
	}
	return out, nil
}
