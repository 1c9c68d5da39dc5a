// Package cache keeps TTL-stamped snapshots of server resources in the
// client store. Every write replaces the whole snapshot for its key.
// Expired entries are never returned; they are deleted by the read that
// finds them or by ClearExpired.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/client/store"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/metrics"
)

const DefaultTTL = 24 * time.Hour

type Manager struct {
	kv         store.Backend
	now        func() time.Time
	defaultTTL time.Duration
	metrics    *metrics.Collector
	log        logging.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithDefaultTTL changes the TTL used when Set gets ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.defaultTTL = ttl
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func New(kv store.Backend, opts ...Option) *Manager {
	m := &Manager{
		kv:         kv,
		now:        time.Now,
		defaultTTL: DefaultTTL,
		log:        logging.Nop(),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With("module", "cache")
	return m
}

// Set stores data under key for ttl. A ttl <= 0 selects the default.
func (m *Manager) Set(ctx context.Context, key string, data any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}

	now := m.now().UnixMilli()
	entry := models.CacheEntry{
		Data:      payload,
		Timestamp: now,
		ExpiresAt: now + ttl.Milliseconds(),
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return m.kv.Put(ctx, store.Cache, key, b)
}

// Get decodes the live snapshot stored under key into dst. found is false
// when there is no entry or it has expired; neither case is an error.
func (m *Manager) Get(ctx context.Context, key string, dst any) (found bool, err error) {
	entry, found, err := m.Entry(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(entry.Data, dst); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

// Entry returns the live envelope stored under key.
func (m *Manager) Entry(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	raw, err := m.kv.Get(ctx, store.Cache, key)
	if errors.Is(err, store.ErrNotFound) {
		m.metrics.CacheMiss()
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, err
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}

	if entry.Expired(m.now()) {
		if err := m.kv.Delete(ctx, store.Cache, key); err != nil {
			return models.CacheEntry{}, false, err
		}
		m.metrics.CacheMiss()
		m.metrics.CacheExpire(1)
		m.log.Debug(ctx, "expired entry dropped", "key", key)
		return models.CacheEntry{}, false, nil
	}

	m.metrics.CacheHit()
	return entry, true, nil
}

// ClearExpired deletes every stale entry and returns how many were removed.
// Entries that cannot be decoded are removed as well.
func (m *Manager) ClearExpired(ctx context.Context) (int, error) {
	removed := 0
	err := m.kv.Update(ctx, func(ctx context.Context, tx store.Ops) error {
		removed = 0
		all, err := tx.GetAll(ctx, store.Cache)
		if err != nil {
			return err
		}
		now := m.now()
		for _, r := range all {
			var entry models.CacheEntry
			if err := json.Unmarshal(r.Value, &entry); err == nil && !entry.Expired(now) {
				continue
			}
			if err := tx.Delete(ctx, store.Cache, r.Key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.metrics.CacheExpire(removed)
	if removed > 0 {
		m.log.Info(ctx, "expired entries swept", "removed", removed)
	}
	return removed, nil
}

// Clear drops every snapshot.
func (m *Manager) Clear(ctx context.Context) error {
	return m.kv.Clear(ctx, store.Cache)
}
