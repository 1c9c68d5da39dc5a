package syncer

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/common"
)

// Create queues a create and shows the record in the cached snapshot under
// a LocalOnly id until the server confirms it.
func (c *Coordinator) Create(ctx context.Context, col models.Collection, data map[string]any) (models.RecordID, error) {
	if !col.Valid() {
		return models.RecordID{}, fmt.Errorf("%w: %q", common.ErrUnknownCollection, col)
	}

	id := c.nextLocalID()
	rec := maps.Clone(data)
	if rec == nil {
		rec = map[string]any{}
	}
	c.confirmedIDs(ctx).relabel(rec)
	rec["id"] = id.String()

	if _, err := c.queue.Enqueue(ctx, models.OpCreate, models.Endpoint(col, ""), rec); err != nil {
		return models.RecordID{}, err
	}

	c.applyLocal(ctx, col, func(list []map[string]any) []map[string]any {
		return append(list, rec)
	})
	return id, nil
}

// Update queues an update carrying the full record: the fields in data laid
// over the cached version, when there is one. Local ids the server has
// already confirmed are replaced by their server ids.
func (c *Coordinator) Update(ctx context.Context, col models.Collection, id string, data map[string]any) error {
	if !col.Valid() {
		return fmt.Errorf("%w: %q", common.ErrUnknownCollection, col)
	}

	ids := c.confirmedIDs(ctx)
	id = ids.resolve(id)

	rec := map[string]any{}
	if cur, ok := c.cachedRecord(ctx, col, id); ok {
		rec = cur
	}
	maps.Copy(rec, data)
	ids.relabel(rec)
	rec["id"] = id

	if _, err := c.queue.Enqueue(ctx, models.OpUpdate, models.Endpoint(col, id), rec); err != nil {
		return err
	}

	c.applyLocal(ctx, col, func(list []map[string]any) []map[string]any {
		if i := indexOf(list, id); i >= 0 {
			list[i] = rec
		}
		return list
	})
	return nil
}

// Delete queues a delete and hides the record from the snapshot.
func (c *Coordinator) Delete(ctx context.Context, col models.Collection, id string) error {
	if !col.Valid() {
		return fmt.Errorf("%w: %q", common.ErrUnknownCollection, col)
	}
	id = c.ResolveID(ctx, id)

	if _, err := c.queue.Enqueue(ctx, models.OpDelete, models.Endpoint(col, id), map[string]any{"id": id}); err != nil {
		return err
	}

	c.applyLocal(ctx, col, func(list []map[string]any) []map[string]any {
		if i := indexOf(list, id); i >= 0 {
			list = slices.Delete(list, i, i+1)
		}
		return list
	})
	return nil
}

// applyLocal edits the cached snapshot of col. The mutation is already
// durable in the queue, so cache failures are only logged.
func (c *Coordinator) applyLocal(ctx context.Context, col models.Collection, edit func([]map[string]any) []map[string]any) {
	var list []map[string]any
	if _, err := c.cache.Get(ctx, col.CacheKey(), &list); err != nil {
		c.log.Warn(ctx, "optimistic update skipped", "collection", col, "error", err)
		return
	}
	if list == nil {
		list = []map[string]any{}
	}
	if err := c.cache.Set(ctx, col.CacheKey(), edit(list), 0); err != nil {
		c.log.Warn(ctx, "optimistic update not cached", "collection", col, "error", err)
	}
}

func (c *Coordinator) cachedRecord(ctx context.Context, col models.Collection, id string) (map[string]any, bool) {
	var list []map[string]any
	if found, err := c.cache.Get(ctx, col.CacheKey(), &list); err != nil || !found {
		return nil, false
	}
	if i := indexOf(list, id); i >= 0 {
		return list[i], true
	}
	return nil, false
}

// nextLocalID mints temp ids that stay unique within this process even when
// two records are created in the same millisecond.
func (c *Coordinator) nextLocalID() models.RecordID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.lastLocal {
		ms = c.lastLocal + 1
	}
	c.lastLocal = ms
	return models.NewLocalID(time.UnixMilli(ms))
}

func indexOf(list []map[string]any, id string) int {
	return slices.IndexFunc(list, func(r map[string]any) bool {
		s, _ := r["id"].(string)
		return s == id
	})
}

// overlay applies the queued mutations of col to a fresh server list.
func overlay(col models.Collection, list []map[string]any, pending []models.SyncQueueItem) []map[string]any {
	if list == nil {
		list = []map[string]any{}
	}
	for _, item := range pending {
		ic, id, err := models.ParseEndpoint(item.Endpoint)
		if err != nil || ic != col {
			continue
		}
		switch item.Type {
		case models.OpCreate:
			if indexOf(list, item.RecordID()) < 0 {
				list = append(list, maps.Clone(item.Data))
			}
		case models.OpUpdate:
			if i := indexOf(list, id); i >= 0 {
				merged := maps.Clone(list[i])
				maps.Copy(merged, item.Data)
				list[i] = merged
			}
		case models.OpDelete:
			if i := indexOf(list, id); i >= 0 {
				list = slices.Delete(list, i, i+1)
			}
		}
	}
	return list
}

// pendingCreates collects the local ids whose create is still queued,
// mapped to whether that create is parked.
func pendingCreates(items []models.SyncQueueItem) map[string]bool {
	out := map[string]bool{}
	for _, it := range items {
		if it.Type == models.OpCreate && models.ParseRecordID(it.RecordID()).IsLocal() {
			out[it.RecordID()] = it.Parked()
		}
	}
	return out
}

// rewriteIDs swaps confirmed local ids for server ids in the endpoint and
// payload of item.
func rewriteIDs(item models.SyncQueueItem, ids idMap) (models.SyncQueueItem, bool) {
	if len(ids) == 0 {
		return item, false
	}

	changed := false
	if col, id, err := models.ParseEndpoint(item.Endpoint); err == nil && id != "" {
		if sid := ids.resolve(id); sid != id {
			item.Endpoint = models.Endpoint(col, sid)
			changed = true
		}
	}

	data := maps.Clone(item.Data)
	if ids.relabel(data) {
		changed = true
	}
	item.Data = data
	return item, changed
}

// unconfirmedRef returns a local id the item depends on whose create has
// not been confirmed yet, or "".
func unconfirmedRef(item models.SyncQueueItem, unconfirmed map[string]bool) string {
	if len(unconfirmed) == 0 {
		return ""
	}

	own := ""
	if item.Type == models.OpCreate {
		own = item.RecordID()
	}

	if _, id, err := models.ParseEndpoint(item.Endpoint); err == nil {
		if _, ok := unconfirmed[id]; ok {
			return id
		}
	}
	for _, v := range item.Data {
		s, ok := v.(string)
		if !ok || s == own || !models.ParseRecordID(s).IsLocal() {
			continue
		}
		if _, ok := unconfirmed[s]; ok {
			return s
		}
	}
	return ""
}
