package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
)

// idMapKey holds the server ids of confirmed local records. It lives next to
// the snapshots and is wiped together with them by ClearAll.
const (
	idMapKey = "confirmed_ids"
	idMapTTL = 30 * 24 * time.Hour
)

// idMap maps the wire form of a LocalOnly id to its server id.
type idMap map[string]string

func (m idMap) resolve(id string) string {
	if sid, ok := m[id]; ok {
		return sid
	}
	return id
}

// relabel replaces confirmed local ids found in the string fields of rec.
func (m idMap) relabel(rec map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	changed := false
	for k, v := range rec {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if sid, ok := m[s]; ok {
			rec[k] = sid
			changed = true
		}
	}
	return changed
}

// ResolveID returns the server id of a confirmed local record, or id itself.
func (c *Coordinator) ResolveID(ctx context.Context, id string) string {
	return c.confirmedIDs(ctx).resolve(id)
}

func (c *Coordinator) confirmedIDs(ctx context.Context) idMap {
	m := idMap{}
	if _, err := c.cache.Get(ctx, idMapKey, &m); err != nil {
		c.log.Warn(ctx, "cannot read confirmed ids", "error", err)
		return idMap{}
	}
	return m
}

// confirm moves the local record created by item to the server id in
// created and persists the mapping.
func (c *Coordinator) confirm(ctx context.Context, ids idMap, item models.SyncQueueItem, created map[string]any) bool {
	local := models.ParseRecordID(item.RecordID())
	if item.Type != models.OpCreate || !local.IsLocal() {
		return false
	}

	serverID, _ := created["id"].(string)
	confirmed, err := local.Confirm(serverID)
	if err != nil {
		c.log.Warn(ctx, "create confirmed without id", "id", item.ID, "error", err)
		return false
	}

	ids[local.String()] = confirmed.String()
	if err := c.cache.Set(ctx, idMapKey, ids, idMapTTL); err != nil {
		c.log.Warn(ctx, "cannot persist confirmed id", "local", local.String(), "error", err)
	}
	return true
}

// relabelCached swaps confirmed local ids in every cached snapshot, so they
// disappear even when the refresh that follows a drain fails.
func (c *Coordinator) relabelCached(ctx context.Context, ids idMap) {
	for _, col := range models.AllCollections {
		var list []map[string]any
		found, err := c.cache.Get(ctx, col.CacheKey(), &list)
		if err != nil || !found {
			continue
		}

		changed := false
		for _, rec := range list {
			if ids.relabel(rec) {
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := c.cache.Set(ctx, col.CacheKey(), list, 0); err != nil {
			c.log.Warn(ctx, "cannot relabel snapshot", "collection", col, "error", err)
		}
	}
}
