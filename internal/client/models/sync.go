package models

import (
	"encoding/json"
	"time"
)

// MaxRetries is the number of failed replays after which a queued mutation
// is parked.
const MaxRetries = 3

type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
)

func (t OperationType) Valid() bool {
	return t == OpCreate || t == OpUpdate || t == OpDelete
}

// SyncQueueItem is a mutation waiting for server confirmation.
type SyncQueueItem struct {
	ID         string         `json:"id"`
	Type       OperationType  `json:"type"`
	Endpoint   string         `json:"endpoint"`
	Data       map[string]any `json:"data"`
	Timestamp  int64          `json:"timestamp"`
	RetryCount int            `json:"retryCount"`
	LastError  string         `json:"lastError,omitempty"`
}

// Parked reports whether the item has exhausted its retries.
func (i SyncQueueItem) Parked() bool { return i.RetryCount >= MaxRetries }

// RecordID returns the id carried in the payload, if any.
func (i SyncQueueItem) RecordID() string {
	s, _ := i.Data["id"].(string)
	return s
}

// CacheEntry is a TTL-stamped snapshot of one resource.
type CacheEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	ExpiresAt int64           `json:"expiresAt"`
}

// Expired reports whether the entry is stale at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.UnixMilli() > e.ExpiresAt
}

type SyncStatus struct {
	IsOnline          bool       `json:"isOnline"`
	PendingOperations int        `json:"pendingOperations"`
	StuckOperations   int        `json:"stuckOperations"`
	LastSyncTime      *time.Time `json:"lastSyncTime,omitempty"`
}
