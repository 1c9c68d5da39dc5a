package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/common"
)

var ErrAlreadyConfirmed = errors.New("record id already confirmed")

// RecordID identifies a record that either exists only on this device
// (LocalOnly) or has been acknowledged by the server (Confirmed). The temp_
// prefix only appears in the wire and storage encoding.
type RecordID struct {
	value string
	local bool
}

// NewLocalID mints a LocalOnly id from the creation instant.
func NewLocalID(now time.Time) RecordID {
	return RecordID{value: strconv.FormatInt(now.UnixMilli(), 10), local: true}
}

func ConfirmedID(serverID string) RecordID {
	return RecordID{value: serverID}
}

// ParseRecordID decodes the wire form produced by String.
func ParseRecordID(s string) RecordID {
	if v, ok := strings.CutPrefix(s, common.TempIDPrefix); ok {
		return RecordID{value: v, local: true}
	}
	return RecordID{value: s}
}

func (id RecordID) IsLocal() bool { return id.local }
func (id RecordID) IsZero() bool  { return id.value == "" }

// Value is the bare identifier without the local marker.
func (id RecordID) Value() string { return id.value }

func (id RecordID) String() string {
	if id.local {
		return common.TempIDPrefix + id.value
	}
	return id.value
}

// Confirm moves a LocalOnly id to Confirmed.
func (id RecordID) Confirm(serverID string) (RecordID, error) {
	if !id.local {
		return id, ErrAlreadyConfirmed
	}
	if serverID == "" {
		return id, errors.New("empty server id")
	}
	return ConfirmedID(serverID), nil
}

func (id RecordID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *RecordID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*id = ParseRecordID(s)
	return nil
}
