package models

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// localPrefix namespaces identifiers minted on this device before the
// backend has confirmed the entity.
const localPrefix = "local_"

// localCounter distinguishes local ids minted in the same process. Seeded
// from the wall clock so ids stay distinct across restarts.
var localCounter = func() *atomic.Uint64 {
	var c atomic.Uint64
	c.Store(uint64(time.Now().UnixNano()))
	return &c
}()

// EntityID identifies an entity. It is a tagged value: either a synthetic
// local id (assigned optimistically, before the backend confirms the
// entity) or a server-assigned id. The zero value is no id at all.
type EntityID struct {
	value string
	local bool
}

// NewLocalID mints a fresh synthetic id in the local namespace.
func NewLocalID() EntityID {
	return EntityID{
		value: fmt.Sprintf("%s%d", localPrefix, localCounter.Add(1)),
		local: true,
	}
}

// RemoteID wraps a server-assigned identifier.
func RemoteID(serverID string) EntityID {
	return EntityID{value: serverID}
}

// ParseID reconstructs an EntityID from its string form, classifying it
// by the local namespace prefix.
func ParseID(s string) EntityID {
	return EntityID{value: s, local: strings.HasPrefix(s, localPrefix)}
}

// IsLocal reports whether the id is a synthetic local id awaiting (or
// permanently denied) server confirmation.
func (id EntityID) IsLocal() bool { return id.local }

// IsZero reports whether the id is unset.
func (id EntityID) IsZero() bool { return id.value == "" }

func (id EntityID) String() string { return id.value }

// MarshalText encodes the id as its string form so EntityID can key JSON
// maps in the persisted snapshot document.
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText decodes an id, restoring the local tag from the prefix.
func (id *EntityID) UnmarshalText(text []byte) error {
	*id = ParseID(string(text))
	return nil
}
