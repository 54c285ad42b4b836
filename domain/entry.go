// Package domain contains the core concepts of the relay.
// Entries are immutable once written; the timestamp is the only
// total order imposed within a room.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is the unit of relay traffic. Room is an opaque identifier
// matched exactly by the store filter, Payload is opaque application
// content the relay never validates.
type Entry struct {
	ID      uuid.UUID
	Room    string
	Payload string
	At      time.Time
}

// NewEntry stamps the current time and assigns a fresh identifier.
// The identifier disambiguates two entries written in the same nanosecond.
func NewEntry(room, payload string) Entry {
	return Entry{
		ID:      uuid.New(),
		Room:    NormalizeRoom(room),
		Payload: payload,
		At:      time.Now().UTC(),
	}
}

// NormalizeRoom canonicalises a room code. Filtering is an exact string
// match, so writers and readers must agree on case; upper case is the
// convention on both sides.
func NormalizeRoom(room string) string {
	return strings.ToUpper(strings.TrimSpace(room))
}
