package model

import (
	"time"

	"cloud.google.com/go/civil"
)

// Event is a scheduled occupation of a room on one calendar day. A room
// hosts at most one event per day. Private events are only visible to
// staff.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name, at most 225 characters.
//	RoomID    – room hosting the event (required).
//	Date      – the day the event takes place.
//	IsPublic  – whether non-staff callers may see the event.
//	CreatedAt – set by the store on insert.
//	UpdatedAt – set by the store on every write.
type Event struct {
	ID        uint64     `json:"id"`         // events.id
	Name      string     `json:"name"`       // events.name
	RoomID    uint64     `json:"room"`       // events.room_id
	Date      civil.Date `json:"date"`       // events.date
	IsPublic  bool       `json:"is_public"`  // events.is_public
	CreatedAt time.Time  `json:"created_at"` // events.created_at
	UpdatedAt time.Time  `json:"updated_at"` // events.updated_at
}

func (e Event) String() string { return displayName("Event", e.ID, e.Name) }
