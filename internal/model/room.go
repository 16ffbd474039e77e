package model

import "time"

// Room is a bookable space. Capacity bounds the number of reservations any
// single event in the room may hold.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name, at most 225 characters.
//	Capacity  – seats available per event, never negative.
//	CreatedAt – set by the store on insert.
//	UpdatedAt – set by the store on every write.
type Room struct {
	ID        uint64    `json:"id"`         // rooms.id
	Name      string    `json:"name"`       // rooms.name
	Capacity  int       `json:"capacity"`   // rooms.capacity
	CreatedAt time.Time `json:"created_at"` // rooms.created_at
	UpdatedAt time.Time `json:"updated_at"` // rooms.updated_at
}

func (r Room) String() string { return displayName("Room", r.ID, r.Name) }
