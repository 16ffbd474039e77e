package model

import (
	"fmt"
	"time"
)

// Reservation is a user's claim on one seat of an event. A user holds at
// most one reservation per event.
type Reservation struct {
	ID        uint64    `json:"id"`         // reservations.id
	UserID    uint64    `json:"user"`       // reservations.user_id
	EventID   uint64    `json:"event"`      // reservations.event_id
	CreatedAt time.Time `json:"created_at"` // reservations.created_at
	UpdatedAt time.Time `json:"updated_at"` // reservations.updated_at
}

func (r Reservation) String() string { return fmt.Sprintf("Reservation::%d", r.ID) }
