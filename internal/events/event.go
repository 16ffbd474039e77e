// Package events carries the domain events of the booking API over
// RabbitMQ: the server publishes them after a write commits, the audit
// consumer appends them to a log file.
package events

import (
	"fmt"
	"time"

	"github.com/iliyamo/room-booking/internal/model"
)

// QueueName is the durable queue every domain event is routed to.
const QueueName = "room-booking.events"

// Event types.
const (
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
	EventDeleted         = "event.deleted"
)

// Message is the JSON payload of one domain event. It holds enough for a
// consumer to log or notify without reading the primary database.
type Message struct {
	Type          string    `json:"type"`
	ReservationID uint64    `json:"reservation_id,omitempty"`
	UserID        uint64    `json:"user_id,omitempty"`
	EventID       uint64    `json:"event_id"`
	EventName     string    `json:"event_name,omitempty"`
	RoomID        uint64    `json:"room_id,omitempty"`
	Date          string    `json:"date,omitempty"`
	Reservations  int       `json:"reservations,omitempty"` // reservations removed with a deleted event
	OccurredAt    time.Time `json:"occurred_at"`
}

// ReservationMessage describes a reservation of e being created or cancelled.
func ReservationMessage(typ string, r model.Reservation, e model.Event) Message {
	return Message{
		Type:          typ,
		ReservationID: r.ID,
		UserID:        r.UserID,
		EventID:       e.ID,
		EventName:     e.Name,
		RoomID:        e.RoomID,
		Date:          e.Date.String(),
		OccurredAt:    time.Now().UTC(),
	}
}

// EventDeletedMessage describes the deletion of e and its n reservations.
func EventDeletedMessage(e model.Event, n int) Message {
	return Message{
		Type:         EventDeleted,
		EventID:      e.ID,
		EventName:    e.Name,
		RoomID:       e.RoomID,
		Date:         e.Date.String(),
		Reservations: n,
		OccurredAt:   time.Now().UTC(),
	}
}

// Line renders m as one human-readable audit log line.
func (m Message) Line() string {
	ts := m.OccurredAt.UTC().Format(time.RFC3339)
	switch m.Type {
	case ReservationCreated, ReservationCancelled:
		return fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%d | event_id=%d | event=%q | room_id=%d | date=%s\n",
			ts, m.Type, m.ReservationID, m.UserID, m.EventID, m.EventName, m.RoomID, m.Date)
	case EventDeleted:
		return fmt.Sprintf("[%s] %s | event_id=%d | event=%q | room_id=%d | date=%s | reservations=%d\n",
			ts, m.Type, m.EventID, m.EventName, m.RoomID, m.Date, m.Reservations)
	default:
		return fmt.Sprintf("[%s] %s | event_id=%d\n", ts, m.Type, m.EventID)
	}
}
