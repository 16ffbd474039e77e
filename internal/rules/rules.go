// Package rules holds the invariants checked before a write commits. Each
// check is a pure function of the candidate record and a snapshot the caller
// read from the store inside the same transaction.
package rules

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/room-booking/internal/model"
)

const (
	// MaxNameLen bounds room and event names.
	MaxNameLen = 225
	// MaxCapacity is the largest capacity the rooms.capacity column holds.
	MaxCapacity = math.MaxUint32
)

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return model.Errorf(model.ErrValidation, "name: This field may not be blank.")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return model.Errorf(model.ErrValidation,
			"name: Ensure this field has no more than %d characters.", MaxNameLen)
	}
	return nil
}

// ValidateRoom checks the field rules of a room.
func ValidateRoom(r model.Room) error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if r.Capacity < 0 {
		return model.Errorf(model.ErrValidation,
			"capacity: Ensure this value is greater than or equal to 0.")
	}
	if int64(r.Capacity) > MaxCapacity {
		return model.Errorf(model.ErrValidation,
			"capacity: Ensure this value is less than or equal to %d.", int64(MaxCapacity))
	}
	return nil
}

// ValidateCapacity rejects a room whose capacity no longer covers held, the
// reservations its busiest event (or an event moving into it) already has.
func ValidateCapacity(room model.Room, held int) error {
	if held > room.Capacity {
		return model.Errorf(model.ErrCapacityExceeded,
			"Room capacity is lower than the %d reservations an event already holds.", held)
	}
	return nil
}

// ValidateEvent checks the field rules of candidate and rejects it when
// another event already occupies its room on its date. sameDay holds the
// stored events of that room and date; the candidate's own stored row, if
// any, is skipped.
func ValidateEvent(candidate model.Event, sameDay []model.Event) error {
	if err := validateName(candidate.Name); err != nil {
		return err
	}
	if candidate.RoomID == 0 {
		return model.Errorf(model.ErrValidation, "room: This field is required.")
	}
	if !candidate.Date.IsValid() {
		return model.Errorf(model.ErrValidation, "date: Date has wrong format. Use YYYY-MM-DD.")
	}
	for _, e := range sameDay {
		if e.ID == candidate.ID {
			continue
		}
		if e.RoomID == candidate.RoomID && e.Date == candidate.Date {
			return model.Errorf(model.ErrConflict, "Room has event on that day.")
		}
	}
	return nil
}

// ValidateReservation rejects candidate when its user already holds a seat
// on the event, or when the event's reservations already fill room. existing
// holds the stored reservations of the candidate's event; the candidate's own
// stored row, if any, is skipped.
func ValidateReservation(candidate model.Reservation, room model.Room, existing []model.Reservation) error {
	if err := ValidateReservationFields(candidate); err != nil {
		return err
	}
	held := 0
	for _, r := range existing {
		if r.EventID != candidate.EventID {
			continue
		}
		if candidate.ID != 0 && r.ID == candidate.ID {
			continue
		}
		if r.UserID == candidate.UserID {
			return model.Errorf(model.ErrDuplicate, "The fields user, event must make a unique set.")
		}
		held++
	}
	if held >= room.Capacity {
		return model.Errorf(model.ErrCapacityExceeded, "Room has no more capacity.")
	}
	return nil
}

// ValidateReservationFields checks that both references of r are set.
func ValidateReservationFields(r model.Reservation) error {
	if r.EventID == 0 {
		return model.Errorf(model.ErrValidation, "event: This field is required.")
	}
	if r.UserID == 0 {
		return model.Errorf(model.ErrValidation, "user: This field is required.")
	}
	return nil
}

// ValidateRoomDeletion rejects deleting a room that still hosts events.
func ValidateRoomDeletion(room model.Room, eventCount int) error {
	if eventCount > 0 {
		return model.Errorf(model.ErrHasDependents, "Room has events.")
	}
	return nil
}
