// Package service runs every API operation as one unit: it consults the
// access policy, opens a store transaction, reads the snapshot the rules
// need, validates the candidate and writes it. Domain events go out only
// after the transaction commits.
package service

import (
	"context"
	"errors"

	"github.com/iliyamo/room-booking/internal/events"
	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/repository"
)

// Notifier receives domain events after a write has committed. It must not
// block the request for long and never reports failure.
type Notifier interface {
	Notify(ctx context.Context, m events.Message)
}

// Services bundles the per-entity services over one store.
type Services struct {
	Rooms        *RoomService
	Events       *EventService
	Reservations *ReservationService
	Users        *UserService
}

// New wires the services to store. A nil notifier drops domain events.
func New(store repository.Store, notifier Notifier) *Services {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Services{
		Rooms:        &RoomService{store: store},
		Events:       &EventService{store: store, notify: notifier},
		Reservations: &ReservationService{store: store, notify: notifier},
		Users:        &UserService{store: store},
	}
}

// errNotFound is returned for records that do not exist or that the
// caller's access filter hides.
var errNotFound = repository.ErrNotFound

// invalidPK turns a missing referenced record into a validation error on
// field.
func invalidPK(err error, field string, id uint64) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.Errorf(model.ErrValidation, "%s: Invalid pk \"%d\" - object does not exist.", field, id)
	}
	return err
}
