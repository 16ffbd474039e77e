package service

import (
	"context"

	"github.com/iliyamo/room-booking/internal/events"
	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/policy"
	"github.com/iliyamo/room-booking/internal/repository"
	"github.com/iliyamo/room-booking/internal/rules"
)

// ReservationInput is the writable part of a reservation. A zero UserID
// means the caller.
type ReservationInput struct {
	UserID  uint64
	EventID uint64
}

// ReservationPatch holds the reservation fields to change; nil fields are
// kept.
type ReservationPatch struct {
	UserID  *uint64
	EventID *uint64
}

type ReservationService struct {
	store  repository.Store
	notify Notifier
}

// List returns every reservation for staff and the caller's own for
// members.
func (s *ReservationService) List(ctx context.Context, p policy.Principal) ([]model.Reservation, error) {
	a, err := policy.Authorize(p, policy.Reservations, policy.List)
	if err != nil {
		return nil, err
	}
	var f repository.ReservationFilter
	if a == policy.Own {
		f.UserID = p.UserID
	}
	return s.store.Reservations().List(ctx, f)
}

func (s *ReservationService) Get(ctx context.Context, p policy.Principal, id uint64) (*model.Reservation, error) {
	a, err := policy.Authorize(p, policy.Reservations, policy.Retrieve)
	if err != nil {
		return nil, err
	}
	r, err := s.store.Reservations().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.ReservationVisible(a, p, *r) {
		return nil, errNotFound
	}
	return r, nil
}

// Create books a seat on an event. Members may only book for themselves.
func (s *ReservationService) Create(ctx context.Context, p policy.Principal, in ReservationInput) (*model.Reservation, error) {
	a, err := policy.Authorize(p, policy.Reservations, policy.Create)
	if err != nil {
		return nil, err
	}
	r := model.Reservation{UserID: in.UserID, EventID: in.EventID}
	if r.UserID == 0 {
		r.UserID = p.UserID
	}
	if err := checkOwner(a, p, r); err != nil {
		return nil, err
	}

	var e *model.Event
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		if e, err = checkReservation(ctx, q, p, r); err != nil {
			return err
		}
		return q.Reservations().Create(ctx, &r)
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, events.ReservationMessage(events.ReservationCreated, r, *e))
	return &r, nil
}

func (s *ReservationService) Update(ctx context.Context, p policy.Principal, id uint64, patch ReservationPatch) (*model.Reservation, error) {
	a, err := policy.Authorize(p, policy.Reservations, policy.Update)
	if err != nil {
		return nil, err
	}
	var r *model.Reservation
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		if r, err = q.Reservations().Get(ctx, id); err != nil {
			return err
		}
		if !policy.ReservationVisible(a, p, *r) {
			return errNotFound
		}
		if patch.UserID != nil {
			r.UserID = *patch.UserID
		}
		if patch.EventID != nil {
			r.EventID = *patch.EventID
		}
		if err := checkOwner(a, p, *r); err != nil {
			return err
		}
		if _, err := checkReservation(ctx, q, p, *r); err != nil {
			return err
		}
		return q.Reservations().Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete cancels a reservation.
func (s *ReservationService) Delete(ctx context.Context, p policy.Principal, id uint64) error {
	a, err := policy.Authorize(p, policy.Reservations, policy.Delete)
	if err != nil {
		return err
	}
	var (
		r *model.Reservation
		e *model.Event
	)
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		if r, err = q.Reservations().Get(ctx, id); err != nil {
			return err
		}
		if !policy.ReservationVisible(a, p, *r) {
			return errNotFound
		}
		if e, err = q.Events().Get(ctx, r.EventID); err != nil {
			return err
		}
		return q.Reservations().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notify.Notify(ctx, events.ReservationMessage(events.ReservationCancelled, *r, *e))
	return nil
}

// checkOwner keeps members from booking for, or handing a reservation to,
// another user.
func checkOwner(a policy.Access, p policy.Principal, r model.Reservation) error {
	if a == policy.Own && r.UserID != p.UserID {
		return model.Errorf(model.ErrPermissionDenied, "You do not have permission to perform this action.")
	}
	return nil
}

// checkReservation locks r's event, makes sure its references exist and are
// visible to p, and validates r against the event's current reservations
// and its room's capacity. It returns the locked event. The reservations
// are read after the event lock is granted, so concurrent bookings of the
// same event see each other.
func checkReservation(ctx context.Context, q repository.Queries, p policy.Principal, r model.Reservation) (*model.Event, error) {
	if err := rules.ValidateReservationFields(r); err != nil {
		return nil, err
	}
	e, err := q.Events().GetForUpdate(ctx, r.EventID)
	if err != nil {
		return nil, invalidPK(err, "event", r.EventID)
	}
	if !policy.EventVisible(policy.Decide(p, policy.Events, policy.Retrieve), *e) {
		return nil, invalidPK(errNotFound, "event", r.EventID)
	}
	if _, err := q.Users().Get(ctx, r.UserID); err != nil {
		return nil, invalidPK(err, "user", r.UserID)
	}
	// keeps the capacity from shrinking until the write commits
	room, err := q.Rooms().GetForShare(ctx, e.RoomID)
	if err != nil {
		return nil, err
	}
	existing, err := q.Reservations().ListByEvent(ctx, r.EventID)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateReservation(r, *room, existing); err != nil {
		return nil, err
	}
	return e, nil
}
