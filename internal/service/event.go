package service

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/room-booking/internal/events"
	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/policy"
	"github.com/iliyamo/room-booking/internal/repository"
	"github.com/iliyamo/room-booking/internal/rules"
)

// EventInput is the writable part of an event.
type EventInput struct {
	Name     string
	RoomID   uint64
	Date     civil.Date
	IsPublic bool
}

// EventPatch holds the event fields to change; nil fields are kept.
type EventPatch struct {
	Name     *string
	RoomID   *uint64
	Date     *civil.Date
	IsPublic *bool
}

type EventService struct {
	store  repository.Store
	notify Notifier
}

// List returns the events the caller may see: public ones for anonymous
// callers and members, all of them for staff.
func (s *EventService) List(ctx context.Context, p policy.Principal) ([]model.Event, error) {
	a, err := policy.Authorize(p, policy.Events, policy.List)
	if err != nil {
		return nil, err
	}
	return s.store.Events().List(ctx, repository.EventFilter{PublicOnly: a == policy.Public})
}

func (s *EventService) Get(ctx context.Context, p policy.Principal, id uint64) (*model.Event, error) {
	a, err := policy.Authorize(p, policy.Events, policy.Retrieve)
	if err != nil {
		return nil, err
	}
	e, err := s.store.Events().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.EventVisible(a, *e) {
		return nil, errNotFound
	}
	return e, nil
}

func (s *EventService) Create(ctx context.Context, p policy.Principal, in EventInput) (*model.Event, error) {
	if _, err := policy.Authorize(p, policy.Events, policy.Create); err != nil {
		return nil, err
	}
	e := model.Event{Name: in.Name, RoomID: in.RoomID, Date: in.Date, IsPublic: in.IsPublic}
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		if _, err := checkEvent(ctx, q, e); err != nil {
			return err
		}
		return q.Events().Create(ctx, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *EventService) Update(ctx context.Context, p policy.Principal, id uint64, patch EventPatch) (*model.Event, error) {
	a, err := policy.Authorize(p, policy.Events, policy.Update)
	if err != nil {
		return nil, err
	}
	var e *model.Event
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		if e, err = q.Events().GetForUpdate(ctx, id); err != nil {
			return err
		}
		if !policy.EventVisible(a, *e) {
			return errNotFound
		}
		if patch.Name != nil {
			e.Name = *patch.Name
		}
		if patch.RoomID != nil {
			e.RoomID = *patch.RoomID
		}
		if patch.Date != nil {
			e.Date = *patch.Date
		}
		if patch.IsPublic != nil {
			e.IsPublic = *patch.IsPublic
		}
		room, err := checkEvent(ctx, q, *e)
		if err != nil {
			return err
		}
		// the event row is locked, so no reservation can join it meanwhile
		held, err := q.Reservations().ListByEvent(ctx, e.ID)
		if err != nil {
			return err
		}
		if err := rules.ValidateCapacity(*room, len(held)); err != nil {
			return err
		}
		return q.Events().Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// checkEvent validates the fields of e, then locks its room and checks e
// against the events the room already hosts on e's date. It returns the
// locked room.
func checkEvent(ctx context.Context, q repository.Queries, e model.Event) (*model.Room, error) {
	if err := rules.ValidateEvent(e, nil); err != nil {
		return nil, err
	}
	room, err := q.Rooms().GetForUpdate(ctx, e.RoomID)
	if err != nil {
		return nil, invalidPK(err, "room", e.RoomID)
	}
	sameDay, err := q.Events().ListOnDate(ctx, e.RoomID, e.Date)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateEvent(e, sameDay); err != nil {
		return nil, err
	}
	return room, nil
}

// Delete removes an event together with its reservations.
func (s *EventService) Delete(ctx context.Context, p policy.Principal, id uint64) error {
	a, err := policy.Authorize(p, policy.Events, policy.Delete)
	if err != nil {
		return err
	}
	var (
		e       *model.Event
		removed int
	)
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		if e, err = q.Events().GetForUpdate(ctx, id); err != nil {
			return err
		}
		if !policy.EventVisible(a, *e) {
			return errNotFound
		}
		held, err := q.Reservations().ListByEvent(ctx, id)
		if err != nil {
			return err
		}
		removed = len(held)
		return q.Events().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notify.Notify(ctx, events.EventDeletedMessage(*e, removed))
	return nil
}
