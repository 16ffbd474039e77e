package service

import (
	"context"

	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/policy"
	"github.com/iliyamo/room-booking/internal/repository"
	"github.com/iliyamo/room-booking/internal/rules"
)

// RoomInput is the writable part of a room.
type RoomInput struct {
	Name     string
	Capacity int
}

// RoomPatch holds the room fields to change; nil fields are kept.
type RoomPatch struct {
	Name     *string
	Capacity *int
}

type RoomService struct {
	store repository.Store
}

func (s *RoomService) List(ctx context.Context, p policy.Principal) ([]model.Room, error) {
	if _, err := policy.Authorize(p, policy.Rooms, policy.List); err != nil {
		return nil, err
	}
	return s.store.Rooms().List(ctx)
}

func (s *RoomService) Get(ctx context.Context, p policy.Principal, id uint64) (*model.Room, error) {
	if _, err := policy.Authorize(p, policy.Rooms, policy.Retrieve); err != nil {
		return nil, err
	}
	return s.store.Rooms().Get(ctx, id)
}

func (s *RoomService) Create(ctx context.Context, p policy.Principal, in RoomInput) (*model.Room, error) {
	if _, err := policy.Authorize(p, policy.Rooms, policy.Create); err != nil {
		return nil, err
	}
	room := model.Room{Name: in.Name, Capacity: in.Capacity}
	if err := rules.ValidateRoom(room); err != nil {
		return nil, err
	}
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		return q.Rooms().Create(ctx, &room)
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *RoomService) Update(ctx context.Context, p policy.Principal, id uint64, patch RoomPatch) (*model.Room, error) {
	if _, err := policy.Authorize(p, policy.Rooms, policy.Update); err != nil {
		return nil, err
	}
	var room *model.Room
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		if room, err = q.Rooms().GetForUpdate(ctx, id); err != nil {
			return err
		}
		if patch.Name != nil {
			room.Name = *patch.Name
		}
		shrinks := patch.Capacity != nil && *patch.Capacity < room.Capacity
		if patch.Capacity != nil {
			room.Capacity = *patch.Capacity
		}
		if err := rules.ValidateRoom(*room); err != nil {
			return err
		}
		if shrinks {
			// reservation writes share-lock the room, so the count is stable
			held, err := q.Rooms().MaxReservations(ctx, id)
			if err != nil {
				return err
			}
			if err := rules.ValidateCapacity(*room, held); err != nil {
				return err
			}
		}
		return q.Rooms().Update(ctx, room)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Delete removes a room that hosts no events. The room row stays locked
// while the events are counted, so an event cannot be added in between.
func (s *RoomService) Delete(ctx context.Context, p policy.Principal, id uint64) error {
	if _, err := policy.Authorize(p, policy.Rooms, policy.Delete); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(q repository.Queries) error {
		room, err := q.Rooms().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		n, err := q.Rooms().CountEvents(ctx, id)
		if err != nil {
			return err
		}
		if err := rules.ValidateRoomDeletion(*room, n); err != nil {
			return err
		}
		return q.Rooms().Delete(ctx, id)
	})
}
