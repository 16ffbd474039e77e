// Package repository defines the entity store the services run against and
// its MySQL implementation. The in-memory implementation lives in the
// memory subpackage.
package repository

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/room-booking/internal/model"
)

// EventFilter narrows an event listing.
type EventFilter struct {
	PublicOnly bool // only events with is_public set
}

// ReservationFilter narrows a reservation listing.
type ReservationFilter struct {
	UserID uint64 // only reservations of this user; zero lists all
}

// RoomQueries reads and writes rooms.
type RoomQueries interface {
	List(ctx context.Context) ([]model.Room, error)
	Get(ctx context.Context, id uint64) (*model.Room, error)
	// GetForUpdate reads a room and, inside a transaction, locks it until
	// the transaction ends.
	GetForUpdate(ctx context.Context, id uint64) (*model.Room, error)
	// GetForShare reads a room and, inside a transaction, blocks writers of
	// the row until the transaction ends.
	GetForShare(ctx context.Context, id uint64) (*model.Room, error)
	Create(ctx context.Context, r *model.Room) error
	Update(ctx context.Context, r *model.Room) error
	Delete(ctx context.Context, id uint64) error
	CountEvents(ctx context.Context, roomID uint64) (int, error)
	// MaxReservations returns the largest number of reservations held by a
	// single event of the room, zero when it has none.
	MaxReservations(ctx context.Context, roomID uint64) (int, error)
}

// EventQueries reads and writes events.
type EventQueries interface {
	List(ctx context.Context, f EventFilter) ([]model.Event, error)
	Get(ctx context.Context, id uint64) (*model.Event, error)
	// GetForUpdate reads an event and, inside a transaction, locks it until
	// the transaction ends.
	GetForUpdate(ctx context.Context, id uint64) (*model.Event, error)
	ListOnDate(ctx context.Context, roomID uint64, date civil.Date) ([]model.Event, error)
	Create(ctx context.Context, e *model.Event) error
	Update(ctx context.Context, e *model.Event) error
	// Delete removes an event together with its reservations.
	Delete(ctx context.Context, id uint64) error
}

// ReservationQueries reads and writes reservations.
type ReservationQueries interface {
	List(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	Get(ctx context.Context, id uint64) (*model.Reservation, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Reservation, error)
	Create(ctx context.Context, r *model.Reservation) error
	Update(ctx context.Context, r *model.Reservation) error
	Delete(ctx context.Context, id uint64) error
}

// UserQueries reads users and lets the identity tooling create them.
type UserQueries interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id uint64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// TokenQueries persists hashed refresh tokens.
type TokenQueries interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	// ValidateRefresh returns the owner of a live (unexpired, unrevoked) token.
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Queries groups the per-entity accessors of one store view.
type Queries interface {
	Rooms() RoomQueries
	Events() EventQueries
	Reservations() ReservationQueries
	Users() UserQueries
	Tokens() TokenQueries
}

// Store is a Queries view outside any transaction plus a way to run a
// function inside one. InTx commits when fn returns nil and rolls back
// otherwise, returning fn's error unchanged. Reads inside fn that follow a
// row lock see every transaction committed before the lock was granted.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
