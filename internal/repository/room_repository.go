package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/room-booking/internal/model"
)

const roomColumns = `id, name, capacity, created_at, updated_at`

// RoomRepo persists rooms.
type RoomRepo struct {
	db dbtx
}

func scanRoom(row scanner) (model.Room, error) {
	var r model.Room
	err := row.Scan(&r.ID, &r.Name, &r.Capacity, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// List returns every room in insertion order.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	out := []model.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

func (r *RoomRepo) get(ctx context.Context, q string, id uint64) (*model.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

// Get returns the room with the given id or ErrNotFound.
func (r *RoomRepo) Get(ctx context.Context, id uint64) (*model.Room, error) {
	return r.get(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
}

// GetForUpdate is Get with a row lock held until the surrounding
// transaction ends.
func (r *RoomRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Room, error) {
	return r.get(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ? FOR UPDATE`, id)
}

// GetForShare is Get with a shared row lock: other transactions may read
// and share-lock the room, but cannot change it until this one ends.
func (r *RoomRepo) GetForShare(ctx context.Context, id uint64) (*model.Room, error) {
	return r.get(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ? FOR SHARE`, id)
}

// Create inserts a room and fills in its id and timestamps.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (name, capacity, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		room.Name, room.Capacity, ts, ts)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("room id: %w", err)
	}
	room.ID = uint64(id)
	room.CreatedAt, room.UpdatedAt = ts, ts
	return nil
}

// Update writes name and capacity and bumps updated_at.
func (r *RoomRepo) Update(ctx context.Context, room *model.Room) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET name = ?, capacity = ?, updated_at = ? WHERE id = ?`,
		room.Name, room.Capacity, ts, room.ID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	room.UpdatedAt = ts
	return nil
}

// Delete removes a room. The events foreign key is RESTRICT, so a room that
// still hosts events fails with ErrHasDependents.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountEvents returns how many events the room hosts.
func (r *RoomRepo) CountEvents(ctx context.Context, roomID uint64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE room_id = ?`, roomID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// MaxReservations returns the reservation count of the busiest event the
// room hosts.
func (r *RoomRepo) MaxReservations(ctx context.Context, roomID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(held.n), 0) FROM (
		SELECT COUNT(*) AS n FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE e.room_id = ?
		GROUP BY r.event_id) held`, roomID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}
