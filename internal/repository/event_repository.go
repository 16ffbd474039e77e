package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/room-booking/internal/model"
)

const eventColumns = `id, name, room_id, date, is_public, created_at, updated_at`

// EventRepo persists events. Dates travel to MySQL as "YYYY-MM-DD" strings
// and come back as time.Time (parseTime=true).
type EventRepo struct {
	db dbtx
}

func scanEvent(row scanner) (model.Event, error) {
	var (
		e    model.Event
		date time.Time
	)
	if err := row.Scan(&e.ID, &e.Name, &e.RoomID, &date, &e.IsPublic, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return e, err
	}
	e.Date = civil.DateOf(date)
	return e, nil
}

func (r *EventRepo) list(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// List returns events in insertion order, optionally only public ones.
func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	if f.PublicOnly {
		q += ` WHERE is_public = TRUE`
	}
	return r.list(ctx, q+` ORDER BY id`)
}

// ListOnDate returns the events a room hosts on one day.
func (r *EventRepo) ListOnDate(ctx context.Context, roomID uint64, date civil.Date) ([]model.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE room_id = ? AND date = ? ORDER BY id`,
		roomID, date.String())
}

func (r *EventRepo) get(ctx context.Context, q string, id uint64) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// Get returns the event with the given id or ErrNotFound.
func (r *EventRepo) Get(ctx context.Context, id uint64) (*model.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
}

// GetForUpdate is Get with a row lock held until the surrounding
// transaction ends.
func (r *EventRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id)
}

// Create inserts an event. The UNIQUE (room_id, date) key turns a lost race
// for the same day into ErrConflict.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (name, room_id, date, is_public, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Name, e.RoomID, e.Date.String(), e.IsPublic, ts, ts)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("event id: %w", err)
	}
	e.ID = uint64(id)
	e.CreatedAt, e.UpdatedAt = ts, ts
	return nil
}

// Update writes every mutable column and bumps updated_at.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET name = ?, room_id = ?, date = ?, is_public = ?, updated_at = ? WHERE id = ?`,
		e.Name, e.RoomID, e.Date.String(), e.IsPublic, ts, e.ID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	e.UpdatedAt = ts
	return nil
}

// Delete removes the event's reservations and then the event. Run it inside
// a transaction so both go or neither does.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE event_id = ?`, id); err != nil {
		return fmt.Errorf("delete event reservations: %w", translate(err))
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
