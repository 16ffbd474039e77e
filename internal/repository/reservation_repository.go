package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/room-booking/internal/model"
)

const reservationColumns = `id, user_id, event_id, created_at, updated_at`

// ReservationRepo persists reservations. A reservation ties one user to one
// event; the (user_id, event_id) pair is unique.
type ReservationRepo struct {
	db dbtx
}

func scanReservation(row scanner) (model.Reservation, error) {
	var r model.Reservation
	err := row.Scan(&r.ID, &r.UserID, &r.EventID, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// List returns reservations in insertion order, optionally for one user.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	if f.UserID != 0 {
		return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? ORDER BY id`, f.UserID)
	}
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY id`)
}

// ListByEvent returns the reservations held against one event.
func (r *ReservationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE event_id = ? ORDER BY id`, eventID)
}

// Get returns the reservation with the given id or ErrNotFound.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err)
	}
	return &res, nil
}

// Create inserts a reservation. Callers hold the event row lock so the
// capacity check they ran still holds at insert time.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	ts := now()
	out, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (user_id, event_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		res.UserID, res.EventID, ts, ts)
	if err != nil {
		return translate(err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return fmt.Errorf("reservation id: %w", err)
	}
	res.ID = uint64(id)
	res.CreatedAt, res.UpdatedAt = ts, ts
	return nil
}

// Update moves a reservation to another user or event.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	ts := now()
	out, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET user_id = ?, event_id = ?, updated_at = ? WHERE id = ?`,
		res.UserID, res.EventID, ts, res.ID)
	if err != nil {
		return translate(err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	res.UpdatedAt = ts
	return nil
}

// Delete removes a reservation.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	out, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
