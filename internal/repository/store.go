package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// dbtx is the part of *sql.DB and *sql.Tx the repositories use, so the same
// repository code runs inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// now is the write timestamp stored in created_at/updated_at. MySQL
// DATETIME(6) keeps microseconds.
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

type sqlQueries struct {
	rooms        *RoomRepo
	events       *EventRepo
	reservations *ReservationRepo
	users        *UserRepo
	tokens       *TokenRepo
}

func newSQLQueries(db dbtx) *sqlQueries {
	return &sqlQueries{
		rooms:        &RoomRepo{db: db},
		events:       &EventRepo{db: db},
		reservations: &ReservationRepo{db: db},
		users:        &UserRepo{db: db},
		tokens:       &TokenRepo{db: db},
	}
}

func (q *sqlQueries) Rooms() RoomQueries               { return q.rooms }
func (q *sqlQueries) Events() EventQueries             { return q.events }
func (q *sqlQueries) Reservations() ReservationQueries { return q.reservations }
func (q *sqlQueries) Users() UserQueries               { return q.users }
func (q *sqlQueries) Tokens() TokenQueries             { return q.tokens }

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	*sqlQueries
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{sqlQueries: newSQLQueries(db), db: db}
}

// DB exposes the underlying handle for migrations and health checks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// TxOptions are the options of every InTx transaction. Under READ COMMITTED
// each plain SELECT reads the latest committed rows, so a snapshot read
// after GetForUpdate cannot miss a write that committed while the lock was
// awaited. REPEATABLE READ would pin the read view at the first SELECT.
var TxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// InTx runs fn with repositories bound to a new transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, TxOptions)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(newSQLQueries(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", translate(err))
	}
	committed = true
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
