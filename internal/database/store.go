package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/repository"
	"github.com/iliyamo/room-booking/internal/repository/memory"
)

// OpenStore returns the entity store selected by cfg.StoreDriver. For mysql
// it also applies the schema and returns the handle for health checks; the
// memory store has no handle.
func OpenStore(ctx context.Context, cfg config.Config) (repository.Store, *sql.DB, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return memory.New(), nil, nil
	}
	db, err := Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migrate: %w", err)
	}
	return repository.NewSQLStore(db), db, nil
}
