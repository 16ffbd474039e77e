package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/room-booking/internal/model"
)

// MySQL server error numbers the store translates into error kinds.
const (
	mysqlDupEntry        = 1062 // unique key violated
	mysqlRowIsReferenced = 1451 // delete blocked by a RESTRICT foreign key
	mysqlNoReferencedRow = 1452 // insert/update points at a missing parent
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = model.Errorf(model.ErrNotFound, "Not found.")

// translate maps driver errors onto the model error kinds so callers never
// see sql or mysql types. Unknown errors pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return model.Errorf(model.ErrConflict, "The record conflicts with an existing one.")
		case mysqlRowIsReferenced:
			return model.Errorf(model.ErrHasDependents, "The record is still referenced by other records.")
		case mysqlNoReferencedRow:
			return model.Errorf(model.ErrValidation, "Invalid pk - object does not exist.")
		}
	}
	return err
}
