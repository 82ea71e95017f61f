package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate reports that an insert hit a unique constraint. Callers rely
// on the store firing this under races instead of checking first.
var ErrDuplicate = errors.New("duplicate row")

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var merr *mysql.MySQLError
	return errors.As(err, &merr) && merr.Number == mysqlDuplicateEntry
}
