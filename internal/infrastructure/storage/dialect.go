package storage

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Driver      string
	Placeholder sq.PlaceholderFormat
	IDColumn    string
	TimeType    string
	// TextParam and TimeParam type bind parameters used in a SELECT list.
	TextParam string
	TimeParam string
	// LockUnified serialises concurrent unification runs; empty when the
	// driver already serialises writers.
	LockUnified string
	// ColumnsQuery lists the column names of the table bound to its one parameter.
	ColumnsQuery string
}

// Postgres is the production dialect (lib/pq).
var Postgres = Dialect{
	Driver:       "postgres",
	Placeholder:  sq.Dollar,
	IDColumn:     "id BIGSERIAL PRIMARY KEY",
	TimeType:     "TIMESTAMPTZ",
	TextParam:    "CAST(? AS TEXT)",
	TimeParam:    "CAST(? AS TIMESTAMPTZ)",
	LockUnified:  "LOCK TABLE " + unifiedTable + " IN SHARE ROW EXCLUSIVE MODE",
	ColumnsQuery: "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1",
}

// SQLite is used for local runs and tests (modernc.org/sqlite).
var SQLite = Dialect{
	Driver:       "sqlite",
	Placeholder:  sq.Question,
	IDColumn:     "id INTEGER PRIMARY KEY AUTOINCREMENT",
	TimeType:     "TIMESTAMP",
	TextParam:    "?",
	TimeParam:    "?",
	ColumnsQuery: "SELECT name FROM pragma_table_info(?)",
}

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case Postgres.Driver:
		return Postgres, nil
	case SQLite.Driver:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
