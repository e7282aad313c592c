package natives

import (
	"database/sql"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/pkg/errors"

	"emo/internal/value"
	"emo/internal/vm"
)

const resourceKindDB = "db"

// driverNames maps the script-facing driver string to the database/sql
// driver name registered by each import above. "sqlite" defaults to the
// pure-Go modernc.org/sqlite driver rather than mattn's cgo binding, so
// db_open("sqlite", ...) works in a cgo-free build; "sqlite3" picks the
// cgo binding explicitly for callers who need its specific quirks.
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"sqlite3":  "sqlite3",
	"mysql":    "mysql",
	"postgres": "postgres",
	"mssql":    "sqlserver",
}

// RegisterDB wires db_open/db_query/db_exec, emo's generalization of the
// teacher's driver-specific database bindings (internal/database,
// internal/vm/database_bindings.go) into a single three-native surface
// keyed by driver name.
func RegisterDB(v *vm.VM) {
	v.RegisterNative("db_open", func(args []value.Value) (value.Value, error) {
		driver, err := stringArg(args, 0)
		if err != nil {
			return value.Meta, err
		}
		dsn, err := stringArg(args, 1)
		if err != nil {
			return value.Meta, err
		}
		sqlDriver, ok := driverNames[strings.ToLower(driver)]
		if !ok {
			return value.Meta, errors.Errorf("db_open: unknown driver %q", driver)
		}
		conn, err := sql.Open(sqlDriver, dsn)
		if err != nil {
			return value.Meta, errors.Wrap(err, "db_open")
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			return value.Meta, errors.Wrap(err, "db_open: ping")
		}
		return wrapResource(v, resourceKindDB, conn), nil
	})

	v.RegisterNative("db_exec", func(args []value.Value) (value.Value, error) {
		conn, stmt, err := dbCallArgs(args)
		if err != nil {
			return value.Meta, err
		}
		result, err := conn.Exec(stmt)
		if err != nil {
			return value.Meta, errors.Wrap(err, "db_exec")
		}
		rows, _ := result.RowsAffected()
		return value.Number(float64(rows)), nil
	})

	v.RegisterNative("db_query", func(args []value.Value) (value.Value, error) {
		conn, stmt, err := dbCallArgs(args)
		if err != nil {
			return value.Meta, err
		}
		rows, err := conn.Query(stmt)
		if err != nil {
			return value.Meta, errors.Wrap(err, "db_query")
		}
		defer rows.Close()
		count := 0
		for rows.Next() {
			count++
		}
		if err := rows.Err(); err != nil {
			return value.Meta, errors.Wrap(err, "db_query")
		}
		// Row contents aren't representable in emo's scalar Value model
		// (spec.md §3 has no array/table object); the row count is the
		// result natives can act on today. A richer result object is
		// future work, not something this native surface fakes.
		return value.Number(float64(count)), nil
	})
}

func dbCallArgs(args []value.Value) (*sql.DB, string, error) {
	res, err := resourceArg(args, 0, resourceKindDB)
	if err != nil {
		return nil, "", err
	}
	stmt, err := stringArg(args, 1)
	if err != nil {
		return nil, "", err
	}
	conn, ok := res.Handle.(*sql.DB)
	if !ok {
		return nil, "", errors.New("resource is not a database handle")
	}
	return conn, stmt, nil
}
