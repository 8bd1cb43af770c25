// Package sqltag adds SQL database access to templates through two tags:
//
//	{% for (row) in query("SELECT name, qty FROM items WHERE qty > ?", 0): %}
//	  {% print row.name ~ ": " ~ row.qty; %}
//	{% endfor; %}
//
//	{% r = exec("DELETE FROM items WHERE qty = 0"); print r.rows_affected; %}
package sqltag

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/ardnew/stencil/lang"
)

// Driver is the database/sql driver name used by [Open].
const Driver = "sqlite3"

// Predefined errors (sentinel values).
var (
	ErrOpen  = lang.ErrRuntime.Derive("cannot open database")
	ErrQuery = lang.ErrRuntime.Derive("query error")
)

// Open opens and pings a SQLite database. The DSN is a file name or
// ":memory:".
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(Driver, dsn)
	if err != nil {
		return nil, ErrOpen.Wrap(err).With(slog.String("dsn", dsn))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, ErrOpen.Wrap(err).With(slog.String("dsn", dsn))
	}

	return db, nil
}

// Register adds the query and exec tags, bound to db, to reg.
func Register(reg *lang.Registry, db *sql.DB) error {
	if err := reg.RegisterTag("query", Query(db)); err != nil {
		return err
	}

	return reg.RegisterTag("exec", Exec(db))
}

// Query returns a tag that runs a SELECT statement and yields its rows as
// an array of dictionaries with keys in column order.
func Query(db *sql.DB) lang.Tag {
	return func(st *lang.State, args ...any) (any, error) {
		query, params, err := statement("query", args)
		if err != nil {
			return nil, err
		}

		rows, err := db.QueryContext(st.Context(), query, params...)
		if err != nil {
			return nil, ErrQuery.Wrap(err).With(slog.String("sql", query))
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return nil, ErrQuery.Wrap(err).With(slog.String("sql", query))
		}

		results := make([]any, 0)

		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))

			for i := range vals {
				ptrs[i] = &vals[i]
			}

			if err := rows.Scan(ptrs...); err != nil {
				return nil, ErrQuery.Wrap(err).With(slog.String("sql", query))
			}

			row := lang.NewDict()

			for i, col := range cols {
				if b, ok := vals[i].([]byte); ok {
					row.Set(col, string(b))
				} else {
					row.Set(col, vals[i])
				}
			}

			results = append(results, row)
		}

		if err := rows.Err(); err != nil {
			return nil, ErrQuery.Wrap(err).With(slog.String("sql", query))
		}

		return results, nil
	}
}

// Exec returns a tag that runs a statement that returns no rows. It yields
// a dictionary with rows_affected and last_insert_id.
func Exec(db *sql.DB) lang.Tag {
	return func(st *lang.State, args ...any) (any, error) {
		query, params, err := statement("exec", args)
		if err != nil {
			return nil, err
		}

		result, err := db.ExecContext(st.Context(), query, params...)
		if err != nil {
			return nil, ErrQuery.Wrap(err).With(slog.String("sql", query))
		}

		ra, _ := result.RowsAffected()
		li, _ := result.LastInsertId()

		out := lang.NewDict()
		out.Set("rows_affected", ra)
		out.Set("last_insert_id", li)

		return out, nil
	}
}

// statement splits tag arguments into the SQL text and its parameters.
func statement(name string, args []any) (string, []any, error) {
	if len(args) == 0 {
		return "", nil, lang.ErrType.Wrap(
			fmt.Errorf("%s: missing SQL statement", name),
		)
	}

	query, ok := args[0].(string)
	if !ok {
		return "", nil, lang.ErrType.Wrap(
			fmt.Errorf("%s: SQL statement must be a string, not %s", name,
				lang.TypeName(args[0])),
		)
	}

	params := make([]any, len(args)-1)
	for i, a := range args[1:] {
		params[i] = lang.ToNative(a)
	}

	return query, params, nil
}
