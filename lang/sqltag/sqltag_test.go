package sqltag

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardnew/stencil/lang"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(t.Context(), ":memory:")
	if err != nil {
		t.Fatalf("open error: %v", err)
	}

	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newEngine(t *testing.T, db *sql.DB) *lang.Engine {
	t.Helper()

	reg := lang.NewRegistry()
	if err := Register(reg, db); err != nil {
		t.Fatalf("register error: %v", err)
	}

	e, err := lang.New(lang.WithRegistry(reg))
	if err != nil {
		t.Fatalf("engine error: %v", err)
	}

	return e
}

func render(t *testing.T, e *lang.Engine, src string) (string, error) {
	t.Helper()

	tmpl, err := e.Parse(t.Context(), src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	return e.RenderString(t.Context(), tmpl, nil)
}

func TestQueryExec(t *testing.T) {
	e := newEngine(t, openMemory(t))

	src := `{%
	exec("CREATE TABLE items (name TEXT, qty INTEGER)");
	r = exec("INSERT INTO items VALUES (?, ?), (?, ?)", "apple", 3, "pear", 0);
	print r.rows_affected;
	for row in query("SELECT name, qty FROM items WHERE qty > ? ORDER BY name", 0):
		print row.name ~ "=" ~ row.qty;
	endfor;
%}`

	out, err := render(t, e, src)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	if out != "2apple=3" {
		t.Errorf("expected 2apple=3, got %q", out)
	}
}

func TestQuery_Columns(t *testing.T) {
	e := newEngine(t, openMemory(t))

	out, err := render(t, e, `{% print query("SELECT 1 AS b, 'x' AS a, NULL AS c")|first|keys|join(","); %}`)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	if out != "b,a,c" {
		t.Errorf("expected columns in select order, got %q", out)
	}

	out, err = render(t, e, `{% print query("SELECT 1 WHERE 0")|length; %}`)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	if out != "0" {
		t.Errorf("expected no rows, got %q", out)
	}
}

func TestQuery_Errors(t *testing.T) {
	e := newEngine(t, openMemory(t))

	tests := []struct {
		src  string
		want error
	}{
		{`{% query("SELECT * FROM missing") %}`, ErrQuery},
		{`{% exec("NOT SQL") %}`, ErrQuery},
		{`{% query() %}`, lang.ErrType},
		{`{% exec(1) %}`, lang.ErrType},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := render(t, e, tt.src)
			if !errors.Is(err, tt.want) || !errors.Is(err, lang.ErrRuntime) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestOpen_Error(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "missing", "db.sqlite")

	if _, err := Open(t.Context(), dsn); !errors.Is(err, ErrOpen) {
		t.Errorf("expected open error, got %v", err)
	}
}
