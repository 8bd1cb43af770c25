package cmd

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/lang/sqltag"
	"github.com/ardnew/stencil/log"
)

// SyntaxFlags select how template source is tokenized.
type SyntaxFlags struct {
	Delims []string `default:"{%,%}" help:"Tag delimiters as OPEN,CLOSE." placeholder:"OPEN,CLOSE"`
}

func (f SyntaxFlags) options() ([]lang.Option, error) {
	if len(f.Delims) != 2 {
		return nil, ErrDelimiters.With(slog.Any("delims", f.Delims))
	}

	return []lang.Option{
		lang.WithDelimiters(f.Delims[0], f.Delims[1]),
		lang.WithLogger(log.Default()),
	}, nil
}

// parseEngine returns an engine for commands that parse but never render.
// The database tags are registered without a database so that templates
// using them still parse.
func (f SyntaxFlags) parseEngine() (*lang.Engine, error) {
	opts, err := f.options()
	if err != nil {
		return nil, err
	}

	reg := lang.NewRegistry()
	if err := sqltag.Register(reg, nil); err != nil {
		return nil, err
	}

	return lang.New(append(opts, lang.WithRegistry(reg))...)
}

// RenderFlags configure an engine that renders templates.
type RenderFlags struct {
	SyntaxFlags `embed:""`

	Strict   bool     `help:"Fail on missing object members."`
	MaxDepth int      `default:"100" help:"Maximum expression nesting depth (0 for unlimited)."`
	Host     bool     `default:"true" help:"Expose host globals (platform, env, file, path, ...)." negatable:""`
	DB       string   `help:"SQLite database exposing the query and exec tags." placeholder:"DSN"`
	Data     []string `help:"YAML or JSON data file(s) merged into the template scope." short:"d" type:"existingfile"`
	Set      []string `help:"Set a template variable; the value is decoded as YAML." placeholder:"KEY=VALUE" sep:"none" short:"s"`
}

// engine builds the rendering engine. The returned close function releases
// the database, if any, and is never nil.
func (f RenderFlags) engine(ctx context.Context) (*lang.Engine, func(), error) {
	opts, err := f.options()
	if err != nil {
		return nil, func() {}, err
	}

	opts = append(opts,
		lang.WithStrict(f.Strict),
		lang.WithMaxDepth(f.MaxDepth),
		lang.WithHostGlobals(f.Host),
	)

	var db *sql.DB

	if f.DB != "" {
		db, err = sqltag.Open(ctx, f.DB)
		if err != nil {
			return nil, func() {}, err
		}

		reg := lang.NewRegistry()
		if err := sqltag.Register(reg, db); err != nil {
			_ = db.Close()

			return nil, func() {}, err
		}

		opts = append(opts, lang.WithRegistry(reg))
	}

	closeDB := func() {
		if db != nil {
			_ = db.Close()
		}
	}

	e, err := lang.New(opts...)
	if err != nil {
		closeDB()

		return nil, func() {}, err
	}

	return e, closeDB, nil
}

// vars merges the data files in order, then applies each --set assignment.
// Later sources replace top-level keys of earlier ones.
func (f RenderFlags) vars(ctx context.Context) (map[string]any, error) {
	vars := make(map[string]any)

	for _, path := range f.Data {
		m, err := readData(ctx, path)
		if err != nil {
			return nil, err
		}

		maps.Copy(vars, m)
	}

	for _, kv := range f.Set {
		key, value, ok := strings.Cut(kv, "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			return nil, ErrInvalidSet.With(slog.String("set", kv))
		}

		vars[key] = setValue(value)
	}

	log.TraceContext(ctx, "template vars loaded",
		slog.Int("data_files", len(f.Data)),
		slog.Int("count", len(vars)))

	return vars, nil
}

// readData decodes a YAML (or JSON) mapping from path.
func readData(ctx context.Context, path string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ErrReadData.Wrap(err).With(slog.String("file", path))
	}
	defer file.Close()

	var m map[string]any

	if err := yaml.NewDecoder(file).DecodeContext(ctx, &m); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}

		return nil, ErrReadData.Wrap(err).With(slog.String("file", path))
	}

	return m, nil
}

// setValue decodes a --set value as a YAML scalar or collection, so that
// n=3 binds a number and tags=[a, b] binds an array. A value that does not
// decode is kept as the raw string.
func setValue(s string) any {
	var v any

	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}

	return v
}
