package cmd

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
)

// Render renders template files with data from YAML files and the command
// line.
type Render struct {
	RenderFlags `embed:""`

	Output string   `default:"-" help:"Output file or '-' for stdout." short:"o"`
	Source []string `arg:"" default:"-" help:"Template file(s) rendered as one template, or '-' for stdin." name:"source" optional:""`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	e, closeDB, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	vars, err := r.vars(ctx)
	if err != nil {
		return err
	}

	tmpl, err := parseSources(ctx, e, r.Source)
	if err != nil {
		return err
	}

	out, done, err := openOutput(r.Output)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := done(); err == nil && cerr != nil {
			err = ErrWriteOutput.Wrap(cerr).With(slog.String("file", r.Output))
		}
	}()

	scope := e.NewScope(vars)

	if err := renderPrelude(ctx, e, scope, out); err != nil {
		return err
	}

	log.DebugContext(ctx, "render",
		slog.Any("source", r.Source),
		slog.String("output", r.Output),
		slog.Bool("strict", r.Strict))

	return e.Render(ctx, tmpl, scope, out)
}

// parseSources parses the concatenation of the named files.
func parseSources(
	ctx context.Context,
	e *lang.Engine,
	sources []string,
) (*lang.Template, error) {
	src, err := OpenSources(sources)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return e.ParseReader(ctx, src.Reader())
}

// renderPrelude renders the --include templates named in ctx, if any,
// into scope so that their assignments are visible to the main template.
func renderPrelude(
	ctx context.Context,
	e *lang.Engine,
	scope *lang.Scope,
	w io.Writer,
) error {
	includes := includesFrom(ctx)
	if len(includes) == 0 {
		return nil
	}

	src, err := OpenSources(includes)
	if err != nil {
		return err
	}
	defer src.Close()

	tmpl, err := e.ParseReader(ctx, src.Reader())
	if err != nil {
		return err
	}

	return e.Render(ctx, tmpl, scope, w)
}

// openOutput returns a buffered writer for path ("-" is stdout) and the
// function that flushes and closes it.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		bw := bufio.NewWriter(os.Stdout)

		return bw, bw.Flush, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, ErrWriteOutput.Wrap(err).With(slog.String("file", path))
	}

	bw := bufio.NewWriter(file)

	return bw, func() error {
		if err := bw.Flush(); err != nil {
			_ = file.Close()

			return err
		}

		return file.Close()
	}, nil
}
