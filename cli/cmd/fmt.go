package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/stencil/lang"
)

// Fmt parses a template and prints it in the chosen format.
type Fmt struct {
	Native Native `cmd:"" default:"withargs" help:"Format as native template syntax (default)."`
	JSON   JSON   `cmd:""                    help:"Format the syntax tree as JSON."`
	YAML   YAML   `cmd:""                    help:"Format the syntax tree as YAML."`
	Tokens Tokens `cmd:""                    help:"Print the token stream."`
}

// fmtSource is the input common to every fmt subcommand.
type fmtSource struct {
	SyntaxFlags `embed:""`

	Source []string `arg:"" default:"-" help:"Template file(s) or '-' for stdin." name:"source" optional:""`
}

// parse reads and parses the source. format names the output format in
// error attributes.
func (f fmtSource) parse(ctx context.Context, format string) (*lang.Template, error) {
	e, err := f.parseEngine()
	if err != nil {
		return nil, err
	}

	tmpl, err := parseSources(ctx, e, f.Source)
	if err != nil {
		return nil, lang.WrapError(err).With(slog.String("format", format))
	}

	return tmpl, nil
}

// formatTo runs fn with a buffered stdout.
func formatTo(fn func(w io.Writer) error) error {
	bw := bufio.NewWriter(os.Stdout)

	if err := fn(bw); err != nil {
		_ = bw.Flush()

		return err
	}

	return bw.Flush()
}

// Native reformats a template in canonical native syntax.
type Native struct {
	fmtSource `embed:""`
}

// Run executes the native command.
func (f *Native) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tmpl, err := f.parse(ctx, "native")
	if err != nil {
		return err
	}

	return formatTo(func(w io.Writer) error { return tmpl.Format(ctx, w) })
}

// JSON prints the syntax tree of a template as JSON.
type JSON struct {
	fmtSource `embed:""`

	Indent int `default:"2" help:"Indent width for JSON output (0 for compact)." short:"i"`
}

// Run executes the json command.
func (j *JSON) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tmpl, err := j.parse(ctx, "json")
	if err != nil {
		return err
	}

	return formatTo(func(w io.Writer) error {
		return tmpl.FormatJSON(ctx, w, j.Indent)
	})
}

// YAML prints the syntax tree of a template as YAML.
type YAML struct {
	fmtSource `embed:""`

	Indent int `default:"2" help:"Indent width for YAML output (0 for flow style)." short:"i"`
}

// Run executes the yaml command.
func (y *YAML) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tmpl, err := y.parse(ctx, "yaml")
	if err != nil {
		return err
	}

	return formatTo(func(w io.Writer) error {
		return tmpl.FormatYAML(ctx, w, y.Indent)
	})
}

// Tokens prints the token stream of a template, one token per line.
type Tokens struct {
	fmtSource `embed:""`
}

// Run executes the tokens command.
func (k *Tokens) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	e, err := k.parseEngine()
	if err != nil {
		return err
	}

	src, err := OpenSources(k.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := io.ReadAll(src.Reader())
	if err != nil {
		return lang.ErrReadInput.Wrap(err)
	}

	tokens, err := e.Tokenize(string(data))
	if err != nil {
		return lang.WrapError(err).With(slog.String("format", "tokens"))
	}

	return formatTo(func(w io.Writer) error {
		for _, tok := range tokens {
			if _, err := fmt.Fprintf(w, "%d\t%s\n", tok.Line, tok); err != nil {
				return err
			}
		}

		return nil
	})
}
