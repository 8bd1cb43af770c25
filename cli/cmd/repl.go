package cmd

import (
	"context"
	"os"

	"github.com/ardnew/stencil/cli/cmd/repl"
	"github.com/ardnew/stencil/log"
)

// Repl starts an interactive session that evaluates statements and renders
// templates against a persistent scope.
type Repl struct {
	RenderFlags `embed:""`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
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

	session := repl.NewSession(e, vars, log.Default())

	// --include templates seed the session scope before the prompt appears.
	if err := renderPrelude(ctx, e, session.Scope(), os.Stdout); err != nil {
		return err
	}

	cacheDir := ""
	if ktx := kongContextFrom(ctx); ktx != nil {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	return repl.Run(ctx, session, cacheDir, log.Default())
}
