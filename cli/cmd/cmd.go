package cmd

import (
	"context"

	"github.com/alecthomas/kong"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type includesKey struct{}

// WithIncludes returns a new context.Context carrying the paths of templates
// rendered ahead of every command's own input.
func WithIncludes(ctx context.Context, paths []string) context.Context {
	return context.WithValue(ctx, includesKey{}, paths)
}

func includesFrom(ctx context.Context) []string {
	paths, _ := ctx.Value(includesKey{}).([]string)

	return paths
}
