// Package cmd implements the stencil subcommands: render, fmt, init, repl,
// and version.
//
// Commands receive the [context.Context] built by package cli, which
// carries the parsed [kong.Context] and the paths of any --include
// templates.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
