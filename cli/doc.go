// Package cli contains the command line interface for stencil.
//
// # Usage
//
// Render templates with variables from YAML files and the command line:
//
//	stencil -d values.yaml -s name=ada page.tmpl -o page.html
//
// render is the default command, so the command name may be omitted. Other
// commands format templates (fmt), start an interactive session (repl),
// write the configuration file (init) and print the version (version).
//
// # Configuration
//
// Flag defaults are read from a YAML file, by default config.yaml in the
// user configuration directory, or the file named with --config. Keys are
// flag names, with hyphens or underscores:
//
//	log-level: debug
//	strict: true
//	data: [values.yaml]
//
// Every flag may also be set from an environment variable named after the
// flag with the STENCIL_ prefix, such as STENCIL_LOG_LEVEL.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize text output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o stencil .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/stencil/pprof)
//
// # Examples
//
//	# Render stdin with debug logging and CPU profiling
//	stencil --log-level=debug --pprof-mode=cpu < page.tmpl
//
//	# Render with a shared prelude of macros and settings
//	stencil -I prelude.tmpl page.tmpl
//
//	# Print the syntax tree of a template
//	stencil fmt json page.tmpl
package cli
