// Package log is a small leveled logger built on [log/slog].
//
// A [Logger] is made once with functional options and never mutated:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatJSON),
//		log.WithTimeLayout("kitchen"),
//		log.WithCaller(true))
//
//	logger.Info("rendered", slog.Int("bytes", n))
//
// Attributes are typed [slog.Attr] values rather than alternating key/value
// arguments. Values implementing [slog.LogValuer] are resolved before they
// are written.
//
// The zero Logger discards everything, which lets libraries accept a Logger
// option and log unconditionally.
//
// # Levels
//
// Besides the four slog levels there is [LevelTrace], below [LevelDebug],
// for step-by-step diagnostics. Level names are case-insensitive and may
// carry an offset ("info+2").
//
// # Pretty output
//
// [WithPretty] (the default) writes colorized records styled with lipgloss.
// Color is applied only when the output is a terminal. [FormatText] writes
// one key=value line per record and [FormatJSON] writes an indented object.
//
// # Default logger
//
// The package-level functions log through a default logger writing to
// standard error, reconfigured with [Config]. Functions without a context
// argument use [DefaultContextProvider].
package log
