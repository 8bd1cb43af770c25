package log_test

import (
	"log/slog"
	"os"

	"github.com/ardnew/stencil/log"
)

func Example() {
	logger := log.Make(os.Stdout,
		log.WithPretty(false),
		log.WithTimeLayout("none"))

	logger.Info("template rendered", slog.Int("bytes", 42))
	logger.Debug("not written at the default level")
	// Output:
	// level=INFO msg="template rendered" bytes=42
}

func Example_levels() {
	logger := log.Make(os.Stdout,
		log.WithLevel(log.LevelTrace),
		log.WithPretty(false),
		log.WithTimeLayout("none"))

	logger.Trace("lexer switched mode", slog.String("mode", "code"))
	logger.Warn("deprecated delimiter")
	// Output:
	// level=TRACE msg="lexer switched mode" mode=code
	// level=WARN msg="deprecated delimiter"
}

func Example_json() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatJSON),
		log.WithPretty(false),
		log.WithTimeLayout("none")).
		With(slog.String("component", "engine"))

	logger.Error("render failed", slog.Int("line", 3))
	// Output:
	// {"level":"ERROR","msg":"render failed","component":"engine","line":3}
}
