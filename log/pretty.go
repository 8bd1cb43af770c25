package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles of a pretty handler. Styles come from a renderer
// bound to the handler's writer, so color is dropped when the writer is not
// a terminal.
type palette struct {
	key, str, num, yes, no, dur, when, null lipgloss.Style
	level                                   map[Level]lipgloss.Style
}

func makePalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}

	return palette{
		key:  fg("8"),
		str:  fg("6"),
		num:  fg("3"),
		yes:  fg("2"),
		no:   fg("1"),
		dur:  fg("5"),
		when: fg("4"),
		null: fg("8"),
		level: map[Level]lipgloss.Style{
			LevelTrace: fg("8"),
			LevelDebug: fg("4"),
			LevelInfo:  fg("2"),
			LevelWarn:  fg("3").Bold(true),
			LevelError: fg("1").Bold(true),
		},
	}
}

func (p palette) levelStyle(l Level) lipgloss.Style {
	for _, named := range []Level{
		LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace,
	} {
		if l >= named {
			return p.level[named]
		}
	}

	return p.level[LevelTrace]
}

// prettyHandler writes colorized records, either as one key=value line per
// record or as an indented JSON-like object.
type prettyHandler struct {
	opts   slog.HandlerOptions
	format Format
	colors palette
	mu     *sync.Mutex
	w      io.Writer
	prefix string      // dotted group path applied to record attrs
	attrs  []slog.Attr // from WithAttrs, keys already prefixed
}

func newPrettyHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	format Format,
) *prettyHandler {
	return &prettyHandler{
		opts:   *opts,
		format: format,
		colors: makePalette(w),
		mu:     &sync.Mutex{},
		w:      w,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if h.opts.Level != nil {
		floor = h.opts.Level.Level()
	}

	return level >= floor
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(
		c.attrs[:len(c.attrs):len(c.attrs)],
		h.flatten(h.prefix, attrs)...,
	)

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.prefix = h.prefix + name + "."

	return &c
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]slog.Attr, 0, 4+len(h.attrs)+r.NumAttrs())

	if !r.Time.IsZero() {
		fields = append(fields, h.builtin(slog.Time(slog.TimeKey, r.Time)))
	}

	fields = append(fields, h.builtin(slog.Any(slog.LevelKey, r.Level)))

	if h.opts.AddSource {
		if src := r.Source(); src != nil && src.File != "" {
			fields = append(fields,
				slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", src.File, src.Line)))
		}
	}

	fields = append(fields, slog.String(slog.MessageKey, r.Message))
	fields = append(fields, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.flatten(h.prefix, []slog.Attr{a})...)

		return true
	})

	var buf bytes.Buffer

	level := Level(r.Level)

	switch h.format {
	case FormatJSON:
		h.writeObject(&buf, fields, level)
	default:
		h.writeLine(&buf, fields, level)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

// builtin passes a time or level attribute through ReplaceAttr.
func (h *prettyHandler) builtin(a slog.Attr) slog.Attr {
	if h.opts.ReplaceAttr != nil {
		return h.opts.ReplaceAttr(nil, a)
	}

	return a
}

// flatten resolves attrs and expands groups into dotted keys.
func (h *prettyHandler) flatten(prefix string, attrs []slog.Attr) []slog.Attr {
	var out []slog.Attr

	for _, a := range attrs {
		a.Value = a.Value.Resolve()

		if a.Value.Kind() == slog.KindGroup {
			sub := prefix
			if a.Key != "" {
				sub += a.Key + "."
			}

			out = append(out, h.flatten(sub, a.Value.Group())...)

			continue
		}

		if a.Equal(slog.Attr{}) {
			continue
		}

		a.Key = prefix + a.Key
		out = append(out, a)
	}

	return out
}

func (h *prettyHandler) writeLine(buf *bytes.Buffer, fields []slog.Attr, l Level) {
	for _, a := range fields {
		if a.Equal(slog.Attr{}) {
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}

		buf.WriteString(h.colors.key.Render(a.Key))
		buf.WriteByte('=')
		buf.WriteString(h.value(a, l, false))
	}

	buf.WriteByte('\n')
}

func (h *prettyHandler) writeObject(buf *bytes.Buffer, fields []slog.Attr, l Level) {
	buf.WriteString("{\n")

	first := true

	for _, a := range fields {
		if a.Equal(slog.Attr{}) {
			continue
		}

		if !first {
			buf.WriteString(",\n")
		}

		first = false

		buf.WriteString("  ")
		buf.WriteString(h.colors.key.Render(strconv.Quote(a.Key)))
		buf.WriteString(": ")
		buf.WriteString(h.value(a, l, true))
	}

	buf.WriteString("\n}\n")
}

// value renders the value of a. Strings are quoted when quote is set or
// when they contain whitespace.
func (h *prettyHandler) value(a slog.Attr, l Level, quote bool) string {
	v := a.Value
	c := h.colors

	text := func(s string) string {
		if quote || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}

		return s
	}

	if a.Key == slog.LevelKey {
		return c.levelStyle(l).Render(text(v.String()))
	}

	switch v.Kind() {
	case slog.KindString:
		return c.str.Render(text(v.String()))
	case slog.KindInt64:
		return c.num.Render(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return c.num.Render(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return c.num.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		if v.Bool() {
			return c.yes.Render("true")
		}

		return c.no.Render("false")
	case slog.KindDuration:
		return c.dur.Render(text(v.Duration().String()))
	case slog.KindTime:
		return c.when.Render(text(v.Time().Format(time.RFC3339Nano)))
	}

	switch x := v.Any().(type) {
	case nil:
		return c.null.Render("null")
	case error:
		return c.no.Render(text(x.Error()))
	case fmt.Stringer:
		return c.str.Render(text(x.String()))
	default:
		return c.str.Render(text(fmt.Sprint(x)))
	}
}
