package lang

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/ardnew/stencil/log"
)

// Engine parses and renders templates.
//
// An Engine is immutable after [New] returns and safe for concurrent use.
// Each call to [Engine.Render] owns its own [Scope].
type Engine struct {
	reg     *Registry
	lexer   *Lexer
	globals map[string]any
	logger  log.Logger
	cache   *sync.Map // nil when caching is disabled
	opts    options
}

type options struct {
	reg         *Registry
	filters     map[string]Filter
	tags        map[string]Tag
	globals     map[string]any
	logger      log.Logger
	open        string
	close       string
	maxDepth    int
	strict      bool
	noCache     bool
	hostGlobals bool
}

// Option configures an [Engine].
type Option func(*options)

// WithStrict makes property access and method calls on missing members
// raise an attribute error instead of yielding null.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithDelimiters sets the tag delimiters. The defaults are
// [DefaultTagOpen] and [DefaultTagClose].
func WithDelimiters(open, close string) Option {
	return func(o *options) { o.open, o.close = open, close }
}

// WithMaxDepth bounds the nesting depth of statements and expressions.
// Zero or a negative depth disables the bound.
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry sets the registry of operators, statements, filters and
// tags. The engine takes a copy, so later changes to reg have no effect on
// it.
func WithRegistry(reg *Registry) Option {
	return func(o *options) { o.reg = reg }
}

// WithFilter registers a filter on the engine's copy of the registry.
func WithFilter(name string, f Filter) Option {
	return func(o *options) {
		if o.filters == nil {
			o.filters = make(map[string]Filter)
		}

		o.filters[name] = f
	}
}

// WithTag registers a tag on the engine's copy of the registry.
func WithTag(name string, t Tag) Option {
	return func(o *options) {
		if o.tags == nil {
			o.tags = make(map[string]Tag)
		}

		o.tags[name] = t
	}
}

// WithGlobals adds read-only variables to the root frame of every render.
func WithGlobals(globals map[string]any) Option {
	return func(o *options) {
		if o.globals == nil {
			o.globals = make(map[string]any, len(globals))
		}

		maps.Copy(o.globals, globals)
	}
}

// WithCache enables or disables the parse cache. It is enabled by default.
func WithCache(enable bool) Option {
	return func(o *options) { o.noCache = !enable }
}

// WithHostGlobals adds information about the host system to the root frame:
// target, platform, hostname, user, shell and env.
func WithHostGlobals(enable bool) Option {
	return func(o *options) { o.hostGlobals = enable }
}

// New returns an Engine configured by opts.
func New(opts ...Option) (*Engine, error) {
	o := options{
		open:     DefaultTagOpen,
		close:    DefaultTagClose,
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range opts {
		opt(&o)
	}

	var reg *Registry
	if o.reg != nil {
		reg = o.reg.Clone()
	} else {
		reg = NewRegistry()
	}

	for _, name := range sortedKeys(o.filters) {
		if err := reg.RegisterFilter(name, o.filters[name]); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(o.tags) {
		if err := reg.RegisterTag(name, o.tags[name]); err != nil {
			return nil, err
		}
	}

	lexer, err := NewLexer(reg, o.open, o.close)
	if err != nil {
		return nil, err
	}

	globals := make(map[string]any)
	if o.hostGlobals {
		maps.Copy(globals, hostGlobals())
	}

	maps.Copy(globals, o.globals)

	e := &Engine{
		reg:     reg,
		lexer:   lexer,
		globals: globals,
		logger:  o.logger,
		opts:    o,
	}

	if !o.noCache {
		e.cache = new(sync.Map)
	}

	e.logger.Trace("engine ready",
		slog.String("open", o.open),
		slog.String("close", o.close),
		slog.Bool("strict", o.strict),
		slog.Int("max_depth", o.maxDepth),
		slog.Bool("cache", e.cache != nil),
		slog.Int("globals", len(globals)))

	return e, nil
}

// Registry returns a copy of the engine's registry.
func (e *Engine) Registry() *Registry { return e.reg.Clone() }

// Strict reports whether the engine builds strict member access nodes.
func (e *Engine) Strict() bool { return e.opts.strict }

// Delimiters returns the tag delimiters.
func (e *Engine) Delimiters() (open, close string) { return e.lexer.Delimiters() }

// Globals returns the sorted names of the engine's global variables.
func (e *Engine) Globals() []string { return sortedKeys(e.globals) }

// Tokenize splits source into tokens.
func (e *Engine) Tokenize(source string) ([]Token, error) {
	return e.lexer.Tokenize(source)
}

// Parse parses source into a [Template]. When the parse cache is enabled,
// parsing the same source again returns the same Template.
func (e *Engine) Parse(ctx context.Context, source string) (*Template, error) {
	if e.cache != nil {
		return e.parseCached(ctx, source)
	}

	return e.parse(ctx, source)
}

func (e *Engine) parse(ctx context.Context, source string) (*Template, error) {
	e.logger.TraceContext(ctx, "parse start",
		slog.Int("source_length", len(source)))

	tokens, err := e.lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}

	e.logger.TraceContext(ctx, "tokenize complete",
		slog.Int("token_count", len(tokens)))

	p := newParser(ctx, tokens, e.reg, e.opts.strict, e.opts.maxDepth, e.logger)

	nodes, err := p.ParseBody()
	if err != nil {
		return nil, err
	}

	e.logger.TraceContext(ctx, "parse complete",
		slog.Int("node_count", len(nodes)))

	return &Template{
		reg:    e.reg,
		source: source,
		nodes:  nodes,
		open:   e.opts.open,
		close:  e.opts.close,
	}, nil
}

// NewScope returns a scope holding the engine globals in its root frame and
// a copy of vars in its top-level frame.
func (e *Engine) NewScope(vars map[string]any) *Scope {
	return NewScope(e.globals, vars)
}

// Render evaluates tmpl and writes the output to w. A nil scope renders
// with no variables besides the engine globals.
//
// Output written before an error is not retracted.
func (e *Engine) Render(
	ctx context.Context,
	tmpl *Template,
	scope *Scope,
	w io.Writer,
) error {
	if scope == nil {
		scope = e.NewScope(nil)
	}

	st := &State{ctx: ctx, scope: scope, w: w, logger: e.logger}

	e.logger.TraceContext(ctx, "render start",
		slog.Int("node_count", len(tmpl.nodes)),
		slog.Int("scope_depth", scope.Depth()))

	if err := st.Render(tmpl.nodes); err != nil {
		e.logger.TraceContext(ctx, "render failed", slog.Any("error", err))

		return err
	}

	e.logger.TraceContext(ctx, "render complete")

	return nil
}

// RenderString renders tmpl with vars and returns the output.
func (e *Engine) RenderString(
	ctx context.Context,
	tmpl *Template,
	vars map[string]any,
) (string, error) {
	var sb strings.Builder

	err := e.Render(ctx, tmpl, e.NewScope(vars), &sb)

	return sb.String(), err
}

// Template is a parsed template. It is immutable and may be rendered by
// any number of goroutines at once.
type Template struct {
	reg    *Registry
	source string
	nodes  []Node
	open   string
	close  string
}

// Nodes returns the top-level nodes of the template.
func (t *Template) Nodes() []Node { return t.nodes }

// Source returns the text the template was parsed from.
func (t *Template) Source() string { return t.source }
