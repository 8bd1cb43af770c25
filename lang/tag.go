package lang

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-yaml"
)

// ErrExpr is raised by the expr tag when an expression fails to compile or
// run.
var ErrExpr = ErrRuntime.Derive("expr error")

// exprCache holds compiled expr programs keyed by source.
//
//nolint:gochecknoglobals
var exprCache sync.Map

func builtinTags() map[string]Tag {
	return map[string]Tag{
		"range": tagRange,
		"expr":  tagExpr,
		"env":   tagEnv,
		"dump":  tagDump,
		"now":   tagNow,
	}
}

func tagError(name, format string, args ...any) error {
	return ErrType.With(slog.String("tag", name)).
		Wrap(fmt.Errorf(name+": "+format, args...))
}

// MaxRangeLength is the largest number of elements the range tag produces.
const MaxRangeLength = 1 << 20

// tagRange returns the integers from start up to but not including end:
// range(end), range(start, end) or range(start, end, step).
func tagRange(_ *State, args ...any) (any, error) {
	bounds := make([]int, len(args))

	for i, a := range args {
		n, ok := toInt(a)
		if !ok {
			return nil, tagError("range", "argument %d is not an integer", i+1)
		}

		bounds[i] = n
	}

	start, end, step := 0, 0, 1

	switch len(bounds) {
	case 1:
		end = bounds[0]
	case 2:
		start, end = bounds[0], bounds[1]
	case 3:
		start, end, step = bounds[0], bounds[1], bounds[2]
	default:
		return nil, tagError("range", "takes 1 to 3 arguments, got %d", len(args))
	}

	if step == 0 {
		return nil, tagError("range", "step must not be zero")
	}

	count := max(math.Ceil((float64(end)-float64(start))/float64(step)), 0)
	if count > MaxRangeLength {
		return nil, tagError("range", "length %.0f exceeds %d", count, MaxRangeLength)
	}

	out := make([]any, int(count))
	for k := range out {
		out[k] = int64(start) + int64(k)*int64(step)
	}

	return out, nil
}

// tagExpr evaluates an expr-lang expression with every visible variable in
// its environment.
func tagExpr(st *State, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, tagError("expr", "takes 1 argument, got %d", len(args))
	}

	source, ok := args[0].(string)
	if !ok {
		return nil, tagError("expr", "source must be a string, not %s",
			TypeName(args[0]))
	}

	program, err := compileExpr(source)
	if err != nil {
		return nil, err
	}

	vars := st.Scope().Flatten()

	env := make(map[string]any, len(vars))
	for k, v := range vars {
		env[k] = ToNative(v)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, ErrExpr.Wrap(err).With(slog.String("source", source))
	}

	return out, nil
}

func compileExpr(source string) (*vm.Program, error) {
	if p, ok := exprCache.Load(source); ok {
		if program, ok := p.(*vm.Program); ok {
			return program, nil
		}
	}

	program, err := expr.Compile(source)
	if err != nil {
		return nil, ErrExpr.Wrap(err).With(slog.String("source", source))
	}

	exprCache.Store(source, program)

	return program, nil
}

// tagEnv returns the value of a process environment variable, or the
// second argument (default null) when it is unset.
func tagEnv(_ *State, args ...any) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, tagError("env", "takes 1 or 2 arguments, got %d", len(args))
	}

	name, err := Stringify(args[0])
	if err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}

	if len(args) == 2 {
		return args[1], nil
	}

	return nil, nil
}

// tagDump writes its arguments to the output as YAML documents.
func tagDump(st *State, args ...any) (any, error) {
	for _, a := range args {
		b, err := yaml.MarshalContext(st.Context(), a)
		if err != nil {
			return nil, tagError("dump", "%v", err)
		}

		if err := st.Write(string(b)); err != nil {
			return nil, err
		}
	}

	return nil, nil
}

// tagNow returns the current time.
func tagNow(_ *State, args ...any) (any, error) {
	if len(args) != 0 {
		return nil, tagError("now", "takes no arguments, got %d", len(args))
	}

	return time.Now(), nil
}
