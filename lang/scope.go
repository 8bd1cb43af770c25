package lang

import (
	"maps"
	"slices"
)

// Scope is a stack of variable frames.
//
// Frame 0 is the implicit root holding engine globals and is never written.
// Frame 1 holds the variables a render was started with. Lookups search
// from the innermost frame outward.
//
// A Scope belongs to a single render and is not safe for concurrent use.
type Scope struct {
	frames []map[string]any
}

// NewScope returns a scope whose root frame is globals and whose top-level
// frame is a copy of vars. Neither map is modified by rendering.
func NewScope(globals, vars map[string]any) *Scope {
	if globals == nil {
		globals = map[string]any{}
	}

	top := maps.Clone(vars)
	if top == nil {
		top = map[string]any{}
	}

	return &Scope{frames: []map[string]any{globals, top}}
}

// Lookup returns the value bound to name in the innermost frame that
// defines it.
func (s *Scope) Lookup(name string) (any, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v, true
		}
	}

	return nil, false
}

// Set assigns v to name. An existing binding is updated in the frame that
// owns it; otherwise the name is created in the innermost frame. Globals
// in the root frame are shadowed rather than overwritten.
func (s *Scope) Set(name string, v any) {
	for i := len(s.frames) - 1; i > 0; i-- {
		if _, ok := s.frames[i][name]; ok {
			s.frames[i][name] = v

			return
		}
	}

	s.Define(name, v)
}

// Define binds name in the innermost frame, shadowing outer bindings.
func (s *Scope) Define(name string, v any) {
	s.frames[len(s.frames)-1][name] = v
}

// Push adds an empty frame and returns the function that removes it. The
// returned function restores the stack to its depth before Push and is
// safe to call more than once.
func (s *Scope) Push() (pop func()) {
	depth := len(s.frames)
	s.frames = append(s.frames, map[string]any{})

	return func() {
		if len(s.frames) > depth {
			clear(s.frames[depth:])
			s.frames = s.frames[:depth]
		}
	}
}

// Depth returns the number of frames above the root.
func (s *Scope) Depth() int { return len(s.frames) - 1 }

// Names returns the sorted names visible from the innermost frame.
func (s *Scope) Names() []string {
	return sortedKeys(s.Flatten())
}

// Flatten returns every visible binding in one map, inner frames taking
// precedence.
func (s *Scope) Flatten() map[string]any {
	out := make(map[string]any)
	for _, f := range s.frames {
		maps.Copy(out, f)
	}

	return out
}

// Vars returns a copy of the top-level frame.
func (s *Scope) Vars() map[string]any {
	return maps.Clone(s.frames[1])
}

// Globals returns the sorted names in the root frame.
func (s *Scope) Globals() []string {
	return slices.Sorted(maps.Keys(s.frames[0]))
}
