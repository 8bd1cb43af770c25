// Package profile provides optional runtime profiling for the stencil
// command.
//
// Profiling is built on [github.com/pkg/profile] and is compiled in only
// with the "pprof" build tag:
//
//	go build -tags pprof -o stencil .
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op
// stopper, so callers never need build tags of their own.
//
// # Modes
//
//   - allocs:    memory allocation profiling (all allocations)
//   - block:     block (synchronization) profiling
//   - clock:     wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: goroutine profiling
//   - heap:      heap memory profiling (live allocations)
//   - mem:       general memory profiling
//   - mutex:     mutex contention profiling
//   - thread:    thread creation profiling
//   - trace:     execution trace profiling
//
// # Usage
//
//	p := profile.Profiler{Mode: "cpu", Path: "/tmp/profiles", Quiet: true}
//	defer p.Start().Stop()
//
// From the command line:
//
//	stencil --pprof-mode=cpu render page.tmpl
//	go tool pprof -http=: ~/.cache/stencil/pprof/cpu.pprof
//
// Profiling a render loop is the usual way to compare the cost of cached
// and uncached parses; see the benchmarks in package lang for the same
// measurements without the command-line overhead.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
