// Package profile provides optional runtime profiling for the formula
// command through [github.com/pkg/profile].
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof .
//	./formula --pprof-mode cpu eval '1 + 2'
//	go tool pprof ~/.cache/formula/pprof/cpu.pprof
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op
// [Stopper]. With the tag, the package also registers the handlers of
// [net/http/pprof].
package profile

// Tag is the build tag that enables profiling.
const Tag = "pprof"
