// Package cli contains the command line interface.
//
// # Commands
//
//   - eval: evaluate a formula and print its result (the default command)
//   - fmt: print the canonical form of a formula, or its syntax tree
//   - repl: evaluate formulas interactively
//
// For example:
//
//	formula '2 * (3 + 5)'
//	formula eval -p x=4 --round-away-from-zero 'Round(x / 3, 1)'
//	formula fmt -o yaml 'if(a, b, c)'
//
// # Configuration
//
// Flag defaults are read from config.json and config.yaml in the user
// configuration directory (see [pkg.ConfigDir]). Keys name flags without
// their leading dashes, and nested YAML mappings join their keys with
// hyphens:
//
//	log:
//	  level: debug
//	ignore-case: true
//
// Flags given on the command line take precedence.
//
// # Logging Options
//
//   - --log-level: minimum level (trace, debug, info, warn, error)
//   - --log-format: record format (json, text, pretty)
//   - --log-time: timestamp layout (RFC3339, Kitchen, a Go layout, or none)
//   - --log-caller: include the source location of each record
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
//   - --pprof-mode: profile to collect (allocs, block, clock, cpu,
//     goroutine, heap, mem, mutex, thread, trace)
//   - --pprof-dir: output directory, by default under the user cache
//     directory
package cli
