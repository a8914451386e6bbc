// Package log provides the leveled structured logger used throughout formula.
//
// A [Logger] wraps a [log/slog.Logger] with a fixed configuration chosen by
// functional options at construction:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatJSON),
//		log.WithTimeLayout("RFC3339Nano"))
//
//	logger.InfoContext(ctx, "expression parsed", slog.Int("nodes", n))
//
// Three encodings are available. [FormatJSON] and [FormatText] use the
// handlers of package slog. [FormatPretty], the default, writes one colorized
// line per record when the output is a terminal and plain text otherwise.
//
// [LevelTrace] sits below [LevelDebug] and is used for per-node detail in the
// expression engine.
//
// The package-level functions log through a default logger that writes to
// standard error; [Config] reconfigures it. Functions and methods without a
// context argument use [DefaultContextProvider].
package log
