package lang

import (
	"strings"

	"github.com/ardnew/formula/log"
)

// EvaluateOptions is a set of flags that alter parsing and evaluation.
type EvaluateOptions uint

// Enumerated option flags.
const (
	// IgnoreCase matches keywords, function names and parameter names without
	// regard to letter case.
	IgnoreCase EvaluateOptions = 1 << iota
	// NoCache bypasses the shared parse cache.
	NoCache
	// IterateParameters evaluates the expression once per element when
	// referenced parameters hold sequences, yielding a sequence of results.
	IterateParameters
	// RoundAwayFromZero makes Round resolve midpoints away from zero instead
	// of to the nearest even digit.
	RoundAwayFromZero
	// BooleanCalculation lets booleans participate in arithmetic as 1 and 0.
	BooleanCalculation
)

// None is the empty option set.
const None EvaluateOptions = 0

var optionNames = []struct {
	flag EvaluateOptions
	name string
}{
	{IgnoreCase, "IgnoreCase"},
	{NoCache, "NoCache"},
	{IterateParameters, "IterateParameters"},
	{RoundAwayFromZero, "RoundAwayFromZero"},
	{BooleanCalculation, "BooleanCalculation"},
}

// Has reports whether every flag in f is set in o.
func (o EvaluateOptions) Has(f EvaluateOptions) bool { return o&f == f }

// String returns the set flags joined with "|", or "None".
func (o EvaluateOptions) String() string {
	var names []string

	for _, n := range optionNames {
		if o.Has(n.flag) {
			names = append(names, n.name)
		}
	}

	if len(names) == 0 {
		return "None"
	}

	return strings.Join(names, "|")
}

// ParseOptions parses a list of option names, matched without regard to case.
func ParseOptions(names ...string) (EvaluateOptions, error) {
	var o EvaluateOptions

next:
	for _, s := range names {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "none") {
			continue
		}

		for _, n := range optionNames {
			if strings.EqualFold(s, n.name) {
				o |= n.flag

				continue next
			}
		}

		return o, ErrInvalidArgument.Wrapf("unknown option " + s)
	}

	return o, nil
}

// parseKey returns the subset of o that influences how source text parses.
func (o EvaluateOptions) parseKey() EvaluateOptions { return o & IgnoreCase }

// DefaultMaxDepth is the default maximum nesting depth accepted by the parser
// and the maximum depth of nested sub-expression evaluation.
// Users may modify this before parsing to change the default.
var DefaultMaxDepth = 256

// Option configures an [Expression].
type Option func(*Expression)

// WithOptions sets the option flags.
func WithOptions(opts EvaluateOptions) Option {
	return func(e *Expression) {
		e.options = opts
	}
}

// WithMaxDepth sets the maximum nesting depth of both the parsed tree and
// sub-expression parameters. Zero or less removes the limit.
func WithMaxDepth(depth int) Option {
	return func(e *Expression) {
		e.maxDepth = depth
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(e *Expression) {
		e.logger = logger
	}
}

// WithCache sets the parse cache consulted when parsing source text.
// If not provided, [DefaultCache] is used.
func WithCache(c *Cache) Option {
	return func(e *Expression) {
		e.cache = c
	}
}

// WithParameters sets the initial parameter bindings.
func WithParameters(params map[string]any) Option {
	return func(e *Expression) {
		for k, v := range params {
			e.Parameters[k] = v
		}
	}
}

// WithFunction registers a custom function handler.
func WithFunction(h FunctionHandler) Option {
	return func(e *Expression) {
		e.OnFunction(h)
	}
}

// WithParameterHandler registers a custom parameter handler.
func WithParameterHandler(h ParameterHandler) Option {
	return func(e *Expression) {
		e.OnParameter(h)
	}
}

// applyDefaults sets default option values on an Expression.
func applyDefaults(e *Expression) {
	e.maxDepth = DefaultMaxDepth
	e.cache = DefaultCache
	e.Parameters = make(map[string]any)
}

// applyOptions applies functional options to an Expression.
func applyOptions(e *Expression, opts ...Option) {
	for _, opt := range opts {
		opt(e)
	}
}
