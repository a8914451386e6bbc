package lang

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/ardnew/formula/log"
)

// parseState tracks whether the source of an [Expression] has been parsed.
type parseState int

const (
	stateUnparsed parseState = iota
	stateParsed
	stateParseFailed
)

// Expression is an evaluation session: source text (or a pre-parsed tree),
// parameter bindings, custom handlers and options.
//
// Parsing happens lazily on first use and its outcome is remembered until the
// source changes. An Expression may be evaluated from multiple goroutines as
// long as Parameters and the registered handlers are not modified
// concurrently.
type Expression struct {
	// Parameters binds names to values. A value may itself be an *Expression,
	// which is evaluated on demand.
	Parameters map[string]any

	logger   log.Logger
	cache    *Cache
	node     Node
	err      error
	source   string
	funcs    []FunctionHandler
	params   []ParameterHandler
	mu       sync.Mutex
	state    parseState
	options  EvaluateOptions
	maxDepth int
}

// NewExpression returns an expression session for source text.
func NewExpression(source string, opts ...Option) *Expression {
	e := &Expression{source: source}

	applyDefaults(e)
	applyOptions(e, opts...)

	return e
}

// NewExpressionFromNode returns an expression session for a pre-parsed tree.
func NewExpressionFromNode(node Node, opts ...Option) *Expression {
	e := &Expression{node: node, source: node.String(), state: stateParsed}

	applyDefaults(e)
	applyOptions(e, opts...)

	return e
}

// ReadExpression reads the source text of an expression from r.
func ReadExpression(ctx context.Context, r io.Reader, opts ...Option) (*Expression, error) {
	source, err := readSource(ctx, r)
	if err != nil {
		return nil, err
	}

	return NewExpression(source, opts...), nil
}

// Source returns the source text.
func (e *Expression) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.source
}

// SetSource replaces the source text and discards any previous parse result.
func (e *Expression) SetSource(source string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.source, e.node, e.err, e.state = source, nil, nil, stateUnparsed
}

// Options returns the option flags.
func (e *Expression) Options() EvaluateOptions { return e.options }

// OnFunction registers a custom function handler. Handlers are consulted in
// registration order.
func (e *Expression) OnFunction(h FunctionHandler) {
	e.funcs = append(e.funcs, h)
}

// OnParameter registers a custom parameter handler. Handlers are consulted
// in registration order.
func (e *Expression) OnParameter(h ParameterHandler) {
	e.params = append(e.params, h)
}

func (e *Expression) functionHandlers() []FunctionHandler {
	return slices.Clone(e.funcs)
}

func (e *Expression) parameterHandlers() []ParameterHandler {
	return slices.Clone(e.params)
}

// ParsedExpression parses the source if that has not been attempted yet and
// returns the tree, or the parse error.
func (e *Expression) ParsedExpression(ctx context.Context) (Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateUnparsed {
		node, err := Parse(ctx, e.source,
			WithOptions(e.options),
			WithMaxDepth(e.maxDepth),
			WithCache(e.cache),
			WithLogger(e.logger),
		)
		if err != nil {
			e.state, e.err = stateParseFailed, err

			e.logger.DebugContext(ctx, "parse failed",
				slog.String("source", e.source),
				slog.Any("error", err),
			)
		} else {
			e.state, e.node = stateParsed, node
		}
	}

	return e.node, e.err
}

// HasErrors parses the source if needed and reports whether parsing failed.
func (e *Expression) HasErrors() bool {
	_, err := e.ParsedExpression(log.DefaultContextProvider())

	return err != nil
}

// Err returns the error of the last parse attempt. It is nil until a parse
// has been attempted.
func (e *Expression) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.err
}

// String returns the canonical rendering of the parsed tree, or the source
// text when it does not parse.
func (e *Expression) String() string {
	node, err := e.ParsedExpression(log.DefaultContextProvider())
	if err != nil {
		return e.Source()
	}

	return node.String()
}

// Evaluate parses the source if needed and evaluates it.
//
// With [IterateParameters], sequence-valued parameters referenced by the
// expression are consumed element-wise and the result is a []any holding
// one result per element.
func (e *Expression) Evaluate(ctx context.Context) (any, error) {
	node, err := e.ParsedExpression(ctx)
	if err != nil {
		return nil, err
	}

	ev := evaluator{
		params:     e.Parameters,
		functions:  e.funcs,
		parameters: e.params,
		logger:     e.logger,
		options:    e.options,
		maxDepth:   e.maxDepth,
	}

	e.logger.TraceContext(ctx, "evaluate start",
		slog.String("expression", node.String()),
		slog.Int("parameters", len(e.Parameters)),
	)

	var result any
	if e.options.Has(IterateParameters) {
		result, err = e.iterate(ctx, node, ev)
	} else {
		result, err = ev.eval(ctx, node)
	}

	if err != nil {
		e.logger.DebugContext(ctx, "evaluate failed", slog.Any("error", err))

		return nil, err
	}

	e.logger.TraceContext(ctx, "evaluate complete",
		slog.String("type", TypeOf(result).String()),
	)

	return result, nil
}

// iterate evaluates node once per element of the sequence-valued parameters
// it references. All such sequences must have the same length. Without any
// sequence-valued parameter, node is evaluated once and the result returned
// as is.
func (e *Expression) iterate(ctx context.Context, node Node, ev evaluator) (any, error) {
	size := -1
	seqs := make(map[string][]any)

	for _, name := range Identifiers(node) {
		v, ok := ev.lookup(name)
		if !ok {
			continue
		}

		seq, ok := Normalize(v).([]any)
		if !ok {
			continue
		}

		if size >= 0 && len(seq) != size {
			return nil, ErrIterate.With(
				slog.String("parameter", name),
				slog.Int("length", len(seq)),
				slog.Int("expected", size),
			)
		}

		size = len(seq)
		seqs[name] = seq
	}

	if size < 0 {
		return ev.eval(ctx, node)
	}

	results := make([]any, size)

	for i := range size {
		params := maps.Clone(e.Parameters)
		if params == nil {
			params = make(map[string]any, len(seqs))
		}

		for name, seq := range seqs {
			params[name] = seq[i]
		}

		ev.params = params

		v, err := ev.eval(ctx, node)
		if err != nil {
			return nil, err
		}

		results[i] = v
	}

	return results, nil
}

// Evaluate parses and evaluates source with the given parameter bindings.
func Evaluate(
	ctx context.Context,
	source string,
	params map[string]any,
	opts ...Option,
) (any, error) {
	e := NewExpression(source, opts...)
	maps.Copy(e.Parameters, params)

	return e.Evaluate(ctx)
}
