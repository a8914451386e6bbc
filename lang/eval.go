package lang

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ardnew/formula/log"
)

// FunctionHandler resolves calls of custom functions.
//
// A handler that does not recognize name leaves args without a result, and
// resolution continues with the next handler and then the built-ins. A
// returned error aborts evaluation.
type FunctionHandler func(ctx context.Context, name string, args *FunctionArgs) error

// ParameterHandler resolves parameter names that have no binding in
// [Expression.Parameters]; bound parameters are always checked first.
//
// A handler that does not recognize name leaves args without a result, and
// resolution continues with the next handler. A returned error aborts
// evaluation.
type ParameterHandler func(ctx context.Context, name string, args *ParameterArgs) error

// FunctionArgs carries the unevaluated arguments of a custom function call
// and receives its result.
type FunctionArgs struct {
	Arguments []*Argument

	result    any
	hasResult bool
}

// SetResult records the result of the call. A nil result is a valid result,
// distinct from no result at all.
func (a *FunctionArgs) SetResult(v any) {
	a.result, a.hasResult = v, true
}

// Result returns the recorded result.
func (a *FunctionArgs) Result() any { return a.result }

// HasResult reports whether a result was recorded.
func (a *FunctionArgs) HasResult() bool { return a.hasResult }

// Evaluate evaluates every argument in order.
func (a *FunctionArgs) Evaluate() ([]any, error) {
	out := make([]any, len(a.Arguments))

	for i, arg := range a.Arguments {
		v, err := arg.Evaluate()
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

// ParameterArgs receives the value of a parameter resolved by a handler.
type ParameterArgs struct {
	result    any
	hasResult bool
}

// SetResult records the value of the parameter.
func (a *ParameterArgs) SetResult(v any) {
	a.result, a.hasResult = v, true
}

// Result returns the recorded value.
func (a *ParameterArgs) Result() any { return a.result }

// HasResult reports whether a value was recorded.
func (a *ParameterArgs) HasResult() bool { return a.hasResult }

// Argument is an unevaluated argument of a function call. Evaluating it uses
// the same parameters, handlers and options as the enclosing evaluation.
type Argument struct {
	ctx  context.Context
	ev   *evaluator
	node Node
}

// Evaluate evaluates the argument.
func (a *Argument) Evaluate() (any, error) { return a.ev.eval(a.ctx, a.node) }

// Node returns the argument's expression tree.
func (a *Argument) Node() Node { return a.node }

// String returns the canonical rendering of the argument.
func (a *Argument) String() string { return a.node.String() }

// evaluator walks an expression tree.
type evaluator struct {
	params     map[string]any
	functions  []FunctionHandler
	parameters []ParameterHandler
	logger     log.Logger
	options    EvaluateOptions
	depth      int
	maxDepth   int
}

// Eval evaluates node with the given parameter bindings.
// It is a convenience for evaluating a pre-parsed tree without hooks.
func Eval(
	ctx context.Context,
	node Node,
	params map[string]any,
	opts EvaluateOptions,
) (any, error) {
	ev := evaluator{params: params, options: opts, maxDepth: DefaultMaxDepth}

	return ev.eval(ctx, node)
}

// fail wraps err with the rendering of the node that produced it, unless an
// inner node has already done so.
func fail(node Node, err error) error {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return err
	}

	return &EvaluationError{Node: node.String(), Err: err}
}

func (ev *evaluator) eval(ctx context.Context, node Node) (any, error) {
	switch n := node.(type) {
	case *Value:
		return n.Literal, nil

	case *Identifier:
		v, err := ev.parameter(ctx, n.Name)
		if err != nil {
			return nil, fail(n, err)
		}

		return v, nil

	case *UnaryExpression:
		v, err := ev.eval(ctx, n.Operand)
		if err != nil {
			return nil, err
		}

		r, err := applyUnary(n.Op, v, ev.options)
		if err != nil {
			return nil, fail(n, err)
		}

		return r, nil

	case *BinaryExpression:
		return ev.binary(ctx, n)

	case *TernaryExpression:
		return ev.ternary(ctx, n.Condition, n.Then, n.Else, n)

	case *Function:
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := ev.call(ctx, n)
		if err != nil {
			return nil, fail(n, err)
		}

		return v, nil

	case nil:
		return nil, &EvaluationError{Err: ErrInvalidArgument.Wrapf("nil node")}
	}

	return nil, &EvaluationError{
		Node: node.String(),
		Err:  ErrInvalidArgument.Wrapf("unknown node type"),
	}
}

func (ev *evaluator) binary(ctx context.Context, n *BinaryExpression) (any, error) {
	l, err := ev.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}

	if n.Op == OpAnd || n.Op == OpOr {
		lb, ok := l.(bool)
		if !ok {
			return nil, fail(n, ErrTypeMismatch.With(
				slog.String("operator", n.Op.String()),
				slog.String("left", TypeOf(l).String()),
			))
		}

		if (n.Op == OpAnd && !lb) || (n.Op == OpOr && lb) {
			return lb, nil
		}
	}

	r, err := ev.eval(ctx, n.Right)
	if err != nil {
		return nil, err
	}

	v, err := applyBinary(n.Op, l, r, ev.options)
	if err != nil {
		return nil, fail(n, err)
	}

	return v, nil
}

// ternary evaluates cond and then exactly one of the two branches.
func (ev *evaluator) ternary(
	ctx context.Context,
	cond, then, els Node,
	at Node,
) (any, error) {
	c, err := ev.eval(ctx, cond)
	if err != nil {
		return nil, err
	}

	b, ok := c.(bool)
	if !ok {
		return nil, fail(at, ErrTypeMismatch.With(
			slog.String("condition", TypeOf(c).String()),
			slog.String("expected", "boolean"),
		))
	}

	if b {
		return ev.eval(ctx, then)
	}

	return ev.eval(ctx, els)
}

// parameter resolves an identifier: bindings first, then handlers.
// A binding that is itself an [Expression] is evaluated with its own
// parameters; its handlers take precedence over those of this evaluation.
func (ev *evaluator) parameter(ctx context.Context, name string) (any, error) {
	if v, ok := ev.lookup(name); ok {
		if sub, ok := v.(*Expression); ok {
			return ev.subexpression(ctx, name, sub)
		}

		return Normalize(v), nil
	}

	var args ParameterArgs

	for _, h := range ev.parameters {
		if err := h(ctx, name, &args); err != nil {
			return nil, err
		}

		if args.HasResult() {
			ev.logger.TraceContext(ctx, "parameter resolved by handler",
				slog.String("name", name))

			return Normalize(args.Result()), nil
		}
	}

	return nil, ErrUnknownParameter.With(slog.String("name", name))
}

// lookup finds a bound parameter, ignoring case when so configured.
func (ev *evaluator) lookup(name string) (any, bool) {
	if v, ok := ev.params[name]; ok {
		return v, true
	}

	if ev.options.Has(IgnoreCase) {
		for k, v := range ev.params {
			if strings.EqualFold(k, name) {
				return v, true
			}
		}
	}

	return nil, false
}

func (ev *evaluator) subexpression(
	ctx context.Context,
	name string,
	sub *Expression,
) (any, error) {
	if ev.maxDepth > 0 && ev.depth+1 > ev.maxDepth {
		return nil, ErrMaxDepthExceeded.With(slog.String("parameter", name))
	}

	node, err := sub.ParsedExpression(ctx)
	if err != nil {
		return nil, err
	}

	child := evaluator{
		params:     sub.Parameters,
		functions:  append(sub.functionHandlers(), ev.functions...),
		parameters: append(sub.parameterHandlers(), ev.parameters...),
		logger:     ev.logger,
		options:    sub.options,
		depth:      ev.depth + 1,
		maxDepth:   ev.maxDepth,
	}

	ev.logger.TraceContext(ctx, "evaluate sub-expression",
		slog.String("parameter", name),
		slog.Int("depth", child.depth),
	)

	return child.eval(ctx, node)
}

// call dispatches a function call: handlers first, then built-ins.
func (ev *evaluator) call(ctx context.Context, n *Function) (any, error) {
	if len(ev.functions) > 0 {
		args := FunctionArgs{Arguments: make([]*Argument, len(n.Arguments))}
		for i, arg := range n.Arguments {
			args.Arguments[i] = &Argument{ctx: ctx, ev: ev, node: arg}
		}

		for _, h := range ev.functions {
			if err := h(ctx, n.Name, &args); err != nil {
				return nil, err
			}

			if args.HasResult() {
				ev.logger.TraceContext(ctx, "function resolved by handler",
					slog.String("name", n.Name))

				return Normalize(args.Result()), nil
			}
		}
	}

	b, ok := LookupBuiltin(n.Name, ev.options.Has(IgnoreCase))
	if !ok {
		return nil, ErrUnknownFunction.With(slog.String("name", n.Name))
	}

	if err := b.checkArity(len(n.Arguments)); err != nil {
		return nil, err
	}

	switch b {
	case BuiltinIf:
		return ev.ternary(ctx, n.Arguments[0], n.Arguments[1], n.Arguments[2], n)

	case BuiltinIn:
		needle, err := ev.eval(ctx, n.Arguments[0])
		if err != nil {
			return nil, err
		}

		for _, arg := range n.Arguments[1:] {
			v, err := ev.eval(ctx, arg)
			if err != nil {
				return nil, err
			}

			if contains(needle, v, ev.options) {
				return true, nil
			}
		}

		return false, nil
	}

	args := make([]any, len(n.Arguments))
	for i, arg := range n.Arguments {
		v, err := ev.eval(ctx, arg)
		if err != nil {
			return nil, err
		}

		args[i] = v
	}

	return b.call(args, ev.options)
}

// contains reports whether needle equals v. Values that cannot be compared
// are unequal.
func contains(needle, v any, opts EvaluateOptions) bool {
	eq, err := compareValues(OpEqual, needle, v, opts)
	if err != nil {
		return false
	}

	b, _ := eq.(bool)

	return b
}
