package lang

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
)

// compiled is a subtree turned into a closure together with its static type.
// A nullable closure may yield nil regardless of its type.
type compiled struct {
	eval     func(target any) (any, error)
	typ      Type
	nullable bool
}

// compiler translates expression trees into closures.
type compiler struct {
	catalog  MethodCatalog
	params   map[string]any
	options  EvaluateOptions
	depth    int
	maxDepth int
}

// CompileOption configures compilation.
type CompileOption func(*compiler)

// WithCatalog replaces the catalog derived from the context type.
func WithCatalog(c MethodCatalog) CompileOption {
	return func(cc *compiler) {
		cc.catalog = c
	}
}

// Compile translates the expression into a native closure over a context of
// type C producing a result of type R.
//
// Identifiers resolve to exported fields of C, then to the expression's
// parameters, which are captured as constants. Function calls resolve to
// exported methods of C (see [TypeCatalog] for overloads), then to the
// built-ins. Operand types are fixed at compile time; numeric operands are
// widened along the same lattice the evaluator uses. Custom handlers
// registered on the expression are not consulted.
func Compile[C, R any](
	ctx context.Context,
	e *Expression,
	opts ...CompileOption,
) (func(C) (R, error), error) {
	node, err := e.ParsedExpression(ctx)
	if err != nil {
		return nil, err
	}

	cc := compiler{
		catalog:  CatalogFor[C](),
		params:   e.Parameters,
		options:  e.options,
		maxDepth: e.maxDepth,
	}

	for _, opt := range opts {
		opt(&cc)
	}

	root, err := cc.compile(node)
	if err != nil {
		return nil, err
	}

	rt := reflect.TypeFor[R]()

	conv, err := resultConverter(rt, root.typ)
	if err != nil {
		return nil, &CompileError{Node: node.String(), Err: err}
	}

	e.logger.DebugContext(ctx, "compiled expression",
		slog.String("expression", node.String()),
		slog.String("type", root.typ.String()),
		slog.String("result", rt.String()),
	)

	return func(c C) (R, error) {
		var zero R

		v, err := root.eval(c)
		if err != nil {
			return zero, err
		}

		out, err := conv(v)
		if err != nil {
			return zero, &EvaluationError{Node: node.String(), Err: err}
		}

		r, _ := out.(R)

		return r, nil
	}, nil
}

// CompileFunc translates the expression into a native closure without a
// context. Only parameters and built-ins are available to it.
func CompileFunc[R any](
	ctx context.Context,
	e *Expression,
	opts ...CompileOption,
) (func() (R, error), error) {
	fn, err := Compile[struct{}, R](ctx, e, opts...)
	if err != nil {
		return nil, err
	}

	return func() (R, error) { return fn(struct{}{}) }, nil
}

func (cc *compiler) errorf(node Node, err error) *CompileError {
	return &CompileError{Node: node.String(), Err: err}
}

func constant(v any) compiled {
	return compiled{
		typ:  TypeOf(v),
		eval: func(any) (any, error) { return v, nil },
	}
}

func (cc *compiler) compile(node Node) (compiled, error) {
	switch n := node.(type) {
	case *Value:
		return constant(n.Literal), nil
	case *Identifier:
		return cc.identifier(n)
	case *UnaryExpression:
		return cc.unary(n)
	case *BinaryExpression:
		return cc.binary(n)
	case *TernaryExpression:
		return cc.ternary(n, n.Condition, n.Then, n.Else)
	case *Function:
		return cc.function(n)
	}

	return compiled{}, &CompileError{Err: ErrInvalidArgument.Wrapf("unknown node type")}
}

func (cc *compiler) identifier(n *Identifier) (compiled, error) {
	ignoreCase := cc.options.Has(IgnoreCase)

	if cc.catalog != nil {
		if f, ok := cc.catalog.Field(n.Name, ignoreCase); ok {
			return compiled{
				typ:      f.Type,
				nullable: f.Nullable,
				eval:     func(target any) (any, error) { return f.Get(target), nil },
			}, nil
		}
	}

	ev := evaluator{params: cc.params, options: cc.options}

	v, ok := ev.lookup(n.Name)
	if !ok {
		return compiled{}, cc.errorf(n, ErrUnknownParameter.With(slog.String("name", n.Name)))
	}

	sub, ok := v.(*Expression)
	if !ok {
		c := constant(Normalize(v))
		c.nullable = c.typ == TypeNull

		return c, nil
	}

	if cc.maxDepth > 0 && cc.depth+1 > cc.maxDepth {
		return compiled{}, cc.errorf(n, ErrMaxDepthExceeded)
	}

	node, err := sub.ParsedExpression(context.Background())
	if err != nil {
		return compiled{}, cc.errorf(n, err)
	}

	child := compiler{
		catalog:  cc.catalog,
		params:   sub.Parameters,
		options:  sub.options,
		depth:    cc.depth + 1,
		maxDepth: cc.maxDepth,
	}

	return child.compile(node)
}

func (cc *compiler) unary(n *UnaryExpression) (compiled, error) {
	operand, err := cc.compile(n.Operand)
	if err != nil {
		return compiled{}, err
	}

	var typ Type

	switch t := operand.typ; {
	case n.Op == OpNot && (t == TypeBoolean || t == TypeAny):
		typ = TypeBoolean
	case n.Op == OpNot:
	case t == TypeAny:
		typ = TypeAny
	case t == TypeBoolean && cc.options.Has(BooleanCalculation):
		typ = TypeInt32
	case t == TypeString:
		typ = TypeDecimal
	case n.Op == OpNegate && t.IsNumeric(), n.Op == OpBitwiseNot && t.IsInteger():
		typ = t
	}

	if typ == TypeNull {
		return compiled{}, cc.errorf(n, ErrTypeMismatch.With(
			slog.String("operator", n.Op.String()),
			slog.String("operand", operand.typ.String()),
		))
	}

	op, opts := n.Op, cc.options

	return compiled{
		typ:      typ,
		nullable: operand.nullable,
		eval: func(target any) (any, error) {
			v, err := operand.eval(target)
			if err != nil || v == nil {
				return nil, err
			}

			r, err := applyUnary(op, v, opts)
			if err != nil {
				return nil, fail(n, err)
			}

			return r, nil
		},
	}, nil
}

// arithmeticType returns the static operand type of t in arithmetic, or
// TypeNull if t cannot take part.
func (cc *compiler) arithmeticType(t Type) Type {
	switch {
	case t.IsNumeric(), t == TypeAny:
		return t
	case t == TypeBoolean && cc.options.Has(BooleanCalculation):
		return TypeInt32
	case t == TypeString:
		return TypeDecimal
	}

	return TypeNull
}

func (cc *compiler) binary(n *BinaryExpression) (compiled, error) {
	left, err := cc.compile(n.Left)
	if err != nil {
		return compiled{}, err
	}

	right, err := cc.compile(n.Right)
	if err != nil {
		return compiled{}, err
	}

	lt, rt := left.typ, right.typ
	op, opts := n.Op, cc.options

	mismatch := func() (compiled, error) {
		return compiled{}, cc.errorf(n, ErrTypeMismatch.With(
			slog.String("operator", op.String()),
			slog.String("left", lt.String()),
			slog.String("right", rt.String()),
		))
	}

	if op == OpAnd || op == OpOr {
		if (lt != TypeBoolean && lt != TypeAny) || (rt != TypeBoolean && rt != TypeAny) {
			return mismatch()
		}

		return compiled{
			typ: TypeBoolean,
			eval: func(target any) (any, error) {
				l, err := left.eval(target)
				if err != nil {
					return nil, err
				}

				lb, ok := l.(bool)
				if !ok {
					return nil, fail(n, ErrTypeMismatch.With(slog.String("left", TypeOf(l).String())))
				}

				if (op == OpAnd && !lb) || (op == OpOr && lb) {
					return lb, nil
				}

				r, err := right.eval(target)
				if err != nil {
					return nil, err
				}

				v, err := applyBinary(op, l, r, opts)
				if err != nil {
					return nil, fail(n, err)
				}

				return v, nil
			},
		}, nil
	}

	var typ Type

	nullable := left.nullable || right.nullable
	la, ra := cc.arithmeticType(lt), cc.arithmeticType(rt)

	switch {
	case op.isComparison():
		typ, nullable = TypeBoolean, false
	case op == OpPlus && lt == TypeString && rt == TypeString:
		typ = TypeString
	case op == OpPlus && (lt == TypeString || rt == TypeString):
		typ = TypeAny
	case la == TypeNull || ra == TypeNull:
		return mismatch()
	case la == TypeAny || ra == TypeAny:
		typ = TypeAny
	case op == OpDiv && la.IsInteger() && ra.IsInteger():
		typ = TypeFloat64
	case op >= OpBitwiseAnd && op <= OpRightShift && !(la.IsInteger() && ra.IsInteger()):
		return mismatch()
	default:
		typ = widen(la, ra)
	}

	// Numeric operands of known type skip the dynamic coercion rules.
	if lt.IsNumeric() && rt.IsNumeric() && !left.nullable && !right.nullable {
		t := widen(lt, rt)

		return compiled{
			typ: typ,
			eval: func(target any) (any, error) {
				l, err := left.eval(target)
				if err != nil {
					return nil, err
				}

				r, err := right.eval(target)
				if err != nil {
					return nil, err
				}

				if l, err = convertNumber(l, t); err == nil {
					r, err = convertNumber(r, t)
				}

				if err == nil {
					var v any
					if v, err = applyNumeric(op, t, l, r); err == nil {
						return v, nil
					}
				}

				return nil, fail(n, err)
			},
		}, nil
	}

	return compiled{
		typ:      typ,
		nullable: nullable,
		eval: func(target any) (any, error) {
			l, err := left.eval(target)
			if err != nil {
				return nil, err
			}

			r, err := right.eval(target)
			if err != nil {
				return nil, err
			}

			if !op.isComparison() && (l == nil || r == nil) {
				return nil, nil
			}

			v, err := applyBinary(op, l, r, opts)
			if err != nil {
				return nil, fail(n, err)
			}

			return v, nil
		},
	}, nil
}

// unify returns the static type of a value that may come from either of two
// branches.
func unify(a, b Type) Type {
	switch {
	case a == b:
		return a
	case a.IsNumeric() && b.IsNumeric():
		return widen(a, b)
	}

	return TypeAny
}

// coerce wraps c so that numeric results are converted to t.
func coerce(c compiled, t Type) compiled {
	if c.typ == t || !t.IsNumeric() {
		return c
	}

	inner := c.eval
	c.typ = t
	c.eval = func(target any) (any, error) {
		v, err := inner(target)
		if err != nil || v == nil {
			return v, err
		}

		return convertNumber(v, t)
	}

	return c
}

func (cc *compiler) ternary(at Node, cond, then, els Node) (compiled, error) {
	c, err := cc.compile(cond)
	if err != nil {
		return compiled{}, err
	}

	if c.typ != TypeBoolean && c.typ != TypeAny {
		return compiled{}, cc.errorf(at, ErrTypeMismatch.With(
			slog.String("condition", c.typ.String()),
			slog.String("expected", "boolean"),
		))
	}

	a, err := cc.compile(then)
	if err != nil {
		return compiled{}, err
	}

	b, err := cc.compile(els)
	if err != nil {
		return compiled{}, err
	}

	typ := unify(a.typ, b.typ)
	a, b = coerce(a, typ), coerce(b, typ)

	return compiled{
		typ:      typ,
		nullable: a.nullable || b.nullable,
		eval: func(target any) (any, error) {
			v, err := c.eval(target)
			if err != nil {
				return nil, err
			}

			ok, is := v.(bool)
			if !is {
				return nil, fail(at, ErrTypeMismatch.With(slog.String("condition", TypeOf(v).String())))
			}

			if ok {
				return a.eval(target)
			}

			return b.eval(target)
		},
	}, nil
}

func (cc *compiler) function(n *Function) (compiled, error) {
	args := make([]compiled, len(n.Arguments))
	types := make([]Type, len(n.Arguments))

	compileArgs := func() error {
		for i, arg := range n.Arguments {
			c, err := cc.compile(arg)
			if err != nil {
				return err
			}

			args[i], types[i] = c, c.typ
		}

		return nil
	}

	ignoreCase := cc.options.Has(IgnoreCase)

	if cc.catalog != nil {
		if overloads := cc.catalog.Methods(n.Name, ignoreCase); len(overloads) > 0 {
			if err := compileArgs(); err != nil {
				return compiled{}, err
			}

			m, err := resolve(overloads, types)
			if err != nil {
				return compiled{}, cc.errorf(n, err.With(slog.String("name", n.Name)))
			}

			return cc.invoke(n, m, args), nil
		}
	}

	b, ok := LookupBuiltin(n.Name, ignoreCase)
	if !ok {
		return compiled{}, cc.errorf(n, ErrUnknownFunction.With(slog.String("name", n.Name)))
	}

	if err := b.checkArity(len(n.Arguments)); err != nil {
		return compiled{}, cc.errorf(n, err)
	}

	if b == BuiltinIf {
		return cc.ternary(n, n.Arguments[0], n.Arguments[1], n.Arguments[2])
	}

	if err := compileArgs(); err != nil {
		return compiled{}, err
	}

	opts := cc.options

	if b == BuiltinIn {
		return compiled{
			typ: TypeBoolean,
			eval: func(target any) (any, error) {
				needle, err := args[0].eval(target)
				if err != nil {
					return nil, err
				}

				for _, arg := range args[1:] {
					v, err := arg.eval(target)
					if err != nil {
						return nil, err
					}

					if contains(needle, v, opts) {
						return true, nil
					}
				}

				return false, nil
			},
		}, nil
	}

	for i, t := range types {
		if cc.arithmeticType(t) == TypeNull {
			return compiled{}, cc.errorf(n, ErrInvalidArgument.With(
				slog.String("function", b.String()),
				slog.Int("argument", i),
				slog.String("type", t.String()),
			))
		}
	}

	typ := builtinTable[b].result

	switch b {
	case BuiltinMax, BuiltinMin:
		typ = unify(cc.arithmeticType(types[0]), cc.arithmeticType(types[1]))
	case BuiltinRound:
		if cc.arithmeticType(types[0]) == TypeDecimal {
			typ = TypeDecimal
		} else if types[0] != TypeAny {
			typ = TypeFloat64
		}
	}

	return compiled{
		typ: typ,
		eval: func(target any) (any, error) {
			argv := make([]any, len(args))

			for i, arg := range args {
				v, err := arg.eval(target)
				if err != nil {
					return nil, err
				}

				argv[i] = v
			}

			v, err := b.call(argv, opts)
			if err != nil {
				return nil, fail(n, err)
			}

			return v, nil
		},
	}, nil
}

func (cc *compiler) invoke(n *Function, m *Method, args []compiled) compiled {
	return compiled{
		typ: m.Result,
		eval: func(target any) (any, error) {
			argv := make([]any, len(args))

			for i, arg := range args {
				v, err := arg.eval(target)
				if err != nil {
					return nil, err
				}

				argv[i] = v
			}

			v, err := m.Invoke(target, argv)
			if err != nil {
				return nil, fail(n, err)
			}

			return v, nil
		},
	}
}

// bindCost returns the number of implicit conversions needed to pass an
// argument of type arg to a parameter of type param, or false if the
// argument cannot be passed.
func bindCost(param, arg Type) (int, bool) {
	switch {
	case arg == param:
		return 0, true
	case param == TypeAny, arg == TypeAny:
		return 1, true
	case arg.IsNumeric() && param.IsNumeric() && arg < param:
		return 1, true
	}

	return 0, false
}

// resolve selects the overload to call for arguments of the given types.
//
// Overloads taking exactly len(args) parameters are preferred; among those
// the one needing the fewest widening conversions wins. Variadic overloads
// are considered only when no such overload applies; among those fewer
// conversions win, then more fixed parameters. Remaining ties go to the
// overload declared first.
func resolve(overloads []*Method, args []Type) (*Method, *Error) {
	var (
		best     *Method
		bestCost int
	)

	for _, m := range overloads {
		if m.Variadic || len(m.Params) != len(args) {
			continue
		}

		cost, ok := 0, true

		for i, p := range m.Params {
			c, bind := bindCost(p, args[i])
			if !bind {
				ok = false

				break
			}

			cost += c
		}

		if ok && (best == nil || cost < bestCost) {
			best, bestCost = m, cost
		}
	}

	if best != nil {
		return best, nil
	}

	bestFixed := -1

	for _, m := range overloads {
		fixed := len(m.Params) - 1
		if !m.Variadic || len(args) < fixed {
			continue
		}

		cost, ok := 0, true

		for i, a := range args {
			c, bind := bindCost(m.Params[min(i, fixed)], a)
			if !bind {
				ok = false

				break
			}

			cost += c
		}

		if !ok {
			continue
		}

		if best == nil || cost < bestCost || (cost == bestCost && fixed > bestFixed) {
			best, bestCost, bestFixed = m, cost, fixed
		}
	}

	if best != nil {
		return best, nil
	}

	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.String()
	}

	return nil, ErrNoOverload.With(slog.String("arguments", strings.Join(names, ", ")))
}
