// Package lang implements formula, a small expression language for embedding
// in Go programs.
//
// A formula is parsed into an immutable tree of [Node] values, which can be
// evaluated against named parameters with [Expression.Evaluate] or compiled
// into a typed Go closure with [Compile].
//
// # Grammar
//
// Informal EBNF, lowest binding first:
//
//	expression = or [ "?" expression ":" expression ] .
//	or         = and { ( "||" | "or" ) and } .
//	and        = bitor { ( "&&" | "and" ) bitor } .
//	bitor      = bitxor { "|" bitxor } .
//	bitxor     = bitand { "^" bitand } .
//	bitand     = equality { "&" equality } .
//	equality   = relation { ( "=" | "==" | "!=" | "<>" ) relation } .
//	relation   = shift { ( "<" | "<=" | ">" | ">=" ) shift } .
//	shift      = additive { ( "<<" | ">>" ) additive } .
//	additive   = term { ( "+" | "-" ) term } .
//	term       = unary { ( "*" | "/" | "%" ) unary } .
//	unary      = ( "!" | "not" | "-" | "~" ) unary | primary .
//	primary    = literal | identifier [ "(" [ expression { "," expression } ] ")" ]
//	           | "(" expression ")" .
//
// Literals are integers (int32, or int64 when too large), floating-point
// numbers, 'single' or "double" quoted strings, #date# values and the
// booleans true and false. Identifiers that are not plain words are written
// in brackets: [first name].
//
// # Example
//
//	e := lang.NewExpression("Round(price * (1 + [tax rate]), 2)")
//	e.Parameters["price"] = 19.99
//	e.Parameters["tax rate"] = 0.07
//
//	v, err := e.Evaluate(ctx) // 21.39
//
// # Numbers
//
// Numeric operands are promoted along int32 < int64 < float32 < float64 <
// decimal before an operator is applied. Dividing two integers yields a
// float64. Strings that spell a number take part in arithmetic as decimals.
//
// # Extension
//
// Parameters may be bound to another *Expression, which is evaluated on
// demand. Handlers registered with [Expression.OnFunction] and
// [Expression.OnParameter] supply custom functions and late-bound
// parameters; a function handler may also override a built-in.
//
// # Caching
//
// Parsed trees are shared through a [Cache], [DefaultCache] unless configured
// otherwise. Trees are immutable and safe for concurrent use.
package lang
