package lang

import (
	"context"
	"log/slog"
	"strings"
)

// binaryLevels lists the infix operators of each precedence level, lowest
// binding first. Every level is left-associative.
var binaryLevels = []struct {
	ops   map[string]BinaryOp
	words map[string]BinaryOp
}{
	{ops: map[string]BinaryOp{"||": OpOr}, words: map[string]BinaryOp{"or": OpOr}},
	{ops: map[string]BinaryOp{"&&": OpAnd}, words: map[string]BinaryOp{"and": OpAnd}},
	{ops: map[string]BinaryOp{"|": OpBitwiseOr}},
	{ops: map[string]BinaryOp{"^": OpBitwiseXor}},
	{ops: map[string]BinaryOp{"&": OpBitwiseAnd}},
	{ops: map[string]BinaryOp{
		"=": OpEqual, "==": OpEqual, "!=": OpNotEqual, "<>": OpNotEqual,
	}},
	{ops: map[string]BinaryOp{
		"<": OpLesser, "<=": OpLesserOrEqual, ">": OpGreater, ">=": OpGreaterOrEqual,
	}},
	{ops: map[string]BinaryOp{"<<": OpLeftShift, ">>": OpRightShift}},
	{ops: map[string]BinaryOp{"+": OpPlus, "-": OpMinus}},
	{ops: map[string]BinaryOp{"*": OpTimes, "/": OpDiv, "%": OpModulo}},
}

// parser is a recursive-descent parser over a token slice.
type parser struct {
	src      string
	toks     []token
	i        int
	depth    int
	maxDepth int
	options  EvaluateOptions
}

// parse tokenizes and parses src into an expression tree.
func parse(src string, options EvaluateOptions, maxDepth int) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := parser{src: src, toks: toks, options: options, maxDepth: maxDepth}

	node, err := p.expression()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, p.unexpected(tok, "operator", "end of input")
	}

	return node, nil
}

// Parse parses source text into an expression tree.
//
// Unless the [NoCache] option is given, the tree is obtained through the
// configured [Cache] ([DefaultCache] by default), so repeated parses of the
// same text with the same options return the same shared tree.
func Parse(ctx context.Context, source string, opts ...Option) (Node, error) {
	var temp Expression

	applyDefaults(&temp)
	applyOptions(&temp, opts...)

	temp.logger.TraceContext(
		ctx,
		"parse start",
		slog.Int("source_bytes", len(source)),
		slog.String("options", temp.options.String()),
	)

	if temp.options.Has(NoCache) || temp.cache == nil {
		return parse(source, temp.options, temp.maxDepth)
	}

	return temp.cache.GetOrParse(ctx, source, temp.options, temp.maxDepth)
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) advance() token {
	tok := p.toks[p.i]
	if tok.kind != tokenEOF {
		p.i++
	}

	return tok
}

// isWord reports whether tok is the bare keyword w.
func (p *parser) isWord(tok token, w string) bool {
	if tok.kind != tokenIdent || tok.quoted {
		return false
	}

	if p.options.Has(IgnoreCase) {
		return strings.EqualFold(tok.text, w)
	}

	return tok.text == w
}

func (p *parser) unexpected(tok token, expected ...string) *SyntaxError {
	return &SyntaxError{
		Pos:      tok.pos,
		Found:    tok.describe(),
		Expected: expected,
		Source:   p.src,
	}
}

func (p *parser) enter() error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		tok := p.peek()

		return &SyntaxError{
			Pos:    tok.pos,
			Found:  "nesting deeper than the maximum depth",
			Source: p.src,
		}
	}

	return nil
}

func (p *parser) leave() { p.depth-- }

// expression parses a ternary conditional, the lowest-binding construct.
//
//	expression = logical [ "?" expression ":" expression ] .
func (p *parser) expression() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	cond, err := p.binary(0)
	if err != nil {
		return nil, err
	}

	if !p.peek().is("?") {
		return cond, nil
	}

	p.advance()

	then, err := p.expression()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); !tok.is(":") {
		return nil, p.unexpected(tok, "':'")
	}

	p.advance()

	els, err := p.expression()
	if err != nil {
		return nil, err
	}

	return &TernaryExpression{Condition: cond, Then: then, Else: els}, nil
}

// binary parses a left-associative chain of operators at the given level.
func (p *parser) binary(level int) (Node, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}

	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.matchBinary(level)
		if !ok {
			return left, nil
		}

		p.advance()

		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}

		left = &BinaryExpression{Left: left, Right: right, Op: op}
	}
}

func (p *parser) matchBinary(level int) (BinaryOp, bool) {
	tok := p.peek()

	switch tok.kind {
	case tokenOperator:
		op, ok := binaryLevels[level].ops[tok.text]

		return op, ok
	case tokenIdent:
		for w, op := range binaryLevels[level].words {
			if p.isWord(tok, w) {
				return op, true
			}
		}
	}

	return 0, false
}

// unary parses prefix operators.
//
//	unary = ( "!" | "not" | "-" | "~" ) unary | primary .
func (p *parser) unary() (Node, error) {
	tok := p.peek()

	var op UnaryOp

	switch {
	case tok.is("!"), p.isWord(tok, "not"):
		op = OpNot
	case tok.is("-"):
		op = OpNegate
	case tok.is("~"):
		op = OpBitwiseNot
	default:
		return p.primary()
	}

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.advance()

	operand, err := p.unary()
	if err != nil {
		return nil, err
	}

	return &UnaryExpression{Operand: operand, Op: op}, nil
}

// primary parses literals, identifiers, calls and parenthesized expressions.
func (p *parser) primary() (Node, error) {
	tok := p.peek()

	switch tok.kind {
	case tokenInteger, tokenFloat, tokenString, tokenDate:
		p.advance()

		return literalOf(tok), nil

	case tokenIdent:
		p.advance()

		if tok.quoted {
			return &Identifier{Name: tok.text}, nil
		}

		switch {
		case strings.EqualFold(tok.text, "true"):
			return boolValue(true), nil
		case strings.EqualFold(tok.text, "false"):
			return boolValue(false), nil
		}

		if p.peek().kind == tokenLParen {
			return p.call(tok.text)
		}

		return &Identifier{Name: tok.text}, nil

	case tokenLParen:
		p.advance()

		node, err := p.expression()
		if err != nil {
			return nil, err
		}

		if tok := p.peek(); tok.kind != tokenRParen {
			return nil, p.unexpected(tok, "')'")
		}

		p.advance()

		return node, nil
	}

	return nil, p.unexpected(tok, "expression")
}

// call parses the parenthesized argument list of a function named name.
func (p *parser) call(name string) (Node, error) {
	p.advance() // '('

	fn := &Function{Name: name}

	if p.peek().kind == tokenRParen {
		p.advance()

		return fn, nil
	}

	for {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}

		fn.Arguments = append(fn.Arguments, arg)

		switch tok := p.advance(); tok.kind {
		case tokenComma:
			continue
		case tokenRParen:
			return fn, nil
		default:
			return nil, p.unexpected(tok, "','", "')'")
		}
	}
}
