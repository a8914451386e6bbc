package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"
)

// keywords cannot appear as bare identifiers; the canonical rendering
// brackets parameter names that collide with them.
var keywords = []string{"and", "or", "not", "true", "false"}

func isKeyword(s string) bool {
	for _, k := range keywords {
		if strings.EqualFold(s, k) {
			return true
		}
	}

	return false
}

// String implements [Node].
func (n *Value) String() string {
	switch v := n.Literal.(type) {
	case bool:
		if v {
			return "True"
		}

		return "False"
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case decimal.Decimal:
		return v.String()
	case string:
		return quoteString(v)
	case time.Time:
		return "#" + dateLiteral(v) + "#"
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat renders f so that it lexes back as a floating-point literal:
// fixed-point when that carries a decimal point, otherwise exponent form.
func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if strings.ContainsRune(s, '.') {
		return s
	}

	return strconv.FormatFloat(f, 'e', -1, bits)
}

func quoteString(s string) string {
	var buf strings.Builder

	buf.Grow(len(s) + 2)
	buf.WriteByte('\'')

	for _, r := range s {
		switch r {
		case '\'':
			buf.WriteString(`\'`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 || r == utf8.RuneError {
				fmt.Fprintf(&buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}

	buf.WriteByte('\'')

	return buf.String()
}

// String implements [Node].
func (n *UnaryExpression) String() string {
	return n.Op.String() + wrap(n.Operand, n.Operand.precedence() < precUnary)
}

// String implements [Node].
func (n *BinaryExpression) String() string {
	prec := n.precedence()

	return wrap(n.Left, n.Left.precedence() < prec) +
		" " + n.Op.String() + " " +
		wrap(n.Right, n.Right.precedence() <= prec)
}

// String implements [Node].
func (n *TernaryExpression) String() string {
	return wrap(n.Condition, n.Condition.precedence() <= precTernary) +
		" ? " + n.Then.String() + " : " + n.Else.String()
}

// String implements [Node].
func (n *Identifier) String() string {
	if isPlainName(n.Name) {
		return n.Name
	}

	return "[" + n.Name + "]"
}

// String implements [Node].
func (n *Function) String() string {
	var buf strings.Builder

	buf.WriteString(n.Name)
	buf.WriteByte('(')

	for i, arg := range n.Arguments {
		if i > 0 {
			buf.WriteString(", ")
		}

		buf.WriteString(arg.String())
	}

	buf.WriteByte(')')

	return buf.String()
}

func wrap(n Node, paren bool) string {
	if paren {
		return "(" + n.String() + ")"
	}

	return n.String()
}

func isPlainName(s string) bool {
	if s == "" || isKeyword(s) {
		return false
	}

	for i, r := range s {
		if i == 0 && !isIdentStart(r) || !isIdentPart(r) {
			return false
		}
	}

	return true
}

// Format writes the canonical rendering of node followed by a newline.
func Format(_ context.Context, w io.Writer, node Node) error {
	_, err := fmt.Fprintln(w, node.String())

	return err
}

// FormatJSON writes the structure of node as JSON to the writer.
func FormatJSON(_ context.Context, w io.Writer, node Node, indent int) error {
	var (
		jsonData []byte
		err      error
	)

	if indent > 0 {
		jsonData, err = json.MarshalIndent(ToMap(node), "", strings.Repeat(" ", indent))
	} else {
		jsonData, err = json.Marshal(ToMap(node))
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(jsonData))

	return err
}

// FormatYAML writes the structure of node as YAML to the writer.
func FormatYAML(ctx context.Context, w io.Writer, node Node, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	yamlData, err := yaml.MarshalContext(ctx, ToMap(node), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(yamlData))

	return err
}

// ToMap converts node into nested maps and slices describing its structure.
func ToMap(node Node) map[string]any {
	switch n := node.(type) {
	case *Value:
		return map[string]any{
			"value": n.String(),
			"type":  n.Type.String(),
		}
	case *Identifier:
		return map[string]any{"identifier": n.Name}
	case *UnaryExpression:
		return map[string]any{
			"unary":   n.Op.String(),
			"operand": ToMap(n.Operand),
		}
	case *BinaryExpression:
		return map[string]any{
			"binary": n.Op.String(),
			"left":   ToMap(n.Left),
			"right":  ToMap(n.Right),
		}
	case *TernaryExpression:
		return map[string]any{
			"ternary": map[string]any{
				"condition": ToMap(n.Condition),
				"then":      ToMap(n.Then),
				"else":      ToMap(n.Else),
			},
		}
	case *Function:
		args := make([]any, len(n.Arguments))
		for i, arg := range n.Arguments {
			args[i] = ToMap(arg)
		}

		return map[string]any{
			"function":  n.Name,
			"arguments": args,
		}
	default:
		return nil
	}
}
