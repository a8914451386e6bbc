package cmd

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/log"
	"github.com/ardnew/formula/pkg"
)

// Fmt prints the canonical form of a formula, or its syntax tree.
type Fmt struct {
	Input `embed:""`

	IgnoreCase bool   `help:"Accept keywords without regard to case."          short:"i"`
	Format     string `help:"Output format (${enum})." default:"formula" enum:"formula,json,yaml" short:"o"`
	Indent     int    `help:"Indentation of json and yaml output; 0 is compact." default:"2"`
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context, ktx *kong.Context) error {
	var opts lang.EvaluateOptions
	if f.IgnoreCase {
		opts = lang.IgnoreCase
	}

	expr, err := f.expression(ctx, lang.WithOptions(opts), lang.WithLogger(log.Default()))
	if err != nil {
		return err
	}

	node, err := expr.ParsedExpression(ctx)
	if err != nil {
		return err
	}

	switch f.Format {
	case "json":
		err = lang.FormatJSON(ctx, ktx.Stdout, node, f.Indent)
	case "yaml":
		err = lang.FormatYAML(ctx, ktx.Stdout, node, f.Indent)
	case "", "formula":
		err = lang.Format(ctx, ktx.Stdout, node)
	default:
		return pkg.ErrInvalidFormat.Wrap(fmt.Errorf("%q", f.Format))
	}

	return err
}
