package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/pkg"
)

// stdinSource names standard input wherever a file path is accepted.
const stdinSource = "-"

// Input selects where the formula text comes from: the positional arguments,
// joined with spaces, or else a file or standard input.
type Input struct {
	Formula []string `arg:"" help:"Formula text. Read from --file or stdin when omitted." optional:""`
	File    string   `help:"Read the formula from a file ('-' for stdin)."      short:"f" placeholder:"PATH"`

	stdin io.Reader
}

// expression returns an unparsed expression session for the selected input.
func (in *Input) expression(ctx context.Context, opts ...lang.Option) (*lang.Expression, error) {
	if len(in.Formula) > 0 && in.File == "" {
		return lang.NewExpression(strings.Join(in.Formula, " "), opts...), nil
	}

	var r io.Reader = os.Stdin
	if in.stdin != nil {
		r = in.stdin
	}

	if in.File != "" && in.File != stdinSource {
		f, err := os.Open(in.File)
		if err != nil {
			return nil, pkg.ErrReadInput.Wrap(err)
		}
		defer f.Close()

		r = f
	}

	e, err := lang.ReadExpression(ctx, r, opts...)
	if err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}

	if strings.TrimSpace(e.Source()) == "" {
		return nil, pkg.ErrNoInput
	}

	return e, nil
}

// Options are the evaluation flags shared by the commands that evaluate.
type Options struct {
	IgnoreCase         bool `help:"Match functions, parameters, keywords and strings without regard to case." short:"i"`
	BooleanCalculation bool `help:"Treat booleans as 1 and 0 in arithmetic."`
	RoundAwayFromZero  bool `help:"Round midpoints away from zero instead of to even."`
}

// flags returns the evaluation options selected by o.
func (o Options) flags() lang.EvaluateOptions {
	var f lang.EvaluateOptions

	if o.IgnoreCase {
		f |= lang.IgnoreCase
	}

	if o.BooleanCalculation {
		f |= lang.BooleanCalculation
	}

	if o.RoundAwayFromZero {
		f |= lang.RoundAwayFromZero
	}

	return f
}
