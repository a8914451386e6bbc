package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/log"
	"github.com/ardnew/formula/pkg"
)

// Eval evaluates a formula and prints its result.
type Eval struct {
	Input    `embed:""`
	Options  `embed:""`
	Bindings `embed:""`

	Iterate bool   `help:"Evaluate once per element of list-valued parameters and print each result."`
	Output  string `help:"Result encoding (${enum})."                                                  default:"text" enum:"text,yaml" short:"o"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context, ktx *kong.Context) error {
	params, err := e.load(ctx)
	if err != nil {
		return err
	}

	flags := e.flags()
	if e.Iterate {
		flags |= lang.IterateParameters
	}

	expr, err := e.expression(ctx,
		lang.WithOptions(flags),
		lang.WithParameters(params),
		lang.WithLogger(log.Default()),
	)
	if err != nil {
		return err
	}

	result, err := expr.Evaluate(ctx)
	if err != nil {
		return err
	}

	log.DebugContext(ctx, "evaluated",
		slog.String("expression", expr.String()),
		slog.String("type", lang.TypeOf(result).String()),
	)

	return writeResult(ctx, ktx, e.Output, result)
}

func writeResult(ctx context.Context, ktx *kong.Context, output string, result any) error {
	switch output {
	case "yaml":
		data, err := yaml.MarshalContext(ctx, plain(result))
		if err != nil {
			return pkg.ErrMarshal.Wrap(err)
		}

		_, err = ktx.Stdout.Write(data)

		return err

	case "", "text":
		if seq, ok := result.([]any); ok {
			for _, v := range seq {
				if _, err := fmt.Fprintln(ktx.Stdout, lang.Text(v)); err != nil {
					return err
				}
			}

			return nil
		}

		_, err := fmt.Fprintln(ktx.Stdout, lang.Text(result))

		return err
	}

	return pkg.ErrInvalidFormat.Wrap(fmt.Errorf("%q", output))
}

// plain converts a result into values with a natural YAML encoding.
func plain(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		if x.IsInteger() && x.NumDigits() < 19 {
			return x.IntPart()
		}

		f, _ := x.Float64()

		return f
	case time.Time:
		return x.Format(time.RFC3339)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}

		return out
	}

	return v
}
