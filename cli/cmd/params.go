package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/log"
	"github.com/ardnew/formula/pkg"
)

// Bindings are the parameter flags shared by the commands that evaluate.
//
// Files are read first, in order, and individual --param flags override
// them. A --param value is parsed as a formula: a constant formula such as
// 42, -1.5, 'text' or #1/1/2009# binds its value, and anything else binds
// the text itself.
type Bindings struct {
	Param  map[string]string `help:"Bind parameter NAME to VALUE."                        mapsep:"none" placeholder:"NAME=VALUE" short:"p"`
	Params []string          `help:"Read parameter bindings from a YAML or JSON file."                 placeholder:"PATH"       type:"existingfile"`
}

// load returns the parameter map described by b.
func (b Bindings) load(ctx context.Context) (map[string]any, error) {
	params := make(map[string]any)

	for _, path := range b.Params {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, pkg.ErrReadParameters.Wrap(err)
		}

		var m map[string]any
		if err := yaml.UnmarshalContext(ctx, data, &m); err != nil {
			return nil, pkg.ErrReadParameters.Wrap(err)
		}

		for k, v := range m {
			params[k] = v
		}

		log.DebugContext(ctx, "parameters loaded",
			slog.String("path", path),
			slog.Int("count", len(m)),
		)
	}

	for name, text := range b.Param {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, pkg.ErrInvalidParameter.Wrap(errEmptyName)
		}

		params[name] = literal(ctx, text)
	}

	return params, nil
}

var errEmptyName = pkg.MakeError("empty parameter name")

// literal returns the value of text when it is a constant formula, and text
// itself otherwise.
func literal(ctx context.Context, text string) any {
	node, err := lang.Parse(ctx, text, lang.WithOptions(lang.NoCache))
	if err != nil || len(lang.Identifiers(node)) > 0 {
		return text
	}

	v, err := lang.Eval(ctx, node, nil, lang.None)
	if err != nil {
		return text
	}

	return v
}
