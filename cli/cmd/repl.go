package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/formula/cli/cmd/repl"
	"github.com/ardnew/formula/log"
	"github.com/ardnew/formula/pkg"
)

// historyFile is the base name of the REPL history in the cache directory.
const historyFile = "history.utf8"

// Repl starts an interactive session.
type Repl struct {
	Options  `embed:""`
	Bindings `embed:""`

	History bool `default:"true" help:"Keep input history in the cache directory." negatable:""`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	params, err := r.load(ctx)
	if err != nil {
		return err
	}

	cfg := repl.Config{
		Params:  params,
		Logger:  log.Default(),
		Options: r.flags(),
	}

	if r.History {
		if err := pkg.MkdirAll(); err != nil {
			log.WarnContext(ctx, "history disabled", slog.Any("error", err))
		} else {
			cfg.HistoryPath = pkg.CachePath(historyFile)
		}
	}

	return repl.Run(ctx, cfg)
}
