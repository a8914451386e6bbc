// Package repl implements the interactive formula session of the formula
// command.
package repl

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/log"
)

// Config configures [Run].
type Config struct {
	// Params are the initial parameter bindings.
	Params map[string]any
	// HistoryPath is the history file. Empty keeps history in memory.
	HistoryPath string
	Logger      log.Logger
	Options     lang.EvaluateOptions
}

// Run starts an interactive session on the terminal and blocks until the
// user leaves it or ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	h := NewHistory(cfg.HistoryPath)
	if err := h.Load(); err != nil {
		cfg.Logger.WarnContext(ctx, "repl history not loaded",
			slog.String("path", cfg.HistoryPath),
			slog.Any("error", err),
		)
	}

	s := NewSession(cfg.Params, cfg.Options, cfg.Logger)

	cfg.Logger.DebugContext(ctx, "repl start",
		slog.Int("parameters", len(cfg.Params)),
		slog.Int("history", h.Len()),
		slog.String("options", cfg.Options.String()),
	)

	_, err := tea.NewProgram(newModel(ctx, s, h, cfg.Logger), tea.WithContext(ctx)).Run()

	return err
}
