package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ardnew/formula/cli/cmd"
	"github.com/ardnew/formula/log"
	"github.com/ardnew/formula/pkg"
)

// CLI is the top-level command-line interface.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`

	Eval cmd.Eval `cmd:"" default:"withargs" help:"Evaluate a formula (default)."`
	Fmt  cmd.Fmt  `cmd:""                    help:"Print the canonical form or syntax tree of a formula."`
	Repl cmd.Repl `cmd:""                    help:"Evaluate formulas interactively."`
}

// Config file names, relative to [pkg.ConfigDir].
const (
	configJSON = "config.json"
	configYAML = "config.yaml"
)

// Run executes the CLI with the given context and arguments.
// The exit function is called with the appropriate exit code when kong
// terminates early, such as after printing help.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	return run(ctx, exit, os.Stdout, os.Stderr, args)
}

func run(
	ctx context.Context,
	exit func(code int),
	stdout, stderr io.Writer,
	args []string,
) error {
	var cli CLI

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Config(log.WithOutput(stderr))

	// Logger flags take effect before parsing so that parse errors are
	// reported in the requested format.
	cli.Log.scan(args)

	vars := kong.Vars{"version": pkg.Name + " " + pkg.Version}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, pkg.ConfigPath(configJSON)),
		kong.Configuration(resolve(ctx), pkg.ConfigPath(configYAML)),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Log.start(ctx)

	defer cli.Pprof.start(ctx)()

	log.DebugContext(ctx, "run",
		slog.String("command", ktx.Command()),
		slog.String("version", pkg.Version),
	)

	return ktx.Run()
}
