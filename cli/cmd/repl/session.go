package repl

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/log"
)

// bindOp separates the name from the formula in a binding line. It cannot
// occur outside a string literal in a valid formula.
const bindOp = ":="

// Session is the state of an interactive session: parameter bindings,
// evaluation options and a private parse cache. A Session is not safe for
// concurrent use.
type Session struct {
	params  map[string]any
	cache   *lang.Cache
	logger  log.Logger
	options lang.EvaluateOptions
}

// NewSession returns a session starting with a copy of params.
func NewSession(params map[string]any, options lang.EvaluateOptions, logger log.Logger) *Session {
	s := &Session{
		params:  make(map[string]any, len(params)),
		cache:   lang.NewCache(lang.WithCacheLogger(logger)),
		logger:  logger,
		options: options,
	}

	maps.Copy(s.params, params)

	return s
}

// Exec runs one line of input and returns the text to print.
//
// A line is one of:
//
//	name := formula   evaluate formula and bind the result to name
//	:vars             list the bindings
//	:unset name...    remove bindings
//	:stats            show parse cache statistics
//	:help             describe the commands
//	formula           evaluate formula
func (s *Session) Exec(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return "", nil

	case strings.HasPrefix(line, ":") && !strings.HasPrefix(line, bindOp):
		return s.command(strings.Fields(line[1:]))
	}

	if name, src, ok := splitBinding(line); ok {
		if name == "" {
			return "", ErrInvalidBinding.Wrap(fmt.Errorf("%q", line))
		}

		v, err := s.evaluate(ctx, src)
		if err != nil {
			return "", err
		}

		s.params[name] = v

		s.logger.DebugContext(ctx, "repl bind",
			slog.String("name", name),
			slog.String("type", lang.TypeOf(v).String()),
		)

		return name + " = " + lang.Text(v), nil
	}

	v, err := s.evaluate(ctx, line)
	if err != nil {
		return "", err
	}

	return lang.Text(v), nil
}

func (s *Session) evaluate(ctx context.Context, src string) (any, error) {
	e := lang.NewExpression(src,
		lang.WithOptions(s.options),
		lang.WithParameters(s.params),
		lang.WithCache(s.cache),
		lang.WithLogger(s.logger),
	)

	return e.Evaluate(ctx)
}

func (s *Session) command(args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUnknownCommand.Wrap(fmt.Errorf("%q", ":"))
	}

	switch args[0] {
	case "help", "h", "?":
		return helpText, nil

	case "vars":
		var b strings.Builder

		for _, name := range s.Names() {
			fmt.Fprintf(&b, "%s = %s\n", name, lang.Text(s.params[name]))
		}

		return strings.TrimSuffix(b.String(), "\n"), nil

	case "unset":
		for _, name := range args[1:] {
			delete(s.params, strings.Trim(name, "[]"))
		}

		return "", nil

	case "stats":
		hits, misses := s.cache.Stats()

		return fmt.Sprintf("cache: %d entries, %d hits, %d misses", s.cache.Len(), hits, misses), nil
	}

	return "", ErrUnknownCommand.Wrap(fmt.Errorf("%q", ":"+args[0]))
}

// Names returns the bound parameter names in sorted order.
func (s *Session) Names() []string {
	return slices.Sorted(maps.Keys(s.params))
}

// Bound reports whether name is bound.
func (s *Session) Bound(name string) bool {
	_, ok := s.params[name]

	return ok
}

// splitBinding splits a "name := formula" line. The name may be bracketed.
// ok is false when line is not a binding; name is empty when it is one with
// an unusable name.
func splitBinding(line string) (name, src string, ok bool) {
	lhs, src, found := strings.Cut(line, bindOp)
	if !found {
		return "", "", false
	}

	lhs = strings.TrimSpace(lhs)

	switch {
	case strings.ContainsAny(lhs, `'"`):
		// The operator is inside a string literal.
		return "", "", false

	case len(lhs) >= 2 && lhs[0] == '[' && lhs[len(lhs)-1] == ']':
		return strings.TrimSpace(lhs[1 : len(lhs)-1]), src, true

	case lhs == "" || strings.ContainsRune(lhs, '#') ||
		strings.IndexFunc(lhs, isWordBoundary) >= 0:
		return "", src, true
	}

	return lhs, src, true
}

const helpText = `Enter a formula to evaluate it, or bind a result with  name := formula

Commands:
  :vars          list bindings
  :unset NAME    remove a binding
  :stats         show parse cache statistics
  :clear         clear the screen
  :help          show this text
  :quit          leave (also Ctrl+D on an empty line)

Keys:
  Tab / Shift+Tab   cycle completions of the word under the cursor
  Up / Down         browse history`
