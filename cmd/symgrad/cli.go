package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// ExitError is an error that carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

const usage = `symgrad - symbolic gradients of pointwise kernel formulas.

Usage:
  symgrad [options] <command> [command options] FILE

Commands:
  version    Show version
  inspect    Print every formula of FILE with its dimension and dependencies
  eval       Evaluate one formula of FILE at a single point

Options:
`

// run parses global options and dispatches to a command.
func run(outW, errW io.Writer, args []string) error {
	fs := flag.NewFlagSet("symgrad", flag.ContinueOnError)
	fs.SetOutput(outW)
	fs.Usage = func() {
		fmt.Fprint(outW, usage)
		fs.PrintDefaults()
	}
	logLevel := fs.String("log-level", "warn", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	logFormat := fs.String("log-format", "text", "Log output format: 'text' or 'json'.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return usageError("%v", err)
	}

	logger, err := newLogger(errW, *logFormat, *logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if fs.NArg() == 0 {
		fs.Usage()
		return nil
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	slog.Debug("Dispatching command", "command", cmd, "args", rest)
	switch cmd {
	case "version":
		fmt.Fprintf(outW, "symgrad %s\n", version)
		return nil
	case "inspect":
		return runInspect(outW, rest)
	case "eval":
		return runEval(outW, rest)
	default:
		return usageError("unknown command %q", cmd)
	}
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, usageError("invalid log-level %q: must be 'debug', 'info', 'warn' or 'error'", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, usageError("invalid log-format %q: must be 'text' or 'json'", format)
	}
}

// valuesFlag collects repeated name=v1,v2,... flags.
type valuesFlag map[string][]float64

func (f valuesFlag) String() string {
	parts := make([]string, 0, len(f))
	for name, vals := range f {
		parts = append(parts, name+"="+formatValues(vals, ","))
	}
	return strings.Join(parts, " ")
}

func (f valuesFlag) Set(s string) error {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=v1,v2,..., got %q", s)
	}
	vals, err := parseValues(list)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	f[name] = vals
	return nil
}

func parseValues(list string) ([]float64, error) {
	fields := strings.Split(list, ",")
	vals := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func formatValues(vals []float64, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, sep)
}
