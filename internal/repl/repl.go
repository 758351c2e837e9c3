// Package repl implements the interactive command loop of the calculator.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
)

// Command is one parsed input line.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a line like "add 2 3" into a lower-cased name and its
// arguments. Arguments are split by whitespace.
func ParseCommand(line string) Command {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}
	}

	return Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// builtinCommands lists the non-arithmetic commands in help order.
var builtinCommands = []struct {
	name, help string
}{
	{"history", "Show calculation history"},
	{"clear", "Clear calculation history"},
	{"undo", "Undo the last calculation"},
	{"redo", "Redo the last undone calculation"},
	{"save", "Save calculation history to file"},
	{"load", "Load calculation history from file"},
	{"exit", "Exit the calculator"},
}

var (
	// errInputClosed reports that the input ended, either at the command
	// prompt or while prompting for an operand.
	errInputClosed = errors.New("input closed")
	errInterrupted = errors.New("interrupted")
)

// REPL reads commands from an input stream and writes responses to an output
// stream. It owns its Calculator for the duration of Run.
type REPL struct {
	calc       *calculator.Calculator
	in         *bufio.Scanner
	lines      <-chan string
	interrupts <-chan os.Signal
	out        io.Writer
	logger     *zap.Logger
	ops        map[string]struct{}
}

// Option configures a REPL.
type Option func(*REPL)

// WithInterrupts makes every signal received on ch abandon the pending
// prompt and return to the command prompt.
func WithInterrupts(ch <-chan os.Signal) Option {
	return func(r *REPL) { r.interrupts = ch }
}

// New returns a REPL driving calc.
func New(calc *calculator.Calculator, in io.Reader, out io.Writer, logger *zap.Logger, opts ...Option) *REPL {
	if logger == nil {
		logger = zap.NewNop()
	}

	ops := make(map[string]struct{})
	for _, op := range calc.Operations() {
		ops[op.Name] = struct{}{}
	}

	r := &REPL{
		calc:   calc,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger,
		ops:    ops,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes commands until exit or end of input, both clean exits. When
// ctx is cancelled the history is saved and ctx's error returned, even while
// a prompt is waiting for input.
func (r *REPL) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	r.lines = r.readLines(stop)

	r.println("Calculator started. Type 'help' for commands.")

	for {
		if ctx.Err() != nil {
			return r.shutdown(ctx)
		}

		var done bool
		line, err := r.prompt(ctx, "\nEnter command: ")
		if err == nil {
			done, err = r.dispatch(ctx, ParseCommand(line))
		}

		switch {
		case errors.Is(err, errInterrupted):
			r.println("\nOperation cancelled")
		case errors.Is(err, errInputClosed):
			r.println("\nInput terminated. Exiting...")
			return r.inputErr()
		case ctx.Err() != nil:
			return r.shutdown(ctx)
		case done:
			return nil
		}
	}
}

// readLines scans the input on its own goroutine so prompts can also wait on
// ctx and interrupts. The channel is closed at the end of input.
func (r *REPL) readLines(done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for r.in.Scan() {
			select {
			case lines <- r.in.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// shutdown saves the history after ctx was cancelled.
func (r *REPL) shutdown(ctx context.Context) error {
	r.println("\nInterrupted.")
	r.save(context.WithoutCancel(ctx))
	return ctx.Err()
}

// dispatch runs one command and reports whether the session should end.
func (r *REPL) dispatch(ctx context.Context, cmd Command) (bool, error) {
	switch cmd.Name {
	case "":
		return false, nil
	case "help":
		r.help()
	case "exit":
		r.save(ctx)
		r.println("Goodbye!")
		return true, nil
	case "history":
		r.history()
	case "clear":
		if err := r.calc.Clear(ctx); err != nil {
			r.printf("History cleared, but it could not be saved: %v\n", err)
			return false, nil
		}
		r.println("History cleared")
	case "undo":
		if _, err := r.calc.Undo(ctx); err != nil {
			r.report(err, "Nothing to undo.")
			return false, nil
		}
		r.println("Last operation undone.")
	case "redo":
		if _, err := r.calc.Redo(ctx); err != nil {
			r.report(err, "Nothing to redo.")
			return false, nil
		}
		r.println("Last undone operation redone.")
	case "save":
		if err := r.calc.Save(ctx); err != nil {
			r.printf("Error saving history: %v\n", err)
			return false, nil
		}
		r.println("History saved successfully")
	case "load":
		if err := r.calc.Load(ctx); err != nil {
			r.printf("Error loading history: %v\n", err)
			return false, nil
		}
		r.println("History loaded successfully")
	default:
		if _, ok := r.ops[cmd.Name]; !ok {
			r.printf("Unknown command: '%s'. Type 'help' for available commands.\n", cmd.Name)
			return false, nil
		}
		return false, r.compute(ctx, cmd)
	}
	return false, nil
}

// compute runs an operation with inline operands ("add 2 3") or prompts for
// them. Entering "cancel" at either prompt aborts.
func (r *REPL) compute(ctx context.Context, cmd Command) error {
	var a, b string
	switch len(cmd.Args) {
	case 2:
		a, b = cmd.Args[0], cmd.Args[1]
	case 0:
		r.println("\nEnter numbers (or 'cancel' to abort):")

		var ok bool
		var err error
		if a, ok, err = r.operand(ctx, "First number: "); err != nil || !ok {
			return err
		}
		if b, ok, err = r.operand(ctx, "Second number: "); err != nil || !ok {
			return err
		}
	default:
		r.printf("Error: %s takes exactly two numbers\n", cmd.Name)
		return nil
	}

	res, err := r.calc.Compute(ctx, cmd.Name, a, b)
	if err != nil {
		r.printf("Error: %v\n", err)
		return nil
	}

	r.printf("\nResult: %s\n", res.Calculation.Result)
	if res.SaveErr != nil {
		r.printf("Warning: could not save history: %v\n", res.SaveErr)
	}
	return nil
}

// operand prompts for one number. ok is false when the user cancels.
func (r *REPL) operand(ctx context.Context, label string) (v string, ok bool, err error) {
	v, err = r.prompt(ctx, label)
	if err != nil {
		return "", false, err
	}
	if strings.EqualFold(strings.TrimSpace(v), "cancel") {
		r.println("Operation cancelled")
		return "", false, nil
	}
	return v, true, nil
}

func (r *REPL) help() {
	r.println("\nAvailable commands:")
	for _, op := range r.calc.Operations() {
		r.printf("  %s - %s\n", op.Name, op.Description)
	}
	for _, c := range builtinCommands {
		r.printf("  %s - %s\n", c.name, c.help)
	}
}

func (r *REPL) history() {
	if r.calc.Len() == 0 {
		r.println("No calculations in history")
		return
	}

	r.println("\nCalculation History:")
	i := 1
	for c := range r.calc.History() {
		r.printf("%d. %s\n", i, c)
		i++
	}
}

func (r *REPL) save(ctx context.Context) {
	if err := r.calc.Save(ctx); err != nil {
		r.printf("Warning: Could not save history: %v\n", err)
		return
	}
	r.println("History saved successfully.")
}

// report prints expected for the recoverable "nothing to" kinds and the
// error itself otherwise.
func (r *REPL) report(err error, expected string) {
	switch calculator.KindOf(err) {
	case calculator.KindNothingToUndo, calculator.KindNothingToRedo:
		r.println(expected)
	default:
		r.printf("Error: %v\n", err)
	}
}

func (r *REPL) prompt(ctx context.Context, label string) (string, error) {
	r.printf("%s", label)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.interrupts:
		return "", errInterrupted
	case line, ok := <-r.lines:
		if !ok {
			return "", errInputClosed
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return line, nil
	}
}

// inputErr returns the scanner's read error, nil at a clean end of input.
// It is only safe once the line channel is closed.
func (r *REPL) inputErr() error {
	if err := r.in.Err(); err != nil {
		r.logger.Error("reading input failed", zap.Error(err))
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (r *REPL) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

func (r *REPL) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}
