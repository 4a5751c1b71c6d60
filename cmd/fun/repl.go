package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/vito/fun/pkg/fun"
	"github.com/vito/fun/pkg/ioctx"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var replCommandDefs = []struct {
	name string
	desc string
}{
	{"help", "Show this help"},
	{"env", "List bindings"},
	{"reset", "Forget all bindings except the prelude"},
	{"quit", "Exit the REPL"},
}

// repl reads one line at a time. A line of `name = expr;` declarations adds
// bindings; any other line is evaluated against the current bindings.
type repl struct {
	settings settings
	env      fun.Env
	out      io.Writer
}

func newREPL(s settings, out io.Writer) *repl {
	r := &repl{settings: s, out: out}
	r.reset()
	return r
}

func (r *repl) reset() {
	r.env = fun.NewEnv(nil)
	for _, lib := range r.settings.prelude {
		r.env = r.env.Merge(lib.Env)
	}
}

func runREPL(ctx context.Context, s settings) error {
	r := newREPL(s, ioctx.StdoutFromContext(ctx))
	stdin := ioctx.StdinFromContext(ctx)

	// piped input is evaluated line by line without prompts
	interactive := false
	if f, ok := stdin.(*os.File); ok {
		interactive = isTerminal(f.Fd())
	}

	if interactive {
		fmt.Fprintln(r.out, dimStyle.Render("Type expressions to evaluate them, or :help for commands."))
	}

	scanner := bufio.NewScanner(stdin)
	for {
		if interactive {
			fmt.Fprint(r.out, promptStyle.Render("fun> "))
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(r.out)
			}
			return scanner.Err()
		}
		if quit := r.handleLine(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// handleLine processes a single line of input and reports whether the REPL
// should exit.
func (r *repl) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if cmd, ok := strings.CutPrefix(line, ":"); ok {
		return r.handleCommand(cmd)
	}

	if lib, err := fun.ParseLibrary("<repl>", line); err == nil {
		r.env = r.env.Merge(lib.Env)
		for _, name := range lib.Order {
			fmt.Fprintln(r.out, dimStyle.Render("defined "+name))
		}
		return false
	}

	term, err := fun.ParseTerm("<repl>", line)
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		return false
	}

	result, err := fun.Eval(ctx, r.env, term, r.settings.evalOptions()...)
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		return false
	}

	fmt.Fprintln(r.out, resultStyle.Render("=> "+fun.Print(result)))
	return false
}

func (r *repl) handleCommand(cmd string) bool {
	switch strings.TrimSpace(cmd) {
	case "help":
		fmt.Fprintln(r.out, "Available commands:")
		for _, def := range replCommandDefs {
			fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("  :%-6s - %s", def.name, def.desc)))
		}
	case "env":
		for _, name := range r.env.Names() {
			term, _ := r.env.Get(name)
			fmt.Fprintf(r.out, "%s = %s;\n", name, fun.Print(term))
		}
	case "reset":
		r.reset()
		fmt.Fprintln(r.out, resultStyle.Render("Environment reset."))
	case "quit", "exit":
		return true
	default:
		fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf("unknown command :%s", cmd)))
	}
	return false
}
