package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vito/fun/pkg/fun"
	"github.com/vito/fun/pkg/ioctx"
	"github.com/vito/fun/pkg/rpc"
)

// Config holds the application configuration
type Config struct {
	Debug bool
	Fuel  int
	AST   bool
	RPC   bool
}

// settings are the effective evaluation settings after merging fun.toml,
// environment variables and flags.
type settings struct {
	fuel    int
	trace   bool
	prelude []*fun.Program
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "fun [flags] [file...]",
		Short: "Interpreter for a small call-by-value lambda language",
		Long: `fun evaluates programs written as a sequence of "name = expr;" bindings.
The binding named main is evaluated and printed.`,
		Example: `  # Run a program
  fun fac.fun

  # Run several programs concurrently
  fun fac.fun fib.fun

  # Start the interactive REPL
  fun

  # Serve JSON-RPC on stdin/stdout
  fun --rpc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			setupLogging(ctx, cfg.Debug)

			s, err := loadSettings(cmd, cfg)
			if err != nil {
				return err
			}

			if cfg.RPC {
				return runRPC(ctx, s)
			}
			if len(args) > 0 {
				return run(ctx, cfg, s, args)
			}
			return runREPL(ctx, s)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&cfg.Fuel, "fuel", 0, "Maximum evaluation steps (0 for unlimited, overrides fun.toml)")
	rootCmd.PersistentFlags().BoolVar(&cfg.AST, "ast", false, "Dump parsed terms before evaluating")
	rootCmd.Flags().BoolVar(&cfg.RPC, "rpc", false, "Serve JSON-RPC requests on stdin/stdout")

	rootCmd.AddCommand(evalCmd(&cfg))
	rootCmd.AddCommand(fmtCmd())

	ctx := context.Background()
	ctx = ioctx.StdinToContext(ctx, os.Stdin)
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(ctx context.Context, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(ioctx.StderrFromContext(ctx), &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// loadSettings finds fun.toml, applies FUN_* environment overrides, then
// flags.
func loadSettings(cmd *cobra.Command, cfg Config) (settings, error) {
	var s settings

	cwd, err := os.Getwd()
	if err != nil {
		return s, err
	}

	config := &fun.ProjectConfig{}
	configPath, found, err := fun.FindProjectConfig(cwd)
	if err != nil {
		return s, err
	}
	if found != nil {
		slog.Debug("loaded project config", "path", configPath)
		config = found
	}

	if err := config.ApplyEnv(); err != nil {
		return s, err
	}

	if found != nil {
		s.prelude, err = config.LoadPrelude(filepath.Dir(configPath))
		if err != nil {
			return s, err
		}
	}

	s.fuel = config.Eval.Fuel
	s.trace = config.Eval.Trace
	if cmd.Flags().Changed("fuel") {
		s.fuel = cfg.Fuel
	}
	if s.fuel < 0 {
		return s, fmt.Errorf("fuel must not be negative, got %d", s.fuel)
	}
	return s, nil
}

func (s settings) evalOptions() []fun.EvalOption {
	opts := []fun.EvalOption{fun.WithFuel(s.fuel)}
	if s.trace {
		opts = append(opts, fun.WithLogger(slog.Default()))
	}
	return opts
}

// run evaluates each program file concurrently and prints the results in
// argument order.
func run(ctx context.Context, cfg Config, s settings, files []string) error {
	stdout := ioctx.StdoutFromContext(ctx)
	results := make([]string, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		eg.Go(func() error {
			prog, err := fun.ParseFile(file)
			if err != nil {
				return err
			}
			if cfg.AST {
				slog.Info("parsed program", "file", file, "main", fmt.Sprintf("%# v", pretty.Formatter(prog.Main)))
			}

			result, err := prog.WithPrelude(s.prelude...).Run(ctx, s.evalOptions()...)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = fmt.Sprintf("%s => %s", fun.Print(prog.Main), fun.Print(result))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, file := range files {
		if len(files) > 1 {
			fmt.Fprintf(stdout, "%s: %s\n", file, results[i])
		} else {
			fmt.Fprintln(stdout, results[i])
		}
	}
	return nil
}

func runRPC(ctx context.Context, s settings) error {
	svc := &rpc.Service{
		Fuel:    s.fuel,
		Prelude: s.prelude,
		Trace:   s.trace,
		Logger:  slog.Default(),
	}
	slog.InfoContext(ctx, "starting rpc server")
	return rpc.Serve(ctx, svc, ioctx.StdinFromContext(ctx), nopWriteCloser{ioctx.StdoutFromContext(ctx)})
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func evalCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "eval EXPR",
		Short: "Evaluate a single expression",
		Example: `  fun eval '(2 + 3)'
  fun eval '((λx. (x + 1)) 41)'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			setupLogging(ctx, cfg.Debug)

			s, err := loadSettings(cmd, *cfg)
			if err != nil {
				return err
			}

			term, err := fun.ParseTerm("<arg>", args[0])
			if err != nil {
				return err
			}
			if cfg.AST {
				slog.Info("parsed term", "term", fmt.Sprintf("%# v", pretty.Formatter(term)))
			}

			env := fun.NewEnv(nil)
			for _, lib := range s.prelude {
				env = env.Merge(lib.Env)
			}

			result, err := fun.Eval(ctx, env, term, s.evalOptions()...)
			if err != nil {
				return err
			}

			fmt.Fprintf(ioctx.StdoutFromContext(ctx), "%s => %s\n", fun.Print(term), fun.Print(result))
			return nil
		},
	}
}

func fmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt [flags] FILE...",
		Short: "Print programs in canonical form",
		Long: `Print programs with every binding on its own line and every compound
expression parenthesized. Use -w to write the result back to the file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := ioctx.StdoutFromContext(cmd.Context())
			for _, file := range args {
				if err := formatFile(stdout, file, write); err != nil {
					return fmt.Errorf("formatting %s: %w", file, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write result to source file instead of stdout")

	return cmd
}

func formatFile(stdout io.Writer, path string, write bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// formatting must not require main, so preludes can be formatted too
	prog, err := fun.ParseLibrary(path, string(source))
	if err != nil {
		return err
	}
	formatted := fun.PrintProgram(prog)

	if write {
		if string(source) == formatted {
			return nil
		}
		return os.WriteFile(path, []byte(formatted), 0644)
	}

	_, err = fmt.Fprint(stdout, formatted)
	return err
}
