// Package rpc exposes the interpreter as a JSON-RPC 2.0 service.
package rpc

import (
	"context"
	"io"
	"log/slog"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/code"
	"github.com/creachadair/jrpc2/handler"
	"github.com/pkg/errors"
	"github.com/vito/fun/pkg/fun"
)

// EvalFailed is the error code for programs that parse but fail to evaluate,
// such as a division by zero or an exhausted step limit.
const EvalFailed code.Code = -32000

// ParseRequest holds the source of a single term.
type ParseRequest struct {
	Source string `json:"source"`
}

// ParseResponse holds the printed form of the parsed term.
type ParseResponse struct {
	Term string `json:"term"`
}

// EvalRequest holds source to evaluate. Fuel overrides the service's step
// limit when positive.
type EvalRequest struct {
	Source string `json:"source"`
	Fuel   int    `json:"fuel,omitempty"`
}

// EvalResponse holds the printed input and result of an evaluation.
type EvalResponse struct {
	Input  string `json:"input"`
	Result string `json:"result"`
	Steps  int    `json:"steps"`
}

// RunResponse holds the result of running a program's main binding.
type RunResponse struct {
	Result   string   `json:"result"`
	Bindings []string `json:"bindings"`
	Steps    int      `json:"steps"`
}

// Service evaluates requests. Each request gets its own evaluator, so
// requests may run concurrently.
type Service struct {
	// Fuel is the default step limit. Zero means unlimited.
	Fuel int

	// Prelude bindings are visible to every request.
	Prelude []*fun.Program

	// Trace logs reductions to Logger at debug level.
	Trace bool

	Logger *slog.Logger
}

// Methods returns the method table served by the service.
func (s *Service) Methods() handler.Map {
	return handler.Map{
		"fun.parse": handler.New(s.Parse),
		"fun.eval":  handler.New(s.Eval),
		"fun.run":   handler.New(s.Run),
	}
}

// Parse parses a single term.
func (s *Service) Parse(ctx context.Context, req ParseRequest) (ParseResponse, error) {
	term, err := fun.ParseTerm("<request>", req.Source)
	if err != nil {
		return ParseResponse{}, requestError(err)
	}
	return ParseResponse{Term: fun.Print(term)}, nil
}

// Eval parses and evaluates a single term under the prelude bindings.
func (s *Service) Eval(ctx context.Context, req EvalRequest) (EvalResponse, error) {
	term, err := fun.ParseTerm("<request>", req.Source)
	if err != nil {
		return EvalResponse{}, requestError(err)
	}

	env := fun.NewEnv(nil)
	for _, lib := range s.Prelude {
		env = env.Merge(lib.Env)
	}

	ev := s.evaluator(req.Fuel)
	result, err := ev.Eval(ctx, env, term)
	if err != nil {
		return EvalResponse{}, requestError(err)
	}
	return EvalResponse{
		Input:  fun.Print(term),
		Result: fun.Print(result),
		Steps:  ev.Steps(),
	}, nil
}

// Run parses a program and evaluates its main binding.
func (s *Service) Run(ctx context.Context, req EvalRequest) (RunResponse, error) {
	prog, err := fun.ParseProgram("<request>", req.Source)
	if err != nil {
		return RunResponse{}, requestError(err)
	}
	prog = prog.WithPrelude(s.Prelude...)

	ev := s.evaluator(req.Fuel)
	result, err := ev.Eval(ctx, prog.Env, prog.Main)
	if err != nil {
		return RunResponse{}, requestError(err)
	}
	return RunResponse{
		Result:   fun.Print(result),
		Bindings: prog.Env.Names(),
		Steps:    ev.Steps(),
	}, nil
}

// requestError maps interpreter errors onto JSON-RPC error codes. Parse
// errors are reported as "file:line:col: message" without highlighting.
func requestError(err error) error {
	var parseErr *fun.ParseError
	var missingMain *fun.MissingMainError
	switch {
	case errors.As(err, &parseErr):
		return jrpc2.Errorf(code.InvalidParams, "%s: %s", parseErr.Location, parseErr.Message)
	case errors.As(err, &missingMain):
		return jrpc2.Errorf(code.InvalidParams, "%s", missingMain.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return jrpc2.Errorf(EvalFailed, "%s", err.Error())
	}
}

func (s *Service) evaluator(fuel int) *fun.Evaluator {
	if fuel <= 0 {
		fuel = s.Fuel
	}
	opts := []fun.EvalOption{fun.WithFuel(fuel)}
	if s.Trace && s.Logger != nil {
		opts = append(opts, fun.WithLogger(s.Logger))
	}
	return fun.NewEvaluator(opts...)
}

// Serve answers line-delimited JSON-RPC requests read from r until r is
// exhausted or ctx is cancelled.
func Serve(ctx context.Context, svc *Service, r io.Reader, w io.WriteCloser) error {
	logger := svc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := jrpc2.NewServer(svc.Methods(), &jrpc2.ServerOptions{
		Logger: func(text string) { logger.Debug(text) },
	})
	srv.Start(channel.Line(r, w))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			srv.Stop()
		case <-done:
		}
	}()

	err := srv.Wait()
	logger.InfoContext(ctx, "rpc server closed", "error", err)
	return err
}
