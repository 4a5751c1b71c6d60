package fun

import (
	"context"
	"log/slog"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
)

// EvalOption configures an Evaluator.
type EvalOption func(*Evaluator)

// WithFuel limits the number of evaluation steps. Zero means unlimited.
func WithFuel(steps int) EvalOption {
	return func(e *Evaluator) {
		e.fuel = steps
	}
}

// WithLogger sets the logger reductions are traced to at debug level.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// Evaluator reduces terms call-by-value. Top-level bindings live in the
// environment and are looked up by name on every reference, so a binding may
// refer to itself; lambda parameters are instead substituted into the body
// when an abstraction is applied.
//
// An Evaluator counts steps across calls and is not safe for concurrent use.
type Evaluator struct {
	fuel   int
	steps  int
	logger *slog.Logger
}

// NewEvaluator creates an evaluator with the given options.
func NewEvaluator(opts ...EvalOption) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval evaluates term under env with a fresh Evaluator.
func Eval(ctx context.Context, env Env, term Term, opts ...EvalOption) (Term, error) {
	return NewEvaluator(opts...).Eval(ctx, env, term)
}

// Steps returns the number of steps taken so far.
func (e *Evaluator) Steps() int {
	return e.steps
}

// Eval reduces term to normal form or to a stuck term. Stuck terms (applying
// a non-function, branching on a non-boolean, mismatched primitive operands)
// and unbound variables are returned as results, not errors.
func (e *Evaluator) Eval(ctx context.Context, env Env, term Term) (Term, error) {
	if err := e.step(ctx); err != nil {
		return nil, err
	}

	switch t := term.(type) {
	case Var:
		if bound, ok := env.Get(t.Name); ok {
			return bound, nil
		}
		return t, nil

	case Abs:
		// bodies are normalized eagerly, even before the abstraction is applied
		body, err := e.Eval(ctx, env.Remove(t.Param), t.Body)
		if err != nil {
			return nil, err
		}
		return Abs{Param: t.Param, Body: body}, nil

	case App:
		left, err := e.Eval(ctx, env, t.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.Eval(ctx, env, t.Right)
		if err != nil {
			return nil, err
		}
		fn, ok := left.(Abs)
		if !ok {
			return App{Left: left, Right: right}, nil
		}
		e.trace(ctx, "beta", "param", fn.Param, "arg", right)
		return e.Eval(ctx, env.Remove(fn.Param), Substitute(fn.Body, fn.Param, right))

	case Int, Bool:
		return t, nil

	case If:
		cond, err := e.Eval(ctx, env, t.Cond)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(Bool)
		if !ok {
			return If{Cond: cond, Then: t.Then, Else: t.Else}, nil
		}
		if b.Value {
			return e.Eval(ctx, env, t.Then)
		}
		return e.Eval(ctx, env, t.Else)

	case PrimOp:
		left, err := e.Eval(ctx, env, t.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.Eval(ctx, env, t.Right)
		if err != nil {
			return nil, err
		}
		return e.primitive(ctx, t.Op, left, right)

	default:
		return nil, errors.Errorf("cannot evaluate term of type %T: %s", term, pretty.Sprint(term))
	}
}

func (e *Evaluator) primitive(ctx context.Context, op Op, left, right Term) (Term, error) {
	stuck := PrimOp{Op: op, Left: left, Right: right}

	l, lInt := left.(Int)
	r, rInt := right.(Int)

	var result Term
	switch {
	case op.IsArithmetic() && lInt && rInt:
		n, err := arithmetic(op, l.Value, r.Value)
		if errors.Is(err, errDivideByZero) {
			return nil, &DivisionByZeroError{Term: stuck}
		} else if err != nil {
			return nil, err
		}
		result = Int{Value: n}
	case (op == OpLt || op == OpGt) && lInt && rInt:
		if op == OpLt {
			result = Bool{Value: l.Value < r.Value}
		} else {
			result = Bool{Value: l.Value > r.Value}
		}
	case op == OpEq && lInt && rInt:
		result = Bool{Value: l.Value == r.Value}
	case op == OpEq:
		lb, lBool := left.(Bool)
		rb, rBool := right.(Bool)
		if !lBool || !rBool {
			return stuck, nil
		}
		result = Bool{Value: lb.Value == rb.Value}
	default:
		return stuck, nil
	}

	e.trace(ctx, "primitive", "op", op.Symbol(), "left", left, "right", right, "result", result)
	return result, nil
}

var errDivideByZero = errors.New("divide by zero")

// arithmetic wraps on overflow, including math.MinInt64 / -1.
func arithmetic(op Op, l, r int64) (int64, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return 0, errDivideByZero
		}
		return l / r, nil
	default:
		return 0, errors.Errorf("%s is not an arithmetic operator", op)
	}
}

func (e *Evaluator) step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "evaluation interrupted")
	}
	if e.fuel > 0 && e.steps >= e.fuel {
		return &StepLimitError{Limit: e.fuel}
	}
	e.steps++
	return nil
}

func (e *Evaluator) trace(ctx context.Context, msg string, args ...any) {
	if e.logger == nil {
		return
	}
	e.logger.DebugContext(ctx, msg, args...)
}
