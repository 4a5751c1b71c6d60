package fun

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/dagger/testctx"
	"github.com/dagger/testctx/oteltest"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Exit(oteltest.Main(m))
}

type EvalSuite struct{}

func TestEval(tT *testing.T) {
	testctx.New(tT,
		oteltest.WithTracing[*testing.T](),
		oteltest.WithLogging[*testing.T](),
	).RunTests(EvalSuite{})
}

// church encodes n as λf. λx. f (f (... x)).
func church(n int) Term {
	body := NewVar("x")
	for i := 0; i < n; i++ {
		body = NewApp(NewVar("f"), body)
	}
	return Lambda([]string{"f", "x"}, body)
}

// churchAdd is λm. λn. λf. λx. m f (n f x).
var churchAdd = Lambda([]string{"m", "n", "f", "x"},
	Apply(NewVar("m"), NewVar("f"), Apply(NewVar("n"), NewVar("f"), NewVar("x"))))

func (EvalSuite) TestBetaReduction(ctx context.Context, t *testctx.T) {
	tests := []struct {
		name     string
		term     Term
		expected Term
	}{
		{
			name:     "identity",
			term:     NewApp(NewAbs("x", NewVar("x")), NewVar("y")),
			expected: NewVar("y"),
		},
		{
			name:     "constant",
			term:     NewApp(Lambda([]string{"x", "y"}, NewVar("x")), NewVar("z")),
			expected: NewAbs("y", NewVar("z")),
		},
		{
			name:     "nested redex in body",
			term:     NewApp(NewAbs("x", NewApp(NewAbs("y", NewVar("y")), NewVar("x"))), NewVar("z")),
			expected: NewVar("z"),
		},
		{
			name:     "argument captured by inner binder is renamed",
			term:     NewApp(Lambda([]string{"x", "y"}, NewApp(NewVar("x"), NewVar("y"))), NewVar("y")),
			expected: NewAbs("y_1", NewApp(NewVar("y"), NewVar("y_1"))),
		},
		{
			name:     "church 2 + 3",
			term:     Apply(churchAdd, church(2), church(3)),
			expected: church(5),
		},
		{
			name:     "church 0 + 0",
			term:     Apply(churchAdd, church(0), church(0)),
			expected: church(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(ctx context.Context, t *testctx.T) {
			result, err := Eval(ctx, NewEnv(nil), tt.term)
			require.NoError(t, err)
			require.Equal(t, tt.expected, result, "got %s", result)
		})
	}
}

func (EvalSuite) TestPrimitives(ctx context.Context, t *testctx.T) {
	tests := []struct {
		name     string
		term     Term
		expected Term
	}{
		{"add", Add(NewInt(2), NewInt(3)), NewInt(5)},
		{"sub", Sub(NewInt(2), NewInt(3)), NewInt(-1)},
		{"mul", Mul(NewInt(6), NewInt(7)), NewInt(42)},
		{"div truncates", Div(NewInt(7), NewInt(2)), NewInt(3)},
		{"div truncates toward zero", Div(NewInt(-7), NewInt(2)), NewInt(-3)},
		{"add wraps", Add(NewInt(math.MaxInt64), NewInt(1)), NewInt(math.MinInt64)},
		{"min int divided by -1 wraps", Div(NewInt(math.MinInt64), NewInt(-1)), NewInt(math.MinInt64)},
		{"lt", Lt(NewInt(1), NewInt(2)), NewBool(true)},
		{"gt", Gt(NewInt(1), NewInt(2)), NewBool(false)},
		{"eq ints", Eq(NewInt(4), NewInt(4)), NewBool(true)},
		{"eq bools", Eq(NewBool(true), NewBool(false)), NewBool(false)},
		{"nested", Mul(Add(NewInt(1), NewInt(2)), Sub(NewInt(10), NewInt(4))), NewInt(18)},
		{
			"eq of mismatched kinds is stuck",
			Eq(NewInt(1), NewBool(true)),
			Eq(NewInt(1), NewBool(true)),
		},
		{
			"lt on bools is stuck",
			Lt(NewBool(false), NewBool(true)),
			Lt(NewBool(false), NewBool(true)),
		},
		{
			"open operand is stuck with evaluated sides",
			Add(NewVar("n"), Add(NewInt(1), NewInt(1))),
			Add(NewVar("n"), NewInt(2)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(ctx context.Context, t *testctx.T) {
			result, err := Eval(ctx, NewEnv(nil), tt.term)
			require.NoError(t, err)
			require.Equal(t, tt.expected, result)
		})
	}
}

func (EvalSuite) TestDivisionByZero(ctx context.Context, t *testctx.T) {
	_, err := Eval(ctx, NewEnv(nil), Div(NewInt(1), NewInt(0)))
	require.Error(t, err)

	var divErr *DivisionByZeroError
	require.True(t, errors.As(err, &divErr))
	require.Equal(t, Div(NewInt(1), NewInt(0)), divErr.Term)
	require.Contains(t, err.Error(), "division by zero")

	t.Run("propagates out of nested terms", func(ctx context.Context, t *testctx.T) {
		term := NewApp(NewAbs("x", Add(NewVar("x"), Div(NewInt(5), Sub(NewInt(2), NewInt(2))))), NewInt(1))
		_, err := Eval(ctx, NewEnv(nil), term)
		require.True(t, errors.As(err, &divErr))
		require.Equal(t, Div(NewInt(5), NewInt(0)), divErr.Term)
	})

	t.Run("untaken branch is not evaluated", func(ctx context.Context, t *testctx.T) {
		term := NewIf(NewBool(true), NewInt(1), Div(NewInt(1), NewInt(0)))
		result, err := Eval(ctx, NewEnv(nil), term)
		require.NoError(t, err)
		require.Equal(t, NewInt(1), result)
	})
}

func (EvalSuite) TestConditionals(ctx context.Context, t *testctx.T) {
	t.Run("true branch", func(ctx context.Context, t *testctx.T) {
		result, err := Eval(ctx, NewEnv(nil), NewIf(Lt(NewInt(1), NewInt(2)), NewInt(10), NewInt(20)))
		require.NoError(t, err)
		require.Equal(t, NewInt(10), result)
	})

	t.Run("false branch", func(ctx context.Context, t *testctx.T) {
		result, err := Eval(ctx, NewEnv(nil), NewIf(NewBool(false), NewInt(10), Add(NewInt(1), NewInt(1))))
		require.NoError(t, err)
		require.Equal(t, NewInt(2), result)
	})

	t.Run("non-boolean condition leaves branches unevaluated", func(ctx context.Context, t *testctx.T) {
		term := NewIf(Add(NewInt(1), NewInt(1)), Add(NewInt(1), NewInt(2)), Div(NewInt(1), NewInt(0)))
		result, err := Eval(ctx, NewEnv(nil), term)
		require.NoError(t, err)
		require.Equal(t, NewIf(NewInt(2), Add(NewInt(1), NewInt(2)), Div(NewInt(1), NewInt(0))), result)
	})
}

func (EvalSuite) TestStuckTerms(ctx context.Context, t *testctx.T) {
	t.Run("unbound variable evaluates to itself", func(ctx context.Context, t *testctx.T) {
		result, err := Eval(ctx, NewEnv(nil), NewVar("free"))
		require.NoError(t, err)
		require.Equal(t, NewVar("free"), result)
	})

	t.Run("applying a non-function", func(ctx context.Context, t *testctx.T) {
		result, err := Eval(ctx, NewEnv(nil), NewApp(NewInt(1), Add(NewInt(1), NewInt(1))))
		require.NoError(t, err)
		require.Equal(t, NewApp(NewInt(1), NewInt(2)), result)
	})

	t.Run("abstraction bodies are normalized", func(ctx context.Context, t *testctx.T) {
		result, err := Eval(ctx, NewEnv(nil), NewAbs("x", Add(NewInt(1), NewInt(2))))
		require.NoError(t, err)
		require.Equal(t, NewAbs("x", NewInt(3)), result)
	})
}

func (EvalSuite) TestEnvironment(ctx context.Context, t *testctx.T) {
	t.Run("bound variables are looked up", func(ctx context.Context, t *testctx.T) {
		env := NewEnv(map[string]Term{"two": NewInt(2)})
		result, err := Eval(ctx, env, Mul(NewVar("two"), NewVar("two")))
		require.NoError(t, err)
		require.Equal(t, NewInt(4), result)
	})

	t.Run("parameters shadow bindings", func(ctx context.Context, t *testctx.T) {
		env := NewEnv(map[string]Term{"n": NewInt(10)})
		term := NewApp(NewAbs("n", Add(NewVar("n"), NewInt(1))), NewInt(2))
		result, err := Eval(ctx, env, term)
		require.NoError(t, err)
		require.Equal(t, NewInt(3), result)
	})

	t.Run("unapplied abstraction keeps its parameter", func(ctx context.Context, t *testctx.T) {
		env := NewEnv(map[string]Term{"x": NewInt(5)})
		result, err := Eval(ctx, env, NewAbs("x", NewVar("x")))
		require.NoError(t, err)
		require.Equal(t, NewAbs("x", NewVar("x")), result)
	})

	t.Run("self reference through the environment", func(ctx context.Context, t *testctx.T) {
		// fac = λn. if (n == 0) then 1 else (n * (fac (n - 1)))
		fac := NewAbs("n", NewIf(
			Eq(NewVar("n"), NewInt(0)),
			NewInt(1),
			Mul(NewVar("n"), NewApp(NewVar("fac"), Sub(NewVar("n"), NewInt(1)))),
		))
		env := NewEnv(map[string]Term{"fac": fac})
		result, err := Eval(ctx, env, NewApp(NewVar("fac"), NewInt(5)))
		require.NoError(t, err)
		require.Equal(t, NewInt(120), result)
	})
}

func (EvalSuite) TestPrograms(ctx context.Context, t *testctx.T) {
	tests := []struct {
		name     string
		source   string
		expected Term
	}{
		{
			name: "factorial",
			source: `
				fac = (λn. (if (n == 0) then 1 else (n * (fac (n - 1)))));
				main = (fac 5);
			`,
			expected: NewInt(120),
		},
		{
			name: "factorial without outer parentheses",
			source: `fac = λn. if (n == 0) then 1 else (n * (fac (n - 1)));
			         main = (fac 5);`,
			expected: NewInt(120),
		},
		{
			name: "fibonacci",
			source: `
				fib = (λn. (if (n < 2) then n else ((fib (n - 1)) + (fib (n - 2)))));
				main = (fib 10);
			`,
			expected: NewInt(55),
		},
		{
			name: "mutual recursion",
			source: `
				even = (λn. (if (n == 0) then true else (odd (n - 1))));
				odd = (λn. (if (n == 0) then false else (even (n - 1))));
				main = (even 7);
			`,
			expected: NewBool(false),
		},
		{
			name: "higher order",
			source: `
				twice = (λf. (λx. (f (f x))));
				inc = (λn. (n + 1));
				main = ((twice inc) 40);
			`,
			expected: NewInt(42),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(ctx context.Context, t *testctx.T) {
			prog, err := ParseProgram("test.fun", tt.source)
			require.NoError(t, err)

			result, err := prog.Run(ctx)
			require.NoError(t, err)
			require.Equal(t, tt.expected, result)
		})
	}
}

func (EvalSuite) TestDeterminismAndIdempotence(ctx context.Context, t *testctx.T) {
	env := NewEnv(map[string]Term{
		"inc": NewAbs("n", Add(NewVar("n"), NewInt(1))),
	})
	terms := []Term{
		Apply(churchAdd, church(2), church(3)),
		NewApp(NewVar("inc"), NewInt(1)),
		NewAbs("y", NewApp(NewVar("inc"), NewVar("y"))),
		NewIf(NewVar("c"), NewInt(1), NewInt(2)),
		NewApp(NewVar("g"), Add(NewInt(1), NewInt(2))),
		Lambda([]string{"x", "y"}, NewApp(NewVar("y"), NewVar("x"))),
	}

	for _, term := range terms {
		first, err := Eval(ctx, env, term)
		require.NoError(t, err)

		second, err := Eval(ctx, env, term)
		require.NoError(t, err)
		require.True(t, Equal(first, second), "%s evaluated differently: %s vs %s", term, first, second)

		again, err := Eval(ctx, env, first)
		require.NoError(t, err)
		require.True(t, Equal(first, again), "%s is not a fixed point: %s", first, again)
	}
}

func (EvalSuite) TestFuel(ctx context.Context, t *testctx.T) {
	omega := NewAbs("x", NewApp(NewVar("x"), NewVar("x")))

	t.Run("divergent term exhausts fuel", func(ctx context.Context, t *testctx.T) {
		_, err := Eval(ctx, NewEnv(nil), NewApp(omega, omega), WithFuel(1000))

		var limitErr *StepLimitError
		require.True(t, errors.As(err, &limitErr))
		require.Equal(t, 1000, limitErr.Limit)
	})

	t.Run("enough fuel finishes", func(ctx context.Context, t *testctx.T) {
		ev := NewEvaluator(WithFuel(1000))
		result, err := ev.Eval(ctx, NewEnv(nil), Add(NewInt(1), NewInt(2)))
		require.NoError(t, err)
		require.Equal(t, NewInt(3), result)
		require.Equal(t, 3, ev.Steps())
	})

	t.Run("exact fuel finishes", func(ctx context.Context, t *testctx.T) {
		_, err := Eval(ctx, NewEnv(nil), Add(NewInt(1), NewInt(2)), WithFuel(3))
		require.NoError(t, err)

		_, err = Eval(ctx, NewEnv(nil), Add(NewInt(1), NewInt(2)), WithFuel(2))
		require.Error(t, err)
	})
}

func (EvalSuite) TestCancellation(ctx context.Context, t *testctx.T) {
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	_, err := Eval(ctx, NewEnv(nil), Add(NewInt(1), NewInt(2)))
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func (EvalSuite) TestTrace(ctx context.Context, t *testctx.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	result, err := Eval(ctx, NewEnv(nil), NewApp(NewAbs("x", Mul(NewVar("x"), NewInt(2))), NewInt(21)), WithLogger(logger))
	require.NoError(t, err)
	require.Equal(t, NewInt(42), result)
	require.Contains(t, buf.String(), "msg=beta")
	require.Contains(t, buf.String(), "param=x")
	require.Contains(t, buf.String(), "msg=primitive")
	require.Contains(t, buf.String(), "result=42")
}
