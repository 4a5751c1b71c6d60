package fun

import (
	"context"
	"errors"

	"github.com/dagger/testctx"
	"github.com/stretchr/testify/require"
)

func (EvalSuite) TestProgramPrelude(ctx context.Context, t *testctx.T) {
	prelude, err := ParseLibrary("prelude.fun", `
		inc = λn. n + 1;
		limit = 10;
	`)
	require.NoError(t, err)

	t.Run("prelude bindings are visible", func(ctx context.Context, t *testctx.T) {
		prog, err := ParseProgram("main.fun", "main = inc limit;")
		require.NoError(t, err)

		result, err := prog.WithPrelude(prelude).Run(ctx)
		require.NoError(t, err)
		require.Equal(t, NewInt(11), result)
	})

	t.Run("program bindings win", func(ctx context.Context, t *testctx.T) {
		prog, err := ParseProgram("main.fun", "limit = 1; main = inc limit;")
		require.NoError(t, err)

		result, err := prog.WithPrelude(prelude).Run(ctx)
		require.NoError(t, err)
		require.Equal(t, NewInt(2), result)
	})

	t.Run("later preludes win", func(ctx context.Context, t *testctx.T) {
		override, err := ParseLibrary("override.fun", "limit = 20;")
		require.NoError(t, err)

		prog, err := ParseProgram("main.fun", "main = inc limit;")
		require.NoError(t, err)

		result, err := prog.WithPrelude(prelude, override).Run(ctx)
		require.NoError(t, err)
		require.Equal(t, NewInt(21), result)
	})

	t.Run("program is not modified", func(ctx context.Context, t *testctx.T) {
		prog, err := ParseProgram("main.fun", "main = inc limit;")
		require.NoError(t, err)

		_ = prog.WithPrelude(prelude)
		require.Equal(t, []string{"main"}, prog.Env.Names())

		result, err := prog.Run(ctx)
		require.NoError(t, err)
		require.Equal(t, NewApp(NewVar("inc"), NewVar("limit")), result)
	})
}

func (EvalSuite) TestProgramRunOptions(ctx context.Context, t *testctx.T) {
	prog, err := ParseProgram("loop.fun", `
		loop = λn. loop (n + 1);
		main = loop 0;
	`)
	require.NoError(t, err)

	_, err = prog.Run(ctx, WithFuel(500))

	var limitErr *StepLimitError
	require.True(t, errors.As(err, &limitErr))
	require.Equal(t, 500, limitErr.Limit)
}

func (EvalSuite) TestNewProgram(ctx context.Context, t *testctx.T) {
	t.Run("requires main", func(ctx context.Context, t *testctx.T) {
		_, err := NewProgram("lib.fun", []Binding{{Name: "id", Term: NewAbs("x", NewVar("x"))}})
		require.EqualError(t, err, "lib.fun: program has no main binding")
	})

	t.Run("collects bindings", func(ctx context.Context, t *testctx.T) {
		prog, err := NewProgram("", []Binding{
			{Name: "two", Term: NewInt(2)},
			{Name: "main", Term: Mul(NewVar("two"), NewInt(21))},
		})
		require.NoError(t, err)
		require.Equal(t, []string{"two", "main"}, prog.Order)

		result, err := prog.Run(ctx)
		require.NoError(t, err)
		require.Equal(t, NewInt(42), result)
	})
}
