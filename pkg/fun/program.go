package fun

import (
	"context"
	"log/slog"
)

// Program is a set of top-level bindings with a designated main term.
type Program struct {
	Filename string
	Env      Env
	Main     Term
	// Order lists the bound names in declaration order, each once.
	Order []string
}

// NewProgram collects declarations into a program. A later declaration of a
// name replaces an earlier one.
func NewProgram(filename string, decls []Binding) (*Program, error) {
	lib := newLibrary(filename, decls)
	main, ok := lib.Env.Get("main")
	if !ok {
		return nil, &MissingMainError{Filename: filename}
	}
	lib.Main = main
	return lib, nil
}

// newLibrary collects declarations without requiring main. Libraries are
// used as preludes; their Main is nil.
func newLibrary(filename string, decls []Binding) *Program {
	bindings := make(map[string]Term, len(decls))
	var order []string
	for _, d := range decls {
		if _, seen := bindings[d.Name]; !seen {
			order = append(order, d.Name)
		} else {
			slog.Debug("binding redeclared", "file", filename, "name", d.Name)
		}
		bindings[d.Name] = d.Term
	}

	return &Program{
		Filename: filename,
		Env:      NewEnv(bindings),
		Order:    order,
	}
}

// WithPrelude returns a copy of the program whose environment also holds the
// bindings of each prelude. The program's own bindings win over a prelude's,
// and later preludes win over earlier ones.
func (p *Program) WithPrelude(preludes ...*Program) *Program {
	env := NewEnv(nil)
	for _, pre := range preludes {
		env = env.Merge(pre.Env)
	}
	return &Program{
		Filename: p.Filename,
		Env:      env.Merge(p.Env),
		Main:     p.Main,
		Order:    p.Order,
	}
}

// Run evaluates main under the program's bindings.
func (p *Program) Run(ctx context.Context, opts ...EvalOption) (Term, error) {
	return Eval(ctx, p.Env, p.Main, opts...)
}
