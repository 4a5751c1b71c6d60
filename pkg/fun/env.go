package fun

import (
	"sort"

	"github.com/samber/lo"
)

// Env maps variable names to terms. An Env is treated as a value: Set and
// Remove return a new Env and leave the receiver untouched, so one Env may be
// shared by every frame of an evaluation.
type Env struct {
	bindings map[string]Term
}

// NewEnv creates an environment holding the given bindings.
func NewEnv(bindings map[string]Term) Env {
	env := Env{bindings: make(map[string]Term, len(bindings))}
	for name, term := range bindings {
		env.bindings[name] = term
	}
	return env
}

// Get returns the term bound to name.
func (env Env) Get(name string) (Term, bool) {
	term, ok := env.bindings[name]
	return term, ok
}

// Set returns a copy of the environment with name bound to term.
func (env Env) Set(name string, term Term) Env {
	next := env.Clone()
	next.bindings[name] = term
	return next
}

// Remove returns a copy of the environment without name. The receiver is
// returned as-is when name is not bound.
func (env Env) Remove(name string) Env {
	if _, ok := env.bindings[name]; !ok {
		return env
	}
	next := Env{bindings: make(map[string]Term, len(env.bindings))}
	for n, term := range env.bindings {
		if n != name {
			next.bindings[n] = term
		}
	}
	return next
}

// Clone creates a copy of the environment
func (env Env) Clone() Env {
	return NewEnv(env.bindings)
}

// Len returns the number of bindings.
func (env Env) Len() int {
	return len(env.bindings)
}

// Names returns the bound names in lexical order.
func (env Env) Names() []string {
	names := lo.Keys(env.bindings)
	sort.Strings(names)
	return names
}

// Merge returns a copy of env with every binding of other added, replacing
// any existing binding of the same name.
func (env Env) Merge(other Env) Env {
	next := env.Clone()
	for name, term := range other.bindings {
		next.bindings[name] = term
	}
	return next
}
