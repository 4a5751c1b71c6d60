package fun

import "fmt"

// Substitute replaces every free occurrence of name in term with
// replacement. Binders that would capture a free variable of replacement are
// renamed first.
func Substitute(term Term, name string, replacement Term) Term {
	switch t := term.(type) {
	case Var:
		if t.Name == name {
			return replacement
		}
		return t
	case Abs:
		if t.Param == name {
			// the binder shadows name; nothing below is free
			return t
		}
		if FreeVariables(replacement).Contains(t.Param) {
			fresh := FreshName(t.Param, term, replacement)
			body := Substitute(t.Body, t.Param, Var{Name: fresh})
			return Abs{Param: fresh, Body: Substitute(body, name, replacement)}
		}
		return Abs{Param: t.Param, Body: Substitute(t.Body, name, replacement)}
	case App:
		return App{
			Left:  Substitute(t.Left, name, replacement),
			Right: Substitute(t.Right, name, replacement),
		}
	case If:
		return If{
			Cond: Substitute(t.Cond, name, replacement),
			Then: Substitute(t.Then, name, replacement),
			Else: Substitute(t.Else, name, replacement),
		}
	case PrimOp:
		return PrimOp{
			Op:    t.Op,
			Left:  Substitute(t.Left, name, replacement),
			Right: Substitute(t.Right, name, replacement),
		}
	default:
		return term
	}
}

// FreeVariables returns the variables occurring free in term.
func FreeVariables(term Term) VarSet {
	set := NewVarSet()
	collectFree(term, NewVarSet(), set)
	return set
}

func collectFree(term Term, bound VarSet, into VarSet) {
	switch t := term.(type) {
	case Var:
		if !bound.Contains(t.Name) {
			into.Add(t.Name)
		}
	case Abs:
		if bound.Contains(t.Param) {
			collectFree(t.Body, bound, into)
			return
		}
		bound.Add(t.Param)
		collectFree(t.Body, bound, into)
		bound.Remove(t.Param)
	case App:
		collectFree(t.Left, bound, into)
		collectFree(t.Right, bound, into)
	case If:
		collectFree(t.Cond, bound, into)
		collectFree(t.Then, bound, into)
		collectFree(t.Else, bound, into)
	case PrimOp:
		collectFree(t.Left, bound, into)
		collectFree(t.Right, bound, into)
	}
}

// AllVariables returns every variable name in term, free or bound.
func AllVariables(term Term) VarSet {
	set := NewVarSet()
	collectAll(term, set)
	return set
}

func collectAll(term Term, into VarSet) {
	switch t := term.(type) {
	case Var:
		into.Add(t.Name)
	case Abs:
		into.Add(t.Param)
		collectAll(t.Body, into)
	case App:
		collectAll(t.Left, into)
		collectAll(t.Right, into)
	case If:
		collectAll(t.Cond, into)
		collectAll(t.Then, into)
		collectAll(t.Else, into)
	case PrimOp:
		collectAll(t.Left, into)
		collectAll(t.Right, into)
	}
}

// FreshName derives a name from base that occurs nowhere in term or
// replacement: base itself, then base_1, base_2, and so on.
func FreshName(base string, term, replacement Term) string {
	taken := AllVariables(term).Union(AllVariables(replacement))
	name := base
	for i := 1; taken.Contains(name); i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	return name
}
