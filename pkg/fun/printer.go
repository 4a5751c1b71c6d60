package fun

import (
	"strconv"
	"strings"
)

// Print renders a term in surface syntax. Every compound form is
// parenthesized, so the output parses back to an equal term.
func Print(term Term) string {
	var b strings.Builder
	printTerm(&b, term)
	return b.String()
}

func printTerm(b *strings.Builder, term Term) {
	switch t := term.(type) {
	case Var:
		b.WriteString(t.Name)
	case Abs:
		b.WriteString("(λ")
		b.WriteString(t.Param)
		b.WriteString(". ")
		printTerm(b, t.Body)
		b.WriteByte(')')
	case App:
		b.WriteByte('(')
		printTerm(b, t.Left)
		b.WriteByte(' ')
		printTerm(b, t.Right)
		b.WriteByte(')')
	case Int:
		b.WriteString(strconv.FormatInt(t.Value, 10))
	case Bool:
		b.WriteString(strconv.FormatBool(t.Value))
	case If:
		b.WriteString("(if ")
		printTerm(b, t.Cond)
		b.WriteString(" then ")
		printTerm(b, t.Then)
		b.WriteString(" else ")
		printTerm(b, t.Else)
		b.WriteByte(')')
	case PrimOp:
		b.WriteByte('(')
		printTerm(b, t.Left)
		b.WriteByte(' ')
		b.WriteString(t.Op.Symbol())
		b.WriteByte(' ')
		printTerm(b, t.Right)
		b.WriteByte(')')
	case nil:
		b.WriteString("<nil>")
	}
}

// PrintProgram renders every binding of the program as a `name = expr;`
// line, in declaration order.
func PrintProgram(prog *Program) string {
	var b strings.Builder
	for _, name := range prog.Order {
		term, ok := prog.Env.Get(name)
		if !ok {
			continue
		}
		b.WriteString(name)
		b.WriteString(" = ")
		printTerm(&b, term)
		b.WriteString(";\n")
	}
	return b.String()
}
