package fun

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

var reservedWords = map[string]bool{
	"if":    true,
	"then":  true,
	"else":  true,
	"true":  true,
	"false": true,
}

var operators = []struct {
	sym string
	op  Op
}{
	{"+", OpAdd},
	{"-", OpSub},
	{"*", OpMul},
	{"/", OpDiv},
	{"==", OpEq},
	{"<", OpLt},
	{">", OpGt},
}

func isIdentStart(r rune) bool {
	return r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
}

func isIdentRest(r rune) bool {
	return isIdentStart(r) || r >= '0' && r <= '9' || r == '_'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Binding is a single `name = expr;` declaration.
type Binding struct {
	Name string
	Term Term
}

// grammar holds the parsers for the surface syntax.
//
// A compound form used as an operand must be parenthesized. Inside
// parentheses a leading λ commits to an abstraction and a leading `if` to a
// conditional; anything else starts with an operand that is parsed exactly
// once, after which an operator makes a binary operation and another operand
// makes an application. No subexpression is ever parsed twice, so parsing is
// linear in the input.
//
// Where nothing can follow but a closing delimiter (the right-hand side of a
// binding, an abstraction body, the parts of a conditional and a whole term)
// the parentheses may be left off, so `f = λn. if (n == 0) then 1 else n;`
// is accepted.
type grammar struct {
	expr    Parser[Term]
	bare    Parser[Term]
	term    Parser[Term]
	program Parser[[]Binding]
}

var syntax = newGrammar()

func newGrammar() *grammar {
	g := &grammar{}

	expr := Lazy(func() Parser[Term] { return g.expr })
	bare := Lazy(func() Parser[Term] { return g.bare })

	ident := Lexeme(identifier())

	variable := Map(ident, NewVar)

	integer := Lexeme(integerLiteral())

	boolean := Lexeme(Alt(
		Map(keyword("true"), func(string) Term { return NewBool(true) }),
		Map(keyword("false"), func(string) Term { return NewBool(false) }),
	))

	abstraction := Bind(
		Then(symbol(Alt(Lit("λ"), Lit(`\`))), Skip(ident, symbol(Lit(".")))),
		func(param string) Parser[Term] {
			return Map(bare, func(body Term) Term { return NewAbs(param, body) })
		},
	)

	conditional := Bind(
		Then(symbol(keyword("if")), bare),
		func(cond Term) Parser[Term] {
			return Bind(
				Then(symbol(keyword("then")), bare),
				func(then Term) Parser[Term] {
					return Map(Then(symbol(keyword("else")), bare), func(els Term) Term {
						return NewIf(cond, then, els)
					})
				},
			)
		},
	)

	operator := symbol(operatorSymbol())

	// tail completes a binary operation or an application whose left
	// operand has already been parsed.
	tail := func(left Term) Parser[Term] {
		return Alt(
			Bind(operator, func(op Op) Parser[Term] {
				return Map(expr, func(right Term) Term { return NewPrimOp(op, left, right) })
			}),
			Map(expr, func(right Term) Term { return NewApp(left, right) }),
		)
	}

	compound := Alt(abstraction, conditional, Bind(expr, tail))

	g.bare = Alt(abstraction, conditional, Bind(expr, func(left Term) Parser[Term] {
		return Alt(tail(left), Pure(left))
	}))

	g.expr = Alt(
		variable,
		integer,
		boolean,
		Delimited(symbol(Lit("(")), compound, symbol(Lit(")"))),
	)

	g.term = bare

	decl := Bind(
		Skip(ident, symbol(Lit("="))),
		func(name string) Parser[Binding] {
			return Map(Skip(bare, symbol(Lit(";"))), func(t Term) Binding {
				return Binding{Name: name, Term: t}
			})
		},
	)

	g.program = Many1(decl)

	return g
}

// symbol matches p and skips trailing whitespace.
func symbol[T any](p Parser[T]) Parser[T] {
	return Lexeme(p)
}

// identifier matches a name that is not a reserved word.
func identifier() Parser[string] {
	word := Recognize(Then(Satisfy("identifier", isIdentStart), TakeWhile(isIdentRest)))
	return func(st *parseState, pos int) (string, int, bool) {
		name, next, ok := word(st, pos)
		if !ok {
			return "", pos, false
		}
		if reservedWords[name] {
			st.reject(pos, fmt.Sprintf("reserved word %q cannot be used as a name", name))
			return "", pos, false
		}
		return name, next, true
	}
}

// keyword matches the reserved word kw when it is not the prefix of a longer
// identifier.
func keyword(kw string) Parser[string] {
	lit := Lit(kw)
	return func(st *parseState, pos int) (string, int, bool) {
		_, next, ok := lit(st, pos)
		if !ok {
			return "", pos, false
		}
		if rest, _, _ := TakeWhile(isIdentRest)(st, next); rest != "" {
			st.expect(pos, strconv.Quote(kw))
			return "", pos, false
		}
		return kw, next, true
	}
}

// integerLiteral matches ASCII digits as a base-10 int64.
func integerLiteral() Parser[Term] {
	digits := Recognize(Then(Satisfy("integer", isDigit), TakeWhile(isDigit)))
	return func(st *parseState, pos int) (Term, int, bool) {
		text, next, ok := digits(st, pos)
		if !ok {
			return nil, pos, false
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			st.reject(pos, fmt.Sprintf("integer literal %s is out of range", text))
			return nil, pos, false
		}
		return NewInt(n), next, true
	}
}

// operatorSymbol matches one of the primitive operators.
func operatorSymbol() Parser[Op] {
	alts := make([]Parser[Op], len(operators))
	for i, o := range operators {
		op := o.op
		alts[i] = Map(Lit(o.sym), func(string) Op { return op })
	}
	return Alt(alts...)
}

// ParseTerm parses a single expression. The filename is only used for error
// locations.
func ParseTerm(filename, src string) (Term, error) {
	return Parse(filename, src, syntax.term)
}

// ParseProgram parses a sequence of `name = expr;` declarations. The program
// must bind main.
func ParseProgram(filename, src string) (*Program, error) {
	decls, err := Parse(filename, src, syntax.program)
	if err != nil {
		return nil, err
	}
	return NewProgram(filename, decls)
}

// ParseLibrary parses declarations like ParseProgram but does not require a
// main binding.
func ParseLibrary(filename, src string) (*Program, error) {
	decls, err := Parse(filename, src, syntax.program)
	if err != nil {
		return nil, err
	}
	return newLibrary(filename, decls), nil
}

// ParseFile reads and parses the program at path.
func ParseFile(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return ParseProgram(path, string(src))
}

// ParseLibraryFile reads and parses the library at path.
func ParseLibraryFile(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return ParseLibrary(path, string(src))
}
