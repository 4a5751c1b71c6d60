package fun

import "fmt"

// Term is a node in the expression tree. Terms are immutable; every
// transformation builds a new tree, so subtrees may safely be shared.
type Term interface {
	fmt.Stringer

	isTerm()
}

// Op is a primitive binary operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpLt
	OpGt
)

var opSymbols = map[Op]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpEq:  "==",
	OpLt:  "<",
	OpGt:  ">",
}

// Symbol returns the surface syntax of the operator.
func (op Op) Symbol() string {
	if sym, ok := opSymbols[op]; ok {
		return sym
	}
	return fmt.Sprintf("<op %d>", int(op))
}

func (op Op) String() string { return op.Symbol() }

// IsArithmetic reports whether the operator produces an integer.
func (op Op) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	default:
		return false
	}
}

// Var is a variable reference.
type Var struct {
	Name string
}

// Abs is a lambda abstraction binding Param in Body.
type Abs struct {
	Param string
	Body  Term
}

// App applies Left to Right.
type App struct {
	Left  Term
	Right Term
}

// Int is a 64-bit signed integer literal.
type Int struct {
	Value int64
}

// Bool is a boolean literal.
type Bool struct {
	Value bool
}

// If is a conditional.
type If struct {
	Cond Term
	Then Term
	Else Term
}

// PrimOp is a primitive binary operation.
type PrimOp struct {
	Op    Op
	Left  Term
	Right Term
}

var _ Term = Var{}
var _ Term = Abs{}
var _ Term = App{}
var _ Term = Int{}
var _ Term = Bool{}
var _ Term = If{}
var _ Term = PrimOp{}

func (Var) isTerm()    {}
func (Abs) isTerm()    {}
func (App) isTerm()    {}
func (Int) isTerm()    {}
func (Bool) isTerm()   {}
func (If) isTerm()     {}
func (PrimOp) isTerm() {}

func (t Var) String() string    { return Print(t) }
func (t Abs) String() string    { return Print(t) }
func (t App) String() string    { return Print(t) }
func (t Int) String() string    { return Print(t) }
func (t Bool) String() string   { return Print(t) }
func (t If) String() string     { return Print(t) }
func (t PrimOp) String() string { return Print(t) }

func NewVar(name string) Term            { return Var{Name: name} }
func NewAbs(param string, body Term) Term { return Abs{Param: param, Body: body} }
func NewApp(left, right Term) Term        { return App{Left: left, Right: right} }
func NewInt(n int64) Term                 { return Int{Value: n} }
func NewBool(b bool) Term                 { return Bool{Value: b} }

func NewIf(cond, then, els Term) Term {
	return If{Cond: cond, Then: then, Else: els}
}

func NewPrimOp(op Op, left, right Term) Term {
	return PrimOp{Op: op, Left: left, Right: right}
}

func Add(l, r Term) Term { return NewPrimOp(OpAdd, l, r) }
func Sub(l, r Term) Term { return NewPrimOp(OpSub, l, r) }
func Mul(l, r Term) Term { return NewPrimOp(OpMul, l, r) }
func Div(l, r Term) Term { return NewPrimOp(OpDiv, l, r) }
func Eq(l, r Term) Term  { return NewPrimOp(OpEq, l, r) }
func Lt(l, r Term) Term  { return NewPrimOp(OpLt, l, r) }
func Gt(l, r Term) Term  { return NewPrimOp(OpGt, l, r) }

// Lambda builds nested abstractions, one per parameter, outermost first.
func Lambda(params []string, body Term) Term {
	for i := len(params) - 1; i >= 0; i-- {
		body = NewAbs(params[i], body)
	}
	return body
}

// Apply builds a left-nested application chain: ((f a) b) ...
func Apply(f Term, args ...Term) Term {
	for _, arg := range args {
		f = NewApp(f, arg)
	}
	return f
}

// Equal reports whether two terms have the same shape and leaf values.
func Equal(a, b Term) bool {
	switch x := a.(type) {
	case Var:
		y, ok := b.(Var)
		return ok && x.Name == y.Name
	case Abs:
		y, ok := b.(Abs)
		return ok && x.Param == y.Param && Equal(x.Body, y.Body)
	case App:
		y, ok := b.(App)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case Int:
		y, ok := b.(Int)
		return ok && x.Value == y.Value
	case Bool:
		y, ok := b.(Bool)
		return ok && x.Value == y.Value
	case If:
		y, ok := b.(If)
		return ok && Equal(x.Cond, y.Cond) && Equal(x.Then, y.Then) && Equal(x.Else, y.Else)
	case PrimOp:
		y, ok := b.(PrimOp)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	default:
		return false
	}
}
