package fun

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parser recognizes a prefix of the input starting at pos. On success it
// returns the parsed value and the position after it. On failure it records
// what it expected in the parse state and reports ok=false.
type Parser[T any] func(st *parseState, pos int) (val T, next int, ok bool)

// parseState is shared by every parser during a single parse. It remembers
// the furthest position any parser failed at, which is where errors are
// reported.
type parseState struct {
	src      string
	failPos  int
	expected map[string]bool
	failMsg  string
}

func newParseState(src string) *parseState {
	return &parseState{src: src, failPos: -1, expected: map[string]bool{}}
}

// expect records that what was expected at pos.
func (st *parseState) expect(pos int, what string) {
	switch {
	case pos > st.failPos:
		st.failPos = pos
		st.expected = map[string]bool{what: true}
		st.failMsg = ""
	case pos == st.failPos:
		st.expected[what] = true
	}
}

// reject records a hard message at pos, such as a reserved word used as a
// name. It takes precedence over expectations at the same position.
func (st *parseState) reject(pos int, msg string) {
	if pos >= st.failPos {
		if pos > st.failPos {
			st.expected = map[string]bool{}
		}
		st.failPos = pos
		st.failMsg = msg
	}
}

func (st *parseState) message() string {
	if st.failMsg != "" {
		return st.failMsg
	}

	found := "end of input"
	if st.failPos < len(st.src) {
		r, _ := utf8.DecodeRuneInString(st.src[st.failPos:])
		found = fmt.Sprintf("%q", r)
	}

	expected := make([]string, 0, len(st.expected))
	for what := range st.expected {
		expected = append(expected, what)
	}
	sort.Strings(expected)

	switch len(expected) {
	case 0:
		return fmt.Sprintf("unexpected %s", found)
	case 1:
		return fmt.Sprintf("unexpected %s, expected %s", found, expected[0])
	default:
		last := expected[len(expected)-1]
		return fmt.Sprintf("unexpected %s, expected %s or %s",
			found, strings.Join(expected[:len(expected)-1], ", "), last)
	}
}

// location converts a byte offset into a 1-based line and rune column.
func (st *parseState) location(filename string, pos int) *SourceLocation {
	pos = max(0, min(pos, len(st.src)))
	before := st.src[:pos]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return &SourceLocation{
		Filename: filename,
		Line:     line,
		Column:   utf8.RuneCountInString(before[lineStart:]) + 1,
		Length:   1,
	}
}

// Lit matches the exact string s.
func Lit(s string) Parser[string] {
	desc := fmt.Sprintf("%q", s)
	return func(st *parseState, pos int) (string, int, bool) {
		if strings.HasPrefix(st.src[pos:], s) {
			return s, pos + len(s), true
		}
		st.expect(pos, desc)
		return "", pos, false
	}
}

// Satisfy matches a single rune accepted by pred.
func Satisfy(desc string, pred func(rune) bool) Parser[rune] {
	return func(st *parseState, pos int) (rune, int, bool) {
		if pos < len(st.src) {
			r, size := utf8.DecodeRuneInString(st.src[pos:])
			if pred(r) {
				return r, pos + size, true
			}
		}
		st.expect(pos, desc)
		return 0, pos, false
	}
}

// TakeWhile consumes zero or more runes accepted by pred.
func TakeWhile(pred func(rune) bool) Parser[string] {
	return func(st *parseState, pos int) (string, int, bool) {
		end := pos
		for end < len(st.src) {
			r, size := utf8.DecodeRuneInString(st.src[end:])
			if !pred(r) {
				break
			}
			end += size
		}
		return st.src[pos:end], end, true
	}
}

// Recognize returns the input consumed by p instead of its value.
func Recognize[T any](p Parser[T]) Parser[string] {
	return func(st *parseState, pos int) (string, int, bool) {
		_, next, ok := p(st, pos)
		if !ok {
			return "", pos, false
		}
		return st.src[pos:next], next, true
	}
}

// Pure succeeds without consuming input.
func Pure[T any](v T) Parser[T] {
	return func(st *parseState, pos int) (T, int, bool) {
		return v, pos, true
	}
}

// Map transforms the value produced by p.
func Map[A, B any](p Parser[A], f func(A) B) Parser[B] {
	return func(st *parseState, pos int) (B, int, bool) {
		a, next, ok := p(st, pos)
		if !ok {
			var zero B
			return zero, pos, false
		}
		return f(a), next, true
	}
}

// Bind runs p, then the parser chosen from its value.
func Bind[A, B any](p Parser[A], f func(A) Parser[B]) Parser[B] {
	return func(st *parseState, pos int) (B, int, bool) {
		a, next, ok := p(st, pos)
		if !ok {
			var zero B
			return zero, pos, false
		}
		b, end, ok := f(a)(st, next)
		if !ok {
			var zero B
			return zero, pos, false
		}
		return b, end, true
	}
}

// Then runs p and q in sequence, keeping only q's value.
func Then[A, B any](p Parser[A], q Parser[B]) Parser[B] {
	return Bind(p, func(A) Parser[B] { return q })
}

// Skip runs p and q in sequence, keeping only p's value.
func Skip[A, B any](p Parser[A], q Parser[B]) Parser[A] {
	return Bind(p, func(a A) Parser[A] { return Map(q, func(B) A { return a }) })
}

// Alt tries each parser in order at the same position and returns the first
// success.
func Alt[T any](ps ...Parser[T]) Parser[T] {
	return func(st *parseState, pos int) (T, int, bool) {
		for _, p := range ps {
			if v, next, ok := p(st, pos); ok {
				return v, next, true
			}
		}
		var zero T
		return zero, pos, false
	}
}

// Many1 applies p one or more times.
func Many1[T any](p Parser[T]) Parser[[]T] {
	return func(st *parseState, pos int) ([]T, int, bool) {
		var vals []T
		for {
			v, next, ok := p(st, pos)
			if !ok || next == pos {
				break
			}
			vals = append(vals, v)
			pos = next
		}
		return vals, pos, len(vals) > 0
	}
}

// Delimited parses open, p, close and keeps p's value.
func Delimited[A, T, C any](open Parser[A], p Parser[T], close Parser[C]) Parser[T] {
	return Skip(Then(open, p), close)
}

// Lazy defers building a parser until it runs, for recursive grammars.
func Lazy[T any](build func() Parser[T]) Parser[T] {
	return func(st *parseState, pos int) (T, int, bool) {
		return build()(st, pos)
	}
}

// EOF succeeds only at the end of input.
func EOF() Parser[struct{}] {
	return func(st *parseState, pos int) (struct{}, int, bool) {
		if pos == len(st.src) {
			return struct{}{}, pos, true
		}
		st.expect(pos, "end of input")
		return struct{}{}, pos, false
	}
}

// Whitespace skips any amount of whitespace, including newlines.
func Whitespace() Parser[string] {
	return TakeWhile(unicode.IsSpace)
}

// Lexeme runs p and skips the whitespace following it.
func Lexeme[T any](p Parser[T]) Parser[T] {
	return Skip(p, Whitespace())
}

// Parse runs p against the whole of src, allowing leading whitespace.
func Parse[T any](filename, src string, p Parser[T]) (T, error) {
	st := newParseState(src)
	full := Skip(Then(Whitespace(), p), EOF())
	v, _, ok := full(st, 0)
	if !ok {
		var zero T
		return zero, &ParseError{
			Message:  st.message(),
			Location: st.location(filename, st.failPos),
			Source:   src,
		}
	}
	return v, nil
}
