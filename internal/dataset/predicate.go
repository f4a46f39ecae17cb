package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Predicate is a typed row filter over a Dataset.
//
// Predicates form a small clause tree (comparison leaves joined by
// and/or) rather than opaque callback functions, so filters stay
// printable, validatable, and serializable into analysis documents.
type Predicate interface {
	// Eval reports whether the row matches. Rows with missing values in
	// referenced columns never match.
	Eval(d *Dataset, row int) (bool, error)

	// Columns returns every column the predicate references.
	Columns() []string

	// String renders the predicate in its source syntax.
	String() string
}

// CmpOp is a comparison operator.
type CmpOp string

const (
	OpEq CmpOp = "=="
	OpNe CmpOp = "!="
	OpLt CmpOp = "<"
	OpLe CmpOp = "<="
	OpGt CmpOp = ">"
	OpGe CmpOp = ">="
)

// Cmp is a single column-against-literal comparison.
type Cmp struct {
	Col   string
	Op    CmpOp
	Num   float64
	Str   string
	IsNum bool // literal is numeric
}

// Eval implements Predicate.
func (c Cmp) Eval(d *Dataset, row int) (bool, error) {
	i, ok := d.index[c.Col]
	if !ok {
		return false, columnNotFound(c.Col)
	}
	col := d.cols[i]
	if col.missing[row] {
		return false, nil
	}

	if col.typ == Numeric {
		if !c.IsNum {
			return false, &Error{Code: ErrCodeBadPredicate, Column: c.Col,
				Message: fmt.Sprintf("numeric column compared against string %q", c.Str)}
		}
		return cmpFloat(col.nums[row], c.Op, c.Num)
	}

	// Categorical columns support equality only; the literal compares
	// against the materialized cell (label or raw code).
	lit := c.Str
	if c.IsNum {
		lit = formatNum(c.Num)
	}
	switch c.Op {
	case OpEq:
		return col.strs[row] == lit, nil
	case OpNe:
		return col.strs[row] != lit, nil
	default:
		return false, &Error{Code: ErrCodeBadPredicate, Column: c.Col,
			Message: fmt.Sprintf("operator %s not supported for categorical column", c.Op)}
	}
}

func cmpFloat(v float64, op CmpOp, lit float64) (bool, error) {
	switch op {
	case OpEq:
		return v == lit, nil
	case OpNe:
		return v != lit, nil
	case OpLt:
		return v < lit, nil
	case OpLe:
		return v <= lit, nil
	case OpGt:
		return v > lit, nil
	case OpGe:
		return v >= lit, nil
	default:
		return false, &Error{Code: ErrCodeBadPredicate, Message: fmt.Sprintf("unknown operator %q", op)}
	}
}

// Columns implements Predicate.
func (c Cmp) Columns() []string { return []string{c.Col} }

func (c Cmp) String() string {
	if c.IsNum {
		return fmt.Sprintf("%s %s %s", c.Col, c.Op, formatNum(c.Num))
	}
	return fmt.Sprintf("%s %s %q", c.Col, c.Op, c.Str)
}

// And matches when every term matches.
type And struct{ Terms []Predicate }

// Or matches when any term matches.
type Or struct{ Terms []Predicate }

func (a And) Eval(d *Dataset, row int) (bool, error) {
	for _, t := range a.Terms {
		ok, err := t.Eval(d, row)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (o Or) Eval(d *Dataset, row int) (bool, error) {
	for _, t := range o.Terms {
		ok, err := t.Eval(d, row)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (a And) Columns() []string { return termColumns(a.Terms) }
func (o Or) Columns() []string  { return termColumns(o.Terms) }

func termColumns(terms []Predicate) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range terms {
		for _, c := range t.Columns() {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func (a And) String() string { return joinTerms(a.Terms, " and ") }
func (o Or) String() string  { return joinTerms(o.Terms, " or ") }

func joinTerms(terms []Predicate, sep string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		if _, isCmp := t.(Cmp); isCmp {
			parts[i] = t.String()
		} else {
			parts[i] = "(" + t.String() + ")"
		}
	}
	return strings.Join(parts, sep)
}

// ParsePredicate parses filter syntax such as
//
//	Grade == 2 or Grade == 3
//	Grade >= 2 and Cohort != "pilot"
//
// into a Predicate. "and" binds tighter than "or"; parentheses group.
func ParsePredicate(s string) (Predicate, error) {
	p := &predParser{toks: tokenizePredicate(s), src: s}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	return expr, nil
}

type predParser struct {
	toks []string
	pos  int
	src  string
}

func (p *predParser) done() bool { return p.pos >= len(p.toks) }

func (p *predParser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *predParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *predParser) errorf(format string, args ...any) error {
	return &Error{Code: ErrCodeBadPredicate,
		Message: fmt.Sprintf(format, args...) + " in predicate " + strconv.Quote(p.src)}
}

func (p *predParser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{left}
	for strings.EqualFold(p.peek(), "or") {
		p.next()
		t, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return Or{Terms: terms}, nil
}

func (p *predParser) parseAnd() (Predicate, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{left}
	for strings.EqualFold(p.peek(), "and") {
		p.next()
		t, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return And{Terms: terms}, nil
}

func (p *predParser) parseFactor() (Predicate, error) {
	if p.peek() == "(" {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, p.errorf("missing closing parenthesis")
		}
		return expr, nil
	}

	col := p.next()
	if col == "" {
		return nil, p.errorf("expected column name")
	}
	op := CmpOp(p.next())
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
	default:
		return nil, p.errorf("expected comparison operator after %q", col)
	}
	lit := p.next()
	if lit == "" {
		return nil, p.errorf("expected literal after %q %s", col, op)
	}

	if strings.HasPrefix(lit, `"`) {
		unq, err := strconv.Unquote(lit)
		if err != nil {
			return nil, p.errorf("bad string literal %s", lit)
		}
		return Cmp{Col: col, Op: op, Str: unq}, nil
	}
	if n, err := strconv.ParseFloat(lit, 64); err == nil {
		return Cmp{Col: col, Op: op, Num: n, IsNum: true}, nil
	}
	// Bareword literal, compared as a string.
	return Cmp{Col: col, Op: op, Str: lit}, nil
}

// tokenizePredicate splits predicate source into idents, operators,
// numbers, quoted strings, and parentheses.
func tokenizePredicate(s string) []string {
	var toks []string
	i := 0
	for i < len(s) {
		r := rune(s[i])
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			toks = append(toks, string(r))
			i++
		case r == '"':
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(s) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		case strings.ContainsRune("=!<>", r):
			j := i + 1
			if j < len(s) && s[j] == '=' {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			j := i
			for j < len(s) && !unicode.IsSpace(rune(s[j])) && !strings.ContainsRune(`()=!<>"`, rune(s[j])) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks
}
