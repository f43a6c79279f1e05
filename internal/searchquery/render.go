package searchquery

import "strings"

// Render folds n into tsquery text, appending wildcard to every word. It
// does not modify n and always produces the same output for the same tree.
func Render(n Node, wildcard string) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	r := renderer{b: &b, wildcard: wildcard}
	r.render(n)
	return b.String()
}

type renderer struct {
	b        *strings.Builder
	wildcard string
}

// render walks And and Or chains and runs of negations in a loop, so
// recursion depth follows parenthesis nesting rather than query length.
func (r renderer) render(n Node) {
	switch v := n.(type) {
	case Word:
		r.b.WriteString(v.Text)
		r.b.WriteString(r.wildcard)
	case Not:
		var operand Node = v
		for {
			not, ok := operand.(Not)
			if !ok {
				break
			}
			r.b.WriteString("! ")
			operand = not.Operand
		}
		r.operand(operand, precNot)
	case And:
		first, rest := andChain(v)
		r.operand(first, precAnd)
		for i := len(rest) - 1; i >= 0; i-- {
			r.b.WriteString(" & ")
			r.operand(rest[i], precAnd)
		}
	case Or:
		first, rest := orChain(v)
		r.render(first)
		for i := len(rest) - 1; i >= 0; i-- {
			r.b.WriteString(" | ")
			r.render(rest[i])
		}
	case Group:
		inner := v.Inner
		for {
			g, nested := inner.(Group)
			if !nested {
				break
			}
			inner = g.Inner
		}
		r.b.WriteByte('(')
		r.render(inner)
		r.b.WriteByte(')')
	case Phrase:
		for i, w := range v.Words {
			if i > 0 {
				r.b.WriteString(" <-> ")
			}
			r.render(w)
		}
	}
}

// andChain unrolls a left-leaning chain of And nodes. rest holds the right
// operands from the outermost inwards.
func andChain(n And) (first Node, rest []Node) {
	var cur Node = n
	for {
		a, ok := cur.(And)
		if !ok {
			return cur, rest
		}
		rest = append(rest, a.Right)
		cur = a.Left
	}
}

func orChain(n Or) (first Node, rest []Node) {
	var cur Node = n
	for {
		o, ok := cur.(Or)
		if !ok {
			return cur, rest
		}
		rest = append(rest, o.Right)
		cur = o.Left
	}
}

// Binding strength in tsquery, loosest first.
const (
	precOr = iota
	precAnd
	precPhrase
	precNot
	precAtom
)

func precedence(n Node) int {
	switch n.(type) {
	case Or:
		return precOr
	case And:
		return precAnd
	case Phrase:
		return precPhrase
	case Not:
		return precNot
	default:
		return precAtom
	}
}

// operand renders n as a child of an operator binding at min, adding
// parentheses when n binds more loosely. Trees built by the parser never
// need them; hand-built trees might.
func (r renderer) operand(n Node, min int) {
	if precedence(n) >= min {
		r.render(n)
		return
	}
	r.b.WriteByte('(')
	r.render(n)
	r.b.WriteByte(')')
}
