package searchquery

// Node is an element of a parsed query. The concrete types are Word, Not,
// And, Or, Group and Phrase.
type Node interface {
	node()
}

// Word is a single search term.
type Word struct {
	Text string
}

// Not negates its operand.
type Not struct {
	Operand Node
}

// And matches when both sides match.
type And struct {
	Left, Right Node
}

// Or matches when either side matches.
type Or struct {
	Left, Right Node
}

// Group is a parenthesized sub-query.
type Group struct {
	Inner Node
}

// Phrase matches its words in sequence.
type Phrase struct {
	Words []Word
}

func (Word) node()   {}
func (Not) node()    {}
func (And) node()    {}
func (Or) node()     {}
func (Group) node()  {}
func (Phrase) node() {}

// Words returns the terms of n in left-to-right order.
func Words(n Node) []string {
	var out []string
	stack := []Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch v := cur.(type) {
		case Word:
			out = append(out, v.Text)
		case Not:
			stack = append(stack, v.Operand)
		case And:
			stack = append(stack, v.Right, v.Left)
		case Or:
			stack = append(stack, v.Right, v.Left)
		case Group:
			stack = append(stack, v.Inner)
		case Phrase:
			for _, w := range v.Words {
				out = append(out, w.Text)
			}
		}
	}
	return out
}
