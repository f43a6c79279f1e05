package searchquery

// Parser compiles search queries. The zero value is not usable; build one
// with New or NewWithOptions.
type Parser struct {
	opts Options
}

// New returns a Parser configured by DefaultOptions and then opts.
func New(opts ...Option) *Parser {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return NewWithOptions(o)
}

// NewWithOptions returns a Parser using o as given, after replacing invalid
// negation runes, keywords and depth limits with their defaults.
func NewWithOptions(o Options) *Parser {
	return &Parser{opts: o.normalize()}
}

// Options returns a copy of the parser configuration.
func (p *Parser) Options() Options {
	return p.opts
}

// Parse is a convenience wrapper that builds a Parser for a single call.
func Parse(query string, opts ...Option) (string, error) {
	return New(opts...).Parse(query)
}

// Parse compiles query into tsquery text. In lenient mode (the default) it
// never fails and returns "" when nothing searchable remains, which callers
// treat as "no filter". In strict mode malformed input yields a *ParseError.
func (p *Parser) Parse(query string) (string, error) {
	tree, err := p.ParseTree(query)
	if err != nil {
		return "", err
	}
	if tree == nil {
		return "", nil
	}
	return Render(tree, p.opts.Wildcard), nil
}

// ParseTree sanitizes and parses query. A nil Node with a nil error means
// the query is empty.
func (p *Parser) ParseTree(query string) (Node, error) {
	clean := p.Sanitize(query)
	if clean == "" {
		if p.opts.Strict {
			return nil, newParseError(clean, 0, ErrEmptyQuery)
		}
		return nil, nil
	}
	tokens := p.lex(clean, p.opts.MaxTerms)
	if len(tokens)-1 > p.opts.MaxTerms {
		cut := tokens[p.opts.MaxTerms].pos
		if p.opts.Strict {
			return nil, newParseError(clean, cut, ErrTooLong)
		}
		tokens = append(tokens[:p.opts.MaxTerms], token{kind: tokEOF, pos: cut})
	}
	s := &parseState{
		input:    clean,
		tokens:   tokens,
		strict:   p.opts.Strict,
		maxDepth: p.opts.MaxDepth,
	}
	root := s.parseQuery()
	if s.err != nil {
		if p.opts.Strict {
			return nil, s.err
		}
		return nil, nil
	}
	if root == nil && p.opts.Strict {
		return nil, newParseError(clean, 0, ErrEmptyQuery)
	}
	return root, nil
}

// Terms returns the individual words of query with the wildcard appended,
// dropping operators, keywords and grouping. Like lenient parsing, it looks
// at no more than MaxTerms tokens.
func (p *Parser) Terms(query string) []string {
	clean := p.Sanitize(query)
	var terms []string
	tokens := p.lex(clean, p.opts.MaxTerms)
	if len(tokens)-1 > p.opts.MaxTerms {
		tokens = tokens[:p.opts.MaxTerms]
	}
	for _, t := range tokens {
		if t.kind == tokWord {
			terms = append(terms, t.text+p.opts.Wildcard)
		}
	}
	return terms
}

// parseState is the cursor of one parse. Errors are recorded only when they
// must abort the parse: anything in strict mode, depth overflow in both.
type parseState struct {
	input    string
	tokens   []token
	pos      int
	strict   bool
	maxDepth int
	err      *ParseError
}

func (s *parseState) peek() token {
	return s.tokens[s.pos]
}

func (s *parseState) next() token {
	t := s.tokens[s.pos]
	if t.kind != tokEOF {
		s.pos++
	}
	return t
}

func (s *parseState) fail(pos int, err error) {
	if s.err == nil {
		s.err = newParseError(s.input, pos, err)
	}
}

func (s *parseState) halted() bool {
	return s.err != nil
}

// parseQuery parses the whole input. The only token that stops parseOr at
// the top level is a ')' without a matching '(' which lenient mode skips.
func (s *parseState) parseQuery() Node {
	var root Node
	for !s.halted() {
		root = joinAnd(root, s.parseOr(0))
		t := s.peek()
		if t.kind == tokEOF || s.halted() {
			break
		}
		if s.strict {
			s.fail(t.pos, ErrUnopened)
			break
		}
		s.next()
	}
	return root
}

func (s *parseState) parseOr(depth int) Node {
	left := s.parseAnd(depth)
	for !s.halted() && s.peek().kind == tokOr {
		for s.peek().kind == tokOr {
			s.next()
		}
		left = joinOr(left, s.parseAnd(depth))
	}
	return left
}

func (s *parseState) parseAnd(depth int) Node {
	var left Node
	for !s.halted() {
		switch s.peek().kind {
		case tokAnd:
			s.next()
		case tokWord, tokNot, tokLParen, tokQuote:
			left = joinAnd(left, s.parseNot(depth))
		default:
			return left
		}
	}
	return left
}

// parseNot applies any run of negations to the following primary. A
// negation with nothing after it is dropped.
func (s *parseState) parseNot(depth int) Node {
	negations := 0
	for s.peek().kind == tokNot {
		s.next()
		negations++
	}
	operand := s.parsePrimary(depth)
	if operand == nil {
		return nil
	}
	for ; negations > 0; negations-- {
		operand = Not{Operand: operand}
	}
	return operand
}

func (s *parseState) parsePrimary(depth int) Node {
	t := s.peek()
	switch t.kind {
	case tokWord:
		s.next()
		return Word{Text: t.text}
	case tokLParen:
		return s.parseGroup(depth)
	case tokQuote:
		return s.parsePhrase()
	}
	return nil
}

func (s *parseState) parseGroup(depth int) Node {
	open := s.next()
	if depth+1 > s.maxDepth {
		s.fail(open.pos, ErrTooDeep)
		return nil
	}
	inner := s.parseOr(depth + 1)
	if s.halted() {
		return nil
	}
	if s.peek().kind == tokRParen {
		s.next()
	} else if s.strict {
		s.fail(open.pos, ErrUnclosed)
		return nil
	}
	if inner == nil {
		if s.strict {
			s.fail(open.pos, ErrEmptyGroup)
		}
		return nil
	}
	return Group{Inner: inner}
}

// parsePhrase reads words up to the closing quote. Keywords lose their
// meaning inside a phrase; negations and parentheses are ignored.
func (s *parseState) parsePhrase() Node {
	open := s.next()
	var words []Word
	for {
		t := s.peek()
		switch t.kind {
		case tokQuote:
			s.next()
			return phraseNode(words)
		case tokEOF:
			if s.strict {
				s.fail(open.pos, ErrUnclosedQuote)
				return nil
			}
			return phraseNode(words)
		case tokWord, tokAnd, tokOr:
			words = append(words, Word{Text: t.text})
		}
		s.next()
	}
}

func phraseNode(words []Word) Node {
	switch len(words) {
	case 0:
		return nil
	case 1:
		return words[0]
	default:
		return Phrase{Words: words}
	}
}

func joinAnd(left, right Node) Node {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return And{Left: left, Right: right}
}

func joinOr(left, right Node) Node {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return Or{Left: left, Right: right}
}
