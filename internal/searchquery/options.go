package searchquery

// DefaultWildcard is the PostgreSQL prefix-match marker.
const DefaultWildcard = ":*"

// DefaultMaxDepth bounds parenthesis nesting so adversarial input cannot
// exhaust the stack.
const DefaultMaxDepth = 32

// DefaultMaxTerms bounds the number of tokens a query may hold.
const DefaultMaxTerms = 256

// Options is the immutable configuration of a Parser.
type Options struct {
	// Wildcard is appended to every word. The empty string disables it.
	Wildcard string
	// EmailsAsTokens keeps e-mail literals such as john@example.com whole
	// instead of splitting them on '@' and '.'.
	EmailsAsTokens bool
	// Strict makes malformed or empty input a *ParseError instead of "".
	Strict bool
	// Negation is the prefix rune of the unary NOT operator.
	Negation rune
	// AndKeyword and OrKeyword are matched case-insensitively against whole
	// tokens.
	AndKeyword string
	OrKeyword  string
	// Phrases enables double-quoted phrase search rendered with the <->
	// followed-by operator.
	Phrases bool
	// MaxDepth is the deepest parenthesis nesting accepted.
	MaxDepth int
	// MaxTerms caps the words, operators and parentheses of a query. Strict
	// mode rejects longer queries; lenient mode ignores everything past it.
	MaxTerms int
}

// DefaultOptions returns the options used when New is called without any.
func DefaultOptions() Options {
	return Options{
		Wildcard:   DefaultWildcard,
		Negation:   '-',
		AndKeyword: "and",
		OrKeyword:  "or",
		MaxDepth:   DefaultMaxDepth,
		MaxTerms:   DefaultMaxTerms,
	}
}

// Option mutates Options during construction only.
type Option func(*Options)

func WithWildcard(wildcard string) Option {
	return func(o *Options) { o.Wildcard = wildcard }
}

func WithEmailsAsTokens(enabled bool) Option {
	return func(o *Options) { o.EmailsAsTokens = enabled }
}

func WithStrict(strict bool) Option {
	return func(o *Options) { o.Strict = strict }
}

func WithNegation(r rune) Option {
	return func(o *Options) { o.Negation = r }
}

// WithKeywords overrides the conjunction and disjunction keywords. Empty
// values keep the current keyword.
func WithKeywords(and, or string) Option {
	return func(o *Options) {
		if and != "" {
			o.AndKeyword = and
		}
		if or != "" {
			o.OrKeyword = or
		}
	}
}

func WithPhrases(enabled bool) Option {
	return func(o *Options) { o.Phrases = enabled }
}

func WithMaxDepth(depth int) Option {
	return func(o *Options) { o.MaxDepth = depth }
}

func WithMaxTerms(n int) Option {
	return func(o *Options) { o.MaxTerms = n }
}

// normalize repairs values that would make the grammar ambiguous.
func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.Negation == 0 || isWordRune(o.Negation) || isStructural(o.Negation) || isSpace(o.Negation) {
		o.Negation = def.Negation
	}
	if o.AndKeyword == "" {
		o.AndKeyword = def.AndKeyword
	}
	if o.OrKeyword == "" {
		o.OrKeyword = def.OrKeyword
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.MaxTerms <= 0 {
		o.MaxTerms = def.MaxTerms
	}
	return o
}
