package searchquery

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"", ""},
		{"  star  ", "star"},
		{"star-wars", "star wars"},
		{"-star", "-star"},
		{"--star", "--star"},
		{"a#-b", "a -b"},
		{"!-star", "-star"},
		{"'-star", "-star"},
		{"star--wars", "star wars"},
		{"(-star)", "(-star)"},
		{"star!#", "star"},
		{"()", ""},
		{"!!!", ""},
		{"star\t\nwars", "star wars"},
		{"x!(-a", "x (-a"},
		{"john@example.com", "john example com"},
		{`"star wars"`, "star wars"},
	}
	p := New()
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Sanitize(tt.query), "Sanitize(%q)", tt.query)
	}
}

func TestSanitizeModes(t *testing.T) {
	emails := New(WithEmailsAsTokens(true))
	assert.Equal(t, "john@example.com", emails.Sanitize("  john@example.com "))
	assert.Equal(t, "john example", emails.Sanitize("john@example"))

	phrases := New(WithPhrases(true))
	assert.Equal(t, `-"star wars"`, phrases.Sanitize(`-"star wars"`))
	assert.Equal(t, "", phrases.Sanitize(`"" ""`))
}

var sanitizeAlphabet = []rune("ab é中-()\"@.!#*:&|'\t0")

func randomQuery(rng *rand.Rand) string {
	n := rng.Intn(24)
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = sanitizeAlphabet[rng.Intn(len(sanitizeAlphabet))]
	}
	return string(runes)
}

func TestSanitizeIdempotent(t *testing.T) {
	parsers := map[string]*Parser{
		"default": New(),
		"emails":  New(WithEmailsAsTokens(true)),
		"phrases": New(WithPhrases(true)),
	}
	rng := rand.New(rand.NewSource(42))
	for name, p := range parsers {
		for i := 0; i < 5000; i++ {
			q := randomQuery(rng)
			once := p.Sanitize(q)
			if twice := p.Sanitize(once); twice != once {
				t.Fatalf("%s: Sanitize not idempotent for %q: %q then %q", name, q, once, twice)
			}
		}
	}
}

func TestLenientParseNeverFails(t *testing.T) {
	p := New(WithPhrases(true), WithEmailsAsTokens(true))
	strict := New(WithStrict(true))
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		q := randomQuery(rng)
		if _, err := p.Parse(q); err != nil {
			t.Fatalf("lenient Parse(%q) failed: %v", q, err)
		}
		out, err := strict.Parse(q)
		if err == nil && out == "" {
			t.Fatalf("strict Parse(%q) returned empty output without error", q)
		}
	}
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{"star wars", "(star or wars) -luke", `"a b"`, "((()))", "a@b.com", "--"} {
		f.Add(seed)
	}
	p := New(WithPhrases(true), WithEmailsAsTokens(true))
	f.Fuzz(func(t *testing.T, q string) {
		once := p.Sanitize(q)
		if p.Sanitize(once) != once {
			t.Fatalf("Sanitize not idempotent for %q", q)
		}
		if _, err := p.Parse(q); err != nil {
			t.Fatalf("lenient Parse(%q) failed: %v", q, err)
		}
	})
}
