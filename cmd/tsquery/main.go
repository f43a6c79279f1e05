// Command tsquery compiles search strings into PostgreSQL tsquery text.
// Queries come from the arguments, or one per line on stdin when there are
// none.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/searchquery"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tsquery", flag.ContinueOnError)
	fs.SetOutput(stderr)
	wildcard := fs.String("wildcard", searchquery.DefaultWildcard, "suffix appended to every word (empty for none)")
	emails := fs.Bool("emails", false, "keep e-mail addresses as single tokens")
	strict := fs.Bool("strict", false, "reject malformed queries instead of repairing them")
	phrases := fs.Bool("phrases", false, `compile "quoted words" into <-> phrase queries`)
	negation := fs.String("negation", "-", "prefix character for exclusion")
	sanitize := fs.Bool("sanitize", false, "print the sanitized query instead of the compiled one")
	maxTerms := fs.Int("max-terms", searchquery.DefaultMaxTerms, "most words, operators and parentheses read per query")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if utf8.RuneCountInString(*negation) != 1 {
		fmt.Fprintf(stderr, "tsquery: -negation must be a single character\n")
		return 2
	}
	neg, _ := utf8.DecodeRuneInString(*negation)

	parser := searchquery.New(
		searchquery.WithWildcard(*wildcard),
		searchquery.WithEmailsAsTokens(*emails),
		searchquery.WithStrict(*strict),
		searchquery.WithPhrases(*phrases),
		searchquery.WithNegation(neg),
		searchquery.WithMaxTerms(*maxTerms),
	)

	status := 0
	compile := func(query string) {
		if *sanitize {
			fmt.Fprintln(stdout, parser.Sanitize(query))
			return
		}
		out, err := parser.Parse(query)
		if err != nil {
			fmt.Fprintf(stderr, "tsquery: %v\n", err)
			status = 1
			return
		}
		fmt.Fprintln(stdout, out)
	}

	if fs.NArg() > 0 {
		compile(strings.Join(fs.Args(), " "))
		return status
	}
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		compile(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "tsquery: reading input: %v\n", err)
		return 1
	}
	return status
}
