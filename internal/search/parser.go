package search

import (
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/searchquery"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/config"
)

// ParserFromConfig builds the query parser described by the search section
// of the configuration.
func ParserFromConfig(cfg config.SearchConfig) *searchquery.Parser {
	var negation rune
	if cfg.Negation != "" {
		negation, _ = utf8.DecodeRuneInString(cfg.Negation)
	}
	return searchquery.New(
		searchquery.WithWildcard(cfg.Wildcard),
		searchquery.WithEmailsAsTokens(cfg.EmailsAsTokens),
		searchquery.WithStrict(cfg.Strict),
		searchquery.WithPhrases(cfg.Phrases),
		searchquery.WithNegation(negation),
		searchquery.WithKeywords(cfg.AndKeyword, cfg.OrKeyword),
		searchquery.WithMaxDepth(cfg.MaxDepth),
		searchquery.WithMaxTerms(cfg.MaxTerms),
	)
}
