// Package searchquery compiles free-form, user-typed search strings into
// PostgreSQL tsquery text.
//
// A query passes through three stages: Sanitize strips every rune the
// grammar does not understand, the recursive-descent parser builds a small
// AST of Word/Not/And/Or/Group/Phrase nodes, and Render folds the tree into
// a string such as "(star:* & wars:*) | luke:*" that is bound as the
// argument of to_tsquery.
//
// Operator binding, from tightest to loosest: negation, conjunction
// (whitespace or the "and" keyword), disjunction ("or"). Parentheses group.
//
// A Parser is immutable once built and may be shared between goroutines.
package searchquery
