// Package search turns user search strings into parameterised PostgreSQL
// full-text queries against configured targets and executes them.
//
// A target is a table with a tsvector column. The compiled query text is
// always sent as a bound parameter of to_tsquery; table, column and vector
// identifiers come from configuration and are quoted.
package search
