package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/config"
	"github.com/lib/pq"
)

// DefaultVector is the tsvector column name used when a target omits one.
const DefaultVector = "search_vector"

// Target is a searchable table.
type Target struct {
	Name      string   `json:"name"`
	Schema    string   `json:"schema,omitempty"`
	Table     string   `json:"table"`
	Vector    string   `json:"vector"`
	Regconfig string   `json:"regconfig"`
	Columns   []string `json:"columns,omitempty"`
}

// Relation returns the quoted, optionally schema-qualified table name.
func (t Target) Relation() string {
	if t.Schema == "" {
		return pq.QuoteIdentifier(t.Table)
	}
	return pq.QuoteIdentifier(t.Schema) + "." + pq.QuoteIdentifier(t.Table)
}

// VectorColumn returns the quoted tsvector column.
func (t Target) VectorColumn() string {
	return pq.QuoteIdentifier(t.Vector)
}

// SelectList returns the quoted projection, or * when no columns are set.
func (t Target) SelectList() string {
	if len(t.Columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// Targets is the set of configured targets keyed by name.
type Targets map[string]Target

// TargetsFromConfig resolves per-target defaults against the search section.
func TargetsFromConfig(cfg config.SearchConfig) (Targets, error) {
	targets := make(Targets, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		if _, dup := targets[tc.Name]; dup {
			return nil, fmt.Errorf("duplicate search target %q", tc.Name)
		}
		t := Target{
			Name:      tc.Name,
			Schema:    tc.Schema,
			Table:     tc.Table,
			Vector:    tc.Vector,
			Regconfig: tc.Regconfig,
			Columns:   append([]string(nil), tc.Columns...),
		}
		if t.Vector == "" {
			t.Vector = DefaultVector
		}
		if t.Regconfig == "" {
			t.Regconfig = cfg.Regconfig
		}
		targets[t.Name] = t
	}
	return targets, nil
}

// Names returns target names in sorted order.
func (ts Targets) Names() []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
