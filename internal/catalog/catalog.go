package catalog

import (
	"fmt"
	"strings"

	"markethealth/lib/textutil"
)

// Query is a saved screener query, immutable once loaded.
type Query struct {
	Label string `json:"label"`
	Query string `json:"query"`
	Icon  string `json:"icon"`
}

// Catalog is an ordered list of queries with unique labels.
type Catalog struct {
	queries []Query
}

func New(queries []Query) (Catalog, error) {
	if len(queries) == 0 {
		return Catalog{}, fmt.Errorf("catalog: no queries")
	}

	seen := map[string]struct{}{}
	out := make([]Query, len(queries))
	for i, q := range queries {
		q.Label = strings.TrimSpace(q.Label)
		q.Query = strings.TrimSpace(q.Query)
		if q.Label == "" {
			return Catalog{}, fmt.Errorf("catalog: query %d has no label", i)
		}
		if q.Query == "" {
			return Catalog{}, fmt.Errorf("catalog: query %q is empty", q.Label)
		}
		key := textutil.NormalizeName(q.Label)
		if _, ok := seen[key]; ok {
			return Catalog{}, fmt.Errorf("catalog: duplicate label %q", q.Label)
		}
		seen[key] = struct{}{}
		out[i] = q
	}
	return Catalog{queries: out}, nil
}

// Default returns the built-in catalog.
func Default() Catalog {
	c, err := New(Defaults)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Catalog) Len() int {
	return len(c.queries)
}

// Queries returns a copy of the queries in order.
func (c Catalog) Queries() []Query {
	out := make([]Query, len(c.queries))
	copy(out, c.queries)
	return out
}

// Select returns a catalog of the queries with the given labels (case
// insensitive, whitespace is normalized), in catalog order.
func (c Catalog) Select(labels ...string) (Catalog, error) {
	wanted := map[string]bool{}
	for _, l := range labels {
		wanted[textutil.NormalizeName(l)] = false
	}

	var selected []Query
	for _, q := range c.queries {
		key := textutil.NormalizeName(q.Label)
		if _, ok := wanted[key]; ok {
			wanted[key] = true
			selected = append(selected, q)
		}
	}
	for l, found := range wanted {
		if !found {
			return Catalog{}, fmt.Errorf("catalog: unknown query %q", l)
		}
	}
	return New(selected)
}
