package schema

import (
	"fmt"
	"strings"

	"github.com/aster-analytics/olistload/pkg/olist"
)

// Order returns the tables so that every table follows its dependencies.
// Among tables whose dependencies are satisfied, declaration order wins, so
// the result is stable. A reference to an unknown table or a cycle is a
// structural error.
func (c *Catalog) Order() ([]Table, error) {
	index := make(map[string]int, len(c.tables))
	for i, t := range c.tables {
		if _, dup := index[t.Name]; dup {
			return nil, fmt.Errorf("table %q declared twice: %w", t.Name, olist.ErrStructural)
		}
		index[t.Name] = i
	}

	pending := make([]int, len(c.tables))
	dependents := make([][]int, len(c.tables))
	for i, t := range c.tables {
		for _, dep := range t.Dependencies() {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("table %q depends on unknown table %q: %w", t.Name, dep, olist.ErrStructural)
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	ordered := make([]Table, 0, len(c.tables))
	done := make([]bool, len(c.tables))
	for len(ordered) < len(c.tables) {
		next := -1
		for i := range c.tables {
			if !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, t := range c.tables {
				if !done[i] {
					stuck = append(stuck, t.Name)
				}
			}
			return nil, fmt.Errorf("dependency cycle among tables %s: %w", strings.Join(stuck, ", "), olist.ErrStructural)
		}

		done[next] = true
		ordered = append(ordered, c.tables[next])
		for _, d := range dependents[next] {
			pending[d]--
		}
	}

	return ordered, nil
}
