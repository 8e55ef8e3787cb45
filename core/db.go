package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings keeps the orderings whose field is allowed, mapping API names to column names.
func FilterOrderings(ordering []DBOrdering, allowed map[string]string) []DBOrdering {
	kept := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := allowed[strings.TrimSpace(ord.Field)]; ok {
			kept = append(kept, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return kept
}

// OrderByClause renders orderings for an SQL ORDER BY, falling back to `def` when there are none.
func OrderByClause(ordering []DBOrdering, def string) string {
	if len(ordering) == 0 {
		return def
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}
