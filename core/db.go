package core

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

// OrderingClause maps requested orderings to columns through `columns` (field -> column),
// dropping unknown fields, and falls back to `dflt` when nothing is left.
func OrderingClause(orderings []DBOrdering, columns map[string]string, dflt string) string {
	clause := ""
	for _, ord := range orderings {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		if clause != "" {
			clause += ", "
		}
		clause += DBOrdering{Field: col, Ascending: ord.Ascending}.String()
	}
	if clause == "" {
		return dflt
	}
	return clause
}
