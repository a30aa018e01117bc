package domain

// Candidate lists, scanned in order. The first column present wins.
var (
	IdentifierColumns = []string{"username", "user", "email", "login", "user_name", "account"}
	SecretColumns     = []string{"password", "pass", "pwd", "passwd", "secret"}
	DateColumns       = []string{"fetch_date", "created_at", "date_added", "timestamp", "date", "created"}

	// FormatDateColumns is the shorter list the formatter reads a display date from.
	FormatDateColumns = []string{"fetch_date", "created_at", "date_added"}
)

// ColumnCatalog is the ordered set of columns found in a backing table.
// It is computed once per search (or cached) and shared by the query builder
// and the formatter so both use the same column choice.
type ColumnCatalog struct {
	Table   string
	Columns []string

	set map[string]struct{}
}

// NewColumnCatalog keeps the discovery order of columns and drops duplicates.
func NewColumnCatalog(table string, columns []string) ColumnCatalog {
	c := ColumnCatalog{
		Table:   table,
		Columns: make([]string, 0, len(columns)),
		set:     make(map[string]struct{}, len(columns)),
	}
	for _, col := range columns {
		if col == "" {
			continue
		}
		if _, dup := c.set[col]; dup {
			continue
		}
		c.set[col] = struct{}{}
		c.Columns = append(c.Columns, col)
	}
	return c
}

func (c ColumnCatalog) Empty() bool { return len(c.Columns) == 0 }

// Has reports whether col exists in the table.
func (c ColumnCatalog) Has(col string) bool {
	if c.set == nil {
		for _, existing := range c.Columns {
			if existing == col {
				return true
			}
		}
		return false
	}
	_, ok := c.set[col]
	return ok
}

// FirstOf returns the first candidate present in the catalog.
func (c ColumnCatalog) FirstOf(candidates []string) (string, bool) {
	for _, col := range candidates {
		if c.Has(col) {
			return col, true
		}
	}
	return "", false
}

// SearchColumns lists the columns a free-text term is matched against:
// domain when present, then the first identifier and the first secret column.
func (c ColumnCatalog) SearchColumns() []string {
	cols := make([]string, 0, 3)
	if c.Has("domain") {
		cols = append(cols, "domain")
	}
	if col, ok := c.FirstOf(IdentifierColumns); ok {
		cols = append(cols, col)
	}
	if col, ok := c.FirstOf(SecretColumns); ok {
		cols = append(cols, col)
	}
	return cols
}

// OrderColumn is the first date candidate, or the first column of the table.
func (c ColumnCatalog) OrderColumn() string {
	if col, ok := c.FirstOf(DateColumns); ok {
		return col
	}
	if len(c.Columns) > 0 {
		return c.Columns[0]
	}
	return ""
}

// Restrict keeps only the candidates present in the catalog. An empty
// catalog restricts nothing.
func (c ColumnCatalog) Restrict(candidates []string) []string {
	if c.Empty() {
		return candidates
	}
	out := make([]string, 0, len(candidates))
	for _, col := range candidates {
		if c.Has(col) {
			out = append(out, col)
		}
	}
	return out
}
