package sqlstore

import "strings"

// query accumulates WHERE conditions and their bound arguments.
// Only identifiers that went through dialect.quote end up in the SQL text.
type query struct {
	d     dialect
	conds []string
	args  []any
}

func newQuery(d dialect) *query { return &query{d: d} }

// bind appends v to the argument list and returns its placeholder.
func (q *query) bind(v any) string {
	q.args = append(q.args, v)
	return q.d.placeholder(len(q.args))
}

func (q *query) where(cond string) { q.conds = append(q.conds, cond) }

// contains adds a case-insensitive substring match on col.
func (q *query) contains(col, term string) string {
	return q.d.quote(col) + " " + q.d.like + " " + q.bind("%"+term+"%")
}

// anyContains ORs a substring match over every column.
func (q *query) anyContains(cols []string, term string) {
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, q.contains(col, term))
	}
	q.where("(" + strings.Join(parts, " OR ") + ")")
}

func (q *query) equals(col string, v any) {
	q.where(q.d.quote(col) + " = " + q.bind(v))
}

func (q *query) whereSQL() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders bound to size and offset.
func (q *query) page(size, offset int) string {
	return " LIMIT " + q.bind(size) + " OFFSET " + q.bind(offset)
}

// countArgs returns a copy of the arguments bound so far, for a COUNT query
// sharing the same WHERE clause.
func (q *query) countArgs() []any {
	return append([]any(nil), q.args...)
}

