package sqlstore

import (
	"database/sql"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

// scanRecords reads every row into a RawRecord keyed by column name.
// []byte values are copied into strings so records can be encoded as JSON.
func scanRecords(rows *sql.Rows) ([]domain.RawRecord, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawRecord, 0, 16)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(domain.RawRecord, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GroupCount is one bucket of a GROUP BY.
type GroupCount struct {
	Key        string  `json:"key"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage,omitempty"`
}

func scanGroups(rows *sql.Rows) ([]GroupCount, error) {
	out := make([]GroupCount, 0, 16)
	for rows.Next() {
		var (
			key   any
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out = append(out, GroupCount{Key: dayOrString(key), Count: count})
	}
	return out, rows.Err()
}

// dayOrString renders DATE values as YYYY-MM-DD and anything else as text.
func dayOrString(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return domain.DisplayValue(v)
}

func withPercentages(groups []GroupCount, total int64) []GroupCount {
	for i := range groups {
		groups[i].Percentage = domain.Percentage(groups[i].Count, total)
	}
	return groups
}
