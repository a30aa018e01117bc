package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	NotAvailable    = "N/A"
	DefaultRegion   = "Unknown"
	DefaultSource   = "TXT"
	DefaultCategory = "uncategorized"

	isoLayout = "2006-01-02T15:04:05"
)

// RawRecord is a row as returned by the store or the upstream API.
type RawRecord map[string]any

// FormattedResult is the single output shape of a search hit, whatever its origin.
type FormattedResult struct {
	ID       int64   `json:"id"`
	Domain   string  `json:"domain"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Region   string  `json:"region"`
	Source   string  `json:"source"`
	Category string  `json:"category"`
	SPID     *string `json:"spid"`
	Date     *string `json:"date"`
}

// SPID derives the public reference of a record. Only ids divisible by 3 get one.
func SPID(id int64) *string {
	if id%3 != 0 {
		return nil
	}
	s := "SP" + strconv.FormatInt(1000+id, 10)
	return &s
}

// FormatResults maps raw rows to FormattedResult, preserving order. When a
// catalog is given, identifier and secret scans only look at its columns.
func FormatResults(records []RawRecord, catalog *ColumnCatalog) []FormattedResult {
	idCols, secretCols := IdentifierColumns, SecretColumns
	if catalog != nil {
		idCols = catalog.Restrict(IdentifierColumns)
		secretCols = catalog.Restrict(SecretColumns)
	}

	out := make([]FormattedResult, 0, len(records))
	for _, rec := range records {
		out = append(out, formatRecord(rec, idCols, secretCols))
	}
	return out
}

func formatRecord(rec RawRecord, idCols, secretCols []string) FormattedResult {
	id := toInt64(rec["id"])
	res := FormattedResult{
		ID:       id,
		Domain:   stringOr(rec["domain"], ""),
		Username: firstNonEmpty(rec, idCols, NotAvailable),
		Password: firstNonEmpty(rec, secretCols, NotAvailable),
		Region:   stringOr(rec["region"], DefaultRegion),
		Source:   stringOr(rec["source"], DefaultSource),
		Category: stringOr(rec["category"], DefaultCategory),
		SPID:     SPID(id),
	}
	for _, col := range FormatDateColumns {
		if d := DateValue(rec[col]); d != nil {
			res.Date = d
			break
		}
	}
	return res
}

// DateValue renders a date column as ISO-8601 text, or nil when empty.
func DateValue(v any) *string {
	if isEmpty(v) {
		return nil
	}
	d := formatDate(v)
	return &d
}

func firstNonEmpty(rec RawRecord, cols []string, def string) string {
	for _, col := range cols {
		if v, ok := rec[col]; ok && !isEmpty(v) {
			return toString(v)
		}
	}
	return def
}

func stringOr(v any, def string) string {
	if isEmpty(v) {
		return def
	}
	return toString(v)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []byte:
		return len(t) == 0
	case time.Time:
		return t.IsZero()
	case *time.Time:
		return t == nil || t.IsZero()
	}
	return false
}

// DisplayValue renders a column value the way results show it.
func DisplayValue(v any) string {
	if v == nil {
		return ""
	}
	return toString(v)
}

// IntValue reads an integer out of a driver or JSON value. Unknown values give 0.
func IntValue(v any) int64 { return toInt64(v) }

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(isoLayout)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(isoLayout)
	case *time.Time:
		return t.Format(isoLayout)
	}
	return toString(v)
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return int64(t)
	case float64:
		return int64(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return int64(f)
	case []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	}
	return 0
}
