package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MinQueryLength is the minimum number of runes a search text must have.
	MinQueryLength = 2

	// DefaultPageSize applies when the caller gives no usable page size.
	DefaultPageSize = 20

	// MaxPageSize caps every page size regardless of caller input.
	MaxPageSize = 100
)

// Filters are optional constraints applied on top of the free-text match.
// Empty values are ignored.
type Filters struct {
	Domain string
	Region string
	Source string
}

// Params returns the non-empty filters keyed by their wire name.
func (f Filters) Params() map[string]string {
	out := make(map[string]string, 3)
	if f.Domain != "" {
		out["domain"] = f.Domain
	}
	if f.Region != "" {
		out["region"] = f.Region
	}
	if f.Source != "" {
		out["source"] = f.Source
	}
	return out
}

// QueryRequest is a single search as issued by a caller.
type QueryRequest struct {
	Text     string
	Page     int
	PageSize int
	Filters  Filters
}

// Normalize trims the text and clamps paging values into range.
func (q QueryRequest) Normalize() QueryRequest {
	q.Text = strings.TrimSpace(q.Text)
	q.Filters.Domain = strings.TrimSpace(q.Filters.Domain)
	q.Filters.Region = strings.TrimSpace(q.Filters.Region)
	q.Filters.Source = strings.TrimSpace(q.Filters.Source)
	q.Page = ClampPage(q.Page)
	q.PageSize = ClampPageSize(q.PageSize)
	return q
}

// Validate reports ErrValidation when the search text is too short.
func (q QueryRequest) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(q.Text)) < MinQueryLength {
		return fmt.Errorf("%w: search text must be at least %d characters", ErrValidation, MinQueryLength)
	}
	return nil
}

// ClampPage maps any page below 1 to 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampPageSize maps non-positive sizes to DefaultPageSize and caps at MaxPageSize.
func ClampPageSize(size int) int {
	switch {
	case size < 1:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}
