package domain

import (
	"encoding/json"
	"maps"
)

// Provenance tells where the data of a response came from.
type Provenance string

const (
	ProvenanceRemote   Provenance = "remote"
	ProvenanceFallback Provenance = "fallback"
)

// Values of Debug["data_source"].
const (
	DataSourceExternalAPI = "external_api"
	DataSourceFallbackDB  = "fallback_database"
	DataSourceError       = "error"
	DataSourceFallbackErr = "fallback_failed"
)

// Summary counts hits whose domain contains the query and all hits on the page.
type Summary struct {
	ExactMatches   int `json:"exact_matches"`
	PartialMatches int `json:"partial_matches"`
}

// SearchResponse is returned to callers whether the data came from the
// upstream API or from the backing store.
//
// Upstream holds the body returned by the upstream API. When set, it is what
// gets encoded, with only provenance and debug added, and the typed fields
// are a read-only view of it for callers that render results themselves.
type SearchResponse struct {
	Success    bool              `json:"success"`
	Results    []FormattedResult `json:"results"`
	Pagination Pagination        `json:"pagination"`
	Provenance Provenance        `json:"provenance"`
	Summary    *Summary          `json:"summary,omitempty"`
	Debug      map[string]any    `json:"debug,omitempty"`
	Upstream   map[string]any    `json:"-"`
}

func (r SearchResponse) MarshalJSON() ([]byte, error) {
	if r.Upstream == nil {
		type plain SearchResponse
		return json.Marshal(plain(r))
	}
	out := maps.Clone(r.Upstream)
	out["provenance"] = r.Provenance
	if r.Debug != nil {
		out["debug"] = r.Debug
	}
	return json.Marshal(out)
}

// UpstreamResults returns the results array of an upstream search body.
func UpstreamResults(body map[string]any) ([]any, bool) {
	results, ok := body["results"].([]any)
	return results, ok
}

// FromUpstream wraps an upstream search body. Results that are not JSON
// objects are left out of the typed view, and pagination missing from the
// body is derived from the requested page and size.
func FromUpstream(body map[string]any, page, size int) *SearchResponse {
	raw, _ := UpstreamResults(body)
	rows := make([]RawRecord, 0, len(raw))
	for _, item := range raw {
		if rec, ok := item.(map[string]any); ok {
			rows = append(rows, RawRecord(rec))
		}
	}

	resp := &SearchResponse{
		Success:    true,
		Results:    FormatResults(rows, nil),
		Pagination: upstreamPagination(body, page, size, len(raw)),
		Upstream:   body,
	}
	if ok, isBool := body["success"].(bool); isBool {
		resp.Success = ok
	}
	if debug, ok := body["debug"].(map[string]any); ok {
		resp.Debug = debug
	}
	return resp
}

// upstreamPagination reads page metadata from a "pagination" object or from
// top-level keys.
func upstreamPagination(body map[string]any, page, size, count int) Pagination {
	src := body
	if p, ok := body["pagination"].(map[string]any); ok {
		src = p
	}

	total := count
	if v, ok := src["total"]; ok {
		total = int(toInt64(v))
	}
	pg := NewPagination(page, size, total)
	if v, ok := src["page"]; ok {
		pg.Page = int(toInt64(v))
	}
	if v, ok := src["pages"]; ok {
		pg.Pages = int(toInt64(v))
	}
	pg.HasNext = pg.Page < pg.Pages
	pg.HasPrev = pg.Page > 1
	if v, ok := src["has_next"].(bool); ok {
		pg.HasNext = v
	}
	if v, ok := src["has_prev"].(bool); ok {
		pg.HasPrev = v
	}
	return pg
}

// LocalResult is what the backing store returns for a search.
type LocalResult struct {
	Rows          []RawRecord
	Total         int
	Catalog       ColumnCatalog
	SearchColumns []string
}
