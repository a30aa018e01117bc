package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// FallbackWarning is attached to every response served from the backing store.
const FallbackWarning = "upstream API failed, results were served from the database"

// RemoteSearcher queries the upstream inventory API.
type RemoteSearcher interface {
	SearchAccounts(ctx context.Context, q domain.QueryRequest) (*domain.SearchResponse, error)
}

// LocalSearcher queries the backing store.
type LocalSearcher interface {
	SearchAccounts(ctx context.Context, q domain.QueryRequest) (*domain.LocalResult, error)
}

// UnavailableError is returned when both the upstream API and the backing
// store failed. It matches domain.ErrSearchUnavailable.
type UnavailableError struct {
	Remote error
	Local  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("search unavailable: remote: %v; local: %v", e.Remote, e.Local)
}

func (e *UnavailableError) Is(target error) bool { return target == domain.ErrSearchUnavailable }

func (e *UnavailableError) Unwrap() []error { return []error{e.Remote, e.Local} }

// Orchestrator tries the upstream API first and falls back to the backing
// store, returning the same response shape either way.
type Orchestrator struct {
	remote RemoteSearcher
	local  LocalSearcher
	log    logger.Logger
}

func New(remote RemoteSearcher, local LocalSearcher, log logger.Logger) *Orchestrator {
	return &Orchestrator{remote: remote, local: local, log: log}
}

// Search validates q, then answers it from the upstream API or the backing store.
func (o *Orchestrator) Search(ctx context.Context, q domain.QueryRequest) (*domain.SearchResponse, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	o.log.Info("search started", logger.String("query", q.Text), logger.Int("page", q.Page))

	resp, remoteErr := o.remote.SearchAccounts(ctx, q)
	if remoteErr == nil {
		o.log.Info("search served by upstream",
			logger.String("query", q.Text),
			logger.Int("results", len(resp.Results)))
		return annotateRemote(resp, q), nil
	}

	// The caller gave up: there is nobody to fall back for.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	o.log.Warn("upstream search failed, falling back to database",
		logger.String("query", q.Text),
		logger.Error(remoteErr))

	local, localErr := o.local.SearchAccounts(ctx, q)
	if localErr != nil {
		o.log.Error("fallback search failed",
			logger.String("query", q.Text),
			logger.Error(localErr))
		return nil, &UnavailableError{Remote: remoteErr, Local: localErr}
	}

	resp = BuildFallback(q, local)
	o.log.Info("search served by fallback",
		logger.String("query", q.Text),
		logger.Int("results", len(resp.Results)),
		logger.Int("total", local.Total))
	return resp, nil
}

// BuildFallback formats a local result into a SearchResponse.
func BuildFallback(q domain.QueryRequest, local *domain.LocalResult) *domain.SearchResponse {
	results := domain.FormatResults(local.Rows, &local.Catalog)
	return &domain.SearchResponse{
		Success:    true,
		Results:    results,
		Pagination: domain.NewPagination(q.Page, q.PageSize, local.Total),
		Provenance: domain.ProvenanceFallback,
		Summary:    summarize(q.Text, results),
		Debug: map[string]any{
			"data_source":       domain.DataSourceFallbackDB,
			"warning":           FallbackWarning,
			"search_columns":    local.SearchColumns,
			"available_columns": local.Catalog.Columns,
			"query":             q.Text,
		},
	}
}

func annotateRemote(resp *domain.SearchResponse, q domain.QueryRequest) *domain.SearchResponse {
	if resp.Provenance == "" {
		resp.Provenance = domain.ProvenanceRemote
	}
	if resp.Debug == nil {
		resp.Debug = map[string]any{}
	}
	if _, ok := resp.Debug["data_source"]; !ok {
		resp.Debug["data_source"] = domain.DataSourceExternalAPI
		resp.Debug["query"] = q.Text
	}
	resp.Success = true
	return resp
}

func summarize(query string, results []domain.FormattedResult) *domain.Summary {
	needle := strings.ToLower(query)
	exact := 0
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Domain), needle) {
			exact++
		}
	}
	return &domain.Summary{ExactMatches: exact, PartialMatches: len(results)}
}

// IsUnavailable reports whether err means no data source could answer.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrSearchUnavailable)
}
