package remote

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

// Upstream inventory API paths.
const (
	PathSearch   = "/api/search"
	PathAccounts = "/api/accounts"
	PathStats    = "/api/stats"
	PathHealth   = "/api/health"
)

// Payload is an upstream JSON object relayed as-is. Numbers are kept as
// json.Number so they are re-encoded unchanged.
type Payload map[string]any

// SearchAccounts runs a free-text search upstream.
func (c *Client) SearchAccounts(ctx context.Context, q domain.QueryRequest) (*domain.SearchResponse, error) {
	params := q.Filters.Params()
	params["q"] = q.Text
	params["page"] = strconv.Itoa(q.Page)
	params["limit"] = strconv.Itoa(q.PageSize)

	var body searchBody
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: PathSearch, Params: params}, &body); err != nil {
		return nil, err
	}
	return domain.FromUpstream(body, q.Page, q.PageSize), nil
}

// searchBody is an upstream search answer kept as decoded. Only the
// presence of a results array is checked.
type searchBody map[string]any

var errNoResults = errors.New("response has no results array")

func (b searchBody) Validate() error {
	if _, ok := domain.UpstreamResults(b); !ok {
		return errNoResults
	}
	return nil
}

// GetAccounts lists accounts page by page.
func (c *Client) GetAccounts(ctx context.Context, page, limit int, f domain.Filters) (Payload, error) {
	params := f.Params()
	params["page"] = strconv.Itoa(page)
	params["limit"] = strconv.Itoa(limit)
	return c.get(ctx, PathAccounts, params)
}

// GetAccount fetches one account by id.
func (c *Client) GetAccount(ctx context.Context, id int64) (Payload, error) {
	return c.get(ctx, PathAccounts+"/"+strconv.FormatInt(id, 10), nil)
}

func (c *Client) GetStatistics(ctx context.Context) (Payload, error) {
	return c.get(ctx, PathStats, nil)
}

func (c *Client) Health(ctx context.Context) (Payload, error) {
	return c.get(ctx, PathHealth, nil)
}

func (c *Client) get(ctx context.Context, path string, params map[string]string) (Payload, error) {
	var out Payload
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Params: params}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
