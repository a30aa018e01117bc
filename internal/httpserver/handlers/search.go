package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/search"
)

// searchQuery reads q, page, limit and the filters of a search request.
func searchQuery(r *http.Request) domain.QueryRequest {
	v := r.URL.Query()
	return domain.QueryRequest{
		Text:     strings.TrimSpace(v.Get("q")),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "limit", domain.DefaultPageSize),
		Filters: domain.Filters{
			Domain: v.Get("domain"),
			Region: v.Get("region"),
			Source: v.Get("source"),
		},
	}
}

// Search answers from the upstream API and falls back to the database.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := searchQuery(r)
		user, _ := auth.CurrentUser(r)

		resp, err := d.Search.Search(r.Context(), q)
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		case search.IsUnavailable(err):
			d.Logger.Error("search unavailable",
				logger.String("query", q.Text),
				logger.String("user", user.Username),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error(),
				map[string]any{"data_source": domain.DataSourceFallbackErr})
			return
		case err != nil:
			d.Logger.Warn("search aborted",
				logger.String("query", q.Text),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error(),
				map[string]any{"data_source": domain.DataSourceError})
			return
		}

		d.Logger.Info("search served",
			logger.String("query", q.Text),
			logger.String("user", user.Username),
			logger.String("provenance", string(resp.Provenance)),
			logger.Int("results", len(resp.Results)))
		writeJSON(w, http.StatusOK, resp)
	}
}
