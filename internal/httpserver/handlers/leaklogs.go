package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	sqlstore "github.com/MrSnakeDoc/leakdesk/internal/store/sql"
)

func LeakLogs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query()
		f := sqlstore.LeakLogFilter{
			Source:  v.Get("source"),
			Type:    v.Get("type"),
			Channel: v.Get("channel"),
		}
		page, err := d.Store.ListLeakLogs(r.Context(), f, queryInt(r, "page", 1), queryInt(r, "limit", domain.DefaultPageSize))
		if err != nil {
			leakLogsFailed(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"results":    page.Results,
			"pagination": page.Pagination,
		})
	}
}

func SearchLeakLogs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("q")
		page, err := d.Store.SearchLeakLogs(r.Context(), term, queryInt(r, "page", 1), queryInt(r, "limit", domain.DefaultPageSize))
		if err != nil {
			leakLogsFailed(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"query":      term,
			"results":    page.Results,
			"pagination": page.Pagination,
		})
	}
}

func LeakLogStats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Store.LeakLogStats(r.Context())
		if err != nil {
			leakLogsFailed(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"total_logs": st.Total,
			"sources":    st.Sources,
			"types":      st.Types,
			"channels":   st.Channels,
		})
	}
}

func leakLogsFailed(w http.ResponseWriter, d deps.Deps, err error) {
	if errors.Is(err, domain.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	d.Logger.Error("leak logs query failed", logger.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error(), nil)
}
