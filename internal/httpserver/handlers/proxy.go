package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// The proxy endpoints relay the upstream API without any fallback.

func ProxySearch(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := searchQuery(r).Normalize()
		if err := q.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		resp, err := d.Upstream.SearchAccounts(r.Context(), q)
		if err != nil {
			proxyFailed(w, d, "search", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func ProxyAccounts(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query()
		page := domain.ClampPage(queryInt(r, "page", 1))
		limit := domain.ClampPageSize(queryInt(r, "limit", 10))
		f := domain.Filters{Domain: v.Get("domain"), Region: v.Get("region"), Source: v.Get("source")}

		out, err := d.Upstream.GetAccounts(r.Context(), page, limit, f)
		if err != nil {
			proxyFailed(w, d, "accounts", err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func ProxyAccount(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id < 0 {
			writeError(w, http.StatusBadRequest, "account id must be a non-negative integer", nil)
			return
		}
		out, err := d.Upstream.GetAccount(r.Context(), id)
		if err != nil {
			proxyFailed(w, d, "account", err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func ProxyStatistics(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Upstream.GetStatistics(r.Context())
		if err != nil {
			proxyFailed(w, d, "statistics", err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func ProxyHealth(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Upstream.Health(r.Context())
		if err != nil {
			proxyFailed(w, d, "health", err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func proxyFailed(w http.ResponseWriter, d deps.Deps, what string, err error) {
	d.Logger.Error("upstream proxy call failed",
		logger.String("endpoint", what),
		logger.Error(err))
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrValidation) {
		status = http.StatusBadRequest
	}
	writeError(w, status, err.Error(), nil)
}
