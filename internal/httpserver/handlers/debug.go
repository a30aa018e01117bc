package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// DebugTable describes the accounts table layout for operators.
func DebugTable(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := d.Store.DebugTable(r.Context())
		if err != nil {
			d.Logger.Error("debug table failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error(), map[string]any{"table": info.Table})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"table":          info.Table,
			"driver":         info.Driver,
			"columns":        info.Columns,
			"search_columns": info.SearchColumns,
			"order_column":   info.OrderColumn,
			"sample_data":    info.Sample,
			"total_count":    info.Total,
			"sample_domains": info.SampleDomains,
		})
	}
}
