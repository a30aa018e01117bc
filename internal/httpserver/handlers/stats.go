package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// Stats returns the category breakdown and the totals of the accounts table.
func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		empty := map[string]any{
			"total_accounts": 0,
			"unique_domains": 0,
			"categories":     []domain.CategoryStat{},
		}

		counts, err := d.Store.CategoryCounts(ctx)
		if err != nil {
			d.Logger.Error("category stats failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error(), empty)
			return
		}
		if len(counts) == 0 {
			writeError(w, http.StatusOK, "no data found in the accounts table", empty)
			return
		}

		var total int64
		for _, c := range counts {
			total += c.Count
		}

		totals, err := d.Store.TotalStats(ctx)
		if err != nil {
			d.Logger.Error("total stats failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error(), empty)
			return
		}

		user, _ := auth.CurrentUser(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"total_accounts": totals.TotalAccounts,
			"unique_domains": totals.UniqueDomains,
			"categories":     domain.FormatCategoryStats(counts, total),
			"last_updated":   totals.LastUpdated,
			"user":           user.Name,
		})
	}
}
