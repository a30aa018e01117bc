package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/mw"
)

func init() { Register("api", registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger), auth.RequireAuth)

		r.Get("/search", handlers.Search(d))
		r.Get("/stats", handlers.Stats(d))
		r.Get("/user", handlers.User(d))
		r.Get("/config", handlers.Config(d))

		r.Route("/proxy", func(r chi.Router) {
			r.Get("/search", handlers.ProxySearch(d))
			r.Get("/accounts", handlers.ProxyAccounts(d))
			r.Get("/account/{id}", handlers.ProxyAccount(d))
			r.Get("/statistics", handlers.ProxyStatistics(d))
			r.Get("/health", handlers.ProxyHealth(d))
		})

		r.Route("/leak-logs", func(r chi.Router) {
			r.Get("/", handlers.LeakLogs(d))
			r.Get("/search", handlers.SearchLeakLogs(d))
			r.Get("/stats", handlers.LeakLogStats(d))
		})
	})
}
