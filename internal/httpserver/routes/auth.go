package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/mw"
)

func init() { Register("auth", registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Name:              "login",
		Burst:             d.LoginBurst,
		RefillPerIPPerMin: d.LoginRefillPerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
		Logger:            d.Logger,
	})
	r.With(limit).Post("/login", handlers.Login(d))
	r.Post("/logout", handlers.Logout(d))
}
