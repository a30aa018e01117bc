package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// Registrar mounts one group of endpoints.
type Registrar func(r chi.Router, d deps.Deps)

type entry struct {
	name string
	reg  Registrar
}

var registry []entry

// Register adds a route group. Files of this package call it from init().
func Register(name string, reg Registrar) {
	registry = append(registry, entry{name: name, reg: reg})
}

// RegisterAll mounts every registered group on r. Called once by httpserver.NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		e.reg(r, d)
		if d.Logger != nil {
			d.Logger.Debug("routes mounted", logger.String("group", e.name))
		}
	}
}
