package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
)

// Routing modes reported by /infra.
const (
	ModeOptimal  = "optimal"
	ModeDegraded = "degraded"
	ModeCritical = "critical"
)

const probeTimeout = 2 * time.Second

type componentStatus struct {
	OK          bool   `json:"ok"`
	UsersLoaded *int   `json:"users_loaded,omitempty"`
	LastReload  string `json:"last_reload,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	RoutingMode string                     `json:"routing_mode"`
	Components  map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usersCount := d.MemoryIndex.UserCount()
		lastReload := d.MemoryIndex.GetLastReload()
		lastReloadStr := "never"
		if !lastReload.IsZero() {
			lastReloadStr = lastReload.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"users": {
				OK:          usersCount > 0,
				UsersLoaded: &usersCount,
				LastReload:  lastReloadStr,
			},
			"database": checkDatabase(r.Context(), d),
			"redis":    checkRedis(r.Context(), d),
			"upstream": checkUpstream(r.Context(), d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			RoutingMode: determineRoutingMode(components),
			Components:  components,
		})
	}
}

// determineRoutingMode is critical when nobody can log in or no search
// source is left, degraded when any component is down.
func determineRoutingMode(components map[string]componentStatus) string {
	if users, ok := components["users"]; ok && !users.OK {
		return ModeCritical
	}
	if !components["database"].OK && !components["upstream"].OK {
		return ModeCritical
	}
	for _, c := range components {
		if !c.OK {
			return ModeDegraded
		}
	}
	return ModeOptimal
}

func checkDatabase(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   d.Store.Driver(),
			Impact: "fallback-search-disabled",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: d.Store.Driver(), Impact: "fallback-search-enabled"}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   ModeDegraded,
			Impact: "sessions-unavailable",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   ModeDegraded,
			Impact: "sessions-unavailable",
			Error:  "timeout",
		}
	}
	return componentStatus{OK: true, Mode: ModeOptimal, Impact: "sessions-enabled"}
}

func checkUpstream(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := d.Upstream.Health(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "fallback",
			Impact: "searches-served-from-database",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: "remote", Impact: "searches-served-upstream"}
}
