package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Uptime        string  `json:"uptime"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

// Healthz reports liveness only. Database, Redis and the upstream API are
// checked by /readyz and /infra.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		up := d.Now().Sub(d.StartTime)
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: up.Seconds(),
			Uptime:        up.Round(time.Second).String(),
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		})
	}
}
