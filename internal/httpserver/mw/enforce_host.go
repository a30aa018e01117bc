package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
)

// EnforceHost rejects requests whose Host header, port stripped, matches
// none of allowedHosts. Patterns may start with "*." to accept any
// subdomain. An empty list disables the check.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedHosts) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	patterns := make([]string, len(allowedHosts))
	for i, h := range allowedHosts {
		patterns[i] = strings.ToLower(strings.TrimSpace(h))
	}
	log.Debug("host filter enabled", logger.Strings("hosts", patterns))

	allowed := func(host string) bool {
		for _, p := range patterns {
			if matchHost(host, p) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(strings.ToLower(utils.ParseHostNoPort(r.Host))) {
				log.Warn("request for unexpected host",
					logger.String("host", r.Host),
					logger.String("path", r.URL.Path))
				deny(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// matchHost reports whether host equals pattern or, for "*.example.com",
// is a strict subdomain of it.
func matchHost(host, pattern string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix)
	}
	return host == pattern
}
