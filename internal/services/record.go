package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit states reported besides the systemd ActiveState values.
const (
	StatusNotFound = "not-found"
	StatusError    = "error"
	StatusUnknown  = "unknown"
)

// Record is the observed state of one monitored unit.
type Record struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Active      bool      `json:"active"`
	Enabled     bool      `json:"enabled"`
	Since       time.Time `json:"since,omitempty"`
	Uptime      string    `json:"uptime,omitempty"`
	MemoryMB    float64   `json:"memory_mb,omitempty"`
	CPUPercent  float64   `json:"cpu_percent,omitempty"`
	PID         int32     `json:"pid,omitempty"`
}

// ActionResult is the outcome of a control action.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Output  string `json:"output,omitempty"`
}

// parseShow splits `systemctl show` KEY=VALUE lines.
func parseShow(out []byte) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		props[k] = v
	}
	return props
}

// parseTimestamp understands "@<unix seconds>" (--timestamp=unix) and the
// default "Mon 2006-01-02 15:04:05 MST" form. Empty or "n/a" yields zero.
func parseTimestamp(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" || v == "n/a" {
		return time.Time{}
	}
	if strings.HasPrefix(v, "@") {
		sec, err := strconv.ParseInt(v[1:], 10, 64)
		if err != nil || sec <= 0 {
			return time.Time{}
		}
		return time.Unix(sec, 0)
	}
	t, err := time.Parse("Mon 2006-01-02 15:04:05 MST", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatUptime renders d as "3d 4h 5m", "4h 5m" or "5m".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
