package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	rule      = "━━━━━━━━━━━━━━━━━━━━━━"
	barWidth  = 20
	timestamp = "2006-01-02 15:04:05"
)

func esc(s string) string { return html.EscapeString(s) }

func num(n int64) string { return humanize.Comma(n) }

func formatTime(t time.Time) string { return t.Format(timestamp) }

// megabytes renders a resident size given in MiB.
func megabytes(mb float64) string {
	return humanize.IBytes(uint64(mb * 1024 * 1024))
}

// percent renders part of total with two decimals, "0.00%" when total is 0.
func percent(part, total int64) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(total)*100)
}

// bar draws count relative to top on width cells.
func bar(count, top int64, width int) string {
	n := 0
	if top > 0 {
		n = int(count * int64(width) / top)
	}
	if n > width {
		n = width
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

// trend compares count to the average of its window.
func trend(count int64, avg float64) string {
	switch {
	case float64(count) > avg*1.2:
		return "📈"
	case float64(count) < avg*0.8:
		return "📉"
	default:
		return "➡️"
	}
}

var regionFlags = map[string]string{
	"US": "🇺🇸", "USA": "🇺🇸", "United States": "🇺🇸",
	"TR": "🇹🇷", "Turkey": "🇹🇷", "Türkiye": "🇹🇷",
	"DE": "🇩🇪", "Germany": "🇩🇪",
	"FR": "🇫🇷", "France": "🇫🇷",
	"UK": "🇬🇧", "United Kingdom": "🇬🇧",
	"CN": "🇨🇳", "China": "🇨🇳",
	"RU": "🇷🇺", "Russia": "🇷🇺",
	"CA": "🇨🇦", "Canada": "🇨🇦",
	"AU": "🇦🇺", "Australia": "🇦🇺",
	"JP": "🇯🇵", "Japan": "🇯🇵",
	"Unspecified": "🌍",
}

func regionFlag(region string) string {
	if f, ok := regionFlags[region]; ok {
		return f
	}
	return "🌎"
}

var domainEmojis = []struct {
	emoji string
	hints []string
}{
	{"📧", []string{"gmail", "google"}},
	{"💌", []string{"yahoo", "ymail"}},
	{"📨", []string{"outlook", "hotmail", "live", "msn"}},
	{"☁️", []string{"icloud", "me.com", "mac.com"}},
	{"🔐", []string{"protonmail", "tutanota"}},
}

func domainEmoji(d string) string {
	d = strings.ToLower(d)
	for _, e := range domainEmojis {
		for _, h := range e.hints {
			if d != "" && strings.Contains(d, h) {
				return e.emoji
			}
		}
	}
	return "🌍"
}

var sourceEmojis = []struct{ key, emoji string }{
	{"api", "🔌"}, {"import", "📦"}, {"manual", "👤"}, {"auto", "🤖"},
	{"web", "🌐"}, {"form", "📝"}, {"migration", "🔄"}, {"unspecified", "❓"},
}

func sourceEmoji(src string) string {
	src = strings.ToLower(src)
	for _, e := range sourceEmojis {
		if strings.Contains(src, e.key) {
			return e.emoji
		}
	}
	return "📂"
}

var statusEmojis = map[string]string{
	"active":       "🟢",
	"inactive":     "🔴",
	"failed":       "❌",
	"activating":   "🟡",
	"deactivating": "🟡",
	"not-found":    "⚫",
	"error":        "💥",
}

func statusEmoji(status string) string {
	if e, ok := statusEmojis[status]; ok {
		return e
	}
	return "❓"
}

func generated(now time.Time) string {
	return "🕒 <b>Generated:</b> <code>" + formatTime(now) + "</code>"
}
