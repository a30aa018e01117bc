package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects which tool is being configured. Each mode has its own set of
// required variables.
type Mode int

const (
	ModeDashboard Mode = iota
	ModeBot
)

type Config struct {
	ListenPort      string        // ex: ":7071"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per HTTP request, must exceed the upstream retry budget plus APIReserve

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Backing store
	DBDriver      string        // "mysql" | "postgres" | "sqlite"
	DBDSN         string        // driver specific DSN
	AccountsTable string        // table holding the leaked accounts (default: fetched_accounts)
	LeakLogsTable string        // table holding leak log entries (default: leak_logs)
	CatalogTTL    time.Duration // how long a discovered column layout is reused (0 = always rediscover)

	// Upstream inventory API
	APIBaseURL      string        // ex: "http://10.0.0.5:5000"
	APIKey          string        // sent as X-API-Key
	APITimeout      time.Duration // per-attempt timeout
	APIMaxRetries   int           // retries after the first attempt
	APIRetryBackoff time.Duration // base wait between retries, doubled each time (0 = no wait)
	APIReserve      time.Duration // request time kept for the database fallback

	// Redis
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// Dashboard
	UsersFile           string        // path to users.yaml
	UsersReloadInterval time.Duration // periodic reload of users.yaml
	SessionTTL          time.Duration // dashboard session lifetime
	SessionRememberTTL  time.Duration // lifetime when "remember me" is checked
	CookieSecure        bool          // set Secure on the session cookie
	CORSOrigins         []string      // allowed CORS origins (empty = CORS disabled)
	LoginBurst          int           // login attempts allowed in a burst per IP
	LoginRefillPerMin   int           // login attempts regained per minute per IP

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict infra endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers

	// Bot
	BotToken             string        // Telegram bot token
	BotSecret            string        // shared token users send with /login
	ServicesFile         string        // path to services.yaml (monitored units)
	ServiceCheckInterval time.Duration // service monitor polling interval
	ServiceNotifications bool          // notify monitor chats on status changes
	ServiceUseSudo       bool          // prefix control commands with sudo
	DailyReportAt        string        // "HH:MM" local time
	BotSessionIdleTTL    time.Duration // bot sessions idle longer than this are dropped
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func Load(mode Mode) *Config {
	// Optional .env file for local runs; real environment wins.
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LEAKDESK_LISTEN_PORT", ":7071"),
		ShutdownTimeout: mustDuration("LEAKDESK_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("LEAKDESK_REQUEST_TIMEOUT", 150*time.Second),

		// Logging
		LogLevel:  getenv("LEAKDESK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LEAKDESK_PRETTY_LOG", true),

		// Backing store
		DBDriver:      strings.ToLower(getenv("LEAKDESK_DB_DRIVER", "mysql")),
		DBDSN:         requireEnv("LEAKDESK_DB_DSN"),
		AccountsTable: getenv("LEAKDESK_ACCOUNTS_TABLE", "fetched_accounts"),
		LeakLogsTable: getenv("LEAKDESK_LEAK_LOGS_TABLE", "leak_logs"),
		CatalogTTL:    mustDuration("LEAKDESK_CATALOG_TTL", 5*time.Minute),

		// Upstream API
		APIBaseURL:      strings.TrimRight(requireEnv("LEAKDESK_API_BASE_URL"), "/"),
		APIKey:          getenv("LEAKDESK_API_KEY", ""),
		APITimeout:      mustDuration("LEAKDESK_API_TIMEOUT", 30*time.Second),
		APIMaxRetries:   getenvInt("LEAKDESK_API_MAX_RETRIES", 3),
		APIRetryBackoff: mustDuration("LEAKDESK_API_RETRY_BACKOFF", 500*time.Millisecond),
		APIReserve:      mustDuration("LEAKDESK_API_FALLBACK_RESERVE", 10*time.Second),

		// Redis settings
		RedisAddr:           getenv("LEAKDESK_REDIS_ADDR", "localhost:6379"),
		RedisUser:           getenv("LEAKDESK_REDIS_USERNAME", ""),
		RedisPassword:       getenv("LEAKDESK_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("LEAKDESK_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Dashboard
		UsersFile:           getenv("LEAKDESK_USERS_FILE", "/etc/leakdesk/users.yaml"),
		UsersReloadInterval: mustDuration("LEAKDESK_USERS_RELOAD_INTERVAL", time.Hour),
		SessionTTL:          mustDuration("LEAKDESK_SESSION_TTL", 24*time.Hour),
		SessionRememberTTL:  mustDuration("LEAKDESK_SESSION_REMEMBER_TTL", 30*24*time.Hour),
		CookieSecure:        mustBool("LEAKDESK_COOKIE_SECURE", true),
		CORSOrigins:         splitAndTrim(getenv("LEAKDESK_CORS_ORIGINS", "")),
		LoginBurst:          getenvInt("LEAKDESK_LOGIN_BURST", 5),
		LoginRefillPerMin:   getenvInt("LEAKDESK_LOGIN_REFILL_PER_MIN", 5),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("LEAKDESK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("LEAKDESK_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LEAKDESK_TRUST_PROXY", false),

		// Bot
		ServicesFile:         getenv("LEAKDESK_SERVICES_FILE", "/etc/leakdesk/services.yaml"),
		ServiceCheckInterval: mustDuration("LEAKDESK_SERVICE_CHECK_INTERVAL", 30*time.Second),
		ServiceNotifications: mustBool("LEAKDESK_SERVICE_NOTIFICATIONS", true),
		ServiceUseSudo:       mustBool("LEAKDESK_SERVICE_USE_SUDO", true),
		DailyReportAt:        getenv("LEAKDESK_DAILY_REPORT_AT", "09:00"),
		BotSessionIdleTTL:    mustDuration("LEAKDESK_BOT_SESSION_IDLE_TTL", 7*24*time.Hour),
	}

	if mode == ModeBot {
		cfg.BotToken = requireEnv("LEAKDESK_BOT_TOKEN")
		cfg.BotSecret = requireEnv("LEAKDESK_BOT_SECRET")
		if _, _, err := ParseClock(cfg.DailyReportAt); err != nil {
			panic(fmt.Sprintf("❌ FATAL: invalid LEAKDESK_DAILY_REPORT_AT: %v", err))
		}
	}

	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		panic(fmt.Sprintf("❌ FATAL: unsupported LEAKDESK_DB_DRIVER %q (mysql, postgres, sqlite)", cfg.DBDriver))
	}

	// Table names end up in SQL text, so they must be plain identifiers.
	for key, table := range map[string]string{
		"LEAKDESK_ACCOUNTS_TABLE":  cfg.AccountsTable,
		"LEAKDESK_LEAK_LOGS_TABLE": cfg.LeakLogsTable,
	} {
		if !identifierRe.MatchString(table) {
			panic(fmt.Sprintf("❌ FATAL: %s must be a plain identifier, got %q", key, table))
		}
	}

	if cfg.APIMaxRetries < 0 {
		cfg.APIMaxRetries = 0
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.DBDSN = "***REDACTED***"
		cfgCopy.APIKey = "***REDACTED***"
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.BotToken = "***REDACTED***"
		cfgCopy.BotSecret = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// ParseClock parses "HH:MM" into hour and minute.
func ParseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
