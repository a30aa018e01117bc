package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/remote"
	sqlstore "github.com/MrSnakeDoc/leakdesk/internal/store/sql"
)

// Searcher answers a search from the upstream API or the database.
type Searcher interface {
	Search(ctx context.Context, q domain.QueryRequest) (*domain.SearchResponse, error)
}

// Upstream is the part of the inventory API relayed by the proxy endpoints.
type Upstream interface {
	GetAccounts(ctx context.Context, page, limit int, f domain.Filters) (remote.Payload, error)
	GetAccount(ctx context.Context, id int64) (remote.Payload, error)
	GetStatistics(ctx context.Context) (remote.Payload, error)
	Health(ctx context.Context) (remote.Payload, error)
	SearchAccounts(ctx context.Context, q domain.QueryRequest) (*domain.SearchResponse, error)
}

// Dataset is the read side of the backing store used by the dashboard.
type Dataset interface {
	Driver() string
	Ping(ctx context.Context) error
	InvalidateCatalogs()
	CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error)
	TotalStats(ctx context.Context) (sqlstore.TotalStats, error)
	ListLeakLogs(ctx context.Context, f sqlstore.LeakLogFilter, page, size int) (*sqlstore.LeakLogPage, error)
	SearchLeakLogs(ctx context.Context, term string, page, size int) (*sqlstore.LeakLogPage, error)
	LeakLogStats(ctx context.Context) (*sqlstore.LeakLogStats, error)
	DebugTable(ctx context.Context) (sqlstore.TableInfo, error)
}

type Deps struct {
	Logger            logger.Logger
	StartTime         time.Time
	Version           string
	Commit            string
	BuildDate         string
	GoVersion         string
	TimeNow           func() time.Time   // for testing, defaults to time.Now
	AllowedHosts      []string           // Host headers allowed to access the server
	AllowedCIDRS      []string           // IPs allowed to access healthz/readyz/infra endpoints
	TrustProxy        bool               // true if running behind a trusted reverse proxy
	CORSOrigins       []string           // allowed CORS origins, empty disables CORS
	LoginBurst        int                // login attempts allowed in a burst per IP
	LoginRefillPerMin int                // login attempts regained per minute per IP
	RequestTimeout    time.Duration      // per-request deadline, covers upstream retries
	Auth              *auth.Manager      // dashboard sessions
	Search            Searcher           // fallback search orchestrator
	Upstream          Upstream           // inventory API client
	Store             Dataset            // backing store
	RedisClient       *redis.Client      // Redis client connection (nil when unavailable)
	MemoryIndex       *index.MemoryIndex // dashboard users
	ReloadTrigger     chan struct{}      // Channel to trigger a manual users reload
}

// Now returns the deps clock.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
