package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/leakdesk/internal/config"
	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/redis"
	"github.com/MrSnakeDoc/leakdesk/internal/remote"
	"github.com/MrSnakeDoc/leakdesk/internal/search"
	redisstore "github.com/MrSnakeDoc/leakdesk/internal/store/redis"
	sqlstore "github.com/MrSnakeDoc/leakdesk/internal/store/sql"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
	"github.com/MrSnakeDoc/leakdesk/internal/version"
)

// core is what the dashboard and the bot share: the backing store, the
// upstream client, the fallback search and the Redis connection.
type core struct {
	cfg         *config.Config
	logger      logger.Logger
	db          *sql.DB
	store       *sqlstore.Store
	remote      *remote.Client
	search      *search.Orchestrator
	redisClient *goredis.Client   // nil when Redis is optional and unreachable
	redisStore  *redisstore.Store // nil when redisClient is nil
}

// newCore opens every shared dependency. With requireRedis the call fails
// when Redis cannot be reached, otherwise the tool runs without persistence.
func newCore(ctx context.Context, mode config.Mode, requireRedis bool) (*core, error) {
	cfg := config.Load(mode)
	log := logger.New(cfg.LogLevel, cfg.PrettyLog).Named(modeName(mode))

	log.Info("starting leakdesk",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("driver", cfg.DBDriver))

	db, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store, err := sqlstore.New(db, sqlstore.Options{
		Driver:        cfg.DBDriver,
		AccountsTable: cfg.AccountsTable,
		LeakLogsTable: cfg.LeakLogsTable,
		Catalogs:      index.NewCatalogCache(cfg.CatalogTTL),
	}, log)
	if err != nil {
		utils.Close(db)
		return nil, err
	}
	log.Info("database ready",
		logger.String("driver", store.Driver()),
		logger.String("table", store.AccountsTable()))

	remoteCfg := remoteConfig(cfg)
	if mode == config.ModeDashboard {
		if err := checkRequestBudget(cfg.RequestTimeout, remoteCfg); err != nil {
			utils.Close(db)
			return nil, err
		}
	}
	upstream := remote.New(remoteCfg, log)

	c := &core{
		cfg:    cfg,
		logger: log,
		db:     db,
		store:  store,
		remote: upstream,
		search: search.New(upstream, store, log),
	}

	redisClient, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), log)
	switch {
	case err != nil && requireRedis:
		utils.Close(db)
		return nil, fmt.Errorf("connect redis: %w", err)
	case err != nil:
		log.Warn("redis unavailable, running without persistence", logger.Error(err))
	default:
		c.redisClient = redisClient
		c.redisStore = redisstore.NewStore(redisClient)
	}
	return c, nil
}

// close releases the connections opened by newCore.
func (c *core) close() {
	if c.redisClient != nil {
		utils.CloseLogged(c.redisClient, "redis", c.logger)
	}
	utils.CloseLogged(c.db, "database", c.logger)
	_ = c.logger.Sync()
}

func remoteConfig(cfg *config.Config) remote.Config {
	return remote.Config{
		BaseURL:    cfg.APIBaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.APITimeout,
		MaxRetries: cfg.APIMaxRetries,
		Backoff:    cfg.APIRetryBackoff,
		Reserve:    cfg.APIReserve,
		UserAgent:  "leakdesk/" + version.Version,
	}
}

// checkRequestBudget rejects a request timeout too short for every upstream
// attempt plus the fallback reserve. The client would still stop early, but
// the configured retries could never all run.
func checkRequestBudget(requestTimeout time.Duration, rc remote.Config) error {
	need := rc.Budget() + rc.Reserve
	if requestTimeout <= need {
		return fmt.Errorf("LEAKDESK_REQUEST_TIMEOUT (%v) must exceed the upstream retry budget plus the fallback reserve (%v)",
			requestTimeout, need)
	}
	return nil
}

func modeName(mode config.Mode) string {
	if mode == config.ModeBot {
		return "bot"
	}
	return "dashboard"
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
