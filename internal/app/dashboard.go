package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/config"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/scheduler"
	"github.com/MrSnakeDoc/leakdesk/internal/version"
)

// Dashboard is the `leakdesk serve` process: the JSON API in front of the
// upstream inventory API and the backing store.
type Dashboard struct {
	*core
	server   *httpserver.Server
	reloader *scheduler.UsersReloader
}

// NewDashboard wires the dashboard. Redis is mandatory since it holds the
// web sessions.
func NewDashboard(ctx context.Context) (*Dashboard, error) {
	c, err := newCore(ctx, config.ModeDashboard, true)
	if err != nil {
		return nil, err
	}
	cfg, log := c.cfg, c.logger

	memIndex := index.NewMemoryIndex()
	reloadTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewUsersReloader(
		cfg.UsersFile,
		memIndex,
		log,
		cfg.UsersReloadInterval,
		reloadTrigger,
	)

	manager := auth.NewManager(memIndex, c.redisStore, auth.Options{
		TTL:          cfg.SessionTTL,
		RememberTTL:  cfg.SessionRememberTTL,
		CookieSecure: cfg.CookieSecure,
	}, log)

	d := deps.Deps{
		Logger:            log,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		TimeNow:           time.Now,
		AllowedHosts:      cfg.AllowedHosts,
		AllowedCIDRS:      cfg.AllowedCIDRS,
		TrustProxy:        cfg.TrustProxy,
		CORSOrigins:       cfg.CORSOrigins,
		LoginBurst:        cfg.LoginBurst,
		LoginRefillPerMin: cfg.LoginRefillPerMin,
		RequestTimeout:    cfg.RequestTimeout,
		Auth:              manager,
		Search:            c.search,
		Upstream:          c.remote,
		Store:             c.store,
		RedisClient:       c.redisClient,
		MemoryIndex:       memIndex,
		ReloadTrigger:     reloadTrigger,
	}

	return &Dashboard{
		core:     c,
		server:   httpserver.New(cfg, log, d),
		reloader: reloader,
	}, nil
}

// Run serves until SIGINT/SIGTERM or a server error, then shuts down.
func (a *Dashboard) Run() error {
	defer a.close()

	a.logger.Infof("🚀 Starting leakdesk dashboard %s on %s", version.Version, a.cfg.ListenPort)

	ctx, stop := signalContext()
	defer stop()

	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start users reloader: %w", err)
	}
	a.logger.Info("users reloader started",
		logger.Duration("interval", a.cfg.UsersReloadInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.reloader.Stop()
		return err
	}

	a.reloader.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("✅ leakdesk dashboard stopped cleanly")
	return nil
}
