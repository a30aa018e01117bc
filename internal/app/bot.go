package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/bot"
	"github.com/MrSnakeDoc/leakdesk/internal/config"
	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/scheduler"
	"github.com/MrSnakeDoc/leakdesk/internal/services"
	"github.com/MrSnakeDoc/leakdesk/internal/sources/units"
	"github.com/MrSnakeDoc/leakdesk/internal/version"
)

const sessionSweepInterval = time.Hour

// BotApp is the `leakdesk bot` process: the Telegram bot and its
// background jobs.
type BotApp struct {
	*core
	telegram *bot.Telegram
	bot      *bot.Bot
	syncer   *scheduler.RedisSyncer // nil without Redis
	sweeper  *scheduler.SessionSweeper
	monitor  *scheduler.ServiceMonitor
	reporter *scheduler.DailyReporter
}

// NewBotApp wires the bot. Redis is optional: without it sessions and
// report subscriptions live only as long as the process.
func NewBotApp(ctx context.Context) (*BotApp, error) {
	c, err := newCore(ctx, config.ModeBot, false)
	if err != nil {
		return nil, err
	}
	cfg, log := c.cfg, c.logger

	unitList, err := units.Load(cfg.ServicesFile)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("load services file: %w", err)
	}
	log.Info("monitored services loaded",
		logger.String("file", cfg.ServicesFile),
		logger.Int("count", len(unitList)))

	manager := services.NewManager(unitList, services.ExecRunner{}, services.PsutilProbe{},
		services.Options{UseSudo: cfg.ServiceUseSudo}, log)

	telegram, err := bot.NewTelegram(cfg.BotToken, log)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	sessions := index.NewMemoryIndex()

	// Interfaces stay nil, not typed-nil, when Redis is down.
	var (
		persist bot.Persister
		deleter scheduler.BotSessionDeleter
		syncer  *scheduler.RedisSyncer
	)
	if c.redisStore != nil {
		persist = c.redisStore
		deleter = c.redisStore
		syncer = scheduler.NewRedisSyncer(c.redisStore, sessions, log)
	}

	b := bot.New(bot.Options{
		Secret:        cfg.BotSecret,
		Version:       version.String(),
		CheckInterval: cfg.ServiceCheckInterval,
		ReportAt:      cfg.DailyReportAt,
	}, telegram, c.search, c.store, manager, sessions, persist, log)

	var notifier scheduler.ChangeNotifier
	if cfg.ServiceNotifications {
		notifier = b
	}

	reporter, err := scheduler.NewDailyReporter(cfg.DailyReportAt, b, log)
	if err != nil {
		c.close()
		return nil, err
	}

	return &BotApp{
		core:     c,
		telegram: telegram,
		bot:      b,
		syncer:   syncer,
		sweeper:  scheduler.NewSessionSweeper(deleter, sessions, log, sessionSweepInterval, cfg.BotSessionIdleTTL),
		monitor:  scheduler.NewServiceMonitor(manager, notifier, log, cfg.ServiceCheckInterval),
		reporter: reporter,
	}, nil
}

// Run polls Telegram until SIGINT/SIGTERM, then stops the background jobs.
func (a *BotApp) Run() error {
	defer a.close()

	a.logger.Infof("🚀 Starting leakdesk bot %s", version.Version)

	ctx, stop := signalContext()
	defer stop()

	if a.syncer != nil {
		if err := a.syncer.Sync(ctx); err != nil {
			a.logger.Warn("failed to restore bot sessions, starting empty", logger.Error(err))
		}
	}

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}
	defer a.sweeper.Stop()

	if err := a.monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service monitor: %w", err)
	}
	defer a.monitor.Stop()
	a.logger.Info("service monitor started",
		logger.Duration("interval", a.cfg.ServiceCheckInterval),
		logger.Bool("notifications", a.cfg.ServiceNotifications))

	if err := a.reporter.Start(ctx); err != nil {
		return fmt.Errorf("failed to start daily reporter: %w", err)
	}
	defer a.reporter.Stop()

	a.telegram.Run(ctx, a.bot)

	a.logger.Info("✅ leakdesk bot stopped cleanly")
	return nil
}
