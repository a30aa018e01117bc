package bot

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/services"
	sqlstore "github.com/MrSnakeDoc/leakdesk/internal/store/sql"
)

// Sender delivers an HTML formatted message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Searcher runs a search with upstream fallback.
type Searcher interface {
	Search(ctx context.Context, q domain.QueryRequest) (*domain.SearchResponse, error)
}

// Dataset is the read side of the accounts table used by the bot.
type Dataset interface {
	Driver() string
	Ping(ctx context.Context) error
	Overview(ctx context.Context) (sqlstore.Overview, error)
	GroupShares(ctx context.Context, column string, limit int) ([]sqlstore.GroupCount, int64, error)
	DailyCounts(ctx context.Context, days int) ([]sqlstore.GroupCount, error)
	AccountByID(ctx context.Context, id int64) (domain.RawRecord, domain.ColumnCatalog, error)
	DomainReport(ctx context.Context, d string) (sqlstore.DomainReport, error)
	DaySummary(ctx context.Context, day time.Time) (sqlstore.DaySummary, error)
	DebugTable(ctx context.Context) (sqlstore.TableInfo, error)
}

// Units observes and controls host services.
type Units interface {
	StatusAll(ctx context.Context) []services.Record
	Control(ctx context.Context, action, name string) (services.ActionResult, error)
	Logs(ctx context.Context, name string, lines int) (string, error)
}

// Persister keeps bot state across restarts. Failures are logged, never fatal.
type Persister interface {
	SaveBotSession(ctx context.Context, s domain.BotSession) error
	DeleteBotSession(ctx context.Context, userID int64) error
	Subscribe(ctx context.Context, chatID int64) error
	Unsubscribe(ctx context.Context, chatID int64) error
	Subscribers(ctx context.Context) ([]int64, error)
}

// Message is an incoming chat command.
type Message struct {
	UserID   int64
	ChatID   int64
	Username string
	Command  string   // without the leading slash
	Args     []string // whitespace separated arguments
}

type Options struct {
	Secret        string
	Version       string
	CheckInterval time.Duration
	ReportAt      string
}

type handlerFunc func(ctx context.Context, m Message, s domain.BotSession) string

type command struct {
	run   handlerFunc
	admin bool
	usage string
}

// Bot answers chat commands over the leaked accounts dataset and the
// monitored host services.
type Bot struct {
	opts     Options
	send     Sender
	search   Searcher
	data     Dataset
	units    Units
	sessions *index.MemoryIndex
	persist  Persister
	log      logger.Logger
	now      func() time.Time
	commands map[string]command
}

func New(opts Options, send Sender, search Searcher, data Dataset, units Units,
	sessions *index.MemoryIndex, persist Persister, log logger.Logger,
) *Bot {
	b := &Bot{
		opts:     opts,
		send:     send,
		search:   search,
		data:     data,
		units:    units,
		sessions: sessions,
		persist:  persist,
		log:      log,
		now:      time.Now,
	}
	b.commands = map[string]command{
		"help":        {run: b.cmdHelp},
		"start":       {run: b.cmdHelp},
		"status":      {run: b.cmdStatus},
		"stats":       {run: b.cmdStats},
		"regions":     {run: b.cmdRegions},
		"domains":     {run: b.cmdDomains},
		"sources":     {run: b.cmdSources},
		"last7days":   {run: b.cmdLast7Days},
		"search":      {run: b.cmdSearch, usage: "/search <keyword>"},
		"spid":        {run: b.cmdSPID, usage: "/spid <id>"},
		"domain":      {run: b.cmdDomain, usage: "/domain <domain>"},
		"date":        {run: b.cmdDate, usage: "/date <YYYY-MM-DD>"},
		"services":    {run: b.cmdServices},
		"service":     {run: b.cmdService, admin: true, usage: "/service <start|stop|restart|enable|disable> <name>"},
		"logs":        {run: b.cmdLogs, admin: true, usage: "/logs <name> [lines]"},
		"monitor":     {run: b.cmdMonitor, usage: "/monitor on|off"},
		"report":      {run: b.cmdReport},
		"subscribe":   {run: b.cmdSubscribe},
		"unsubscribe": {run: b.cmdUnsubscribe},
		"sessions":    {run: b.cmdSessions, admin: true},
		"debug":       {run: b.cmdDebug, admin: true},
	}
	return b
}

// Handle answers one command. Unknown commands are ignored.
func (b *Bot) Handle(ctx context.Context, m Message) {
	name := strings.ToLower(strings.TrimPrefix(m.Command, "/"))
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i] // "/stats@leakdesk_bot" in groups
	}

	if name == "login" {
		b.reply(ctx, m, b.cmdLogin(ctx, m))
		return
	}

	cmd, ok := b.commands[name]
	if !ok {
		return
	}

	s, ok := b.sessions.Touch(m.UserID, name, b.now())
	if !ok {
		b.reply(ctx, m, msgUnauthorized)
		return
	}
	if cmd.admin && !s.IsAdmin {
		b.log.Warn("admin command refused",
			logger.Int64("user_id", m.UserID),
			logger.String("command", name))
		b.reply(ctx, m, msgAdminOnly)
		return
	}
	b.persistSession(ctx, s)

	b.log.Debug("bot command",
		logger.Int64("user_id", m.UserID),
		logger.String("command", name),
		logger.Int("args", len(m.Args)))
	b.reply(ctx, m, cmd.run(ctx, m, s))
}

func (b *Bot) cmdLogin(ctx context.Context, m Message) string {
	if len(m.Args) == 0 {
		return "🔐 <b>Authentication required</b>\n\nUsage: <code>/login &lt;token&gt;</code>"
	}
	if subtle.ConstantTimeCompare([]byte(m.Args[0]), []byte(b.opts.Secret)) != 1 {
		b.log.Warn("bot login failed",
			logger.Int64("user_id", m.UserID),
			logger.String("username", m.Username))
		return "❌ <b>Authentication failed</b>\n\nInvalid access token."
	}

	now := b.now()
	s := b.sessions.Authorize(domain.BotSession{
		UserID:       m.UserID,
		ChatID:       m.ChatID,
		Username:     m.Username,
		AuthorizedAt: now,
		LastActivity: now,
	})
	b.persistSession(ctx, s)

	b.log.Info("bot user authorized",
		logger.Int64("user_id", m.UserID),
		logger.String("username", m.Username),
		logger.Bool("admin", s.IsAdmin))

	level := "User"
	if s.IsAdmin {
		level = "Admin"
	}
	return "✅ <b>Authentication successful</b>\n\n" +
		"Welcome, <b>" + esc(m.Username) + "</b>!\n" +
		"Login time: <code>" + formatTime(now) + "</code>\n" +
		"Access level: <code>" + level + "</code>\n\n" +
		"Type /help to see available commands."
}

func (b *Bot) reply(ctx context.Context, m Message, text string) {
	if text == "" {
		return
	}
	if err := b.send.Send(ctx, m.ChatID, text); err != nil {
		b.log.Error("failed to send reply",
			logger.Int64("chat_id", m.ChatID),
			logger.Error(err))
	}
}

func (b *Bot) persistSession(ctx context.Context, s domain.BotSession) {
	if b.persist == nil {
		return
	}
	if err := b.persist.SaveBotSession(ctx, s); err != nil {
		b.log.Warn("failed to persist bot session",
			logger.Int64("user_id", s.UserID),
			logger.Error(err))
	}
}

const (
	msgUnauthorized = "🚫 <b>Access denied</b>\n\nAuthenticate first with <code>/login &lt;token&gt;</code>."
	msgAdminOnly    = "🔒 <b>Admin access required</b>\n\nThis command requires administrator privileges."
)

func usage(u string) string {
	return "ℹ️ Usage: <code>" + esc(u) + "</code>"
}

func failed(what string) string {
	return "❌ <b>Error</b>\n\nFailed to " + what + ". Please try again later."
}
