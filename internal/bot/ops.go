package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/services"
)

func (b *Bot) cmdHelp(_ context.Context, _ Message, s domain.BotSession) string {
	var sb strings.Builder
	sb.WriteString("🤖 <b>leakdesk bot</b>\n" + rule + "\n\n")
	sb.WriteString("📊 <b>Analytics</b>\n")
	sb.WriteString("/stats - database overview\n")
	sb.WriteString("/regions - regional distribution\n")
	sb.WriteString("/domains - popular domains\n")
	sb.WriteString("/sources - data sources\n")
	sb.WriteString("/last7days - activity of the last 7 days\n\n")
	sb.WriteString("🔍 <b>Lookup</b>\n")
	sb.WriteString("/search &lt;keyword&gt; - search accounts\n")
	sb.WriteString("/spid &lt;id&gt; - show one record\n")
	sb.WriteString("/domain &lt;domain&gt; - domain report\n")
	sb.WriteString("/date &lt;YYYY-MM-DD&gt; - records of one day\n\n")
	sb.WriteString("🖥 <b>Services</b>\n")
	sb.WriteString("/services - status of monitored services\n")
	sb.WriteString("/monitor on|off - status change notifications\n\n")
	sb.WriteString("📬 <b>Reports</b>\n")
	sb.WriteString("/report - yesterday's report\n")
	sb.WriteString("/subscribe - receive the daily report\n")
	sb.WriteString("/unsubscribe - stop the daily report\n")
	sb.WriteString("/status - bot status\n")
	if s.IsAdmin {
		sb.WriteString("\n🔒 <b>Admin</b>\n")
		sb.WriteString("/service &lt;action&gt; &lt;name&gt; - start, stop, restart, enable, disable\n")
		sb.WriteString("/logs &lt;name&gt; [lines] - journal tail\n")
		sb.WriteString("/sessions - authorized users\n")
		sb.WriteString("/debug - accounts table layout\n")
	}
	return sb.String()
}

func (b *Bot) cmdStatus(ctx context.Context, _ Message, _ domain.BotSession) string {
	db := "🟢 Connected"
	if err := b.data.Ping(ctx); err != nil {
		b.log.Warn("database ping failed", logger.Error(err))
		db = "🔴 Unreachable"
	}

	var admins, monitors int
	for _, s := range b.sessions.AllSessions() {
		if s.IsAdmin {
			admins++
		}
		if s.Monitoring {
			monitors++
		}
	}

	records := b.units.StatusAll(ctx)
	var active int
	for _, r := range records {
		if r.Active {
			active++
		}
	}

	subs := "n/a"
	if b.persist != nil {
		if ids, err := b.persist.Subscribers(ctx); err == nil {
			subs = strconv.Itoa(len(ids))
		} else {
			b.log.Warn("failed to read report subscribers", logger.Error(err))
		}
	}

	var sb strings.Builder
	sb.WriteString("🤖 <b>Bot Status</b>\n" + rule + "\n\n")
	fmt.Fprintf(&sb, "🗄 <b>Database:</b> %s (<code>%s</code>)\n", db, esc(b.data.Driver()))
	fmt.Fprintf(&sb, "👥 <b>Sessions:</b> %d (%d admin)\n", b.sessions.SessionCount(), admins)
	fmt.Fprintf(&sb, "🖥 <b>Services:</b> %d/%d active\n", active, len(records))
	fmt.Fprintf(&sb, "📬 <b>Report subscribers:</b> %s\n", subs)
	fmt.Fprintf(&sb, "🔔 <b>Monitoring chats:</b> %d\n", monitors)
	fmt.Fprintf(&sb, "⏱ <b>Check interval:</b> %s\n", b.opts.CheckInterval)
	if b.opts.ReportAt != "" {
		fmt.Fprintf(&sb, "📅 <b>Daily report at:</b> %s\n", esc(b.opts.ReportAt))
	}
	if b.opts.Version != "" {
		fmt.Fprintf(&sb, "🏷 <b>Version:</b> <code>%s</code>\n", esc(b.opts.Version))
	}
	sb.WriteString("\n" + generated(b.now()))
	return sb.String()
}

func (b *Bot) cmdServices(ctx context.Context, _ Message, _ domain.BotSession) string {
	records := b.units.StatusAll(ctx)
	if len(records) == 0 {
		return "🖥 <b>Services</b>\n\nNo services are configured for monitoring."
	}

	var sb strings.Builder
	sb.WriteString("🖥 <b>Service Status</b>\n" + rule + "\n\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "%s <b>%s</b> <code>%s</code>\n", statusEmoji(r.Status), esc(r.DisplayName), esc(r.Status))
		if r.Description != "" {
			fmt.Fprintf(&sb, "   <i>%s</i>\n", esc(r.Description))
		}
		enabled := "disabled"
		if r.Enabled {
			enabled = "enabled"
		}
		fmt.Fprintf(&sb, "   Boot: %s", enabled)
		if r.Uptime != "" {
			fmt.Fprintf(&sb, " · Uptime: %s", esc(r.Uptime))
		}
		sb.WriteString("\n")
		if r.PID > 0 {
			fmt.Fprintf(&sb, "   PID %d · RAM %s · CPU %.1f%%\n", r.PID, megabytes(r.MemoryMB), r.CPUPercent)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(generated(b.now()))
	return sb.String()
}

func (b *Bot) cmdService(ctx context.Context, m Message, _ domain.BotSession) string {
	if len(m.Args) < 2 {
		return usage(b.commands["service"].usage)
	}
	action, name := strings.ToLower(m.Args[0]), m.Args[1]

	res, err := b.units.Control(ctx, action, name)
	switch {
	case errors.Is(err, services.ErrInvalidAction):
		return "❌ <b>Invalid action</b>\n\nAllowed: <code>" + strings.Join(services.Actions, ", ") + "</code>"
	case errors.Is(err, services.ErrUnknownUnit):
		return "❌ <b>Unknown service</b>\n\n<code>" + esc(name) + "</code> is not monitored."
	case err != nil:
		b.log.Error("service command failed", logger.String("unit", name), logger.Error(err))
		return failed(action + " " + name)
	}

	b.log.Info("service action requested",
		logger.Int64("user_id", m.UserID),
		logger.String("unit", name),
		logger.String("action", action),
		logger.Bool("success", res.Success))

	icon := "✅"
	if !res.Success {
		icon = "❌"
	}
	out := fmt.Sprintf("%s <b>%s</b>\n\n<code>%s</code> %s", icon, esc(res.Message), esc(name), esc(action))
	if res.Output != "" {
		out += "\n\n<pre>" + esc(res.Output) + "</pre>"
	}
	return out
}

func (b *Bot) cmdLogs(ctx context.Context, m Message, _ domain.BotSession) string {
	if len(m.Args) == 0 {
		return usage(b.commands["logs"].usage)
	}
	name, lines := m.Args[0], services.DefaultLogLines
	if len(m.Args) > 1 {
		n, err := strconv.Atoi(m.Args[1])
		if err != nil {
			return "❌ <b>Invalid line count</b>\n\nLines must be a number."
		}
		lines = services.ClampLines(n)
	}

	text, err := b.units.Logs(ctx, name, lines)
	switch {
	case errors.Is(err, services.ErrUnknownUnit):
		return "❌ <b>Unknown service</b>\n\n<code>" + esc(name) + "</code> is not monitored."
	case err != nil:
		b.log.Error("logs command failed", logger.String("unit", name), logger.Error(err))
		return failed("read logs of " + name)
	}
	if strings.TrimSpace(text) == "" {
		return "📜 <b>" + esc(name) + "</b>\n\nNo journal entries."
	}
	return fmt.Sprintf("📜 <b>%s</b> (last %d lines)\n\n<pre>%s</pre>", esc(name), lines, esc(text))
}

func (b *Bot) cmdMonitor(ctx context.Context, m Message, _ domain.BotSession) string {
	if len(m.Args) == 0 {
		return usage(b.commands["monitor"].usage)
	}
	var on bool
	switch strings.ToLower(m.Args[0]) {
	case "on", "start":
		on = true
	case "off", "stop":
	default:
		return usage(b.commands["monitor"].usage)
	}

	s, ok := b.sessions.SetMonitoring(m.UserID, on)
	if !ok {
		return msgUnauthorized
	}
	b.persistSession(ctx, s)

	if on {
		return fmt.Sprintf("🔔 <b>Monitoring enabled</b>\n\nYou will be notified when a service changes status. Check interval: %s.", b.opts.CheckInterval)
	}
	return "🔕 <b>Monitoring disabled</b>\n\nService notifications are turned off."
}

func (b *Bot) cmdReport(ctx context.Context, _ Message, _ domain.BotSession) string {
	return b.DailyReport(ctx, b.now().AddDate(0, 0, -1))
}

func (b *Bot) cmdSubscribe(ctx context.Context, m Message, _ domain.BotSession) string {
	if b.persist == nil {
		return failed("subscribe")
	}
	if err := b.persist.Subscribe(ctx, m.ChatID); err != nil {
		b.log.Error("subscribe failed", logger.Int64("chat_id", m.ChatID), logger.Error(err))
		return failed("subscribe")
	}
	return "📬 <b>Subscribed</b>\n\nYou will receive the daily report at " + esc(b.opts.ReportAt) + "."
}

func (b *Bot) cmdUnsubscribe(ctx context.Context, m Message, _ domain.BotSession) string {
	if b.persist == nil {
		return failed("unsubscribe")
	}
	if err := b.persist.Unsubscribe(ctx, m.ChatID); err != nil {
		b.log.Error("unsubscribe failed", logger.Int64("chat_id", m.ChatID), logger.Error(err))
		return failed("unsubscribe")
	}
	return "📭 <b>Unsubscribed</b>\n\nYou will no longer receive the daily report."
}

func (b *Bot) cmdSessions(_ context.Context, _ Message, _ domain.BotSession) string {
	all := b.sessions.AllSessions()
	if len(all) == 0 {
		return "👥 <b>Sessions</b>\n\nNo authorized users."
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastActivity.After(all[j].LastActivity) })

	now := b.now()
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 <b>Active Sessions</b> (%d)\n%s\n\n", len(all), rule)
	for _, s := range all {
		role := "👤"
		if s.IsAdmin {
			role = "👑"
		}
		fmt.Fprintf(&sb, "%s <b>%s</b> <code>%d</code>\n", role, esc(s.Username), s.UserID)
		fmt.Fprintf(&sb, "   Last seen %s", humanize.RelTime(s.LastActivity, now, "ago", "from now"))
		if s.LastCommand != "" {
			fmt.Fprintf(&sb, " (/%s)", esc(s.LastCommand))
		}
		fmt.Fprintf(&sb, "\n   Commands: %s", num(s.CommandCount))
		if s.Monitoring {
			sb.WriteString(" · 🔔")
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(generated(now))
	return sb.String()
}

func (b *Bot) cmdDebug(ctx context.Context, _ Message, _ domain.BotSession) string {
	info, err := b.data.DebugTable(ctx)
	if err != nil {
		b.log.Error("debug command failed", logger.Error(err))
		return failed("inspect table " + info.Table)
	}

	var sb strings.Builder
	sb.WriteString("🛠 <b>Table Debug</b>\n" + rule + "\n\n")
	fmt.Fprintf(&sb, "<b>Table:</b> <code>%s</code> (%s)\n", esc(info.Table), esc(info.Driver))
	fmt.Fprintf(&sb, "<b>Rows:</b> %s\n", num(info.Total))
	fmt.Fprintf(&sb, "<b>Columns:</b> <code>%s</code>\n", esc(strings.Join(info.Columns, ", ")))
	fmt.Fprintf(&sb, "<b>Search columns:</b> <code>%s</code>\n", esc(strings.Join(info.SearchColumns, ", ")))
	if info.OrderColumn != "" {
		fmt.Fprintf(&sb, "<b>Order column:</b> <code>%s</code>\n", esc(info.OrderColumn))
	}
	if len(info.SampleDomains) > 0 {
		fmt.Fprintf(&sb, "<b>Top domains:</b> %s\n", esc(strings.Join(info.SampleDomains, ", ")))
	}
	if len(info.Sample) > 0 {
		keys := make([]string, 0, len(info.Sample))
		for k := range info.Sample {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\n<b>Sample row</b>\n<pre>")
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s: %s\n", esc(k), esc(domain.DisplayValue(info.Sample[k])))
		}
		sb.WriteString("</pre>")
	}
	return sb.String()
}
