package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/services"
)

// DailyReport renders the summary of day.
func (b *Bot) DailyReport(ctx context.Context, day time.Time) string {
	sum, err := b.data.DaySummary(ctx, day)
	if err != nil {
		b.log.Error("daily report failed", logger.Error(err))
		return failed("build the daily report")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 <b>Daily Report: %s</b>\n%s\n\n", esc(sum.Day), rule)
	fmt.Fprintf(&sb, "📊 <b>New records:</b> %s (%s of %s)\n\n", num(sum.Count), percent(sum.Count, sum.Total), num(sum.Total))
	if sum.Count == 0 {
		sb.WriteString("⚠️ <b>No new records were added on this day.</b>\n\n")
	}
	writeTop(&sb, "🌍 <b>Top regions</b>", sum.Regions, regionFlag)
	writeTop(&sb, "🌐 <b>Top domains</b>", sum.Domains, domainEmoji)

	if len(sum.Week) > 0 {
		var total, top int64
		for _, d := range sum.Week {
			total += d.Count
			top = maxInt64(top, d.Count)
		}
		avg := float64(total) / float64(len(sum.Week))
		sb.WriteString("📈 <b>Week trend</b>\n")
		for _, d := range sum.Week {
			fmt.Fprintf(&sb, "%s <code>%s</code> %s %s\n", esc(d.Key), bar(d.Count, top, 10), trend(d.Count, avg), num(d.Count))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(generated(b.now()))
	return sb.String()
}

// BroadcastReport sends yesterday's report to every subscribed chat.
// It returns the number of chats reached.
func (b *Bot) BroadcastReport(ctx context.Context) int {
	if b.persist == nil {
		return 0
	}
	chats, err := b.persist.Subscribers(ctx)
	if err != nil {
		b.log.Error("failed to load report subscribers", logger.Error(err))
		return 0
	}
	if len(chats) == 0 {
		return 0
	}

	text := b.DailyReport(ctx, b.now().AddDate(0, 0, -1))
	sent := 0
	for _, chatID := range chats {
		if err := b.send.Send(ctx, chatID, text); err != nil {
			b.log.Warn("failed to deliver daily report",
				logger.Int64("chat_id", chatID),
				logger.Error(err))
			continue
		}
		sent++
	}
	b.log.Info("daily report sent",
		logger.Int("subscribers", len(chats)),
		logger.Int("delivered", sent))
	return sent
}

// NotifyChanges tells every monitoring chat about service status changes.
// A chat that cannot be reached has monitoring turned off.
func (b *Bot) NotifyChanges(ctx context.Context, changes []services.Change) {
	if len(changes) == 0 {
		return
	}
	chats := b.sessions.MonitoringChats()
	if len(chats) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString("🔔 <b>Service Status Change</b>\n" + rule + "\n\n")
	for _, c := range changes {
		fmt.Fprintf(&sb, "%s <b>%s</b>\n", statusEmoji(c.Current), esc(c.DisplayName))
		fmt.Fprintf(&sb, "   <code>%s</code> → <code>%s</code>\n", esc(c.Previous), esc(c.Current))
		fmt.Fprintf(&sb, "   🕒 %s\n\n", formatTime(c.At))
	}
	text := sb.String()

	for _, chatID := range chats {
		if err := b.send.Send(ctx, chatID, text); err != nil {
			b.log.Warn("monitor notification failed, disabling monitoring",
				logger.Int64("chat_id", chatID),
				logger.Error(err))
			for _, s := range b.sessions.DisableMonitoringChat(chatID) {
				b.persistSession(ctx, s)
			}
		}
	}
}
