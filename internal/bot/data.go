package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	sqlstore "github.com/MrSnakeDoc/leakdesk/internal/store/sql"
)

const dayLayout = "2006-01-02"

func (b *Bot) cmdStats(ctx context.Context, _ Message, _ domain.BotSession) string {
	ov, err := b.data.Overview(ctx)
	if err != nil {
		b.log.Error("stats command failed", logger.Error(err))
		return failed("retrieve statistics")
	}

	growth := float64(ov.Today-ov.Yesterday) / float64(maxInt64(ov.Yesterday, 1)) * 100

	var sb strings.Builder
	sb.WriteString("📊 <b>Database Analytics</b>\n" + rule + "\n\n")
	sb.WriteString("📈 <b>Records</b>\n")
	fmt.Fprintf(&sb, "• Total: <b>%s</b>\n", num(ov.Total))
	fmt.Fprintf(&sb, "• Today: <b>%s</b> (%+.1f%% vs yesterday)\n", num(ov.Today), growth)
	fmt.Fprintf(&sb, "• This week: <b>%s</b>\n", num(ov.Week))
	fmt.Fprintf(&sb, "• This month: <b>%s</b>\n\n", num(ov.Month))
	sb.WriteString("🌍 <b>Diversity</b>\n")
	fmt.Fprintf(&sb, "• Unique regions: <b>%s</b>\n", num(ov.Regions))
	fmt.Fprintf(&sb, "• Unique domains: <b>%s</b>\n\n", num(ov.Domains))
	sb.WriteString(generated(b.now()))
	return sb.String()
}

func (b *Bot) cmdRegions(ctx context.Context, _ Message, _ domain.BotSession) string {
	return b.distribution(ctx, "region", 15, "🌍 <b>Regional Distribution</b>", regionFlag)
}

func (b *Bot) cmdDomains(ctx context.Context, _ Message, _ domain.BotSession) string {
	return b.distribution(ctx, "domain", 15, "📧 <b>Popular Domains</b>", domainEmoji)
}

func (b *Bot) cmdSources(ctx context.Context, _ Message, _ domain.BotSession) string {
	return b.distribution(ctx, "source", 10, "🔗 <b>Data Sources</b>", sourceEmoji)
}

// distribution renders the largest groups of column with a bar per group.
func (b *Bot) distribution(ctx context.Context, column string, limit int, title string, icon func(string) string) string {
	groups, _, err := b.data.GroupShares(ctx, column, limit)
	if err != nil {
		if errors.Is(err, sqlstore.ErrUnknownColumn) {
			return title + "\n\nThe accounts table has no <code>" + column + "</code> column."
		}
		b.log.Error("distribution command failed", logger.String("column", column), logger.Error(err))
		return failed("retrieve " + column + " data")
	}
	if len(groups) == 0 {
		return title + "\n\nNo data found."
	}

	var sb strings.Builder
	sb.WriteString(title + "\n" + rule + "\n\n")
	var analysed int64
	for i, g := range groups {
		analysed += g.Count
		fmt.Fprintf(&sb, "%2d. %s <b>%s</b>\n", i+1, icon(g.Key), esc(g.Key))
		fmt.Fprintf(&sb, "    <code>%s</code> %s (%.2f%%)\n\n", bar(g.Count, groups[0].Count, barWidth), num(g.Count), g.Percentage)
	}
	fmt.Fprintf(&sb, "📊 <b>Total analysed:</b> %s\n", num(analysed))
	sb.WriteString(generated(b.now()))
	return sb.String()
}

func (b *Bot) cmdLast7Days(ctx context.Context, _ Message, _ domain.BotSession) string {
	days, err := b.data.DailyCounts(ctx, 7)
	if err != nil {
		b.log.Error("last7days command failed", logger.Error(err))
		return failed("retrieve 7-day data")
	}
	if len(days) == 0 {
		return "📈 <b>7-Day Analysis</b>\n\nNo data found for the last 7 days."
	}

	var total, top int64
	for _, d := range days {
		total += d.Count
		top = maxInt64(top, d.Count)
	}
	avg := float64(total) / float64(len(days))

	var sb strings.Builder
	sb.WriteString("📈 <b>Last 7 Days Activity</b>\n" + rule + "\n\n")
	for _, d := range days {
		fmt.Fprintf(&sb, "<b>%s</b> (%s)\n", esc(d.Key), weekday(d.Key))
		fmt.Fprintf(&sb, "%s <code>%s</code> <b>%s</b>\n\n", trend(d.Count, avg), bar(d.Count, top, 15), num(d.Count))
	}
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "📊 <b>Week total:</b> %s\n", num(total))
	fmt.Fprintf(&sb, "📊 <b>Daily average:</b> %s\n", num(int64(avg)))
	sb.WriteString(generated(b.now()))
	return sb.String()
}

func (b *Bot) cmdSearch(ctx context.Context, m Message, _ domain.BotSession) string {
	if len(m.Args) == 0 {
		return usage("/search <keyword>")
	}
	q := domain.QueryRequest{Text: strings.Join(m.Args, " "), Page: 1, PageSize: 10}

	resp, err := b.search.Search(ctx, q)
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fmt.Sprintf("❌ <b>Invalid keyword</b>\n\nKeyword must be at least %d characters long.", domain.MinQueryLength)
	case err != nil:
		b.log.Error("search command failed", logger.Error(err))
		return failed("perform search")
	}
	if len(resp.Results) == 0 {
		return "❌ <b>No results</b>\n\nNothing found for <code>" + esc(q.Text) + "</code>."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 <b>Results for</b> <code>%s</code>\n%s\n\n", esc(q.Text), rule)
	if resp.Provenance == domain.ProvenanceFallback {
		sb.WriteString("⚠️ <i>Upstream API unavailable, results come from the database.</i>\n\n")
	}
	for i, r := range resp.Results {
		fmt.Fprintf(&sb, "%2d. %s <b>%s</b>\n", i+1, domainEmoji(r.Domain), esc(r.Domain))
		fmt.Fprintf(&sb, "    👤 <code>%s</code>  🔑 <code>%s</code>\n", esc(r.Username), esc(r.Password))
		fmt.Fprintf(&sb, "    %s %s · %s", regionFlag(r.Region), esc(r.Region), esc(r.Source))
		if r.SPID != nil {
			fmt.Fprintf(&sb, " · %s", esc(*r.SPID))
		}
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "📊 <b>Total matches:</b> %s (page %d/%d)\n",
		num(int64(resp.Pagination.Total)), resp.Pagination.Page, maxInt(resp.Pagination.Pages, 1))
	sb.WriteString(generated(b.now()))
	return sb.String()
}

// parseSPID accepts a plain row id or a "SP<n>" identifier.
func parseSPID(arg string) (int64, bool) {
	arg = strings.TrimSpace(arg)
	spid := strings.HasPrefix(strings.ToUpper(arg), "SP")
	if spid {
		arg = arg[2:]
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	if spid {
		n -= 1000
		if n < 0 {
			return 0, false
		}
	}
	return n, true
}

func (b *Bot) cmdSPID(ctx context.Context, m Message, _ domain.BotSession) string {
	if len(m.Args) == 0 {
		return usage("/spid <id>")
	}
	id, ok := parseSPID(m.Args[0])
	if !ok {
		return "❌ <b>Invalid SPID</b>\n\nSPID must be a number or <code>SP&lt;number&gt;</code>."
	}

	rec, catalog, err := b.data.AccountByID(ctx, id)
	switch {
	case errors.Is(err, sqlstore.ErrNotFound):
		return fmt.Sprintf("❌ <b>SPID not found</b>\n\nNo record with id <code>%d</code>.", id)
	case err != nil:
		b.log.Error("spid command failed", logger.Int64("id", id), logger.Error(err))
		return failed("search SPID")
	}
	r := domain.FormatResults([]domain.RawRecord{rec}, &catalog)[0]

	var sb strings.Builder
	sb.WriteString("🔍 <b>SPID Result</b>\n" + rule + "\n\n")
	fmt.Fprintf(&sb, "🆔 <b>ID:</b> <code>%d</code>\n", r.ID)
	if r.SPID != nil {
		fmt.Fprintf(&sb, "🏷 <b>SPID:</b> <code>%s</code>\n", esc(*r.SPID))
	}
	fmt.Fprintf(&sb, "📧 <b>Login:</b> <code>%s</code>\n", esc(r.Username))
	fmt.Fprintf(&sb, "🔑 <b>Password:</b> <code>%s</code>\n", esc(r.Password))
	fmt.Fprintf(&sb, "🌍 <b>Domain:</b> <code>%s</code>\n", esc(r.Domain))
	fmt.Fprintf(&sb, "🌎 <b>Region:</b> <code>%s</code>\n", esc(r.Region))
	fmt.Fprintf(&sb, "🔗 <b>Source:</b> <code>%s</code>\n", esc(r.Source))
	fmt.Fprintf(&sb, "🗂 <b>Category:</b> <code>%s</code>\n", esc(domain.CategoryLabel(r.Category)))
	date := domain.NotAvailable
	if r.Date != nil {
		date = *r.Date
	}
	fmt.Fprintf(&sb, "📅 <b>Date:</b> <code>%s</code>\n\n", esc(date))
	sb.WriteString("🕒 <b>Retrieved:</b> <code>" + formatTime(b.now()) + "</code>")
	return sb.String()
}

func (b *Bot) cmdDomain(ctx context.Context, m Message, _ domain.BotSession) string {
	if len(m.Args) == 0 {
		return usage("/domain <domain>")
	}
	rep, err := b.data.DomainReport(ctx, m.Args[0])
	if err != nil {
		b.log.Error("domain command failed", logger.String("domain", m.Args[0]), logger.Error(err))
		return failed("check domain")
	}
	if rep.Total == 0 {
		return "🌐 <b>Domain not found</b>\n\nNo records for <code>" + esc(rep.Domain) + "</code>."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🌐 <b>Domain report:</b> %s <code>%s</code>\n%s\n\n", domainEmoji(rep.Domain), esc(rep.Domain), rule)
	fmt.Fprintf(&sb, "📊 <b>Total records:</b> %s\n", num(rep.Total))
	fmt.Fprintf(&sb, "📅 <b>Last 7 days:</b> %s\n", num(rep.Week))
	if rep.First != "" {
		fmt.Fprintf(&sb, "⏮ <b>First seen:</b> <code>%s</code>\n", esc(rep.First))
		fmt.Fprintf(&sb, "⏭ <b>Last seen:</b> <code>%s</code>\n", esc(rep.Last))
	}
	if len(rep.Regions) > 0 {
		sb.WriteString("\n🌍 <b>Top regions</b>\n")
		for i, g := range rep.Regions {
			fmt.Fprintf(&sb, "%d. %s %s: %s\n", i+1, regionFlag(g.Key), esc(g.Key), num(g.Count))
		}
	}
	sb.WriteString("\n" + generated(b.now()))
	return sb.String()
}

func (b *Bot) cmdDate(ctx context.Context, m Message, _ domain.BotSession) string {
	if len(m.Args) == 0 {
		return usage("/date <YYYY-MM-DD>")
	}
	day, err := time.ParseInLocation(dayLayout, m.Args[0], time.Local)
	if err != nil {
		return "❌ <b>Invalid date format</b>\n\nUse <code>YYYY-MM-DD</code>, for example <code>2024-05-10</code>."
	}
	sum, err := b.data.DaySummary(ctx, day)
	if err != nil {
		b.log.Error("date command failed", logger.String("day", m.Args[0]), logger.Error(err))
		return failed("query date")
	}
	if sum.Count == 0 {
		return "📅 <b>No data found</b>\n\nNo records for <code>" + esc(sum.Day) + "</code>."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 <b>Date query: %s</b>\n%s\n\n", esc(sum.Day), rule)
	fmt.Fprintf(&sb, "📊 <b>Total records:</b> %s\n\n", num(sum.Count))
	writeTop(&sb, "🌐 <b>Top domains</b>", sum.Domains, domainEmoji)
	writeTop(&sb, "🌍 <b>Top regions</b>", sum.Regions, regionFlag)
	sb.WriteString(generated(b.now()))
	return sb.String()
}

func writeTop(sb *strings.Builder, title string, groups []sqlstore.GroupCount, icon func(string) string) {
	if len(groups) == 0 {
		return
	}
	sb.WriteString(title + "\n")
	for i, g := range groups {
		fmt.Fprintf(sb, "%d. %s <b>%s</b>: %s (%.2f%%)\n", i+1, icon(g.Key), esc(g.Key), num(g.Count), g.Percentage)
	}
	sb.WriteString("\n")
}

func weekday(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return "?"
	}
	return t.Format("Mon")
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
