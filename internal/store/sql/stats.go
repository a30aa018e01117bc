package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
)

const dayLayout = "2006-01-02"

// TotalStats summarises the accounts table for the dashboard.
type TotalStats struct {
	TotalAccounts int64   `json:"total_accounts"`
	UniqueDomains int64   `json:"unique_domains"`
	LastUpdated   *string `json:"last_updated"`
}

// Overview holds the headline numbers of the bot's /stats command.
type Overview struct {
	Total     int64
	Today     int64
	Yesterday int64
	Week      int64
	Month     int64
	Regions   int64
	Domains   int64
}

// DomainReport describes every leak recorded for a single domain.
type DomainReport struct {
	Domain  string
	Total   int64
	Week    int64
	Regions []GroupCount
	First   string
	Last    string
}

// DaySummary is the content of a daily report.
type DaySummary struct {
	Day     string
	Count   int64
	Total   int64
	Regions []GroupCount
	Domains []GroupCount
	Week    []GroupCount
}

// TableInfo is returned by the debug endpoint.
type TableInfo struct {
	Table         string           `json:"table"`
	Driver        string           `json:"driver"`
	Columns       []string         `json:"columns"`
	SearchColumns []string         `json:"search_columns"`
	OrderColumn   string           `json:"order_column"`
	Sample        domain.RawRecord `json:"sample_data"`
	Total         int64            `json:"total_count"`
	SampleDomains []string         `json:"sample_domains"`
}

// CategoryCounts groups accounts by category, largest first.
func (s *Store) CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error) {
	groups, err := s.GroupCounts(ctx, "category", 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CategoryCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.CategoryCount{Category: g.Key, Count: g.Count})
	}
	return out, nil
}

func (s *Store) TotalStats(ctx context.Context) (TotalStats, error) {
	var st TotalStats
	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return st, err
	}
	tbl := s.table(s.accounts)

	if st.TotalAccounts, err = s.count(ctx, "SELECT COUNT(*) FROM "+tbl); err != nil {
		return st, fmt.Errorf("%w: total accounts: %w", domain.ErrLocalFailed, err)
	}
	if catalog.Has("domain") {
		if st.UniqueDomains, err = s.count(ctx, "SELECT COUNT(DISTINCT "+s.d.quote("domain")+") FROM "+tbl); err != nil {
			return st, fmt.Errorf("%w: unique domains: %w", domain.ErrLocalFailed, err)
		}
	}
	if col, ok := catalog.FirstOf(domain.DateColumns); ok {
		var last any
		if err := s.db.QueryRowContext(ctx, "SELECT MAX("+s.d.quote(col)+") FROM "+tbl).Scan(&last); err != nil {
			return st, fmt.Errorf("%w: last update: %w", domain.ErrLocalFailed, err)
		}
		st.LastUpdated = domain.DateValue(last)
	}
	return st, nil
}

// GroupCounts counts accounts per distinct value of column, largest first.
// Empty and NULL values are skipped. limit <= 0 returns every group.
func (s *Store) GroupCounts(ctx context.Context, column string, limit int) ([]GroupCount, error) {
	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if !catalog.Has(column) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.accounts, column)
	}
	qb := newQuery(s.d)
	return s.groupBy(ctx, qb, s.accounts, column, limit)
}

func (s *Store) groupBy(ctx context.Context, qb *query, table, column string, limit int) ([]GroupCount, error) {
	col := s.d.quote(column)
	qb.where(col + " IS NOT NULL")
	qb.where(col + " <> ''")
	stmt := "SELECT " + col + ", COUNT(*) AS cnt FROM " + s.table(table) + qb.whereSQL() +
		" GROUP BY " + col + " ORDER BY cnt DESC, " + col + " ASC"
	if limit > 0 {
		stmt += " LIMIT " + qb.bind(limit)
	}
	rows, err := s.db.QueryContext(ctx, stmt, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: group by %s: %w", domain.ErrLocalFailed, column, err)
	}
	defer utils.Close(rows)
	groups, err := scanGroups(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: group by %s: %w", domain.ErrLocalFailed, column, err)
	}
	return groups, nil
}

// GroupShares is GroupCounts with the share of each group in the whole table.
func (s *Store) GroupShares(ctx context.Context, column string, limit int) ([]GroupCount, int64, error) {
	groups, err := s.GroupCounts(ctx, column, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.count(ctx, "SELECT COUNT(*) FROM "+s.table(s.accounts))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: total accounts: %w", domain.ErrLocalFailed, err)
	}
	return withPercentages(groups, total), total, nil
}

// Overview computes the /stats numbers relative to the store clock.
func (s *Store) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return ov, err
	}
	tbl := s.table(s.accounts)

	if ov.Total, err = s.count(ctx, "SELECT COUNT(*) FROM "+tbl); err != nil {
		return ov, fmt.Errorf("%w: total: %w", domain.ErrLocalFailed, err)
	}
	for col, dst := range map[string]*int64{"region": &ov.Regions, "domain": &ov.Domains} {
		if !catalog.Has(col) {
			continue
		}
		q := s.d.quote(col)
		if *dst, err = s.count(ctx, "SELECT COUNT(DISTINCT "+q+") FROM "+tbl+" WHERE "+q+" IS NOT NULL"); err != nil {
			return ov, fmt.Errorf("%w: distinct %s: %w", domain.ErrLocalFailed, col, err)
		}
	}

	dateCol, ok := catalog.FirstOf(domain.DateColumns)
	if !ok {
		return ov, nil
	}
	today := s.now()
	windows := []struct {
		dst      *int64
		from, to time.Time
	}{
		{&ov.Today, today, today},
		{&ov.Yesterday, today.AddDate(0, 0, -1), today.AddDate(0, 0, -1)},
		{&ov.Week, today.AddDate(0, 0, -7), today},
		{&ov.Month, today.AddDate(0, 0, -30), today},
	}
	for _, w := range windows {
		qb := newQuery(s.d)
		s.dayRange(qb, dateCol, w.from, w.to)
		if *w.dst, err = s.count(ctx, "SELECT COUNT(*) FROM "+tbl+qb.whereSQL(), qb.args...); err != nil {
			return ov, fmt.Errorf("%w: date window: %w", domain.ErrLocalFailed, err)
		}
	}
	return ov, nil
}

// DailyCounts returns per-day counts for the last days days, oldest first.
func (s *Store) DailyCounts(ctx context.Context, days int) ([]GroupCount, error) {
	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return nil, err
	}
	dateCol, ok := catalog.FirstOf(domain.DateColumns)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no date column", ErrUnknownColumn, s.accounts)
	}
	return s.dailyCounts(ctx, dateCol, s.now().AddDate(0, 0, -(days-1)), s.now())
}

func (s *Store) dailyCounts(ctx context.Context, dateCol string, from, to time.Time) ([]GroupCount, error) {
	qb := newQuery(s.d)
	s.dayRange(qb, dateCol, from, to)
	day := s.d.day(s.d.quote(dateCol))
	stmt := "SELECT " + day + " AS d, COUNT(*) FROM " + s.table(s.accounts) + qb.whereSQL() +
		" GROUP BY " + day + " ORDER BY d ASC"
	rows, err := s.db.QueryContext(ctx, stmt, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: daily counts: %w", domain.ErrLocalFailed, err)
	}
	defer utils.Close(rows)
	groups, err := scanGroups(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: daily counts: %w", domain.ErrLocalFailed, err)
	}
	return groups, nil
}

// DomainReport gathers totals, region spread and first/last sighting of d.
func (s *Store) DomainReport(ctx context.Context, d string) (DomainReport, error) {
	rep := DomainReport{Domain: strings.ToLower(strings.TrimSpace(d))}
	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return rep, err
	}
	if !catalog.Has("domain") {
		return rep, fmt.Errorf("%w: %s.domain", ErrUnknownColumn, s.accounts)
	}
	tbl := s.table(s.accounts)
	match := func(qb *query) {
		qb.where("LOWER(" + s.d.quote("domain") + ") = " + qb.bind(rep.Domain))
	}

	qb := newQuery(s.d)
	match(qb)
	if rep.Total, err = s.count(ctx, "SELECT COUNT(*) FROM "+tbl+qb.whereSQL(), qb.args...); err != nil {
		return rep, fmt.Errorf("%w: domain total: %w", domain.ErrLocalFailed, err)
	}
	if rep.Total == 0 {
		return rep, nil
	}

	if catalog.Has("region") {
		qb = newQuery(s.d)
		match(qb)
		if rep.Regions, err = s.groupBy(ctx, qb, s.accounts, "region", 5); err != nil {
			return rep, err
		}
	}

	dateCol, ok := catalog.FirstOf(domain.DateColumns)
	if !ok {
		return rep, nil
	}
	qb = newQuery(s.d)
	match(qb)
	s.dayRange(qb, dateCol, s.now().AddDate(0, 0, -7), s.now())
	if rep.Week, err = s.count(ctx, "SELECT COUNT(*) FROM "+tbl+qb.whereSQL(), qb.args...); err != nil {
		return rep, fmt.Errorf("%w: domain week: %w", domain.ErrLocalFailed, err)
	}

	qb = newQuery(s.d)
	match(qb)
	var first, last any
	col := s.d.quote(dateCol)
	if err := s.db.QueryRowContext(ctx, "SELECT MIN("+col+"), MAX("+col+") FROM "+tbl+qb.whereSQL(), qb.args...).Scan(&first, &last); err != nil {
		return rep, fmt.Errorf("%w: domain dates: %w", domain.ErrLocalFailed, err)
	}
	rep.First, rep.Last = dateText(first), dateText(last)
	return rep, nil
}

// DaySummary builds the daily report for the calendar day of day.
func (s *Store) DaySummary(ctx context.Context, day time.Time) (DaySummary, error) {
	sum := DaySummary{Day: day.Format(dayLayout)}
	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return sum, err
	}
	tbl := s.table(s.accounts)
	if sum.Total, err = s.count(ctx, "SELECT COUNT(*) FROM "+tbl); err != nil {
		return sum, fmt.Errorf("%w: total: %w", domain.ErrLocalFailed, err)
	}

	dateCol, ok := catalog.FirstOf(domain.DateColumns)
	if !ok {
		return sum, nil
	}
	qb := newQuery(s.d)
	s.dayRange(qb, dateCol, day, day)
	if sum.Count, err = s.count(ctx, "SELECT COUNT(*) FROM "+tbl+qb.whereSQL(), qb.args...); err != nil {
		return sum, fmt.Errorf("%w: day count: %w", domain.ErrLocalFailed, err)
	}

	for col, dst := range map[string]*[]GroupCount{"region": &sum.Regions, "domain": &sum.Domains} {
		if !catalog.Has(col) {
			continue
		}
		qb := newQuery(s.d)
		s.dayRange(qb, dateCol, day, day)
		groups, err := s.groupBy(ctx, qb, s.accounts, col, 5)
		if err != nil {
			return sum, err
		}
		*dst = withPercentages(groups, sum.Count)
	}

	if sum.Week, err = s.dailyCounts(ctx, dateCol, day.AddDate(0, 0, -6), day); err != nil {
		return sum, err
	}
	return sum, nil
}

// DebugTable describes the accounts table for operators.
func (s *Store) DebugTable(ctx context.Context) (TableInfo, error) {
	info := TableInfo{Table: s.accounts, Driver: s.d.name}
	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return info, err
	}
	info.Columns = catalog.Columns
	info.SearchColumns = catalog.SearchColumns()
	info.OrderColumn = catalog.OrderColumn()
	tbl := s.table(s.accounts)

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+tbl+" LIMIT 1")
	if err != nil {
		return info, fmt.Errorf("%w: sample row: %w", domain.ErrLocalFailed, err)
	}
	sample, err := scanRecords(rows)
	_ = rows.Close()
	if err != nil {
		return info, fmt.Errorf("%w: sample row: %w", domain.ErrLocalFailed, err)
	}
	if len(sample) > 0 {
		info.Sample = sample[0]
	}

	if info.Total, err = s.count(ctx, "SELECT COUNT(*) FROM "+tbl); err != nil {
		return info, fmt.Errorf("%w: total: %w", domain.ErrLocalFailed, err)
	}

	if catalog.Has("domain") {
		groups, err := s.GroupCounts(ctx, "domain", 10)
		if err != nil {
			return info, err
		}
		for _, g := range groups {
			info.SampleDomains = append(info.SampleDomains, g.Key)
		}
	}
	return info, nil
}

// dayRange restricts dateCol to the calendar days [from, to].
func (s *Store) dayRange(qb *query, dateCol string, from, to time.Time) {
	day := s.d.day(s.d.quote(dateCol))
	if from.Format(dayLayout) == to.Format(dayLayout) {
		qb.where(day + " = " + qb.bind(from.Format(dayLayout)))
		return
	}
	qb.where(day + " >= " + qb.bind(from.Format(dayLayout)))
	qb.where(day + " <= " + qb.bind(to.Format(dayLayout)))
}

func dateText(v any) string {
	if d := domain.DateValue(v); d != nil {
		return *d
	}
	return ""
}
