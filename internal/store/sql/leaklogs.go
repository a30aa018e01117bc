package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
)

// Columns read from the leak logs table.
var leakLogColumns = []string{"id", "channel", "source", "content", "author", "detection_date", "type", "created_at"}

// LeakLogFilter narrows a leak log listing. Source and Channel are substring
// matches, Type is exact.
type LeakLogFilter struct {
	Source  string
	Type    string
	Channel string
}

type LeakLogPage struct {
	Results    []domain.RawRecord `json:"results"`
	Pagination domain.Pagination  `json:"pagination"`
}

type LeakLogStats struct {
	Total    int64        `json:"total_logs"`
	Sources  []GroupCount `json:"sources"`
	Types    []GroupCount `json:"types"`
	Channels []GroupCount `json:"channels"`
}

func (s *Store) ListLeakLogs(ctx context.Context, f LeakLogFilter, page, size int) (*LeakLogPage, error) {
	qb := newQuery(s.d)
	if f.Source != "" {
		qb.where(qb.contains("source", f.Source))
	}
	if f.Type != "" {
		qb.equals("type", f.Type)
	}
	if f.Channel != "" {
		qb.where(qb.contains("channel", f.Channel))
	}
	return s.leakLogPage(ctx, qb, page, size)
}

// SearchLeakLogs matches term against content, author, source and channel.
func (s *Store) SearchLeakLogs(ctx context.Context, term string, page, size int) (*LeakLogPage, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < domain.MinQueryLength {
		return nil, fmt.Errorf("%w: search text must be at least %d characters", domain.ErrValidation, domain.MinQueryLength)
	}
	qb := newQuery(s.d)
	qb.anyContains([]string{"content", "author", "source", "channel"}, term)
	return s.leakLogPage(ctx, qb, page, size)
}

func (s *Store) leakLogPage(ctx context.Context, qb *query, page, size int) (*LeakLogPage, error) {
	page, size = domain.ClampPage(page), domain.ClampPageSize(size)
	from := " FROM " + s.table(s.leakLogs) + qb.whereSQL()

	total, err := s.count(ctx, "SELECT COUNT(*)"+from, qb.countArgs()...)
	if err != nil {
		return nil, fmt.Errorf("%w: count leak logs: %w", domain.ErrLocalFailed, err)
	}

	cols := make([]string, 0, len(leakLogColumns))
	for _, c := range leakLogColumns {
		cols = append(cols, s.d.quote(c))
	}
	stmt := "SELECT " + strings.Join(cols, ", ") + from +
		" ORDER BY " + s.d.quote("created_at") + " DESC, " + s.d.quote("id") + " DESC" +
		qb.page(size, domain.Offset(page, size))

	rows, err := s.db.QueryContext(ctx, stmt, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list leak logs: %w", domain.ErrLocalFailed, err)
	}
	defer utils.Close(rows)
	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: read leak logs: %w", domain.ErrLocalFailed, err)
	}
	return &LeakLogPage{
		Results:    records,
		Pagination: domain.NewPagination(page, size, int(total)),
	}, nil
}

func (s *Store) LeakLogStats(ctx context.Context) (*LeakLogStats, error) {
	var (
		st  LeakLogStats
		err error
	)
	if st.Total, err = s.count(ctx, "SELECT COUNT(*) FROM "+s.table(s.leakLogs)); err != nil {
		return nil, fmt.Errorf("%w: count leak logs: %w", domain.ErrLocalFailed, err)
	}
	if st.Sources, err = s.groupBy(ctx, newQuery(s.d), s.leakLogs, "source", 10); err != nil {
		return nil, err
	}
	if st.Types, err = s.groupBy(ctx, newQuery(s.d), s.leakLogs, "type", 0); err != nil {
		return nil, err
	}
	if st.Channels, err = s.groupBy(ctx, newQuery(s.d), s.leakLogs, "channel", 10); err != nil {
		return nil, err
	}
	return &st, nil
}
