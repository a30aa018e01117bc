package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

const leakLogsSchema = `CREATE TABLE leak_logs (
	id INTEGER PRIMARY KEY,
	channel TEXT,
	source TEXT,
	content TEXT,
	author TEXT,
	detection_date TEXT,
	type TEXT,
	created_at TEXT
)`

func seedLeakLogs(t *testing.T, s *Store) {
	t.Helper()
	rows := [][]any{
		{1, "breach-news", "telegram", "dump of gov.tr mails", "x", "2024-05-01", "combo", "2024-05-01 10:00:00"},
		{2, "breach-news", "telegram", "bank credentials", "y", "2024-05-02", "stealer", "2024-05-02 10:00:00"},
		{3, "forum-a", "forum", "random chatter", "gov-watcher", "2024-05-03", "combo", "2024-05-03 10:00:00"},
	}
	for _, r := range rows {
		if _, err := s.db.Exec(`INSERT INTO leak_logs VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r...); err != nil {
			t.Fatalf("seed leak logs: %v", err)
		}
	}
}

func TestListLeakLogs(t *testing.T) {
	s := newTestStore(t, openMemDB(t, leakLogsSchema), nil)
	seedLeakLogs(t, s)

	page, err := s.ListLeakLogs(context.Background(), LeakLogFilter{Source: "tele", Type: "combo"}, 1, 20)
	if err != nil {
		t.Fatalf("ListLeakLogs: %v", err)
	}
	if page.Pagination.Total != 1 || domain.IntValue(page.Results[0]["id"]) != 1 {
		t.Errorf("page = %+v", page)
	}

	all, err := s.ListLeakLogs(context.Background(), LeakLogFilter{}, 1, 2)
	if err != nil {
		t.Fatalf("ListLeakLogs: %v", err)
	}
	if all.Pagination.Pages != 2 || !all.Pagination.HasNext {
		t.Errorf("pagination = %+v", all.Pagination)
	}
	if domain.IntValue(all.Results[0]["id"]) != 3 {
		t.Errorf("expected newest first, got %v", all.Results[0]["id"])
	}
}

func TestSearchLeakLogs(t *testing.T) {
	s := newTestStore(t, openMemDB(t, leakLogsSchema), nil)
	seedLeakLogs(t, s)

	page, err := s.SearchLeakLogs(context.Background(), "gov", 1, 20)
	if err != nil {
		t.Fatalf("SearchLeakLogs: %v", err)
	}
	// Matches content of #1 and author of #3.
	if page.Pagination.Total != 2 {
		t.Errorf("total = %d, want 2", page.Pagination.Total)
	}

	if _, err := s.SearchLeakLogs(context.Background(), "g", 1, 20); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestLeakLogStats(t *testing.T) {
	s := newTestStore(t, openMemDB(t, leakLogsSchema), nil)
	seedLeakLogs(t, s)

	st, err := s.LeakLogStats(context.Background())
	if err != nil {
		t.Fatalf("LeakLogStats: %v", err)
	}
	if st.Total != 3 {
		t.Errorf("Total = %d", st.Total)
	}
	if len(st.Sources) != 2 || st.Sources[0].Key != "telegram" || st.Sources[0].Count != 2 {
		t.Errorf("sources = %+v", st.Sources)
	}
	if len(st.Types) != 2 || len(st.Channels) != 2 {
		t.Errorf("types=%v channels=%v", st.Types, st.Channels)
	}
}
