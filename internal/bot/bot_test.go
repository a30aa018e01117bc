package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/services"
	sqlstore "github.com/MrSnakeDoc/leakdesk/internal/store/sql"
)

type sent struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu     sync.Mutex
	msgs   []sent
	failOn map[int64]bool
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[chatID] {
		return errors.New("bot was blocked by the user")
	}
	f.msgs = append(f.msgs, sent{chatID, text})
	return nil
}

func (f *fakeSender) last(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		t.Fatal("no message sent")
	}
	return f.msgs[len(f.msgs)-1].text
}

type fakeSearcher struct {
	resp *domain.SearchResponse
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, q domain.QueryRequest) (*domain.SearchResponse, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return f.resp, f.err
}

type fakeData struct {
	overview sqlstore.Overview
	groups   []sqlstore.GroupCount
	groupErr error
	days     []sqlstore.GroupCount
	record   domain.RawRecord
	summary  sqlstore.DaySummary
}

func (f *fakeData) Driver() string             { return "sqlite" }
func (f *fakeData) Ping(context.Context) error { return nil }
func (f *fakeData) Overview(context.Context) (sqlstore.Overview, error) {
	return f.overview, nil
}
func (f *fakeData) GroupShares(context.Context, string, int) ([]sqlstore.GroupCount, int64, error) {
	return f.groups, 0, f.groupErr
}
func (f *fakeData) DailyCounts(context.Context, int) ([]sqlstore.GroupCount, error) {
	return f.days, nil
}
func (f *fakeData) AccountByID(_ context.Context, id int64) (domain.RawRecord, domain.ColumnCatalog, error) {
	if f.record == nil || domain.IntValue(f.record["id"]) != id {
		return nil, domain.ColumnCatalog{}, sqlstore.ErrNotFound
	}
	return f.record, domain.NewColumnCatalog("fetched_accounts", []string{"id", "domain", "username", "password", "region", "source"}), nil
}
func (f *fakeData) DomainReport(_ context.Context, d string) (sqlstore.DomainReport, error) {
	return sqlstore.DomainReport{Domain: d}, nil
}
func (f *fakeData) DaySummary(_ context.Context, day time.Time) (sqlstore.DaySummary, error) {
	s := f.summary
	s.Day = day.Format(dayLayout)
	return s, nil
}
func (f *fakeData) DebugTable(context.Context) (sqlstore.TableInfo, error) {
	return sqlstore.TableInfo{Table: "fetched_accounts", Driver: "sqlite"}, nil
}

type fakeUnits struct {
	records []services.Record
	actions []string
}

func (f *fakeUnits) StatusAll(context.Context) []services.Record { return f.records }
func (f *fakeUnits) Control(_ context.Context, action, name string) (services.ActionResult, error) {
	if name != "leakdesk-api" {
		return services.ActionResult{}, services.ErrUnknownUnit
	}
	f.actions = append(f.actions, action+" "+name)
	return services.ActionResult{Success: true, Message: "Service " + action + " completed successfully"}, nil
}
func (f *fakeUnits) Logs(context.Context, string, int) (string, error) { return "line 1\nline 2", nil }

type fakePersist struct {
	mu       sync.Mutex
	sessions map[int64]domain.BotSession
	subs     map[int64]bool
}

func newFakePersist() *fakePersist {
	return &fakePersist{sessions: map[int64]domain.BotSession{}, subs: map[int64]bool{}}
}

func (f *fakePersist) SaveBotSession(_ context.Context, s domain.BotSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.UserID] = s
	return nil
}
func (f *fakePersist) DeleteBotSession(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}
func (f *fakePersist) Subscribe(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[chatID] = true
	return nil
}
func (f *fakePersist) Unsubscribe(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, chatID)
	return nil
}
func (f *fakePersist) Subscribers(context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.subs))
	for id := range f.subs {
		out = append(out, id)
	}
	return out, nil
}

type fixture struct {
	bot     *Bot
	send    *fakeSender
	search  *fakeSearcher
	data    *fakeData
	units   *fakeUnits
	idx     *index.MemoryIndex
	persist *fakePersist
}

var fixedNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		send:    &fakeSender{failOn: map[int64]bool{}},
		search:  &fakeSearcher{},
		data:    &fakeData{},
		units:   &fakeUnits{},
		idx:     index.NewMemoryIndex(),
		persist: newFakePersist(),
	}
	f.bot = New(Options{Secret: "s3cret", CheckInterval: 30 * time.Second, ReportAt: "09:00"},
		f.send, f.search, f.data, f.units, f.idx, f.persist, logger.Nop())
	f.bot.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) run(t *testing.T, userID int64, text string) string {
	t.Helper()
	fields := strings.Fields(text)
	f.bot.Handle(context.Background(), Message{
		UserID:   userID,
		ChatID:   userID * 10,
		Username: fmt.Sprintf("user%d", userID),
		Command:  fields[0],
		Args:     fields[1:],
	})
	return f.send.last(t)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	if got := f.run(t, 1, "/login wrong"); !strings.Contains(got, "Authentication failed") {
		t.Errorf("wrong token reply = %q", got)
	}
	if _, ok := f.idx.GetSession(1); ok {
		t.Fatalf("session created on failed login")
	}

	if got := f.run(t, 1, "/login s3cret"); !strings.Contains(got, "Admin") {
		t.Errorf("first login should be admin, got %q", got)
	}
	if got := f.run(t, 2, "/login s3cret"); !strings.Contains(got, "<code>User</code>") {
		t.Errorf("second login should be a plain user, got %q", got)
	}
	if s, ok := f.persist.sessions[2]; !ok || s.IsAdmin || s.ChatID != 20 {
		t.Errorf("persisted session = %+v, %v", s, ok)
	}
}

func TestHandleAuthorization(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")
	f.run(t, 2, "/login s3cret")

	tests := []struct {
		name string
		user int64
		cmd  string
		want string
	}{
		{name: "unauthenticated", user: 3, cmd: "/stats", want: "Access denied"},
		{name: "admin only", user: 2, cmd: "/sessions", want: "Admin access required"},
		{name: "admin allowed", user: 1, cmd: "/sessions", want: "Active Sessions"},
		{name: "group suffix", user: 2, cmd: "/help@leakdesk_bot", want: "/stats"},
		{name: "admin help lists admin commands", user: 1, cmd: "/help", want: "/service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.run(t, tt.user, tt.cmd); !strings.Contains(got, tt.want) {
				t.Errorf("%s reply = %q, want it to contain %q", tt.cmd, got, tt.want)
			}
		})
	}

	if got := f.run(t, 2, "/help"); strings.Contains(got, "/service ") {
		t.Errorf("non-admin help should not list admin commands")
	}
	if s, _ := f.idx.GetSession(1); s.LastCommand != "help" {
		t.Errorf("LastCommand = %q, want help", s.LastCommand)
	}
}

func TestHandleIgnoresUnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.bot.Handle(context.Background(), Message{UserID: 1, ChatID: 10, Command: "nope"})
	if len(f.send.msgs) != 0 {
		t.Errorf("unknown command got a reply: %+v", f.send.msgs)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")
	f.data.overview = sqlstore.Overview{Total: 1234567, Today: 150, Yesterday: 100, Week: 700, Month: 3000, Regions: 12, Domains: 4321}

	got := f.run(t, 1, "/stats")
	for _, want := range []string{"1,234,567", "+50.0%", "4,321"} {
		if !strings.Contains(got, want) {
			t.Errorf("/stats reply missing %q:\n%s", want, got)
		}
	}
}

func TestDistribution(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")

	f.data.groups = []sqlstore.GroupCount{{Key: "TR", Count: 80, Percentage: 80}, {Key: "US", Count: 20, Percentage: 20}}
	got := f.run(t, 1, "/regions")
	if !strings.Contains(got, strings.Repeat("█", barWidth)) || !strings.Contains(got, "Total analysed:</b> 100") {
		t.Errorf("/regions reply = %q", got)
	}

	f.data.groupErr = sqlstore.ErrUnknownColumn
	if got := f.run(t, 1, "/sources"); !strings.Contains(got, "no <code>source</code> column") {
		t.Errorf("/sources without column = %q", got)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")

	if got := f.run(t, 1, "/search"); !strings.Contains(got, "Usage") {
		t.Errorf("/search without args = %q", got)
	}
	if got := f.run(t, 1, "/search a"); !strings.Contains(got, "Invalid keyword") {
		t.Errorf("/search a = %q", got)
	}

	f.search.resp = &domain.SearchResponse{
		Success:    true,
		Results:    []domain.FormattedResult{{ID: 3, Domain: "mail.example", Username: "bob", Password: "<pw>", Region: "TR", Source: "TXT", SPID: domain.SPID(3)}},
		Pagination: domain.NewPagination(1, 10, 1),
		Provenance: domain.ProvenanceFallback,
	}
	got := f.run(t, 1, "/search example")
	for _, want := range []string{"Upstream API unavailable", "&lt;pw&gt;", "SP1003", "page 1/1"} {
		if !strings.Contains(got, want) {
			t.Errorf("/search reply missing %q:\n%s", want, got)
		}
	}

	f.search.resp, f.search.err = nil, domain.ErrSearchUnavailable
	if got := f.run(t, 1, "/search example"); !strings.Contains(got, "Failed to perform search") {
		t.Errorf("/search when unavailable = %q", got)
	}
}

func TestParseSPID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{in: "42", want: 42, ok: true},
		{in: "SP1003", want: 3, ok: true},
		{in: "sp1000", want: 0, ok: true},
		{in: "SP999", ok: false},
		{in: "abc", ok: false},
		{in: "-1", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseSPID(tt.in)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("parseSPID(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSPID(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")
	f.data.record = domain.RawRecord{"id": int64(3), "domain": "example.com", "username": "bob", "password": "pw"}

	if got := f.run(t, 1, "/spid SP1003"); !strings.Contains(got, "example.com") || !strings.Contains(got, "SP1003") {
		t.Errorf("/spid SP1003 = %q", got)
	}
	if got := f.run(t, 1, "/spid 7"); !strings.Contains(got, "SPID not found") {
		t.Errorf("/spid 7 = %q", got)
	}
}

func TestDateValidation(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")

	if got := f.run(t, 1, "/date 10-05-2024"); !strings.Contains(got, "Invalid date format") {
		t.Errorf("/date with bad format = %q", got)
	}
	f.data.summary = sqlstore.DaySummary{Count: 5, Total: 50, Domains: []sqlstore.GroupCount{{Key: "gmail.com", Count: 5, Percentage: 100}}}
	if got := f.run(t, 1, "/date 2024-05-09"); !strings.Contains(got, "2024-05-09") || !strings.Contains(got, "gmail.com") {
		t.Errorf("/date 2024-05-09 = %q", got)
	}
}

func TestServiceCommands(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")

	if got := f.run(t, 1, "/service restart leakdesk-api"); !strings.Contains(got, "completed successfully") {
		t.Errorf("/service restart = %q", got)
	}
	if len(f.units.actions) != 1 || f.units.actions[0] != "restart leakdesk-api" {
		t.Errorf("actions = %v", f.units.actions)
	}
	if got := f.run(t, 1, "/service restart sshd"); !strings.Contains(got, "Unknown service") {
		t.Errorf("/service on unknown unit = %q", got)
	}
	if got := f.run(t, 1, "/logs leakdesk-api x"); !strings.Contains(got, "Invalid line count") {
		t.Errorf("/logs with bad count = %q", got)
	}
	if got := f.run(t, 1, "/logs leakdesk-api 5"); !strings.Contains(got, "<pre>line 1\nline 2</pre>") {
		t.Errorf("/logs = %q", got)
	}
}

func TestMonitorAndNotify(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")
	f.run(t, 2, "/login s3cret")
	f.run(t, 1, "/monitor on")
	f.run(t, 2, "/monitor on")

	if !f.persist.sessions[1].Monitoring {
		t.Fatalf("monitoring flag not persisted")
	}

	f.send.failOn[20] = true
	before := len(f.send.msgs)
	f.bot.NotifyChanges(context.Background(), []services.Change{
		{Name: "leakdesk-api.service", DisplayName: "API", Previous: "active", Current: "failed", At: fixedNow},
	})

	if len(f.send.msgs) != before+1 || f.send.msgs[len(f.send.msgs)-1].chatID != 10 {
		t.Errorf("notification should reach chat 10 only, got %+v", f.send.msgs[before:])
	}
	if !strings.Contains(f.send.last(t), "❌ <b>API</b>") {
		t.Errorf("notification = %q", f.send.last(t))
	}
	if s, _ := f.idx.GetSession(2); s.Monitoring {
		t.Errorf("unreachable chat should have monitoring disabled")
	}
	if f.persist.sessions[2].Monitoring {
		t.Errorf("disabled monitoring should be persisted")
	}
}

func TestBroadcastReport(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/login s3cret")
	f.run(t, 1, "/subscribe")
	_ = f.persist.Subscribe(context.Background(), 99)
	f.send.failOn[99] = true

	if n := f.bot.BroadcastReport(context.Background()); n != 1 {
		t.Errorf("BroadcastReport() = %d, want 1", n)
	}
	got := f.send.last(t)
	if !strings.Contains(got, "Daily Report: 2024-05-09") || !strings.Contains(got, "No new records") {
		t.Errorf("report = %q", got)
	}
}

func TestSplitMessage(t *testing.T) {
	short := "hello"
	if parts := splitMessage(short, 100); len(parts) != 1 || parts[0] != short {
		t.Errorf("splitMessage(short) = %v", parts)
	}

	var sb strings.Builder
	sb.WriteString("📜 <b>api</b>\n\n<pre>")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "log line number %02d\n", i)
	}
	sb.WriteString("</pre>")

	parts := splitMessage(sb.String(), 200)
	if len(parts) < 2 {
		t.Fatalf("splitMessage() returned %d parts", len(parts))
	}
	for i, p := range parts {
		if n := textLen(p); n > 200 {
			t.Errorf("part %d is %d units long", i, n)
		}
		if strings.Count(p, "<pre>") != strings.Count(p, "</pre>") {
			t.Errorf("part %d has unbalanced pre tags: %q", i, p)
		}
	}
	if joined := strings.Join(parts, ""); !strings.Contains(joined, "log line number 49") {
		t.Errorf("content lost while splitting")
	}
}

func TestSplitMessageCountsUTF16(t *testing.T) {
	if n := textLen("a😀é"); n != 4 {
		t.Errorf("textLen() = %d, want 4", n)
	}

	// 3000 runes, 6000 UTF-16 units.
	text := strings.Repeat("😀", 1500) + "\n" + strings.Repeat("🔥", 1499)
	parts := splitMessage(text, maxMessageLen)
	if len(parts) < 2 {
		t.Fatalf("splitMessage() returned %d part(s) for %d units", len(parts), textLen(text))
	}
	for i, p := range parts {
		if n := textLen(p); n > maxMessageLen {
			t.Errorf("part %d is %d units long", i, n)
		}
		if !utf8.ValidString(p) {
			t.Errorf("part %d cut inside a rune", i)
		}
	}
	if strings.Join(parts, "") != text {
		t.Errorf("content changed while splitting")
	}
}
