package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

func openMemDB(t *testing.T, schema ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A single connection keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func newTestStore(t *testing.T, db *sql.DB, cache CatalogCache) *Store {
	t.Helper()
	s, err := New(db, Options{Driver: "sqlite", Catalogs: cache}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return s
}

const accountsSchema = `CREATE TABLE fetched_accounts (
	id INTEGER PRIMARY KEY,
	domain TEXT,
	email TEXT,
	password TEXT,
	region TEXT,
	source TEXT,
	category TEXT,
	fetch_date TEXT
)`

func seedAccounts(t *testing.T, db *sql.DB, n int) {
	t.Helper()
	base := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		region := "TR"
		if i%2 == 0 {
			region = "US"
		}
		_, err := db.Exec(`INSERT INTO fetched_accounts (id, domain, email, password, region, source, category, fetch_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, fmt.Sprintf("site%d.gov.tr", i), fmt.Sprintf("user%d@mail.com", i), "pw", region, "TXT", "government",
			base.Add(-time.Duration(i)*time.Hour).Format("2006-01-02 15:04:05"))
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

type countingCache struct {
	store map[string]domain.ColumnCatalog
	puts  int
}

func (c *countingCache) Get(table string) (domain.ColumnCatalog, bool) {
	v, ok := c.store[table]
	return v, ok
}

func (c *countingCache) Put(table string, cat domain.ColumnCatalog) {
	if c.store == nil {
		c.store = map[string]domain.ColumnCatalog{}
	}
	c.puts++
	c.store[table] = cat
}

func (c *countingCache) Invalidate() { c.store = nil }

func TestSearchAccounts_Pagination(t *testing.T) {
	db := openMemDB(t, accountsSchema)
	seedAccounts(t, db, 45)
	s := newTestStore(t, db, nil)

	res, err := s.SearchAccounts(context.Background(), domain.QueryRequest{Text: "gov", Page: 3, PageSize: 20})
	if err != nil {
		t.Fatalf("SearchAccounts: %v", err)
	}
	if res.Total != 45 {
		t.Errorf("Total = %d, want 45", res.Total)
	}
	if len(res.Rows) != 5 {
		t.Errorf("rows = %d, want 5", len(res.Rows))
	}
	if want := []string{"domain", "email", "password"}; !reflect.DeepEqual(res.SearchColumns, want) {
		t.Errorf("SearchColumns = %v, want %v", res.SearchColumns, want)
	}
	// Newest first: id 1 is the most recent, so page 3 starts at id 41.
	if got := domain.IntValue(res.Rows[0]["id"]); got != 41 {
		t.Errorf("first row id = %d, want 41", got)
	}
}

func TestSearchAccounts_PageSizeClamped(t *testing.T) {
	db := openMemDB(t, accountsSchema)
	seedAccounts(t, db, 120)
	s := newTestStore(t, db, nil)

	res, err := s.SearchAccounts(context.Background(), domain.QueryRequest{Text: "gov", Page: 1, PageSize: 500})
	if err != nil {
		t.Fatalf("SearchAccounts: %v", err)
	}
	if len(res.Rows) != domain.MaxPageSize {
		t.Errorf("rows = %d, want %d", len(res.Rows), domain.MaxPageSize)
	}
}

func TestSearchAccounts_Filters(t *testing.T) {
	db := openMemDB(t, accountsSchema)
	seedAccounts(t, db, 10)
	s := newTestStore(t, db, nil)

	res, err := s.SearchAccounts(context.Background(), domain.QueryRequest{
		Text: "site", Page: 1, PageSize: 50,
		Filters: domain.Filters{Region: "US", Domain: "site1"},
	})
	if err != nil {
		t.Fatalf("SearchAccounts: %v", err)
	}
	// site1 and site10 match the domain filter, only site10 is in US.
	if res.Total != 1 {
		t.Fatalf("Total = %d, want 1", res.Total)
	}
	if got := res.Rows[0]["domain"]; got != "site10.gov.tr" {
		t.Errorf("domain = %v", got)
	}
}

func TestSearchAccounts_FilterOnAbsentColumnIgnored(t *testing.T) {
	db := openMemDB(t,
		`CREATE TABLE fetched_accounts (id INTEGER PRIMARY KEY, domain TEXT, login TEXT, secret TEXT, created_at TEXT)`,
		`INSERT INTO fetched_accounts VALUES (1, 'a.com', 'alice', 's1', '2024-01-01 10:00:00')`,
		`INSERT INTO fetched_accounts VALUES (2, 'b.com', 'bob', 's2', '2024-01-02 10:00:00')`,
	)
	s := newTestStore(t, db, nil)

	res, err := s.SearchAccounts(context.Background(), domain.QueryRequest{
		Text: "alice", Page: 1, PageSize: 10,
		Filters: domain.Filters{Region: "TR", Source: "TXT"},
	})
	if err != nil {
		t.Fatalf("SearchAccounts: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("Total = %d, want 1", res.Total)
	}
	if want := []string{"domain", "login", "secret"}; !reflect.DeepEqual(res.SearchColumns, want) {
		t.Errorf("SearchColumns = %v, want %v", res.SearchColumns, want)
	}

	formatted := domain.FormatResults(res.Rows, &res.Catalog)
	if formatted[0].Username != "alice" || formatted[0].Password != "s1" {
		t.Errorf("formatted = %+v", formatted[0])
	}
}

func TestSearchAccounts_NoSearchColumnFallsBackToDomain(t *testing.T) {
	db := openMemDB(t, `CREATE TABLE fetched_accounts (id INTEGER PRIMARY KEY, notes TEXT)`)
	s := newTestStore(t, db, nil)

	_, err := s.SearchAccounts(context.Background(), domain.QueryRequest{Text: "abc", Page: 1, PageSize: 10})
	if !errors.Is(err, domain.ErrLocalFailed) {
		t.Fatalf("expected ErrLocalFailed from the literal domain match, got %v", err)
	}
}

func TestSearchAccounts_MissingTable(t *testing.T) {
	db := openMemDB(t)
	s := newTestStore(t, db, nil)

	_, err := s.SearchAccounts(context.Background(), domain.QueryRequest{Text: "abc", Page: 1, PageSize: 10})
	if !errors.Is(err, domain.ErrLocalFailed) {
		t.Fatalf("expected ErrLocalFailed, got %v", err)
	}
}

func TestSearchAccounts_InjectionIsBound(t *testing.T) {
	db := openMemDB(t, accountsSchema)
	seedAccounts(t, db, 3)
	s := newTestStore(t, db, nil)

	res, err := s.SearchAccounts(context.Background(), domain.QueryRequest{Text: "x' OR '1'='1", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("SearchAccounts: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("Total = %d, want 0", res.Total)
	}
}

func TestCatalog_Cached(t *testing.T) {
	db := openMemDB(t, accountsSchema)
	cache := &countingCache{}
	s := newTestStore(t, db, cache)

	for i := 0; i < 3; i++ {
		if _, err := s.Catalog(context.Background(), "fetched_accounts"); err != nil {
			t.Fatalf("Catalog: %v", err)
		}
	}
	if cache.puts != 1 {
		t.Errorf("puts = %d, want 1", cache.puts)
	}

	s.InvalidateCatalogs()
	if _, err := s.Catalog(context.Background(), "fetched_accounts"); err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if cache.puts != 2 {
		t.Errorf("puts after invalidate = %d, want 2", cache.puts)
	}
}

func TestNew_RejectsBadTable(t *testing.T) {
	db := openMemDB(t)
	if _, err := New(db, Options{Driver: "sqlite", AccountsTable: "a b"}, logger.Nop()); err == nil {
		t.Fatal("expected error for invalid table name")
	}
	if _, err := New(db, Options{Driver: "oracle"}, logger.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestAccountByID(t *testing.T) {
	db := openMemDB(t, accountsSchema)
	seedAccounts(t, db, 5)
	s := newTestStore(t, db, nil)

	rec, _, err := s.AccountByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("AccountByID: %v", err)
	}
	if rec["domain"] != "site3.gov.tr" {
		t.Errorf("domain = %v", rec["domain"])
	}

	if _, _, err := s.AccountByID(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
