package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
)

var (
	// ErrNotFound is returned by single-row lookups that match nothing.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownColumn is returned when a grouping column is not in the table.
	ErrUnknownColumn = errors.New("unknown column")

	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// CatalogCache keeps discovered table layouts between calls.
type CatalogCache interface {
	Get(table string) (domain.ColumnCatalog, bool)
	Put(table string, catalog domain.ColumnCatalog)
	Invalidate()
}

type Options struct {
	Driver        string // mysql | postgres | sqlite
	AccountsTable string
	LeakLogsTable string
	Catalogs      CatalogCache // optional, nil rediscovers on every call
}

// Store runs every read against the backing relational database.
type Store struct {
	db       *sql.DB
	d        dialect
	accounts string
	leakLogs string
	catalogs CatalogCache
	log      logger.Logger
	now      func() time.Time
}

// Open opens and pings a pool for the given driver.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	return db, nil
}

func New(db *sql.DB, opts Options, log logger.Logger) (*Store, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.AccountsTable == "" {
		opts.AccountsTable = "fetched_accounts"
	}
	if opts.LeakLogsTable == "" {
		opts.LeakLogsTable = "leak_logs"
	}
	for _, t := range []string{opts.AccountsTable, opts.LeakLogsTable} {
		if !identifierRe.MatchString(t) {
			return nil, fmt.Errorf("invalid table name %q", t)
		}
	}
	return &Store{
		db:       db,
		d:        d,
		accounts: opts.AccountsTable,
		leakLogs: opts.LeakLogsTable,
		catalogs: opts.Catalogs,
		log:      log,
		now:      time.Now,
	}, nil
}

func (s *Store) Driver() string        { return s.d.name }
func (s *Store) AccountsTable() string { return s.accounts }

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InvalidateCatalogs drops every cached table layout.
func (s *Store) InvalidateCatalogs() {
	if s.catalogs != nil {
		s.catalogs.Invalidate()
	}
}

// Catalog returns the columns of table, from the cache when possible.
func (s *Store) Catalog(ctx context.Context, table string) (domain.ColumnCatalog, error) {
	if s.catalogs != nil {
		if c, ok := s.catalogs.Get(table); ok {
			return c, nil
		}
	}

	rows, err := s.db.QueryContext(ctx, s.d.columnsSQL, table)
	if err != nil {
		return domain.ColumnCatalog{}, fmt.Errorf("describe %s: %w", table, err)
	}
	defer utils.Close(rows)

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return domain.ColumnCatalog{}, fmt.Errorf("describe %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return domain.ColumnCatalog{}, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(cols) == 0 {
		return domain.ColumnCatalog{}, fmt.Errorf("describe %s: table not found or has no columns", table)
	}

	c := domain.NewColumnCatalog(table, cols)
	if s.catalogs != nil {
		s.catalogs.Put(table, c)
	}
	s.log.Debug("column catalog discovered",
		logger.String("table", table),
		logger.Strings("columns", c.Columns))
	return c, nil
}

func (s *Store) accountsCatalog(ctx context.Context) (domain.ColumnCatalog, error) {
	c, err := s.Catalog(ctx, s.accounts)
	if err != nil {
		return c, fmt.Errorf("%w: %w", domain.ErrLocalFailed, err)
	}
	return c, nil
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n.Int64, nil
}

func (s *Store) table(name string) string { return s.d.quote(name) }
