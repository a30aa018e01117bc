package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
)

// SearchAccounts matches q.Text against the discovered search columns of
// the accounts table and returns one page of raw rows.
func (s *Store) SearchAccounts(ctx context.Context, q domain.QueryRequest) (*domain.LocalResult, error) {
	q = q.Normalize()

	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return nil, err
	}

	searchCols := catalog.SearchColumns()
	qb := newQuery(s.d)
	if len(searchCols) > 0 {
		qb.anyContains(searchCols, q.Text)
	} else {
		// Nothing recognisable in the layout: the table is assumed to carry a domain column.
		qb.where(qb.contains("domain", q.Text))
	}
	applyFilters(qb, catalog, q.Filters)

	from := " FROM " + s.table(s.accounts) + qb.whereSQL()

	total, err := s.count(ctx, "SELECT COUNT(*)"+from, qb.countArgs()...)
	if err != nil {
		return nil, fmt.Errorf("%w: count accounts: %w", domain.ErrLocalFailed, err)
	}

	stmt := "SELECT *" + from + s.orderBy(catalog) + qb.page(q.PageSize, domain.Offset(q.Page, q.PageSize))
	rows, err := s.db.QueryContext(ctx, stmt, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: search accounts: %w", domain.ErrLocalFailed, err)
	}
	defer utils.Close(rows)

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: read accounts: %w", domain.ErrLocalFailed, err)
	}

	s.log.Debug("local account search",
		logger.String("query", q.Text),
		logger.Strings("search_columns", searchCols),
		logger.Int64("total", total),
		logger.Int("returned", len(records)))

	return &domain.LocalResult{
		Rows:          records,
		Total:         int(total),
		Catalog:       catalog,
		SearchColumns: searchCols,
	}, nil
}

// ListAccounts returns one page of accounts without a text match.
func (s *Store) ListAccounts(ctx context.Context, page, size int, f domain.Filters) (*domain.LocalResult, error) {
	page, size = domain.ClampPage(page), domain.ClampPageSize(size)

	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return nil, err
	}
	qb := newQuery(s.d)
	applyFilters(qb, catalog, f)
	from := " FROM " + s.table(s.accounts) + qb.whereSQL()

	total, err := s.count(ctx, "SELECT COUNT(*)"+from, qb.countArgs()...)
	if err != nil {
		return nil, fmt.Errorf("%w: count accounts: %w", domain.ErrLocalFailed, err)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT *"+from+s.orderBy(catalog)+qb.page(size, domain.Offset(page, size)), qb.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %w", domain.ErrLocalFailed, err)
	}
	defer utils.Close(rows)
	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: read accounts: %w", domain.ErrLocalFailed, err)
	}
	return &domain.LocalResult{Rows: records, Total: int(total), Catalog: catalog}, nil
}

// AccountByID returns the row with the given id, or ErrNotFound.
func (s *Store) AccountByID(ctx context.Context, id int64) (domain.RawRecord, domain.ColumnCatalog, error) {
	catalog, err := s.accountsCatalog(ctx)
	if err != nil {
		return nil, catalog, err
	}
	if !catalog.Has("id") {
		return nil, catalog, fmt.Errorf("%w: %s has no id column", ErrUnknownColumn, s.accounts)
	}
	qb := newQuery(s.d)
	qb.equals("id", id)
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.table(s.accounts)+qb.whereSQL()+" LIMIT 1", qb.args...)
	if err != nil {
		return nil, catalog, fmt.Errorf("%w: account %d: %w", domain.ErrLocalFailed, id, err)
	}
	defer utils.Close(rows)
	records, err := scanRecords(rows)
	if err != nil {
		return nil, catalog, fmt.Errorf("%w: account %d: %w", domain.ErrLocalFailed, id, err)
	}
	if len(records) == 0 {
		return nil, catalog, ErrNotFound
	}
	return records[0], catalog, nil
}

// applyFilters adds the optional filters whose column exists in the table.
// Filters on absent columns are ignored.
func applyFilters(qb *query, catalog domain.ColumnCatalog, f domain.Filters) {
	if f.Domain != "" && catalog.Has("domain") {
		qb.where(qb.contains("domain", f.Domain))
	}
	if f.Region != "" && catalog.Has("region") {
		qb.equals("region", f.Region)
	}
	if f.Source != "" && catalog.Has("source") {
		qb.equals("source", f.Source)
	}
}

// orderBy sorts newest first on the date column, falling back to the first
// column. id breaks ties so paging is stable.
func (s *Store) orderBy(catalog domain.ColumnCatalog) string {
	col := catalog.OrderColumn()
	if col == "" {
		return ""
	}
	parts := []string{s.d.quote(col) + " DESC"}
	if col != "id" && catalog.Has("id") {
		parts = append(parts, s.d.quote("id")+" DESC")
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
