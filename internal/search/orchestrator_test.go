package search

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/remote"
)

type fakeRemote struct {
	calls int
	resp  *domain.SearchResponse
	err   error
}

func (f *fakeRemote) SearchAccounts(_ context.Context, _ domain.QueryRequest) (*domain.SearchResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	// Hand out a copy so repeated calls do not share annotations.
	cp := *f.resp
	return &cp, nil
}

type fakeLocal struct {
	calls int
	last  domain.QueryRequest
	res   *domain.LocalResult
	err   error
}

func (f *fakeLocal) SearchAccounts(_ context.Context, q domain.QueryRequest) (*domain.LocalResult, error) {
	f.calls++
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func localFixture() *domain.LocalResult {
	cat := domain.NewColumnCatalog("fetched_accounts", []string{"id", "domain", "login", "secret", "region"})
	return &domain.LocalResult{
		Rows: []domain.RawRecord{
			{"id": int64(3), "domain": "mail.gov.tr", "login": "a", "secret": "s", "region": "TR"},
			{"id": int64(4), "domain": "example.com", "login": "gov-admin", "secret": "t"},
		},
		Total:         45,
		Catalog:       cat,
		SearchColumns: cat.SearchColumns(),
	}
}

func TestSearch_ValidationShortCircuits(t *testing.T) {
	for _, text := range []string{"", "a", " b "} {
		r, l := &fakeRemote{}, &fakeLocal{}
		_, err := New(r, l, logger.Nop()).Search(context.Background(), domain.QueryRequest{Text: text})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Search(%q) err = %v, want ErrValidation", text, err)
		}
		if r.calls != 0 || l.calls != 0 {
			t.Errorf("Search(%q) made remote=%d local=%d calls", text, r.calls, l.calls)
		}
	}
}

func TestSearch_RemoteSuccess(t *testing.T) {
	r := &fakeRemote{resp: &domain.SearchResponse{
		Success: true,
		Results: []domain.FormattedResult{{ID: 1, Domain: "a.com"}},
	}}
	l := &fakeLocal{}

	resp, err := New(r, l, logger.Nop()).Search(context.Background(), domain.QueryRequest{Text: "a.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Provenance != domain.ProvenanceRemote {
		t.Errorf("Provenance = %q", resp.Provenance)
	}
	if resp.Debug["data_source"] != domain.DataSourceExternalAPI {
		t.Errorf("data_source = %v", resp.Debug["data_source"])
	}
	if l.calls != 0 {
		t.Errorf("local called %d times", l.calls)
	}
}

func TestSearch_RemoteDebugKept(t *testing.T) {
	r := &fakeRemote{resp: &domain.SearchResponse{
		Results: []domain.FormattedResult{},
		Debug:   map[string]any{"data_source": "upstream_cache"},
	}}

	resp, err := New(r, &fakeLocal{}, logger.Nop()).Search(context.Background(), domain.QueryRequest{Text: "ab"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Debug["data_source"] != "upstream_cache" {
		t.Errorf("upstream debug overwritten: %v", resp.Debug)
	}
}

func TestSearch_FallbackOnRemoteFailure(t *testing.T) {
	failures := []error{
		&remote.Error{Kind: remote.KindTimeout, Attempts: 3},
		&remote.Error{Kind: remote.KindServerError, Status: 500, Attempts: 1},
		&remote.Error{Kind: remote.KindUnreachable, Attempts: 1},
	}

	for _, ferr := range failures {
		t.Run(ferr.Error(), func(t *testing.T) {
			r := &fakeRemote{err: ferr}
			l := &fakeLocal{res: localFixture()}
			q := domain.QueryRequest{Text: "gov", Page: 3, PageSize: 20, Filters: domain.Filters{Region: "TR"}}

			resp, err := New(r, l, logger.Nop()).Search(context.Background(), q)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Provenance != domain.ProvenanceFallback {
				t.Errorf("Provenance = %q", resp.Provenance)
			}
			if resp.Debug["warning"] != FallbackWarning {
				t.Errorf("warning missing: %v", resp.Debug)
			}
			if l.last.Filters != q.Filters {
				t.Errorf("filters not forwarded: %+v", l.last.Filters)
			}

			want := domain.FormatResults(localFixture().Rows, &localFixture().Catalog)
			if !reflect.DeepEqual(resp.Results, want) {
				t.Errorf("results differ from formatter output:\n got %+v\nwant %+v", resp.Results, want)
			}
			wantPg := domain.Pagination{Page: 3, Pages: 3, Total: 45, HasNext: false, HasPrev: true}
			if resp.Pagination != wantPg {
				t.Errorf("Pagination = %+v, want %+v", resp.Pagination, wantPg)
			}
			if resp.Summary == nil || resp.Summary.ExactMatches != 1 || resp.Summary.PartialMatches != 2 {
				t.Errorf("Summary = %+v", resp.Summary)
			}
			cols, _ := resp.Debug["search_columns"].([]string)
			if !reflect.DeepEqual(cols, []string{"domain", "login", "secret"}) {
				t.Errorf("search_columns = %v", resp.Debug["search_columns"])
			}
		})
	}
}

func TestSearch_BothFail(t *testing.T) {
	rerr := &remote.Error{Kind: remote.KindTimeout, Attempts: 3}
	lerr := errors.New("db down")
	_, err := New(&fakeRemote{err: rerr}, &fakeLocal{err: lerr}, logger.Nop()).
		Search(context.Background(), domain.QueryRequest{Text: "gov"})

	if !errors.Is(err, domain.ErrSearchUnavailable) {
		t.Fatalf("expected ErrSearchUnavailable, got %v", err)
	}
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %T", err)
	}
	if !errors.Is(ue.Remote, remote.ErrRemoteTimeout) || ue.Local != lerr {
		t.Errorf("causes not attached: %+v", ue)
	}
	if !IsUnavailable(err) {
		t.Errorf("IsUnavailable() = false")
	}
}

func TestSearch_Idempotent(t *testing.T) {
	r := &fakeRemote{err: &remote.Error{Kind: remote.KindUnreachable}}
	l := &fakeLocal{res: localFixture()}
	o := New(r, l, logger.Nop())
	q := domain.QueryRequest{Text: "gov", Page: 1, PageSize: 20}

	a, err := o.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	b, err := o.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !reflect.DeepEqual(a.Results, b.Results) || a.Pagination != b.Pagination {
		t.Errorf("responses differ")
	}
}

func TestSearch_CallerCancelledNoFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &fakeLocal{res: localFixture()}

	_, err := New(&fakeRemote{err: context.Canceled}, l, logger.Nop()).Search(ctx, domain.QueryRequest{Text: "gov"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if l.calls != 0 {
		t.Errorf("local called after cancellation")
	}
}
