package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

func newTestClient(baseURL string, retries int, timeout time.Duration) *Client {
	return New(Config{
		BaseURL:    baseURL,
		APIKey:     "k3y",
		Timeout:    timeout,
		MaxRetries: retries,
	}, logger.Nop())
}

func TestDo_Success(t *testing.T) {
	var gotKey, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"results":[{"id":3,"domain":"a.gov.tr","username":"u","password":"p"}],"pagination":{"page":1,"pages":1,"total":1}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2, time.Second)
	resp, err := c.SearchAccounts(context.Background(), domain.QueryRequest{Text: "gov", Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "k3y" {
		t.Errorf("X-API-Key = %q", gotKey)
	}
	if gotQuery != "gov" {
		t.Errorf("q = %q", gotQuery)
	}
	if len(resp.Results) != 1 || resp.Results[0].Domain != "a.gov.tr" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestDo_TimeoutRetryBound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2, 50*time.Millisecond)
	err := c.Do(context.Background(), Request{Path: PathSearch}, nil)

	if !errors.Is(err, ErrRemoteTimeout) {
		t.Fatalf("expected ErrRemoteTimeout, got %v", err)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Attempts != 3 {
		t.Errorf("expected *Error with 3 attempts, got %#v", err)
	}
}

func TestDo_StatusNotRetried(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusUnauthorized, want: ErrRemoteUnauthorized},
		{status: http.StatusNotFound, want: ErrRemoteNotFound},
		{status: http.StatusTooManyRequests, want: ErrRemoteRateLimited},
		{status: http.StatusInternalServerError, want: ErrRemoteServerError},
		{status: http.StatusBadGateway, want: ErrRemoteServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			err := newTestClient(srv.URL, 3, time.Second).Do(context.Background(), Request{Path: PathStats}, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var rerr *Error
			if errors.As(err, &rerr) && rerr.Status != tt.status {
				t.Errorf("Status = %d, want %d", rerr.Status, tt.status)
			}
			if n := hits.Load(); n != 1 {
				t.Errorf("expected 1 attempt, got %d", n)
			}
		})
	}
}

func TestDo_ConnectionRefusedNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := newTestClient(url, 3, time.Second).Do(context.Background(), Request{Path: PathHealth}, nil)
	if !errors.Is(err, ErrRemoteUnreachable) {
		t.Fatalf("expected ErrRemoteUnreachable, got %v", err)
	}
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Attempts != 1 {
		t.Errorf("expected a single attempt, got %#v", err)
	}
}

func TestDo_MalformedBodyRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out Payload
	err := newTestClient(srv.URL, 1, time.Second).Do(context.Background(), Request{Path: PathStats}, &out)
	if !errors.Is(err, ErrRemoteCallFailed) {
		t.Fatalf("expected ErrRemoteCallFailed, got %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestDo_MissingResultsFailsValidation(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0, time.Second).SearchAccounts(context.Background(), domain.QueryRequest{Text: "ab", Page: 1, PageSize: 5})
	if !errors.Is(err, ErrRemoteCallFailed) {
		t.Fatalf("expected ErrRemoteCallFailed, got %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected 1 attempt with MaxRetries=0, got %d", n)
	}
}

func TestDo_RecoversAfterTransientFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(`garbage`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 2, Backoff: 5 * time.Millisecond}, logger.Nop())
	out, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("unexpected payload: %v", out)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestDo_CallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := newTestClient(srv.URL, 5, time.Second).Do(ctx, Request{Path: PathSearch}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		t.Errorf("caller cancellation should not be classified, got %v", rerr)
	}
}

func TestDo_PostSendsBody(t *testing.T) {
	var gotMethod, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL, 0, time.Second).Do(context.Background(),
		Request{Method: http.MethodPost, Path: "/api/echo", Body: map[string]string{"a": "b"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost || gotCT != "application/json" {
		t.Errorf("method=%s content-type=%s", gotMethod, gotCT)
	}
}

func TestDo_UnsupportedMethod(t *testing.T) {
	err := newTestClient("http://127.0.0.1:1", 0, time.Second).Do(context.Background(), Request{Method: http.MethodDelete, Path: "/x"}, nil)
	if !errors.Is(err, ErrRemoteCallFailed) {
		t.Fatalf("expected ErrRemoteCallFailed, got %v", err)
	}
}

func TestSearchAccounts_KeepsUpstreamBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"id":"12","domain":"a.com","url":"https://a.com/login","password":"p"}],"total":37,"pages":2}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL, 2, time.Second).SearchAccounts(context.Background(),
		domain.QueryRequest{Text: "a.com", Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 12 || resp.Results[0].Domain != "a.com" {
		t.Errorf("typed view = %+v", resp.Results)
	}
	want := domain.Pagination{Page: 1, Pages: 2, Total: 37, HasNext: true}
	if resp.Pagination != want {
		t.Errorf("Pagination = %+v, want %+v", resp.Pagination, want)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["total"] != float64(37) || body["pages"] != float64(2) {
		t.Errorf("top-level keys lost: %s", raw)
	}
	rec := body["results"].([]any)[0].(map[string]any)
	if rec["id"] != "12" || rec["url"] != "https://a.com/login" {
		t.Errorf("record changed: %v", rec)
	}
	if _, ok := rec["username"]; ok {
		t.Errorf("username added to upstream record: %v", rec)
	}
}

func TestSearchAccounts_ResultsMustBeArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":"none"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0, time.Second).SearchAccounts(context.Background(), domain.QueryRequest{Text: "ab", Page: 1, PageSize: 5})
	if !errors.Is(err, ErrRemoteCallFailed) {
		t.Fatalf("expected ErrRemoteCallFailed, got %v", err)
	}
}

func TestDo_StopsRetryingBeforeDeadline(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL:    srv.URL,
		Timeout:    300 * time.Millisecond,
		MaxRetries: 3,
		Backoff:    5 * time.Millisecond,
		Reserve:    200 * time.Millisecond,
	}, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, Request{Path: PathSearch}, nil)
	if !errors.Is(err, ErrRemoteTimeout) {
		t.Fatalf("expected ErrRemoteTimeout, got %v", err)
	}
	if ctx.Err() != nil {
		t.Errorf("caller deadline consumed, nothing left for a fallback")
	}
	if n := hits.Load(); n < 1 || n > 4 {
		t.Errorf("attempts = %d", n)
	}
}

func TestDo_NoAttemptWithoutTimeLeft(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second, Reserve: time.Second}, logger.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, Request{Path: PathSearch}, nil)
	if !errors.Is(err, ErrRemoteTimeout) {
		t.Fatalf("expected ErrRemoteTimeout, got %v", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("expected no attempt, got %d", n)
	}
}

func TestConfigBudget(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{"defaults", Config{Timeout: 30 * time.Second, MaxRetries: 3, Backoff: 500 * time.Millisecond}, 123500 * time.Millisecond},
		{"no retries", Config{Timeout: time.Second}, time.Second},
		{"backoff capped", Config{Timeout: time.Second, MaxRetries: 3, Backoff: 8 * time.Second}, 4*time.Second + 8*time.Second + 10*time.Second + 10*time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Budget(); got != tt.want {
				t.Errorf("Budget() = %v, want %v", got, tt.want)
			}
		})
	}
}
