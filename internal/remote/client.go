package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
)

const (
	maxBackoff   = 10 * time.Second
	errBodyLimit = 512
)

var errNoTimeLeft = errors.New("no time left before the caller's deadline")

// Config is fixed for the lifetime of a Client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration // per attempt
	MaxRetries int           // attempts after the first one
	Backoff    time.Duration // base wait between retries, doubled each time
	Reserve    time.Duration // left unused before the ctx deadline so the caller can still fall back
	UserAgent  string
}

// Budget is the longest a Do call may take when ctx has no deadline: every
// attempt timing out plus the waits between them.
func (c Config) Budget() time.Duration {
	retries := max(c.MaxRetries, 0)
	total := time.Duration(retries+1) * c.Timeout
	wait := c.Backoff
	for range retries {
		total += wait
		wait = min(wait*2, maxBackoff)
	}
	return total
}

// Request describes one logical upstream call.
type Request struct {
	Method string // GET or POST, GET when empty
	Path   string
	Params map[string]string
	Body   any
}

// Validator is implemented by response types that check their own shape.
// A failed validation counts as an unclassified error and is retried.
type Validator interface {
	Validate() error
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

func New(cfg Config, log logger.Logger) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "leakdesk/1.0"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Reserve < 0 {
		cfg.Reserve = 0
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  log,
	}
}

// Do issues req and decodes a 2xx JSON body into out (when non-nil).
//
// Timeouts and unclassified failures are retried up to MaxRetries times.
// Connection failures and HTTP error statuses are returned at once. When
// ctx has a deadline, attempts are shortened and retries skipped so that
// Reserve remains for the caller.
// The returned error is a *Error unless ctx itself was cancelled.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return &Error{Kind: KindCallFailed, Endpoint: req.Path, Err: fmt.Errorf("unsupported method %s", req.Method)}
	}

	maxAttempts := c.cfg.MaxRetries + 1
	wait := c.cfg.Backoff

	timeout, ok := c.attemptTimeout(ctx, 0)
	if !ok {
		return c.fail(req, KindTimeout, 0, 0, errNoTimeLeft)
	}

	for attempt := 1; ; attempt++ {
		c.log.Debug("remote call",
			logger.String("method", req.Method),
			logger.String("endpoint", req.Path),
			logger.Int("attempt", attempt),
			logger.Duration("timeout", timeout))

		start := time.Now()
		kind, status, err := c.attempt(ctx, req, out, timeout)
		if err == nil {
			c.log.Info("remote call succeeded",
				logger.String("endpoint", req.Path),
				logger.Int("attempt", attempt),
				logger.Duration("elapsed", time.Since(start)))
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("remote %s: %w", req.Path, ctxErr)
		}

		if !kind.retryable() || attempt >= maxAttempts {
			return c.fail(req, kind, status, attempt, err)
		}

		next, ok := c.attemptTimeout(ctx, wait)
		if !ok {
			c.log.Warn("deadline too close for another attempt",
				logger.String("endpoint", req.Path),
				logger.Int("attempt", attempt),
				logger.Duration("reserve", c.cfg.Reserve))
			return c.fail(req, kind, status, attempt, err)
		}

		c.log.Warn("remote call failed, retrying",
			logger.String("endpoint", req.Path),
			logger.String("kind", kind.String()),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", maxAttempts),
			logger.Duration("next_retry_in", wait),
			logger.Error(err))

		if wait > 0 {
			if err := sleepCtx(ctx, wait); err != nil {
				return fmt.Errorf("remote %s: %w", req.Path, err)
			}
			wait = min(wait*2, maxBackoff)
		}
		timeout = next
	}
}

func (c *Client) fail(req Request, kind Kind, status, attempts int, err error) error {
	c.log.Error("remote call failed",
		logger.String("endpoint", req.Path),
		logger.String("kind", kind.String()),
		logger.Int("status", status),
		logger.Int("attempts", attempts),
		logger.Error(err))
	return &Error{Kind: kind, Status: status, Endpoint: req.Path, Attempts: attempts, Err: err}
}

// attemptTimeout bounds the next attempt so that Reserve is still free
// before the ctx deadline once wait has elapsed. ok is false when no time
// is left for an attempt.
func (c *Client) attemptTimeout(ctx context.Context, wait time.Duration) (time.Duration, bool) {
	deadline, has := ctx.Deadline()
	if !has {
		return c.cfg.Timeout, true
	}
	left := time.Until(deadline) - wait - c.cfg.Reserve
	if left <= 0 {
		return 0, false
	}
	if c.cfg.Timeout > 0 && c.cfg.Timeout < left {
		return c.cfg.Timeout, true
	}
	return left, true
}

// attempt performs a single HTTP exchange bounded by the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, req Request, out any, timeout time.Duration) (Kind, int, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return KindCallFailed, 0, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return classifyTransport(err), 0, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return classifyStatus(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("upstream returned %s: %s", resp.Status, bytes.TrimSpace(detail))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, resp.StatusCode, nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if isTimeout(err) {
			return KindTimeout, resp.StatusCode, err
		}
		return KindCallFailed, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return KindCallFailed, resp.StatusCode, fmt.Errorf("invalid response: %w", err)
		}
	}
	return 0, resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u, err := url.Parse(c.cfg.BaseURL + req.Path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, v := range req.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader = http.NoBody
	if req.Method == http.MethodPost && req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	return httpReq, nil
}

func classifyStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindServerError
	}
}

// classifyTransport checks timeouts before connection errors: a dial that
// times out is a timeout.
func classifyTransport(err error) Kind {
	if isTimeout(err) {
		return KindTimeout
	}
	if isConnectionError(err) {
		return KindUnreachable
	}
	return KindCallFailed
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
