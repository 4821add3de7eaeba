package client

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
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
)

// TokenSource returns the access token for an authenticated request.
type TokenSource func(ctx context.Context) (string, error)

// HTTPClient talks JSON to the CRM API. It retries idempotent requests on
// transient failures and stops calling a server that keeps failing.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	retry   RetryConfig
	breaker *CircuitBreaker
	log     logging.Logger
	sleep   func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	tokens TokenSource
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option { return func(c *HTTPClient) { c.hc = hc } }
func WithRetry(rc RetryConfig) Option       { return func(c *HTTPClient) { c.retry = rc } }
func WithBreaker(cb *CircuitBreaker) Option { return func(c *HTTPClient) { c.breaker = cb } }
func WithLogger(l logging.Logger) Option    { return func(c *HTTPClient) { c.log = l } }

// WithTimeout bounds every single HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.hc.Timeout = d }
}

func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 15 * time.Second},
		retry:   DefaultRetryConfig(),
		breaker: NewCircuitBreaker(5, 30*time.Second),
		log:     logging.Nop(),
		sleep:   sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("module", "api_client")
	return c
}

// SetTokenSource installs the access-token provider used by authenticated calls.
func (c *HTTPClient) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

// Breaker exposes the circuit breaker state for status output.
func (c *HTTPClient) Breaker() *CircuitBreaker { return c.breaker }

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

// do sends one API call. Failures come back as *common.ServiceError; a
// request that never got an HTTP response has StatusCode 0 and unwraps to
// ErrUnavailable.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any, authed bool) error {
	if err := c.breaker.Allow(); err != nil {
		return common.NewServiceError(0, err.Error(), err)
	}

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	var token string
	if authed {
		c.mu.RLock()
		ts := c.tokens
		c.mu.RUnlock()
		if ts == nil {
			return common.NewServiceError(http.StatusUnauthorized, "not logged in", ErrUnauthorized)
		}
		var err error
		if token, err = ts(ctx); err != nil {
			return err
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	retries := 0
	if method == http.MethodGet {
		retries = c.retry.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.retry.backoff(attempt)); err != nil {
				return err
			}
			c.log.Debug(ctx, "retrying request", "method", method, "path", path, "attempt", attempt, "error", lastErr)
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return fmt.Errorf("build %s %s: %w", method, path, err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = common.NewServiceError(0, "server unavailable: "+err.Error(), ErrUnavailable)
			if !transient(err) {
				break
			}
			continue
		}

		err = decodeResponse(resp, out)
		if se := (*common.ServiceError)(nil); errors.As(err, &se) && c.retry.retryableStatus(se.StatusCode) {
			lastErr = err
			continue
		}
		if err != nil && common.StatusFor(err) >= http.StatusInternalServerError {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		return err
	}

	if common.StatusFor(lastErr) >= http.StatusInternalServerError {
		c.breaker.RecordFailure()
	}
	c.log.Warn(ctx, "request failed", "method", method, "path", path, "error", lastErr)
	return lastErr
}

func transient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var se common.ServiceError
		if err := json.Unmarshal(raw, &se); err != nil || se.Message == "" {
			se.Message = http.StatusText(resp.StatusCode)
		}
		return common.NewServiceError(resp.StatusCode, se.Message, nil)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.NewServiceError(resp.StatusCode, "malformed response: "+err.Error(), common.ErrorInternal)
	}
	return nil
}
