// Package provider implements follower.Source over the RapidAPI
// instagram-social-api HTTP endpoints.
package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hpungsan/followpick/internal/config"
	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/metrics"
)

const (
	endpointFollowers = "followers"
	endpointInfo      = "info"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 16 << 20
)

// Client is a rate-limited RapidAPI client. Every call runs under the
// configured call budget, retries included.
type Client struct {
	baseURL     string
	apiHost     string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	budget      time.Duration
}

var _ follower.Source = (*Client)(nil)

// New builds a client from configuration. cfg should already be validated.
func New(cfg *config.Config) *Client {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	budget := cfg.CallBudget()
	if budget <= 0 {
		budget = 60 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiHost:     cfg.APIHost,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		maxAttempts: attempts,
		baseBackoff: 500 * time.Millisecond,
		budget:      budget,
	}
}

// FetchFollowers returns up to maxCount followers of subject in provider order.
func (c *Client) FetchFollowers(ctx context.Context, subject string, maxCount int) ([]follower.Record, error) {
	if maxCount <= 0 {
		return nil, errors.NewInvalidRequest("maxCount must be positive")
	}
	params := url.Values{}
	params.Set("username_or_id_or_url", subject)
	params.Set("amount", strconv.Itoa(maxCount))

	body, err := c.get(ctx, endpointFollowers, "/v1/followers", params, subject)
	if err != nil {
		return nil, err
	}
	records, err := ParseFollowers(body, subject)
	if err != nil {
		return nil, err
	}
	if len(records) > maxCount {
		records = records[:maxCount]
	}
	slog.Debug("fetched followers", "subject", subject, "count", len(records))
	return records, nil
}

// FetchFollowerCount returns the subject's total follower count.
func (c *Client) FetchFollowerCount(ctx context.Context, subject string) (int, error) {
	params := url.Values{}
	params.Set("username_or_id_or_url", subject)

	body, err := c.get(ctx, endpointInfo, "/v1/info", params, subject)
	if err != nil {
		return 0, err
	}
	return ParseFollowerCount(body, subject)
}

// get performs one budgeted, rate-limited GET and returns the body of a
// 2xx response. Non-2xx responses are classified into coded errors.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, subject string) ([]byte, error) {
	start := time.Now()
	body, err := c.doGet(ctx, endpoint, path, params, subject)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if pe := errors.As(err); pe != nil {
			outcome = string(pe.Code)
		}
	}
	metrics.ObserveProvider(endpoint, outcome, start)
	return body, err
}

func (c *Client) doGet(ctx context.Context, endpoint, path string, params url.Values, subject string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transportError(err)
	}
	resp, err := c.doWithRetry(ctx, endpoint, req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(err)
	}

	if err := classifyStatus(resp.StatusCode, body, subject); err != nil {
		return nil, err
	}
	return body, nil
}

// classifyStatus maps a non-2xx HTTP status to a coded error.
func classifyStatus(status int, body []byte, subject string) error {
	if status >= 200 && status < 300 {
		return nil
	}
	cause := fmt.Errorf("provider status %d: %s", status, truncate(body, 200))
	switch {
	case status == http.StatusNotFound:
		return errors.NewSubjectNotFound(subject, cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewSourceUnavailable("provider rejected the API key", cause)
	case status == http.StatusTooManyRequests:
		return errors.NewSourceUnavailable("provider quota exceeded", cause)
	case status >= 500:
		return errors.NewSourceUnavailable(fmt.Sprintf("provider error (HTTP %d)", status), cause)
	}
	// Other 4xx: the body may carry a classifiable message.
	env, err := decodeEnvelope(body)
	if err == nil && env.Message != nil && *env.Message != "" {
		return classifyMessage(*env.Message, subject)
	}
	return errors.NewSourceUnavailable(fmt.Sprintf("provider rejected the request (HTTP %d)", status), cause)
}

// transportError classifies network, timeout and cancellation failures.
func transportError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewSourceUnavailable("provider request timed out", err)
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.NewSourceUnavailable("provider request was cancelled", err)
	}
	return errors.NewSourceUnavailable("provider request failed", err)
}

// doWithRetry retries on 429/5xx and transport errors with exponential
// backoff, honouring Retry-After. The final attempt's response is returned
// as-is so the caller can classify it.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		last := attempt == c.maxAttempts
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
			if !retryable || last {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			slog.Debug("provider retry", "endpoint", endpoint, "status", resp.StatusCode, "attempt", attempt, "wait", wait)
			metrics.IncRetry(endpoint)
			if err := sleep(ctx, jitter(wait)); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if last {
			break
		}
		slog.Debug("provider retry", "endpoint", endpoint, "error", err, "attempt", attempt)
		metrics.IncRetry(endpoint)
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// retryAfter parses a Retry-After header (seconds or HTTP date).
func retryAfter(header string, def time.Duration) time.Duration {
	if header == "" {
		return def
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return def
}

// jitter spreads wait by +/-20%.
func jitter(wait time.Duration) time.Duration {
	j := time.Duration(float64(wait) * 0.2)
	if j <= 0 {
		return wait
	}
	return wait - j + time.Duration(time.Now().UnixNano()%int64(2*j))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
