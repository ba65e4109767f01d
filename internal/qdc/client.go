// Package qdc is the client for the data catalog's external API.
//
// The client authenticates with the OAuth2 client-credentials grant and
// keeps the issued bearer token until its exp claim has passed. Update
// calls are retried with exponential backoff on 429, 500, 503 and 504;
// every other status ends the call and is returned to the caller, which
// counts 200s as successes.
package qdc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const tokenScope = "api.quollio.com/beta:admin"

// Defaults applied by New to zero-valued Config fields.
const (
	DefaultMaxAttempts = 10
	DefaultBackoffBase = time.Second
	DefaultBackoffCap  = 30 * time.Second
	DefaultTimeout     = 30 * time.Second
)

// ErrNoAccessToken is returned when the token endpoint answers without an
// access_token.
var ErrNoAccessToken = errors.New("token response has no access_token")

// retryableStatuses are retried; anything else is final.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// MaxAttempts bounds the number of requests per update call,
	// including the first one.
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Timeout     time.Duration

	// RequestsPerSecond paces outgoing update requests. Zero disables pacing.
	RequestsPerSecond float64

	HTTPClient *http.Client
	Now        func() time.Time
}

// Client talks to the catalog API. It is safe for concurrent use.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	maxAttempts  int
	backoffBase  time.Duration
	backoffCap   time.Duration

	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	token string
}

// New creates a client and fetches the first access token. Failing to
// obtain a token is an error.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog API URL is required")
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		maxAttempts:  cfg.MaxAttempts,
		backoffBase:  cfg.BackoffBase,
		backoffCap:   cfg.BackoffCap,
		http:         cfg.HTTPClient,
		now:          cfg.Now,
		logger:       logger,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.backoffBase <= 0 {
		c.backoffBase = DefaultBackoffBase
	}
	if c.backoffCap <= 0 {
		c.backoffCap = DefaultBackoffCap
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}
	c.token = token
	return c, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// fetchToken runs the client-credentials exchange.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"client_credentials"},
		"client_id":  {c.clientID},
		"scope":      {tokenScope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("token request failed", "error", err)
		return "", fmt.Errorf("failed to request access token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("token request rejected", "status", resp.StatusCode)
		return "", fmt.Errorf("failed to request access token: status %d", resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return body.AccessToken, nil
}

// tokenExpiry returns the exp claim of a JWT without verifying its
// signature. ok is false when the token carries no exp claim.
func tokenExpiry(token string) (exp time.Time, ok bool, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to decode access token: %w", err)
	}
	nd, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid exp claim: %w", err)
	}
	if nd == nil {
		return time.Time{}, false, nil
	}
	return nd.Time, true, nil
}

// bearer returns a usable access token, fetching a new one when the cached
// token has expired. A token that cannot be decoded is replaced.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exp, ok, err := tokenExpiry(c.token)
	switch {
	case err != nil:
		c.logger.Debug("refreshing undecodable access token", "error", err)
	case !ok:
		return c.token, nil
	case c.now().Before(exp):
		return c.token, nil
	default:
		c.logger.Debug("access token expired, refreshing", "exp", exp)
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// UpdateLineage replaces the upstream list of one downstream asset.
func (c *Client) UpdateLineage(ctx context.Context, globalID string, body map[string][]string) (int, error) {
	return c.put(ctx, "/v2/lineage/"+url.PathEscape(globalID), body, "downstream_global_id", globalID,
		"Please check downstream asset exists on qdc.")
}

// UpdateStats replaces the statistics of one asset.
func (c *Client) UpdateStats(ctx context.Context, globalID string, body any) (int, error) {
	return c.put(ctx, "/v2/assets/"+url.PathEscape(globalID)+"/stats", body, "global_id", globalID,
		"Please check asset exists on qdc.")
}

// statusError carries a retryable status out of the retry loop.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.code)
}

// put sends body as JSON. Non-2xx statuses are returned with a nil error;
// only transport failures and context cancellation return an error.
func (c *Client) put(ctx context.Context, path string, body any, idKey, globalID, badRequestHint string) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request body for %s: %w", globalID, err)
	}

	token, err := c.bearer(ctx)
	if err != nil {
		c.logger.Error("could not obtain access token", idKey, globalID, "error", err)
		return 0, err
	}

	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1),
		retry.WithCappedDuration(c.backoffCap, retry.NewExponential(c.backoffBase)))

	status := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		status = resp.StatusCode
		if retryableStatuses[status] {
			return retry.RetryableError(&statusError{code: status})
		}
		return nil
	})

	var se *statusError
	switch {
	case errors.As(err, &se):
		c.logger.Error("HTTP error after retries", idKey, globalID, "status", se.code, "attempts", c.maxAttempts)
		return se.code, nil
	case err != nil:
		c.logger.Error("request failed", idKey, globalID, "error", err)
		return 0, fmt.Errorf("failed to update %s: %w", globalID, err)
	}

	switch {
	case status == http.StatusBadRequest:
		c.logger.Error("HTTP error. "+badRequestHint, idKey, globalID, "status", status)
	case status < 200 || status > 299:
		c.logger.Error("HTTP error", idKey, globalID, "status", status)
	}
	return status, nil
}
