// Package client talks to the pitch feed API on behalf of the feed engine.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const DefaultTimeout = 15 * time.Second

// ErrBoostSuspended is returned while the boost breaker is open.
var ErrBoostSuspended = errors.New("boost confirmations suspended after repeated failures")

// APIError is a non-2xx response. Message carries the server's text verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client implements the feed engine's backend and identity ports over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     zerolog.Logger
	breaker *gobreaker.CircuitBreaker

	mu    sync.RWMutex
	token string
	user  *models.UserCompact
}

// New creates a Client for the API rooted at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	c := &Client{
		baseURL: base,
		http:    httpClient,
		log:     opts.Logger,
		token:   opts.Token,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "boost",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			// 4xx are the caller's fault, not the server's health
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
	return c, nil
}

// SetToken replaces the bearer token and forgets the cached identity.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.user = nil
}

// AuthHeaders returns the headers for authenticated calls, or nil when signed out.
func (c *Client) AuthHeaders() http.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	return h
}

// CurrentUser returns the identity loaded by FetchIdentity.
func (c *Client) CurrentUser() (models.UserCompact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return models.UserCompact{}, false
	}
	return *c.user, true
}

// FetchIdentity resolves the token to a user. A signed-out client is not an error.
func (c *Client) FetchIdentity(ctx context.Context) (models.UserCompact, bool, error) {
	if c.AuthHeaders() == nil {
		return models.UserCompact{}, false, nil
	}
	var user models.UserCompact
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, nil, &user); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return models.UserCompact{}, false, nil
		}
		return models.UserCompact{}, false, err
	}
	c.mu.Lock()
	c.user = &user
	c.mu.Unlock()
	return user, true, nil
}

// SignIn exchanges credentials for a token and loads the identity.
func (c *Client) SignIn(ctx context.Context, email, password string) (models.UserCompact, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := models.SignInRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signin", nil, body, &resp); err != nil {
		return models.UserCompact{}, err
	}
	c.SetToken(resp.Token)
	user, _, err := c.FetchIdentity(ctx)
	return user, err
}

// ListFeed fetches the page at cursor.
func (c *Client) ListFeed(ctx context.Context, cursor int) (models.FeedPage, error) {
	var page models.FeedPage
	q := url.Values{"cursor": {strconv.Itoa(cursor)}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/feed", q, nil, &page); err != nil {
		return models.FeedPage{}, err
	}
	return page, nil
}

// BoostPost confirms a boost. Calls are short-circuited while the server keeps failing.
func (c *Client) BoostPost(ctx context.Context, postID string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, http.MethodPatch, "/api/v1/posts/"+url.PathEscape(postID)+"/boost", nil, nil, nil)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBoostSuspended
	}
	return err
}

// CreateInvestment creates an investment and returns its id.
func (c *Client) CreateInvestment(ctx context.Context, postID string, amount float64) (string, error) {
	var inv models.Investment
	body := models.CreateInvestmentRequest{PostID: postID, Amount: amount}
	if err := c.do(ctx, http.MethodPost, "/api/v1/investments", nil, body, &inv); err != nil {
		return "", err
	}
	if inv.ID == "" {
		return "", errors.New("investment created without an id")
	}
	return inv.ID, nil
}

// AttachDueDiligence attaches notes to an existing investment.
func (c *Client) AttachDueDiligence(ctx context.Context, investmentID, notes string) error {
	body := models.DueDiligenceRequest{InvestmentID: investmentID, Notes: notes}
	return c.do(ctx, http.MethodPost, "/api/v1/investments/due-diligence", nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	u := *c.baseURL
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.AuthHeaders() {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("API call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts echo's {"message": ...} body, falling back to the raw text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
