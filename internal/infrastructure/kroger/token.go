package kroger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTokenTTL = 1800 * time.Second

// ErrMissingCredentials is returned when client id or secret is empty.
var ErrMissingCredentials = errors.New("missing kroger api credentials")

// statusError reports a non-200 answer from the API.
type statusError struct {
	op     string
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("%s: status %d", e.op, e.status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.op, e.status, e.body)
}

// TokenCache holds a client-credentials access token until it expires.
type TokenCache struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	client       *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenCache builds a cache for the given credentials and scope.
func NewTokenCache(tokenURL, clientID, clientSecret, scope string, client *http.Client) *TokenCache {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &TokenCache{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		client:       client,
	}
}

// Get returns the cached token while now is before its expiry, refreshing otherwise.
func (c *TokenCache) Get(ctx context.Context, now time.Time) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && now.Before(c.expiresAt) {
		return c.token, nil
	}

	token, ttl, err := c.request(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = now.Add(ttl)
	return c.token, nil
}

// Invalidate drops the cached token so the next Get refreshes it.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

func (c *TokenCache) request(ctx context.Context) (string, time.Duration, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", 0, ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", c.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("new token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", 0, &statusError{op: "request token", status: resp.StatusCode, body: strings.TrimSpace(string(payload))}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, &decodeError{what: "token", err: err}
	}
	if body.AccessToken == "" {
		return "", 0, &decodeError{what: "token", err: errors.New("missing access_token")}
	}

	ttl := defaultTokenTTL
	if body.ExpiresIn > 0 {
		ttl = time.Duration(body.ExpiresIn) * time.Second
	}
	return body.AccessToken, ttl, nil
}
