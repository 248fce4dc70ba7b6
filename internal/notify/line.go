// Package notify implements the LINE Notify delivery channel.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/funtuan/government-job-backend/internal/model"
)

// DefaultAPIURL is the LINE Notify message endpoint.
const DefaultAPIURL = "https://notify-api.line.me/api/notify"

// Ensure Client implements model.NotifyChannel.
var _ model.NotifyChannel = (*Client)(nil)

// Client posts messages to the LINE Notify API with a per-subscriber access
// token. A 401 response is surfaced as *model.HTTPError so the delivery
// worker can distinguish a revoked credential from a transient failure.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient returns a notify channel. Pass DefaultAPIURL outside of tests.
func NewClient(apiURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send delivers one message with the given access token.
func (c *Client) Send(ctx context.Context, message, token string) error {
	form := url.Values{}
	// Leading newline keeps the first line off the sender name row.
	form.Set("message", "\n"+message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("line notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to line notify: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        errors.New("invalid access token"),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("line notify: %s", strings.TrimSpace(string(body))),
		}
	}
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// DefaultTokenURL is the LINE Notify OAuth token endpoint.
const DefaultTokenURL = "https://notify-bot.line.me/oauth/token"

// TokenExchanger swaps an OAuth authorization code for a long-lived access
// token during subscriber onboarding.
type TokenExchanger struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewTokenExchanger returns a TokenExchanger. Pass DefaultTokenURL outside of
// tests.
func NewTokenExchanger(tokenURL, clientID, clientSecret string, httpClient *http.Client) *TokenExchanger {
	return &TokenExchanger{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// Exchange performs the authorization-code grant and returns the access token.
func (t *TokenExchanger) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &model.HTTPError{StatusCode: resp.StatusCode, Err: errors.New("token exchange")}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("token exchange: empty access token in response")
	}

	return payload.AccessToken, nil
}
