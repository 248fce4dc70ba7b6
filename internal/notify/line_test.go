package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/funtuan/government-job-backend/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, &http.Client{Timeout: 5 * time.Second}, discardLogger())
}

func TestSendPostsFormWithBearerToken(t *testing.T) {
	var gotAuth, gotMessage string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotMessage = r.PostForm.Get("message")
		w.WriteHeader(http.StatusOK)
	})

	if err := c.Send(context.Background(), "hello", "token-1"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer token-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotMessage != "\nhello" {
		t.Errorf("message = %q, want leading newline", gotMessage)
	}
}

func TestSendUnauthorizedIsAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.Send(context.Background(), "hello", "revoked")
	if err == nil {
		t.Fatal("expected error")
	}
	if !model.IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestSendRateLimitCarriesRetryAfter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := c.Send(context.Background(), "hello", "token-1")

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *model.HTTPError, got %v", err)
	}
	if httpErr.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", httpErr.RetryAfter)
	}
	if model.IsAuthError(err) {
		t.Error("429 must not be classified as an auth error")
	}
}

func TestSendServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Send(context.Background(), "hello", "token-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if model.IsAuthError(err) {
		t.Error("500 must not be classified as an auth error")
	}
}

func TestExchangeReturnsAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("code"); got != "the-code" {
			t.Errorf("code = %q", got)
		}
		fmt.Fprint(w, `{"access_token":"issued-token"}`)
	}))
	defer srv.Close()

	ex := NewTokenExchanger(srv.URL, "client-id", "client-secret", &http.Client{Timeout: 5 * time.Second})
	token, err := ex.Exchange(context.Background(), "the-code", "https://example.com/cb")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if token != "issued-token" {
		t.Errorf("token = %q", token)
	}
}

func TestExchangeEmptyTokenIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	ex := NewTokenExchanger(srv.URL, "id", "secret", &http.Client{Timeout: 5 * time.Second})
	if _, err := ex.Exchange(context.Background(), "code", "uri"); err == nil {
		t.Fatal("expected error for empty access token")
	}
}
