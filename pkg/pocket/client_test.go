package pocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mpotapov/pocket-reminder-bot/environments"
)

func testClient(serverURL string) *Client {
	return NewClient(environments.PocketConfig{
		ConsumerKey: "ck-test",
		APIBaseURL:  serverURL,
		RedirectURI: "https://t.me/PocketReminderBot",
		Timeout:     2 * time.Second,
	})
}

func TestBeginHandshake_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/oauth/request" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["consumer_key"] != "ck-test" {
			t.Errorf("expected consumer_key %q, got %q", "ck-test", body["consumer_key"])
		}
		if body["redirect_uri"] == "" {
			t.Errorf("expected redirect_uri to be set")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code": "abc-123"}`))
	}))
	defer server.Close()

	code, err := testClient(server.URL).BeginHandshake(context.Background())
	if err != nil {
		t.Fatalf("BeginHandshake returned error: %v", err)
	}
	if code != "abc-123" {
		t.Fatalf("expected code %q, got %q", "abc-123", code)
	}
}

func TestBeginHandshake_EmptyCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if _, err := testClient(server.URL).BeginHandshake(context.Background()); err == nil {
		t.Fatalf("expected error for empty code")
	}
}

func TestCompleteHandshake_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/oauth/authorize" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["code"] != "abc-123" {
			t.Errorf("expected code %q, got %q", "abc-123", body["code"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "tok-456", "username": "reader"}`))
	}))
	defer server.Close()

	token, err := testClient(server.URL).CompleteHandshake(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("CompleteHandshake returned error: %v", err)
	}
	if token != "tok-456" {
		t.Fatalf("expected token %q, got %q", "tok-456", token)
	}
}

func TestCompleteHandshake_Forbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := testClient(server.URL).CompleteHandshake(context.Background(), "abc-123"); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestAuthorizeURL(t *testing.T) {
	c := testClient("https://getpocket.com")

	url := c.AuthorizeURL("abc 123")
	if !strings.HasPrefix(url, "https://getpocket.com/auth/authorize?request_token=") {
		t.Fatalf("unexpected authorize URL %q", url)
	}
	if !strings.Contains(url, "request_token=abc+123") {
		t.Errorf("expected the request token to be query-escaped, got %q", url)
	}
	if !strings.Contains(url, "redirect_uri=") {
		t.Errorf("expected a redirect_uri parameter, got %q", url)
	}
}

func TestFetchUnread_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/get" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["access_token"] != "tok-456" {
			t.Errorf("expected access_token %q, got %q", "tok-456", body["access_token"])
		}
		if body["state"] != "unread" {
			t.Errorf("expected state %q, got %q", "unread", body["state"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"list": {
				"100": {"item_id": "100", "resolved_title": "First", "resolved_url": "https://example.com/1"},
				"200": {"item_id": "200", "given_title": "Second", "given_url": "https://example.com/2"}
			}
		}`))
	}))
	defer server.Close()

	items, err := testClient(server.URL).FetchUnread(context.Background(), "tok-456")
	if err != nil {
		t.Fatalf("FetchUnread returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	byID := map[string]string{}
	for _, item := range items {
		byID[item.ID] = item.Title
	}
	if byID["100"] != "First" {
		t.Errorf("expected resolved title for item 100, got %q", byID["100"])
	}
	if byID["200"] != "Second" {
		t.Errorf("expected fallback to given title for item 200, got %q", byID["200"])
	}
}

func TestFetchUnread_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"list": {}}`))
	}))
	defer server.Close()

	items, err := testClient(server.URL).FetchUnread(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FetchUnread returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected 0 items, got %d", len(items))
	}
}
