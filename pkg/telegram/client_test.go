package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mpotapov/pocket-reminder-bot/environments"
)

func testClient(serverURL string) *Client {
	return NewClient(environments.TelegramConfig{
		BotToken:    "bot-token",
		APIBaseURL:  serverURL,
		Timeout:     2 * time.Second,
		PollTimeout: 0,
	})
}

func TestSendMessage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botbot-token/sendMessage" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["chat_id"].(float64) != 42 {
			t.Errorf("expected chat_id 42, got %v", body["chat_id"])
		}
		if body["text"] != "hello" {
			t.Errorf("expected text %q, got %v", "hello", body["text"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "result": {}}`))
	}))
	defer server.Close()

	if err := testClient(server.URL).SendMessage(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
}

func TestSendMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
	}))
	defer server.Close()

	if err := testClient(server.URL).SendMessage(context.Background(), 42, "hello"); err == nil {
		t.Fatalf("expected error for non-ok API response")
	}
}

func TestPoll_DeliversTextMessagesAndAdvancesOffset(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botbot-token/getUpdates" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")

		switch calls.Add(1) {
		case 1:
			if body["offset"].(float64) != 0 {
				t.Errorf("expected initial offset 0, got %v", body["offset"])
			}
			_, _ = w.Write([]byte(`{"ok": true, "result": [
				{"update_id": 10, "message": {"message_id": 1, "chat": {"id": 42}, "text": "/start"}},
				{"update_id": 11, "message": {"message_id": 2, "chat": {"id": 43}, "text": "hi"}},
				{"update_id": 12, "message": {"message_id": 3, "chat": {"id": 44}}}
			]}`))
		default:
			if body["offset"].(float64) != 13 {
				t.Errorf("expected advanced offset 13, got %v", body["offset"])
			}
			_, _ = w.Write([]byte(`{"ok": true, "result": []}`))
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := testClient(server.URL).Poll(ctx)

	var got []InboundMessage
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case msg, ok := <-inbound:
			if !ok {
				t.Fatalf("inbound channel closed early, got %v", got)
			}
			got = append(got, msg)
		case <-timeout:
			t.Fatalf("timed out waiting for inbound messages, got %v", got)
		}
	}

	if got[0].ChatID != 42 || got[0].Text != "/start" {
		t.Errorf("unexpected first message: %+v", got[0])
	}
	if got[1].ChatID != 43 || got[1].Text != "hi" {
		t.Errorf("unexpected second message: %+v", got[1])
	}

	// The update without text must be skipped but still advance the
	// offset; wait for at least one follow-up poll to verify.
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatalf("expected a second getUpdates call")
	}
}

func TestPoll_ClosesChannelOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "result": []}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	inbound := testClient(server.URL).Poll(ctx)

	cancel()

	select {
	case _, ok := <-inbound:
		if ok {
			t.Fatalf("expected channel to close without messages")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for channel close")
	}
}

func TestPoll_RecoversFromServerErrors(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"ok": false, "description": "boom"}`))
			return
		}

		_, _ = fmt.Fprint(w, `{"ok": true, "result": [
			{"update_id": 1, "message": {"message_id": 1, "chat": {"id": 42}, "text": "hi"}}
		]}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := testClient(server.URL).Poll(ctx)

	select {
	case msg := <-inbound:
		if msg.ChatID != 42 {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for message after recovery")
	}
}
