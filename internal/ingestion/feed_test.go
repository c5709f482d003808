package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/storage/memory"
)

// feedServer serves one websocket connection that sends the given
// messages and then holds the connection open.
func feedServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestFeed_EnqueuesMessages(t *testing.T) {
	messages := []string{`[{"a":1}]`, `[{"a":2}]`, `[{"a":3}]`}
	srv := feedServer(t, messages)
	defer srv.Close()

	jobs := memory.NewIngestJobStore()
	cfg := config.Default().Worker
	cfg.FeedURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	feed := NewFeed(cfg, jobs, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	// Claims accumulate across polls; claimed jobs never reappear.
	var received []string
	waitFor(t, 5*time.Second, func() bool {
		claimed, err := jobs.Claim(context.Background(), len(messages))
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		for _, job := range claimed {
			if job.Source != cfg.Source {
				t.Errorf("Source = %s, want %s", job.Source, cfg.Source)
			}
			received = append(received, string(job.Payload))
		}
		return len(received) == len(messages)
	})
	for i, msg := range messages {
		if received[i] != msg {
			t.Errorf("Payload %d = %s, want %s", i, received[i], msg)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop after cancellation")
	}
}

func TestFeed_DialFailureReturnsError(t *testing.T) {
	jobs := memory.NewIngestJobStore()
	cfg := config.Default().Worker
	cfg.FeedURL = "ws://127.0.0.1:1/nope"
	feed := NewFeed(cfg, jobs, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := feed.Run(ctx); err == nil {
		t.Error("Run must fail when the feed is unreachable")
	}
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
