package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Enkel-Digital/yatbl/tapi"
	"github.com/Enkel-Digital/yatbl/webhook"
)

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New with empty token succeeded")
	}
}

func TestHandleUpdateNil(t *testing.T) {
	b := newTestBot(t)
	b.OnUpdate(func(c *Context) error {
		t.Error("handler ran for nil update")
		return nil
	})

	b.HandleUpdate(context.Background(), nil)
}

func TestOnCommandRouting(t *testing.T) {
	b := newTestBot(t)

	var starts int
	b.OnCommand("start", func(c *Context) error {
		starts++
		return nil
	})

	tests := []struct {
		name   string
		update *tapi.Update
		want   int
	}{
		{"plain command", commandUpdate(1, 10, "/start"), 1},
		{"mentioned command", commandUpdate(2, 10, "/start@TestBot"), 2},
		{"command with args", commandUpdate(3, 10, "/start now please"), 3},
		{"other command", commandUpdate(4, 10, "/stop"), 3},
		{"plain text", messageUpdate(5, 10, "start"), 3},
		{"no message", &tapi.Update{UpdateID: 6}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.HandleUpdate(context.Background(), tt.update)
			if starts != tt.want {
				t.Errorf("starts = %d, want %d", starts, tt.want)
			}
		})
	}
}

func TestPollingLifecycle(t *testing.T) {
	handled := make(chan int, 8)
	acked := make(chan struct{})
	var ackOnce sync.Once
	var polls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getMe":
			writeJSON(t, w, okResult(tapi.User{ID: 99, IsBot: true, Username: "TestBot"}))
		case "/botTOKEN/getUpdates":
			var req struct {
				Offset int `json:"offset"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode getUpdates body: %v", err)
			}

			if polls.Add(1) == 1 {
				writeJSON(t, w, okResult([]any{messageUpdate(7, 5, "hi")}))
				return
			}
			// Later polls must acknowledge update 7.
			if req.Offset == 8 {
				ackOnce.Do(func() { close(acked) })
			}
			writeJSON(t, w, okResult([]any{}))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	b := newTestBot(t, WithBaseURL(srv.URL), WithPollTimeout(1))
	b.OnUpdate(func(c *Context) error {
		handled <- c.Update().UpdateID
		return nil
	})

	if err := b.StartPolling(context.Background()); err != nil {
		t.Fatalf("StartPolling: %v", err)
	}

	select {
	case id := <-handled:
		if id != 7 {
			t.Errorf("handled update %d, want 7", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("update never dispatched")
	}

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("offset never advanced past the handled update")
	}

	b.StopPolling()

	if b.poller != nil {
		t.Error("poller still set after StopPolling")
	}
}

func TestStartPollingTwice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getMe":
			writeJSON(t, w, okResult(tapi.User{ID: 99, IsBot: true, Username: "TestBot"}))
		default:
			writeJSON(t, w, okResult([]any{}))
		}
	}))
	defer srv.Close()

	b := newTestBot(t, WithBaseURL(srv.URL))
	if err := b.StartPolling(context.Background()); err != nil {
		t.Fatalf("StartPolling: %v", err)
	}
	defer b.StopPolling()

	if err := b.StartPolling(context.Background()); !errors.Is(err, ErrPollingActive) {
		t.Fatalf("second StartPolling: got %v, want ErrPollingActive", err)
	}
}

func TestStartPollingRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	b := newTestBot(t, WithBaseURL(srv.URL))

	err := b.StartPolling(context.Background())
	var apiErr *tapi.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 401 {
		t.Fatalf("StartPolling: got %v, want 401 APIError", err)
	}
	if b.poller != nil {
		t.Error("poller set after failed start")
	}
}

func TestStopPollingIdle(t *testing.T) {
	b := newTestBot(t)
	b.StopPolling()
}

// eventLog records lifecycle events from both the stub listener and
// the fake API server so ordering across them can be asserted.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type stubHandle struct {
	log *eventLog
}

func (h *stubHandle) Start() error {
	h.log.add("listener:start")
	return nil
}

func (h *stubHandle) Close(context.Context) error {
	h.log.add("listener:close")
	return nil
}

func (h *stubHandle) Addr() string { return "127.0.0.1:3000" }

func stubFactory(log *eventLog) webhook.ServerFactory {
	return func(webhook.Config, http.Handler) webhook.ServerHandle {
		return &stubHandle{log: log}
	}
}

func TestWebhookLifecycleThroughBot(t *testing.T) {
	log := &eventLog{}
	var setBody struct {
		URL string `json:"url"`
	}
	var deleteBody struct {
		URL string `json:"url"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/setWebhook":
			log.add("api:setWebhook")
			if err := json.NewDecoder(r.Body).Decode(&setBody); err != nil {
				t.Errorf("decode setWebhook body: %v", err)
			}
			writeJSON(t, w, okResult(true))
		case "/botTOKEN/deleteWebhook":
			log.add("api:deleteWebhook")
			if err := json.NewDecoder(r.Body).Decode(&deleteBody); err != nil {
				t.Errorf("decode deleteWebhook body: %v", err)
			}
			writeJSON(t, w, okResult(true))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	b := newTestBot(t, WithBaseURL(srv.URL))
	cfg := webhook.Config{URL: "https://example.com/"}

	err := b.StartWebhook(context.Background(), cfg, webhook.WithServerFactory(stubFactory(log)))
	if err != nil {
		t.Fatalf("StartWebhook: %v", err)
	}

	if got := b.Webhook().State(); got != webhook.StateRegistered {
		t.Fatalf("state after start = %v, want %v", got, webhook.StateRegistered)
	}
	if want := "https://example.com/TOKEN"; setBody.URL != want {
		t.Errorf("setWebhook url = %q, want %q", setBody.URL, want)
	}

	if err := b.StartWebhook(context.Background(), cfg); !errors.Is(err, ErrWebhookActive) {
		t.Fatalf("second StartWebhook: got %v, want ErrWebhookActive", err)
	}

	if err := b.StopWebhook(context.Background()); err != nil {
		t.Fatalf("StopWebhook: %v", err)
	}
	if b.Webhook() != nil {
		t.Error("webhook still set after StopWebhook")
	}
	if deleteBody.URL != setBody.URL {
		t.Errorf("deleteWebhook url = %q, want %q", deleteBody.URL, setBody.URL)
	}

	want := []string{"listener:start", "api:setWebhook", "api:deleteWebhook", "listener:close"}
	got := log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestWebhookRegistrationFailureKeepsListener(t *testing.T) {
	log := &eventLog{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/setWebhook" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		log.add("api:setWebhook")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"bad webhook"}`))
	}))
	defer srv.Close()

	b := newTestBot(t, WithBaseURL(srv.URL))
	cfg := webhook.Config{URL: "https://example.com/"}

	err := b.StartWebhook(context.Background(), cfg, webhook.WithServerFactory(stubFactory(log)))
	if err == nil {
		t.Fatal("StartWebhook succeeded despite registration failure")
	}

	// No rollback: the listener stays up and the manager stays
	// reachable for an explicit teardown.
	mgr := b.Webhook()
	if mgr == nil {
		t.Fatal("manager discarded after registration failure")
	}
	if got := mgr.State(); got != webhook.StateListenerActive {
		t.Fatalf("state = %v, want %v", got, webhook.StateListenerActive)
	}

	if err := b.StopWebhook(context.Background()); err != nil {
		t.Fatalf("StopWebhook: %v", err)
	}

	// Nothing was registered, so teardown must not call deleteWebhook.
	got := log.snapshot()
	want := []string{"listener:start", "api:setWebhook", "listener:close"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestStartWebhookInvalidConfig(t *testing.T) {
	b := newTestBot(t)

	err := b.StartWebhook(context.Background(), webhook.Config{URL: "http://example.com/"})
	var cfgErr *webhook.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "url" {
		t.Fatalf("StartWebhook: got %v, want url ConfigError", err)
	}
	if b.Webhook() != nil {
		t.Error("manager set after config rejection")
	}
}

func TestStopWebhookIdle(t *testing.T) {
	b := newTestBot(t)

	if err := b.StopWebhook(context.Background()); !errors.Is(err, webhook.ErrNotStarted) {
		t.Fatalf("StopWebhook: got %v, want webhook.ErrNotStarted", err)
	}
}

func TestCloseIdle(t *testing.T) {
	b := newTestBot(t)
	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCloseStopsPollingAndWebhook(t *testing.T) {
	log := &eventLog{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getMe":
			writeJSON(t, w, okResult(tapi.User{ID: 99, IsBot: true, Username: "TestBot"}))
		case "/botTOKEN/getUpdates":
			writeJSON(t, w, okResult([]any{}))
		case "/botTOKEN/setWebhook", "/botTOKEN/deleteWebhook":
			log.add("api:" + strings.TrimPrefix(r.URL.Path, "/botTOKEN/"))
			writeJSON(t, w, okResult(true))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	b := newTestBot(t, WithBaseURL(srv.URL), WithPollTimeout(1))
	if err := b.StartPolling(context.Background()); err != nil {
		t.Fatalf("StartPolling: %v", err)
	}
	cfg := webhook.Config{URL: "https://example.com/"}
	if err := b.StartWebhook(context.Background(), cfg, webhook.WithServerFactory(stubFactory(log))); err != nil {
		t.Fatalf("StartWebhook: %v", err)
	}

	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if b.poller != nil || b.Webhook() != nil {
		t.Error("update sources still set after Close")
	}
}
