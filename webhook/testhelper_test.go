package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/Enkel-Digital/yatbl/tapi"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder captures API calls and listener events in arrival order, so
// tests can assert the lifecycle ordering guarantees.
type recorder struct {
	mu     sync.Mutex
	events []string
	calls  []apiCall

	failMethod string
	failErr    error
}

type apiCall struct {
	method  string
	payload map[string]any
}

func (r *recorder) Call(_ context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "call:"+method)
	r.calls = append(r.calls, apiCall{method: method, payload: payload})
	if r.failMethod == method {
		return nil, r.failErr
	}
	return json.RawMessage(`true`), nil
}

func (r *recorder) event(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// fakeHandle is a ServerHandle recording its own start/close events.
type fakeHandle struct {
	rec      *recorder
	startErr error
	closeErr error
	closes   int
}

func (h *fakeHandle) Start() error {
	h.rec.event("listener:start")
	return h.startErr
}

func (h *fakeHandle) Close(context.Context) error {
	h.rec.event("listener:close")
	h.closes++
	return h.closeErr
}

func (h *fakeHandle) Addr() string { return "127.0.0.1:3000" }

func newTestManager(t *testing.T, cfg Config, rec *recorder, handle *fakeHandle) *Manager {
	t.Helper()
	m, err := NewManager(rec, cfg, func(context.Context, *tapi.Update) {},
		WithLogger(discardLogger()),
		WithServerFactory(func(Config, http.Handler) ServerHandle { return handle }))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	return m
}

func assertEvents(t *testing.T, rec *recorder, want []string) {
	t.Helper()
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}
