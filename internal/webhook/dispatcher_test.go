package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"spinlog/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleEventPostsJSON(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, testLogger())
	d.HandleEvent(event.Event{
		Type:      event.WorkPromoted,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"work_id": "w1"},
	})
	d.Wait()

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}

	var payload map[string]any
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if payload["event"] != string(event.WorkPromoted) {
		t.Errorf("event = %v, want %s", payload["event"], event.WorkPromoted)
	}
	data, ok := payload["data"].(map[string]any)
	if !ok || data["work_id"] != "w1" {
		t.Errorf("data = %v, want work_id w1", payload["data"])
	}
}

func TestHandleEventRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, testLogger())
	d.backoff = time.Millisecond

	d.HandleEvent(event.Event{Type: event.LogsLinked, Timestamp: time.Now().UTC()})
	d.Wait()

	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 delivery attempts, got %d", n)
	}
}

func TestHandleEventGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, testLogger())
	d.backoff = time.Millisecond

	d.HandleEvent(event.Event{Type: event.ReviewNeeded, Timestamp: time.Now().UTC()})
	d.Wait()

	if n := calls.Load(); n != maxRetries {
		t.Errorf("expected %d delivery attempts, got %d", maxRetries, n)
	}
}
