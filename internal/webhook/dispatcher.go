// Package webhook delivers engine events to an external HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"spinlog/internal/event"
)

const (
	maxRetries     = 3
	requestTimeout = 10 * time.Second
)

// Dispatcher posts events to a single configured webhook URL as JSON.
type Dispatcher struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	backoff    time.Duration

	wg sync.WaitGroup
}

// NewDispatcher creates a webhook dispatcher.
func NewDispatcher(url string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		url:        url,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With(slog.String("component", "webhook-dispatcher")),
		backoff:    time.Second,
	}
}

// HandleEvent is an event.Handler; it delivers asynchronously so the bus
// dispatch loop never waits on the network.
func (d *Dispatcher) HandleEvent(e event.Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(e)
	}()
}

// Wait blocks until all in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(e event.Event) {
	payload := map[string]any{
		"event":     string(e.Type),
		"timestamp": e.Timestamp,
		"data":      e.Data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("encoding webhook payload", "event", string(e.Type), "error", err)
		return
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * d.backoff)
		}

		lastErr = d.send(body)
		if lastErr == nil {
			d.logger.Debug("webhook delivered",
				"event", string(e.Type), "attempt", attempt+1)
			return
		}

		d.logger.Warn("webhook delivery failed",
			"event", string(e.Type), "attempt", attempt+1, "error", lastErr)
	}

	d.logger.Error("webhook delivery exhausted retries",
		"event", string(e.Type), "error", lastErr)
}

func (d *Dispatcher) send(body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Spinlog-Webhook/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()        //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
