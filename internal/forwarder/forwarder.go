// Package forwarder delivers normalized envelopes to the ledger gateway's
// ingestion endpoint. Delivery runs through a bounded local queue with
// retry/backoff, so a slow or briefly unreachable gateway costs retries
// rather than silent loss; events are only dropped when the queue is full or
// the attempt budget is exhausted, with a log trace either way.
package forwarder

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

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
)

const drainTimeout = 10 * time.Second

// Config carries forwarder tuning. Zero values are normalized to defaults.
type Config struct {
	// Endpoint is the gateway ingestion URL.
	Endpoint string

	// QueueSize bounds the local delivery queue.
	QueueSize int

	// Workers is the number of concurrent delivery goroutines.
	Workers int

	// MaxAttempts caps delivery attempts per envelope.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry; it doubles per
	// attempt.
	InitialBackoff time.Duration

	// RequestTimeout bounds each HTTP attempt.
	RequestTimeout time.Duration
}

func (c Config) normalized() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	return c
}

// Forwarder posts envelopes to the gateway. Construct with New, feed with
// Enqueue, and drive with Run.
type Forwarder struct {
	cfg    Config
	queue  chan v1.Envelope
	client *http.Client
}

func New(cfg Config) *Forwarder {
	cfg = cfg.normalized()
	return &Forwarder{
		cfg:    cfg,
		queue:  make(chan v1.Envelope, cfg.QueueSize),
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Enqueue hands an envelope to the delivery queue without blocking. It
// reports false when the queue is full; the caller decides whether to log
// the drop. Listeners never feel backpressure from here.
func (f *Forwarder) Enqueue(env v1.Envelope) bool {
	select {
	case f.queue <- env:
		return true
	default:
		return false
	}
}

// QueueDepth reports the current number of undelivered envelopes.
func (f *Forwarder) QueueDepth() int {
	return len(f.queue)
}

// Run starts the delivery workers and blocks until ctx is cancelled. On
// shutdown each worker drains what remains in the queue under a bounded
// timeout before returning.
func (f *Forwarder) Run(ctx context.Context) error {
	slog.Info("[Forwarder] Starting delivery workers",
		"endpoint", f.cfg.Endpoint,
		"workers", f.cfg.Workers,
		"queue_size", f.cfg.QueueSize,
		"max_attempts", f.cfg.MaxAttempts)

	var wg sync.WaitGroup
	for i := 0; i < f.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.worker(ctx)
		}()
	}
	wg.Wait()

	slog.Info("[Forwarder] Stopped")
	return nil
}

func (f *Forwarder) worker(ctx context.Context) {
	for {
		select {
		case env := <-f.queue:
			f.deliver(ctx, env)
		case <-ctx.Done():
			f.drain()
			return
		}
	}
}

// drain flushes leftover envelopes after cancellation so an orderly shutdown
// does not abandon queued events.
func (f *Forwarder) drain() {
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case env := <-f.queue:
			f.deliver(drainCtx, env)
		default:
			return
		}
	}
}

// deliver posts one envelope, retrying transient failures with exponential
// backoff up to the attempt budget. Client-rejected envelopes (4xx) are not
// retried: resending the same payload cannot change the outcome.
func (f *Forwarder) deliver(ctx context.Context, env v1.Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		slog.Error("[Forwarder] Failed to encode envelope",
			"event_id", env.EventID, "error", err)
		return
	}

	backoff := f.cfg.InitialBackoff
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		err := f.post(ctx, body)
		if err == nil {
			slog.Debug("[Forwarder] Delivered event",
				"event_id", env.EventID, "attempt", attempt)
			return
		}

		if rej, ok := err.(*rejectedError); ok {
			slog.Warn("[Forwarder] Gateway rejected event, not retrying",
				"event_id", env.EventID,
				"device_type", env.DeviceType,
				"status", rej.status)
			return
		}

		slog.Warn("[Forwarder] Delivery attempt failed",
			"event_id", env.EventID,
			"attempt", attempt,
			"max_attempts", f.cfg.MaxAttempts,
			"error", err)

		if attempt == f.cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			slog.Warn("[Forwarder] Dropping event, shutdown during retry",
				"event_id", env.EventID)
			return
		}
		backoff *= 2
	}

	slog.Error("[Forwarder] Dropping event after exhausting retries",
		"event_id", env.EventID,
		"device_type", env.DeviceType,
		"attempts", f.cfg.MaxAttempts)
}

// rejectedError marks a 4xx gateway response. Permanent for a given payload.
type rejectedError struct {
	status int
}

func (e *rejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request with status %d", e.status)
}

func (f *Forwarder) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &rejectedError{status: resp.StatusCode}
	default:
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
}
