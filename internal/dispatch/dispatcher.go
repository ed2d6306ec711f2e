package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/joegr/ReTurni/internal/services"
	"go.uber.org/zap"
)

// Event types emitted by the gateway itself.
const (
	EventUserLogin         = "user_login"
	EventUserLogout        = "user_logout"
	EventTokenRefreshed    = "token_refreshed"
	EventRateLimitExceeded = "rate_limit_exceeded"
)

// Event is a gateway-originated audit record.
type Event struct {
	Type      string            `json:"type"`
	Actor     string            `json:"actor,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// HTTPClient is satisfied by *http.Client and by test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher delivers gateway events to the audit service and to live
// websocket subscribers. Delivery is best effort: a full queue drops
// the event rather than stalling request handling.
type Dispatcher struct {
	events   chan Event
	auditURL string
	signer   *services.HMACService
	client   HTTPClient
	logger   *zap.Logger

	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewDispatcher creates a dispatcher. An empty auditURL keeps events
// local to subscribers and logs.
func NewDispatcher(auditURL string, signer *services.HMACService, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		events:      make(chan Event, 256),
		auditURL:    auditURL,
		signer:      signer,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
		subscribers: make(map[chan Event]struct{}),
	}
}

// SetHTTPClient replaces the HTTP client, for testing.
func (d *Dispatcher) SetHTTPClient(client HTTPClient) {
	d.client = client
}

// Enqueue accepts an event without blocking. Events carry their
// enqueue time if the caller left Timestamp zero.
func (d *Dispatcher) Enqueue(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case d.events <- event:
	default:
		d.logger.Warn("event queue full, dropping event", zap.String("type", event.Type))
	}
}

// Subscribe registers a listener for future events. Slow listeners
// miss events instead of blocking delivery.
func (d *Dispatcher) Subscribe() chan Event {
	ch := make(chan Event, 16)
	d.mu.Lock()
	d.subscribers[ch] = struct{}{}
	d.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (d *Dispatcher) Unsubscribe(ch chan Event) {
	d.mu.Lock()
	if _, ok := d.subscribers[ch]; ok {
		delete(d.subscribers, ch)
		close(ch)
	}
	d.mu.Unlock()
}

// Run drains the queue until the context ends. It is meant to run as
// a single background goroutine.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-d.events:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	d.fanOut(event)

	if d.auditURL == "" {
		return
	}
	if err := d.post(ctx, event); err != nil {
		d.logger.Warn("audit delivery failed",
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) fanOut(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for ch := range d.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (d *Dispatcher) post(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.auditURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.signer != nil && d.signer.Enabled() {
		req.Header.Set("X-Gateway-Signature", d.signer.SignPayload(payload))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("audit service returned status %d", resp.StatusCode)
	}
	return nil
}
