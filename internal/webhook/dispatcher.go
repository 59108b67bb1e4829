package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goloyalty/internal/snapshot"
	"github.com/TimurManjosov/goloyalty/internal/telemetry"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 1000

	// maxResponseBodySize limits how much of a failed response body is logged
	maxResponseBodySize = 1024

	defaultTimeout = 10 * time.Second
)

// Dispatcher delivers rule-set change events to the configured endpoints.
type Dispatcher struct {
	endpoints []Endpoint
	client    *http.Client
	logger    zerolog.Logger
	queue     chan Event
	done      chan struct{}

	// backoff returns the wait before retry attempt+1.
	backoff func(attempt int) time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(endpoints []Endpoint, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		endpoints: endpoints,
		client:    &http.Client{},
		logger:    logger.With().Str("component", "webhook").Logger(),
		queue:     make(chan Event, queueSize),
		done:      make(chan struct{}),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
		now: time.Now,
	}
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close stops accepting events and waits for pending deliveries to finish.
// It is safe to call more than once.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return nil
}

// Dispatch queues an event for delivery without blocking. It reports false
// when the event was dropped.
func (d *Dispatcher) Dispatch(event Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.queue <- event:
		return true
	default:
		d.logger.Error().
			Str("event", event.Type).
			Str("kind", string(event.Kind)).
			Str("owner_id", event.OwnerID).
			Int("queue_size", queueSize).
			Msg("webhook queue full, dropping event")
		telemetry.WebhookDeliveries.WithLabelValues("dropped").Inc()
		return false
	}
}

// Run forwards every change published on feed until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, feed *snapshot.Feed) error {
	changes, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			d.Dispatch(EventFromChange(c, d.now()))
		}
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		for _, ep := range d.endpoints {
			if ep.matches(event) {
				d.deliverWithRetry(ep, event)
			}
		}
	}
}

// deliverWithRetry attempts to deliver an event to an endpoint, retrying
// failures with exponential backoff.
func (d *Dispatcher) deliverWithRetry(ep Endpoint, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error().Err(err).Str("url", ep.URL).Msg("failed to marshal webhook event")
		telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
		return
	}

	deliveryID := uuid.NewString()
	log := d.logger.With().
		Str("delivery_id", deliveryID).
		Str("url", ep.URL).
		Str("event", event.Type).
		Logger()

	for attempt := 0; attempt <= ep.MaxRetries; attempt++ {
		start := time.Now()
		status, body, err := d.deliver(ep, event, payload, deliveryID)
		duration := time.Since(start)

		if err == nil && status >= 200 && status < 300 {
			log.Debug().Int("status", status).Dur("duration", duration).Int("attempt", attempt+1).Msg("webhook delivered")
			telemetry.WebhookDeliveries.WithLabelValues("delivered").Inc()
			return
		}

		failure := log.Warn().Int("status", status).Str("response", body).Dur("duration", duration).Int("attempt", attempt+1)
		if err != nil {
			failure = failure.Err(err)
		}
		if attempt < ep.MaxRetries {
			wait := d.backoff(attempt)
			failure.Dur("retry_in", wait).Msg("webhook delivery failed")
			telemetry.WebhookDeliveries.WithLabelValues("retried").Inc()
			time.Sleep(wait)
			continue
		}
		failure.Msg("webhook delivery failed permanently")
		telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
	}
}

func (d *Dispatcher) deliver(ep Endpoint, event Event, payload []byte, deliveryID string) (int, string, error) {
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}

	ts := d.now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Loyalty-Event", event.Type)
	req.Header.Set("X-Loyalty-Delivery", deliveryID)
	req.Header.Set("X-Loyalty-Timestamp", strconv.FormatInt(ts, 10))
	if ep.Secret != "" {
		req.Header.Set("X-Loyalty-Signature", Sign(payload, ts, ep.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var body string
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		body = string(b)
	}
	return resp.StatusCode, body, nil
}
