package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"hiveroadmap/internal/pkg/metrics"
	"hiveroadmap/internal/platform/config"
	"hiveroadmap/internal/platform/models"
)

const (
	HeaderEvent     = "X-Hive-Roadmap-Event"
	HeaderSignature = "X-Hive-Roadmap-Signature"
	HeaderDelivery  = "X-Hive-Roadmap-Delivery"

	maxErrorBody   = 1024
	defaultTimeout = 5 * time.Second
)

// DeliveryLog persists one row per delivery attempt.
type DeliveryLog interface {
	Record(ctx context.Context, d *models.Delivery) error
}

type DispatchResult struct {
	Dispatched int `json:"dispatched"`
}

type Dispatcher struct {
	registry   *Registry
	client     *http.Client
	userAgent  string
	deliveries DeliveryLog
	now        func() time.Time
}

// NewDispatcher wires delivery to the registry. deliveries may be nil.
// Redirects are never followed: a 3xx answer is recorded as a failed
// delivery so targets cannot bounce the signed envelope past URL validation.
func NewDispatcher(registry *Registry, cfg config.WebhooksConfig, deliveries DeliveryLog) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		registry: registry,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:  cfg.UserAgent,
		deliveries: deliveries,
		now:        time.Now,
	}
}

// Dispatch delivers eventType to every matching webhook concurrently and
// waits for all of them to settle. Individual failures are recorded on the
// webhook and never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, payload interface{}) DispatchResult {
	targets := d.registry.Matching(eventType)

	var wg sync.WaitGroup
	for _, wh := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.deliver(ctx, wh, eventType, payload)
		}()
	}
	wg.Wait()

	log.Debug().
		Str("event", eventType).
		Int("dispatched", len(targets)).
		Msg("event dispatched")

	return DispatchResult{Dispatched: len(targets)}
}

// TriggerTest sends a webhook.test event to one webhook and returns its
// state after the attempt. A failed delivery is not an error.
func (d *Dispatcher) TriggerTest(ctx context.Context, id string) (models.WebhookView, error) {
	wh, err := d.registry.Lookup(id)
	if err != nil {
		return models.WebhookView{}, err
	}

	d.deliver(ctx, wh, models.EventWebhookTest, map[string]string{"message": "test"})

	return d.registry.Get(id)
}

func (d *Dispatcher) BroadcastStatusSnapshot(ctx context.Context, snapshot *models.StatusSnapshot) DispatchResult {
	return d.Dispatch(ctx, models.EventStatusSnapshot, snapshot)
}

func (d *Dispatcher) BroadcastAggregateSnapshot(ctx context.Context, snapshot *models.AggregateSnapshot) DispatchResult {
	return d.Dispatch(ctx, models.EventAggregateSnapshot, snapshot)
}

func (d *Dispatcher) deliver(ctx context.Context, wh models.Webhook, eventType string, payload interface{}) {
	started := d.now()
	event := models.WebhookEvent{
		ID:        ulid.Make().String(),
		Type:      eventType,
		Timestamp: started.UTC().Format(time.RFC3339),
		Payload:   payload,
	}

	statusCode, err := d.post(ctx, wh, event)
	duration := d.now().Sub(started)

	if err != nil {
		d.registry.RecordDeliveryResult(wh.ID, false, err)
	} else {
		d.registry.RecordDeliveryResult(wh.ID, true, nil)
	}
	metrics.WebhookDeliveries.WithLabelValues(eventType, metrics.Outcome(err)).Inc()

	logEvent := log.Info()
	if err != nil {
		logEvent = log.Warn().Err(err)
	}
	logEvent.
		Str("webhook_id", wh.ID).
		Str("event", eventType).
		Str("delivery_id", event.ID).
		Int("status_code", statusCode).
		Dur("duration", duration).
		Msg("webhook delivery")

	if d.deliveries == nil {
		return
	}
	record := &models.Delivery{
		ID:          uuid.New().String(),
		WebhookID:   wh.ID,
		EventID:     event.ID,
		EventType:   eventType,
		StatusCode:  statusCode,
		Success:     err == nil,
		DurationMs:  duration.Milliseconds(),
		AttemptedAt: started.UTC(),
	}
	if err != nil {
		record.Error = err.Error()
	}
	if logErr := d.deliveries.Record(context.WithoutCancel(ctx), record); logErr != nil {
		log.Error().Err(logErr).Str("webhook_id", wh.ID).Msg("failed to record delivery")
	}
}

// post sends one signed envelope. Any non-2xx status is an error whose
// message is the (truncated) response body.
func (d *Dispatcher) post(ctx context.Context, wh models.Webhook, event models.WebhookEvent) (int, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set(HeaderEvent, event.Type)
	req.Header.Set(HeaderSignature, SignatureHeader(wh.Secret, body))
	req.Header.Set(HeaderDelivery, event.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(bytes.TrimSpace(text)) == 0 {
		return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, errors.New(string(text))
}
