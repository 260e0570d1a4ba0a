package service

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

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tnqbao/gau-asset-service/utils"
)

const (
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderWebhookEvent     = "X-Webhook-Event"

	DefaultWebhookAttempts       = 5
	DefaultWebhookAttemptTimeout = 10 * time.Second
	DefaultWebhookBaseDelay      = time.Second

	// SignatureTolerance bounds the envelope timestamp skew accepted on verify.
	SignatureTolerance = 5 * time.Minute
)

var (
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	ErrSignatureExpired  = errors.New("webhook timestamp outside tolerance")
)

type WebhookEnvelope struct {
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type WebhookConfig struct {
	Secret         string
	Destinations   []string
	MaxAttempts    int
	AttemptTimeout time.Duration
	BaseDelay      time.Duration
}

// WebhookDispatcher delivers signed envelopes to a fixed destination list.
// Each destination retries independently; failures are logged, never returned.
type WebhookDispatcher struct {
	cfg      WebhookConfig
	client   *http.Client
	logger   Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	attempts metric.Int64Counter
}

func NewWebhookDispatcher(cfg WebhookConfig, logger Logger) *WebhookDispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultWebhookAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultWebhookAttemptTimeout
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultWebhookBaseDelay
	}
	cfg.Destinations = append([]string(nil), cfg.Destinations...)
	if len(cfg.Destinations) > 0 && cfg.Secret == "" {
		logger.WarningWithContextf(context.Background(), "[Webhook] %d destinations configured without WEBHOOK_SECRET; envelopes are signed with an empty key", len(cfg.Destinations))
	}

	attempts, err := otel.Meter("github.com/tnqbao/gau-asset-service/service").Int64Counter(
		"webhook.delivery.attempts",
		metric.WithDescription("Outbound webhook delivery attempts by outcome"),
	)
	if err != nil {
		logger.WarningWithContextf(context.Background(), "[Webhook] Failed to create attempts counter: %v", err)
	}

	return &WebhookDispatcher{
		cfg:      cfg,
		client:   &http.Client{},
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
		attempts: attempts,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *WebhookDispatcher) Destinations() []string {
	return append([]string(nil), d.cfg.Destinations...)
}

// SignPayload returns the hex HMAC-SHA256 of body under secret.
func SignPayload(secret string, body []byte) string {
	return utils.ComputeHMACSHA256(secret, body)
}

// Notify adapts Dispatch to the Notifier interface.
func (d *WebhookDispatcher) Notify(ctx context.Context, event string, data map[string]interface{}) error {
	d.Dispatch(ctx, event, data)
	return nil
}

// Dispatch signs one envelope and delivers it to every destination in
// parallel, returning once all destinations have settled.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event string, data interface{}) {
	if len(d.cfg.Destinations) == 0 {
		return
	}

	body, err := json.Marshal(WebhookEnvelope{
		Event:     event,
		Timestamp: d.now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		d.logger.ErrorWithContextf(ctx, err, "[Webhook] Failed to encode %s envelope: %v", event, err)
		return
	}
	signature := SignPayload(d.cfg.Secret, body)

	var wg sync.WaitGroup
	for _, dest := range d.cfg.Destinations {
		wg.Add(1)
		go func(dest string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.logger.ErrorWithContextf(ctx, fmt.Errorf("panic: %v", r), "[Webhook] Delivery to %s panicked", dest)
				}
			}()
			if err := d.deliver(ctx, dest, event, body, signature); err != nil {
				d.logger.ErrorWithContextf(ctx, err, "[Webhook] Giving up on %s for %s after %d attempts: %v", dest, event, d.cfg.MaxAttempts, err)
			}
		}(dest)
	}
	wg.Wait()
}

func (d *WebhookDispatcher) deliver(ctx context.Context, dest, event string, body []byte, signature string) error {
	schedule := &backoff.ExponentialBackOff{
		InitialInterval:     d.cfg.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         d.cfg.BaseDelay << d.cfg.MaxAttempts,
	}
	schedule.Reset()

	var lastErr error
	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		lastErr = d.attempt(ctx, dest, event, body, signature)
		if lastErr == nil {
			d.count(ctx, event, "delivered")
			if attempt > 0 {
				d.logger.InfoWithContextf(ctx, "[Webhook] Delivered %s to %s on attempt %d", event, dest, attempt+1)
			}
			return nil
		}
		d.count(ctx, event, "failed")
		d.logger.WarningWithContextf(ctx, "[Webhook] Attempt %d/%d to %s failed: %v", attempt+1, d.cfg.MaxAttempts, dest, lastErr)

		if attempt == d.cfg.MaxAttempts-1 {
			break
		}
		if err := d.sleep(ctx, schedule.NextBackOff()); err != nil {
			return err
		}
	}
	d.count(ctx, event, "exhausted")
	return lastErr
}

func (d *WebhookDispatcher) attempt(ctx context.Context, dest, event string, body []byte, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWebhookSignature, "sha256="+signature)
	req.Header.Set(HeaderWebhookEvent, event)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("destination returned %d", resp.StatusCode)
	}
	return nil
}

func (d *WebhookDispatcher) count(ctx context.Context, event, outcome string) {
	if d.attempts == nil {
		return
	}
	d.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}

// VerifySignature checks an inbound envelope: the HMAC over the raw body must
// match in constant time and the envelope timestamp must be within
// SignatureTolerance of now.
func VerifySignature(secret string, body []byte, signature string, now time.Time) (*WebhookEnvelope, error) {
	expected := SignPayload(secret, body)
	if !utils.SecureCompare(expected, utils.StripSignaturePrefix(signature)) {
		return nil, ErrSignatureMismatch
	}

	var envelope WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, invalidInput("malformed envelope")
	}

	skew := utils.Abs(now.UnixMilli() - envelope.Timestamp)
	if skew > SignatureTolerance.Milliseconds() {
		return nil, ErrSignatureExpired
	}
	return &envelope, nil
}
