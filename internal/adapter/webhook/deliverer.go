// Package webhook delivers outgoing notifications to an HTTP endpoint.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/neomorfeo/roomlist/internal/contracts"
	"github.com/neomorfeo/roomlist/internal/domain"
)

// Header names sent with every delivery.
const (
	HeaderEventType      = "X-Event-Type"
	HeaderEventVersion   = "X-Event-Version"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderSignature      = "X-Signature-SHA256"
)

// Deliverer posts moderation notifications as JSON. Retries are left to the
// job queue, so the HTTP client itself does not retry.
type Deliverer struct {
	client *resty.Client
	url    string
	secret []byte
}

// Option configures a Deliverer.
type Option func(*Deliverer)

// WithSecret signs each body with HMAC-SHA256 under secret.
func WithSecret(secret string) Option {
	return func(d *Deliverer) { d.secret = []byte(secret) }
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Deliverer) { d.client.SetTimeout(timeout) }
}

// New creates a deliverer posting to url.
func New(url string, opts ...Option) *Deliverer {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	d := &Deliverer{client: client, url: url}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver sends n once. Any transport failure or non-2xx answer is an UpstreamError.
func (d *Deliverer) Deliver(ctx context.Context, n contracts.ModerationNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req := d.client.R().
		SetContext(ctx).
		SetHeader(HeaderEventType, contracts.ModerationNotificationEvent).
		SetHeader(HeaderEventVersion, contracts.ModerationNotificationVersion).
		SetHeader(HeaderIdempotencyKey, n.EventID).
		SetBody(body)
	if len(d.secret) > 0 {
		req.SetHeader(HeaderSignature, Sign(d.secret, body))
	}

	resp, err := req.Post(d.url)
	if err != nil {
		return &domain.UpstreamError{Service: "webhook", Err: err}
	}
	if resp.IsError() {
		return &domain.UpstreamError{
			Service: "webhook",
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode()),
		}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
