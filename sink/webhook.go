package sink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/cataloger/models"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Cataloger-Signature"

// Event is the payload posted to webhook endpoints.
type Event struct {
	Type      string                 `json:"type"` // always "batch.extracted"
	Timestamp int64                  `json:"timestamp"`
	Count     int                    `json:"count"`
	Products  models.ExtractionBatch `json:"products"`
}

// Webhook posts the batch as JSON, signed when a secret is configured.
type Webhook struct {
	url    string
	secret string
	client *http.Client
	// retryDelays are waited before each retry; len(retryDelays)+1 attempts.
	retryDelays []time.Duration
}

// NewWebhook creates a webhook sink. defaultURL is used when Write gets
// no destination.
func NewWebhook(defaultURL, secret string) *Webhook {
	return &Webhook{
		url:         defaultURL,
		secret:      secret,
		client:      &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second},
	}
}

func (s *Webhook) Name() string { return NameWebhook }

// Write implements Sink. destination is the endpoint URL. Delivery is
// retried on transport errors and 5xx responses.
func (s *Webhook) Write(ctx context.Context, destination string, batch models.ExtractionBatch) error {
	target := destination
	if target == "" {
		target = s.url
	}
	if target == "" {
		return errors.New("webhook: no endpoint configured")
	}

	body, err := json.Marshal(&Event{
		Type:      "batch.extracted",
		Timestamp: time.Now().Unix(),
		Count:     len(batch),
		Products:  batch,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	for attempt := 0; ; attempt++ {
		retry, err := s.deliver(ctx, target, body)
		if err == nil {
			slog.Info("webhook delivered", "url", target, "count", len(batch), "attempt", attempt+1)
			return nil
		}
		if !retry || attempt >= len(s.retryDelays) {
			return err
		}
		slog.Warn("webhook delivery failed", "url", target, "attempt", attempt+1, "error", err)

		select {
		case <-time.After(s.retryDelays[attempt]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// deliver sends one request. retry reports whether the failure is transient.
func (s *Webhook) deliver(ctx context.Context, target string, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Cataloger-Webhook/1.0")
	if s.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(s.secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return resp.StatusCode >= 500, fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return false, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
