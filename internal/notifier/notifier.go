// Package notifier forwards a copy of each persisted interaction to an
// external analytics collector. Delivery is best effort: one attempt,
// bounded by a timeout, never retried. The local store remains the
// source of truth whatever happens here.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
)

const eventName = "content_interaction"

type payload struct {
	Event     string   `json:"event"`
	ContentID *int64   `json:"content_id"`
	Action    string   `json:"action"`
	SessionID *string  `json:"session_id"`
	Timestamp string   `json:"timestamp"`
	Metadata  metadata `json:"metadata"`
}

type metadata struct {
	IPAddress *string `json:"ip_address"`
	UserAgent *string `json:"user_agent"`
}

// Webhook POSTs one JSON summary per event to a configured URL.
// An empty URL turns it into an explicit no-op (NotifySkipped).
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Notify(ctx context.Context, ev domain.InteractionEvent) (domain.NotifyStatus, error) {
	if w.url == "" {
		return domain.NotifySkipped, nil
	}

	body, err := json.Marshal(payload{
		Event:     eventName,
		ContentID: ev.ContentID,
		Action:    string(ev.Action),
		SessionID: ev.SessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Metadata: metadata{
			IPAddress: ev.IPAddress,
			UserAgent: ev.UserAgent,
		},
	})
	if err != nil {
		return domain.NotifyFailed, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return domain.NotifyFailed, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.NotifyFailed, fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.NotifyFailed, fmt.Errorf("collector responded %d", resp.StatusCode)
	}
	return domain.NotifyDelivered, nil
}
