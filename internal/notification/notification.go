package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"signal-advisor/internal/engine"
)

// Notifier delivers a signal to one outbound channel.
type Notifier interface {
	Notify(ctx context.Context, sig engine.Signal) error
	Name() string
}

// Manager fans a signal out to every configured notifier. Delivery failures
// are logged and swallowed: an unreachable webhook must never affect signal
// registration.
type Manager struct {
	notifiers []Notifier
	log       zerolog.Logger
}

// NewManager creates a notification manager.
func NewManager(log zerolog.Logger, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		log:       log.With().Str("component", "notification").Logger(),
	}
}

// NotifySignal delivers to all channels sequentially with a per-channel
// timeout.
func (m *Manager) NotifySignal(ctx context.Context, sig engine.Signal) {
	for _, n := range m.notifiers {
		notifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := n.Notify(notifyCtx, sig); err != nil {
			m.log.Warn().Err(err).Str("channel", n.Name()).Str("signal_id", sig.ID).Msg("notification failed")
		}
		cancel()
	}
}

// WebhookNotifier POSTs the signal as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook channel.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the channel in logs.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// Notify posts the signal payload.
func (w *WebhookNotifier) Notify(ctx context.Context, sig engine.Signal) error {
	payload, err := json.Marshal(map[string]interface{}{
		"event":  "signal_generated",
		"signal": sig,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
