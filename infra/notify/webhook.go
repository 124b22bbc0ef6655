package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/veeo/driver-dispatch/core/model"
)

// AuthHeaderSetter stamps an Authorization header on outbound requests.
// auth.ClientCred implements it for OAuth2 client credentials.
type AuthHeaderSetter interface {
	SetAuthHeader(r *http.Request) error
}

// WebhookProvider posts notification payloads to a configured URL.
type WebhookProvider struct {
	URL     string
	Headers map[string]string
	Client  *http.Client
	auth    AuthHeaderSetter
}

func NewWebhookProvider(url string, headers map[string]string) *WebhookProvider {
	return &WebhookProvider{
		URL:     url,
		Headers: headers,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAuth authenticates every delivery with the given credential source.
func (w *WebhookProvider) WithAuth(a AuthHeaderSetter) *WebhookProvider {
	w.auth = a
	return w
}

type webhookPayload struct {
	Event         model.NotificationType `json:"event"`
	RecipientID   string                 `json:"recipient_id"`
	RecipientType model.RecipientType    `json:"recipient_type"`
	Title         string                 `json:"title"`
	Body          string                 `json:"body"`
	Data          map[string]any         `json:"data,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

func (w *WebhookProvider) Send(ctx context.Context, n model.Notification) (bool, error) {
	b, err := json.Marshal(webhookPayload{
		Event:         n.Type,
		RecipientID:   n.RecipientID,
		RecipientType: n.RecipientType,
		Title:         n.Title,
		Body:          n.Body,
		Data:          n.Data,
		Timestamp:     time.Now(),
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(b))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}
	if w.auth != nil {
		if err := w.auth.SetAuthHeader(req); err != nil {
			return false, err
		}
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < 300, nil
}
