// Package notify provides channel providers for the notification service:
// FCM push, webhook, MQTT, WebSocket sessions and a dev logger.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/model"
)

// TokenResolver maps a recipient id to its push token. The driver registry
// backs this in production.
type TokenResolver func(recipientID string) (string, bool)

// FCMProvider posts JSON to the FCM HTTPv1 endpoint using a server key or
// oauth token.
type FCMProvider struct {
	Endpoint string
	Key      string
	Client   *http.Client

	resolve TokenResolver
	log     logger.Logger
}

func NewFCMProvider(endpoint, key string, resolve TokenResolver, log logger.Logger) *FCMProvider {
	return &FCMProvider{
		Endpoint: endpoint,
		Key:      key,
		Client:   &http.Client{Timeout: 3 * time.Second},
		resolve:  resolve,
		log:      log,
	}
}

func (f *FCMProvider) Send(ctx context.Context, n model.Notification) (bool, error) {
	token, ok := f.resolve(n.RecipientID)
	if !ok || token == "" {
		return false, fmt.Errorf("no push token for recipient %s", n.RecipientID)
	}

	body := map[string]any{
		"message": map[string]any{
			"token": token,
			"notification": map[string]any{
				"title": n.Title,
				"body":  n.Body,
			},
			"data": n.Data,
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(b))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Key != "" {
		req.Header.Set("Authorization", "Bearer "+f.Key)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		f.log.Warnf("fcm returned %d for recipient %s", resp.StatusCode, n.RecipientID)
		return false, nil
	}
	return true, nil
}
