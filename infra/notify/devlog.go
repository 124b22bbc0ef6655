package notify

import (
	"context"

	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/model"
)

// DevLogProvider writes notifications to the log instead of delivering them.
// Used for channels without a production transport in dev environments.
type DevLogProvider struct {
	Channel model.NotificationChannel
	Log     logger.Logger
}

func NewDevLogProvider(channel model.NotificationChannel, log logger.Logger) *DevLogProvider {
	return &DevLogProvider{Channel: channel, Log: log}
}

func (p *DevLogProvider) Send(_ context.Context, n model.Notification) (bool, error) {
	p.Log.Debugw("notification", map[string]any{
		"channel":   p.Channel,
		"recipient": n.RecipientID,
		"type":      n.Type,
		"title":     n.Title,
		"body":      n.Body,
	})
	return true, nil
}
