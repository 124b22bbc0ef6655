// Package notification composes delivery intents and routes them to
// externally registered channel providers. A missing or failing provider
// marks the individual notification failed and never propagates upward.
package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/metrics"
	"github.com/veeo/driver-dispatch/core/model"
)

// Provider delivers one notification over a single channel. The boolean
// reports delivery acceptance; an error marks the notification failed.
type Provider interface {
	Send(ctx context.Context, n model.Notification) (bool, error)
}

// Service owns the provider registry and the notification history.
type Service struct {
	mu        sync.RWMutex
	providers map[model.NotificationChannel]Provider
	history   []model.Notification

	sink metrics.NotificationRecorder
	log  logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSink records every delivery attempt on the given recorder.
func WithSink(sink metrics.NotificationRecorder) Option {
	return func(s *Service) { s.sink = sink }
}

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a Service with no providers registered.
func NewService(opts ...Option) *Service {
	s := &Service{providers: make(map[model.NotificationChannel]Provider)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterProvider installs or replaces the provider for a channel.
func (s *Service) RegisterProvider(channel model.NotificationChannel, p Provider) {
	s.mu.Lock()
	s.providers[channel] = p
	s.mu.Unlock()
}

// Send assigns identity and delivery status to the intent, hands it to the
// channel provider and appends it to the history. The returned notification
// always carries a terminal status; the error mirrors Status=failed.
func (s *Service) Send(ctx context.Context, n model.Notification) (*model.Notification, error) {
	n.ID = uuid.NewString()
	n.Status = model.NotificationPending
	n.CreatedAt = time.Now()

	s.mu.RLock()
	provider, ok := s.providers[n.Channel]
	s.mu.RUnlock()

	switch {
	case !ok:
		n.Status = model.NotificationFailed
		n.Error = fmt.Sprintf("no provider for channel: %s", n.Channel)
	default:
		delivered, err := provider.Send(ctx, n)
		now := time.Now()
		n.SentAt = &now
		if err != nil {
			n.Status = model.NotificationFailed
			n.Error = err.Error()
		} else if delivered {
			n.Status = model.NotificationSent
		} else {
			n.Status = model.NotificationFailed
			n.Error = "provider refused delivery"
		}
	}

	s.mu.Lock()
	s.history = append(s.history, n)
	s.mu.Unlock()

	if s.sink != nil {
		_ = s.sink.RecordNotification(metrics.NotificationEvent{
			NotificationID: n.ID,
			RecipientID:    n.RecipientID,
			RecipientType:  n.RecipientType,
			Channel:        n.Channel,
			Type:           n.Type,
			Delivered:      n.Status == model.NotificationSent,
			Error:          n.Error,
			Time:           time.Now(),
		})
	}

	if n.Status == model.NotificationFailed {
		if s.log != nil {
			s.log.Warnf("notification %s to %s failed: %s", n.Type, n.RecipientID, n.Error)
		}
		return &n, fmt.Errorf("notification %s failed: %s", n.ID, n.Error)
	}
	return &n, nil
}

// NotifyNewRide offers a ride to a driver over push. Returns nil without
// sending when the driver carries no push token.
func (s *Service) NotifyNewRide(ctx context.Context, d model.Driver, ride model.RideRequest) (*model.Notification, error) {
	if !d.HasPushToken() {
		return nil, nil
	}
	return s.Send(ctx, model.Notification{
		Type:          model.NotifyNewRideRequest,
		Channel:       model.ChannelPush,
		RecipientID:   d.ID,
		RecipientType: model.RecipientDriver,
		Title:         "New ride request",
		Body:          fmt.Sprintf("%s to %s", ride.Pickup.Address, ride.Dropoff.Address),
		Data: map[string]any{
			"ride_id":  ride.ID,
			"pickup":   ride.Pickup,
			"dropoff":  ride.Dropoff,
			"price":    ride.EstimatedPrice,
			"distance": ride.EstimatedDistance,
		},
	})
}

// NotifyDriverEnRoute tells the customer their driver is on the way.
func (s *Service) NotifyDriverEnRoute(ctx context.Context, customerID string, d model.Driver, etaMinutes int) (*model.Notification, error) {
	return s.Send(ctx, model.Notification{
		Type:          model.NotifyDriverEnRoute,
		Channel:       model.ChannelPush,
		RecipientID:   customerID,
		RecipientType: model.RecipientCustomer,
		Title:         "Driver on the way",
		Body:          fmt.Sprintf("%s arrives in ~%d min", d.FirstName, etaMinutes),
		Data: map[string]any{
			"driver_id":         d.ID,
			"driver_name":       d.FullName(),
			"vehicle_plate":     d.VehiclePlate,
			"estimated_arrival": etaMinutes,
		},
	})
}

// NotifyDriverArrived tells the customer their driver is waiting.
func (s *Service) NotifyDriverArrived(ctx context.Context, customerID string, d model.Driver) (*model.Notification, error) {
	return s.Send(ctx, model.Notification{
		Type:          model.NotifyDriverArrived,
		Channel:       model.ChannelPush,
		RecipientID:   customerID,
		RecipientType: model.RecipientCustomer,
		Title:         "Driver arrived",
		Body:          fmt.Sprintf("%s is waiting for you, plate %s", d.FirstName, d.VehiclePlate),
		Data: map[string]any{
			"driver_id":     d.ID,
			"driver_name":   d.FullName(),
			"vehicle_plate": d.VehiclePlate,
		},
	})
}

// NotifyRideCompleted thanks the customer and confirms the fare.
func (s *Service) NotifyRideCompleted(ctx context.Context, customerID string, totalPrice float64, driverName string) (*model.Notification, error) {
	return s.Send(ctx, model.Notification{
		Type:          model.NotifyRideCompleted,
		Channel:       model.ChannelPush,
		RecipientID:   customerID,
		RecipientType: model.RecipientCustomer,
		Title:         "Ride completed",
		Body:          fmt.Sprintf("Thanks for riding with %s. Total: %.2f", driverName, totalPrice),
		Data:          map[string]any{"total_price": totalPrice},
	})
}

// NotifyRideCancelled informs either party of a cancellation.
func (s *Service) NotifyRideCancelled(ctx context.Context, recipientID string, recipientType model.RecipientType, reason string) (*model.Notification, error) {
	body := reason
	if body == "" {
		body = "The ride has been cancelled"
	}
	return s.Send(ctx, model.Notification{
		Type:          model.NotifyRideCancelled,
		Channel:       model.ChannelPush,
		RecipientID:   recipientID,
		RecipientType: recipientType,
		Title:         "Ride cancelled",
		Body:          body,
		Data:          map[string]any{"reason": reason},
	})
}

// HistoryFilter narrows History results. Zero fields match everything.
type HistoryFilter struct {
	RecipientID string
	Type        model.NotificationType
	Channel     model.NotificationChannel
	Limit       int
}

// History returns matching notifications, most recent first.
func (s *Service) History(f HistoryFilter) []model.Notification {
	s.mu.RLock()
	out := make([]model.Notification, 0, len(s.history))
	for _, n := range s.history {
		if f.RecipientID != "" && n.RecipientID != f.RecipientID {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		if f.Channel != "" && n.Channel != f.Channel {
			continue
		}
		out = append(out, n)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Stats summarizes the notification history for observability.
type Stats struct {
	Total     int                               `json:"total"`
	Sent      int                               `json:"sent"`
	Failed    int                               `json:"failed"`
	ByChannel map[model.NotificationChannel]int `json:"by_channel"`
	ByType    map[model.NotificationType]int    `json:"by_type"`
}

// GetStats aggregates delivery counters over the full history.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		ByChannel: make(map[model.NotificationChannel]int),
		ByType:    make(map[model.NotificationType]int),
	}
	for _, n := range s.history {
		st.Total++
		st.ByChannel[n.Channel]++
		st.ByType[n.Type]++
		switch n.Status {
		case model.NotificationSent, model.NotificationDelivered:
			st.Sent++
		case model.NotificationFailed:
			st.Failed++
		}
	}
	return st
}
