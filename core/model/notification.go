package model

import "time"

// NotificationChannel selects the delivery transport for a notification.
type NotificationChannel string

const (
	ChannelPush    NotificationChannel = "push"
	ChannelSMS     NotificationChannel = "sms"
	ChannelEmail   NotificationChannel = "email"
	ChannelWebhook NotificationChannel = "webhook"
)

// NotificationType classifies the business event behind a notification.
type NotificationType string

const (
	NotifyNewRideRequest NotificationType = "new_ride_request"
	NotifyRideAssigned   NotificationType = "ride_assigned"
	NotifyRideAccepted   NotificationType = "ride_accepted"
	NotifyRideDeclined   NotificationType = "ride_declined"
	NotifyDriverEnRoute  NotificationType = "driver_en_route"
	NotifyDriverArrived  NotificationType = "driver_arrived"
	NotifyRideStarted    NotificationType = "ride_started"
	NotifyRideCompleted  NotificationType = "ride_completed"
	NotifyRideCancelled  NotificationType = "ride_cancelled"
	NotifyCustom         NotificationType = "custom"
)

// NotificationStatus tracks the delivery state of a single notification.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationSent      NotificationStatus = "sent"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)

// RecipientType identifies what kind of party receives a notification.
type RecipientType string

const (
	RecipientDriver   RecipientType = "driver"
	RecipientCustomer RecipientType = "customer"
	RecipientAdmin    RecipientType = "admin"
)

// Notification is a delivery intent handed to a channel provider. It is an
// ephemeral value: the core records history for observability but does not
// durably own notifications.
type Notification struct {
	ID            string              `json:"id"`
	Type          NotificationType    `json:"type"`
	Channel       NotificationChannel `json:"channel"`
	RecipientID   string              `json:"recipient_id"`
	RecipientType RecipientType       `json:"recipient_type"`
	Title         string              `json:"title"`
	Body          string              `json:"body"`
	Data          map[string]any      `json:"data,omitempty"`
	Status        NotificationStatus  `json:"status"`
	SentAt        *time.Time          `json:"sent_at,omitempty"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	Error         string              `json:"error,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}
