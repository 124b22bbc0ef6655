package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veeo/driver-dispatch/core/metrics"
	"github.com/veeo/driver-dispatch/core/model"
)

type fakeProvider struct {
	mu     sync.Mutex
	sent   []model.Notification
	refuse bool
	err    error
}

func (p *fakeProvider) Send(_ context.Context, n model.Notification) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	if p.err != nil {
		return false, p.err
	}
	return !p.refuse, nil
}

type recordingNotificationSink struct {
	mu     sync.Mutex
	events []metrics.NotificationEvent
}

func (s *recordingNotificationSink) RecordNotification(ev metrics.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func pushDriver() model.Driver {
	return model.Driver{
		ID:           "d1",
		FirstName:    "Lea",
		LastName:     "Martin",
		VehiclePlate: "AB-123-CD",
		FCMToken:     "tok",
	}
}

func TestSendWithoutProviderFails(t *testing.T) {
	svc := NewService()
	n, err := svc.Send(context.Background(), model.Notification{
		Type:        model.NotifyCustom,
		Channel:     model.ChannelSMS,
		RecipientID: "c1",
	})
	require.Error(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.NotificationFailed, n.Status)
	assert.Contains(t, n.Error, "no provider for channel: sms")
	assert.NotEmpty(t, n.ID)

	// The failure is recorded in history, not swallowed.
	hist := svc.History(HistoryFilter{})
	require.Len(t, hist, 1)
	assert.Equal(t, model.NotificationFailed, hist[0].Status)
}

func TestSendDeliversThroughProvider(t *testing.T) {
	p := &fakeProvider{}
	sink := &recordingNotificationSink{}
	svc := NewService(WithSink(sink))
	svc.RegisterProvider(model.ChannelPush, p)

	n, err := svc.Send(context.Background(), model.Notification{
		Type:        model.NotifyCustom,
		Channel:     model.ChannelPush,
		RecipientID: "c1",
		Title:       "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, model.NotificationSent, n.Status)
	require.NotNil(t, n.SentAt)
	require.Len(t, p.sent, 1)
	assert.Equal(t, "hello", p.sent[0].Title)

	require.Len(t, sink.events, 1)
	assert.True(t, sink.events[0].Delivered)
}

func TestSendProviderErrorRecorded(t *testing.T) {
	p := &fakeProvider{err: errors.New("gateway timeout")}
	svc := NewService()
	svc.RegisterProvider(model.ChannelPush, p)

	n, err := svc.Send(context.Background(), model.Notification{
		Type:        model.NotifyCustom,
		Channel:     model.ChannelPush,
		RecipientID: "c1",
	})
	require.Error(t, err)
	assert.Equal(t, model.NotificationFailed, n.Status)
	assert.Equal(t, "gateway timeout", n.Error)
}

func TestSendProviderRefusal(t *testing.T) {
	p := &fakeProvider{refuse: true}
	svc := NewService()
	svc.RegisterProvider(model.ChannelPush, p)

	n, err := svc.Send(context.Background(), model.Notification{
		Type:        model.NotifyCustom,
		Channel:     model.ChannelPush,
		RecipientID: "c1",
	})
	require.Error(t, err)
	assert.Equal(t, model.NotificationFailed, n.Status)
}

func TestNotifyNewRideSkipsDriversWithoutToken(t *testing.T) {
	svc := NewService()
	svc.RegisterProvider(model.ChannelPush, &fakeProvider{})

	d := pushDriver()
	d.FCMToken = ""
	n, err := svc.NotifyNewRide(context.Background(), d, model.RideRequest{ID: "r1"})
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, svc.History(HistoryFilter{}))
}

func TestNotifyNewRideComposesIntent(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService()
	svc.RegisterProvider(model.ChannelPush, p)

	ride := model.RideRequest{
		ID:             "r1",
		Pickup:         model.Stop{Address: "1 Gare Centrale"},
		Dropoff:        model.Stop{Address: "12 Place Kleber"},
		EstimatedPrice: 18.5,
	}
	n, err := svc.NotifyNewRide(context.Background(), pushDriver(), ride)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.NotifyNewRideRequest, n.Type)
	assert.Equal(t, model.RecipientDriver, n.RecipientType)
	assert.Equal(t, "1 Gare Centrale to 12 Place Kleber", n.Body)
	assert.Equal(t, "r1", n.Data["ride_id"])
}

func TestNotifyHelpersTargetCustomer(t *testing.T) {
	svc := NewService()
	svc.RegisterProvider(model.ChannelPush, &fakeProvider{})
	ctx := context.Background()
	d := pushDriver()

	enRoute, err := svc.NotifyDriverEnRoute(ctx, "c1", d, 7)
	require.NoError(t, err)
	assert.Equal(t, "Lea arrives in ~7 min", enRoute.Body)

	arrived, err := svc.NotifyDriverArrived(ctx, "c1", d)
	require.NoError(t, err)
	assert.Equal(t, model.NotifyDriverArrived, arrived.Type)
	assert.Contains(t, arrived.Body, "AB-123-CD")

	completed, err := svc.NotifyRideCompleted(ctx, "c1", 24.9, d.FullName())
	require.NoError(t, err)
	assert.Contains(t, completed.Body, "24.90")

	cancelled, err := svc.NotifyRideCancelled(ctx, "c1", model.RecipientCustomer, "")
	require.NoError(t, err)
	assert.Equal(t, "The ride has been cancelled", cancelled.Body)
}

func TestHistoryFiltersAndOrder(t *testing.T) {
	svc := NewService()
	svc.RegisterProvider(model.ChannelPush, &fakeProvider{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, model.Notification{Type: model.NotifyCustom, Channel: model.ChannelPush, RecipientID: "c1"})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	_, err := svc.Send(ctx, model.Notification{Type: model.NotifyRideCancelled, Channel: model.ChannelPush, RecipientID: "c2"})
	require.NoError(t, err)

	all := svc.History(HistoryFilter{})
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "history must be most recent first")
	}

	assert.Len(t, svc.History(HistoryFilter{RecipientID: "c1"}), 3)
	assert.Len(t, svc.History(HistoryFilter{Type: model.NotifyRideCancelled}), 1)
	assert.Len(t, svc.History(HistoryFilter{Limit: 2}), 2)
}

func TestGetStats(t *testing.T) {
	svc := NewService()
	svc.RegisterProvider(model.ChannelPush, &fakeProvider{})
	ctx := context.Background()

	_, err := svc.Send(ctx, model.Notification{Type: model.NotifyCustom, Channel: model.ChannelPush, RecipientID: "c1"})
	require.NoError(t, err)
	_, _ = svc.Send(ctx, model.Notification{Type: model.NotifyCustom, Channel: model.ChannelSMS, RecipientID: "c1"})

	st := svc.GetStats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Sent)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 1, st.ByChannel[model.ChannelPush])
	assert.Equal(t, 1, st.ByChannel[model.ChannelSMS])
	assert.Equal(t, 2, st.ByType[model.NotifyCustom])
}
