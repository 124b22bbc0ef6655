// Package app assembles the dispatch engine, notification providers,
// metrics sinks and exporters from the configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apidispatch "github.com/veeo/driver-dispatch/api/dispatch"
	"github.com/veeo/driver-dispatch/auth"
	"github.com/veeo/driver-dispatch/config"
	"github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/dispatch/audit"
	"github.com/veeo/driver-dispatch/core/driver"
	coremetrics "github.com/veeo/driver-dispatch/core/metrics"
	"github.com/veeo/driver-dispatch/core/model"
	"github.com/veeo/driver-dispatch/core/notification"
	"github.com/veeo/driver-dispatch/core/scheduler"
	"github.com/veeo/driver-dispatch/infra/directory"
	"github.com/veeo/driver-dispatch/infra/logger"
	"github.com/veeo/driver-dispatch/infra/metrics"
	"github.com/veeo/driver-dispatch/infra/notify"
	"github.com/veeo/driver-dispatch/infra/stream"
	"github.com/veeo/driver-dispatch/infra/telemetry"
	"github.com/veeo/driver-dispatch/internal/eventbus"
)

// fleetSizeInterval is how often the registered-driver gauge is refreshed.
const fleetSizeInterval = 30 * time.Second

// Service orchestrates the dispatch engine and its adapters.
type Service struct {
	Engine    *dispatch.Engine
	Fleet     *driver.Manager
	Notify    *notification.Service
	Scheduler *scheduler.Scheduler

	cfg       *config.Config
	bus       *eventbus.Bus
	sink      coremetrics.AssignmentSink
	store     audit.Store
	dir       *directory.RedisDirectory
	exporter  *stream.KafkaExporter
	mqtt      *notify.MQTTProvider
	telemetry *telemetry.Manager
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, err := buildSink(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	var store audit.Store = audit.NopStore{}
	if cfg.Audit.Backend == "jsonl" {
		store, err = audit.NewJSONLStore(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
	}

	fleet := driver.NewManager()
	bus := eventbus.New()

	svc := &Service{
		cfg:   cfg,
		Fleet: fleet,
		bus:   bus,
		sink:  sink,
		store: store,
		log:   logg,
	}

	notifyOpts := []notification.Option{notification.WithLogger(logger.New("notifications"))}
	if rec, ok := sink.(coremetrics.NotificationRecorder); ok {
		notifyOpts = append(notifyOpts, notification.WithSink(rec))
	}
	notifier := notification.NewService(notifyOpts...)
	if err := svc.registerProviders(notifier, cfg.Notify, fleet); err != nil {
		return nil, err
	}
	svc.Notify = notifier

	engine, err := dispatch.NewEngine(cfg.Dispatch, fleet, notifier, dispatch.Options{
		Sink:   sink,
		Bus:    bus,
		Audit:  store,
		Logger: logger.New("dispatch-engine"),
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	svc.Engine = engine

	svc.Scheduler, err = scheduler.New(cfg.Scheduler, engine, logger.New("scheduler"))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	if cfg.Telemetry.Enabled {
		svc.telemetry, err = telemetry.NewManager(cfg.Telemetry, fleet)
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
	}
	if cfg.Directory.Enabled {
		svc.dir = directory.NewRedisDirectory(cfg.Directory.Addr, cfg.Directory.Password, cfg.Directory.Key, logger.New("redis-directory"))
	}
	if cfg.Stream.Enabled {
		svc.exporter = stream.NewKafkaExporter(cfg.Stream.Brokers, cfg.Stream.Topic, logger.New("kafka-exporter"))
	}

	fleet.SubscribeStatusChange(svc.onDriverStatusChange)
	return svc, nil
}

// buildSink assembles the configured metrics sinks into one.
func buildSink(cfg config.MetricsConfig) (coremetrics.AssignmentSink, error) {
	var sinks []coremetrics.AssignmentSink
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "prometheus":
			sink, err := metrics.NewPromSink()
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		case "influx":
			sinks = append(sinks, metrics.NewInfluxSinkWithFallback(sc.Influx.URL, sc.Influx.Token, sc.Influx.Org, sc.Influx.Bucket))
		case "nop":
		}
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return metrics.NewMultiSink(sinks...), nil
	}
}

// registerProviders installs channel providers per the notify configuration.
// Dev channels are registered first so a real transport on the same channel
// wins.
func (s *Service) registerProviders(svc *notification.Service, cfg config.NotifyConfig, fleet *driver.Manager) error {
	for _, name := range cfg.DevChannels {
		ch := model.NotificationChannel(name)
		svc.RegisterProvider(ch, notify.NewDevLogProvider(ch, s.log))
	}
	if cfg.FCM.Enabled {
		resolve := func(recipientID string) (string, bool) {
			d, ok := fleet.Get(recipientID)
			if !ok || d.FCMToken == "" {
				return "", false
			}
			return d.FCMToken, true
		}
		svc.RegisterProvider(model.ChannelPush, notify.NewFCMProvider(cfg.FCM.Endpoint, cfg.FCM.Key, resolve, logger.New("fcm")))
	}
	if cfg.Webhook.Enabled {
		p := notify.NewWebhookProvider(cfg.Webhook.URL, cfg.Webhook.Headers)
		if cfg.Webhook.OAuth != nil {
			p = p.WithAuth(auth.NewClientCred(*cfg.Webhook.OAuth))
		}
		svc.RegisterProvider(model.ChannelWebhook, p)
	}
	if cfg.MQTT.Enabled {
		p, err := notify.NewMQTTProvider(cfg.MQTT.Settings, logger.New("mqtt-notify"))
		if err != nil {
			return fmt.Errorf("mqtt provider: %w", err)
		}
		ch := model.NotificationChannel(cfg.MQTT.Channel)
		if ch == "" {
			ch = model.ChannelPush
		}
		svc.RegisterProvider(ch, p)
		s.mqtt = p
	}
	return nil
}

// onDriverStatusChange mirrors fleet transitions onto the event bus and the
// Redis directory.
func (s *Service) onDriverStatusChange(d model.Driver, old model.DriverStatus) {
	s.bus.Publish(coremetrics.DriverStatusEvent{
		DriverID:  d.ID,
		OldStatus: old,
		NewStatus: d.Status,
		Time:      time.Now(),
	})
	if s.dir != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.dir.Upsert(ctx, d); err != nil {
			s.log.Warnf("directory upsert %s: %v", d.ID, err)
		}
	}
}

// Run starts the collectors, exporters and the HTTP API, blocking until the
// context is cancelled or the API server fails.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	go s.trackResponseLatency(ctx)
	go s.trackFleetSize(ctx)
	go s.Scheduler.Run(ctx)
	if s.telemetry != nil {
		go s.telemetry.Start(ctx)
	}

	if s.dir != nil {
		loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		s.dir.LoadMany(loadCtx, s.Fleet.List())
		cancel()
	}
	if s.exporter != nil {
		s.exporter.Run(ctx, s.bus)
	}
	if port := s.cfg.Metrics.PrometheusPort; port > 0 {
		go func() {
			if err := metrics.StartPromServer(ctx, fmt.Sprintf(":%d", port)); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	api := apidispatch.NewAPI(s.Engine, s.Notify, s.cfg.API.Token, logger.New("api"))
	api.SetScheduler(s.Scheduler)
	api.Register(mux)
	mux.Handle("GET /api/dispatch/audit", apidispatch.NewAuditHandler(s.store, s.cfg.API.Token))

	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("dispatch API listening on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// trackResponseLatency pairs driver_notified with driver_responded events and
// publishes the measured latency for the collector to record. Offers with no
// answer, such as rides cancelled mid-offer, are aged out periodically.
func (s *Service) trackResponseLatency(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	tracker := newLatencyTracker()
	ticker := time.NewTicker(offerRetention)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracker.sweep(time.Now().Add(-offerRetention))
		case ev, ok := <-sub:
			if !ok {
				return
			}
			e, ok := ev.(dispatch.Event)
			if !ok {
				continue
			}
			if lat, measured := tracker.observe(e); measured {
				s.bus.Publish(lat)
			}
		}
	}
}

// trackFleetSize periodically refreshes the registered-driver gauge.
func (s *Service) trackFleetSize(ctx context.Context) {
	rec, ok := s.sink.(coremetrics.FleetSizeRecorder)
	if !ok {
		return
	}
	ticker := time.NewTicker(fleetSizeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rec.RecordFleetSize(s.Fleet.Stats().Total); err != nil {
				s.log.Warnf("fleet size: %v", err)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.exporter != nil {
		if err := s.exporter.Close(); err != nil {
			s.log.Errorf("kafka exporter close: %v", err)
		}
	}
	if s.dir != nil {
		if err := s.dir.Close(); err != nil {
			s.log.Errorf("directory close: %v", err)
		}
	}
	if s.mqtt != nil {
		s.mqtt.Close()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	s.bus.Close()
	return s.store.Close()
}
