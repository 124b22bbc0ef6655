// Package telemetry ingests driver position and availability reports pushed
// over MQTT and applies them to the fleet registry.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veeo/driver-dispatch/core/driver"
	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/model"
	infralogger "github.com/veeo/driver-dispatch/infra/logger"
	"github.com/veeo/driver-dispatch/infra/notify"
)

// Config defines the MQTT telemetry ingest settings.
type Config struct {
	Enabled bool `json:"enabled"`
	// Settings holds the broker connection parameters.
	Settings notify.MQTTConfig `json:"settings"`
	// LocationPrefix is the topic prefix drivers publish GPS fixes under,
	// one topic per driver id.
	LocationPrefix string `json:"location_prefix"`
	// StatusPrefix is the topic prefix for availability transitions.
	StatusPrefix string `json:"status_prefix"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.LocationPrefix == "" {
		c.LocationPrefix = "fleet/location"
	}
	if c.StatusPrefix == "" {
		c.StatusPrefix = "fleet/status"
	}
}

var (
	locationUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_location_updates_total",
		Help: "Number of driver location updates applied",
	})
	statusUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_status_updates_total",
		Help: "Number of driver status updates applied",
	})
	decodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_decode_errors_total",
		Help: "Number of telemetry payloads that failed to decode or apply",
	})
	lastUpdate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "telemetry_last_update_timestamp_seconds",
		Help: "Unix timestamp of the last applied telemetry update",
	})
)

func init() {
	prometheus.MustRegister(locationUpdates, statusUpdates, decodeErrors, lastUpdate)
}

// Manager subscribes to the telemetry topics and feeds the fleet registry.
type Manager struct {
	cfg   Config
	cli   paho.Client
	fleet *driver.Manager
	log   logger.Logger
}

type locationReport struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type statusReport struct {
	Status string `json:"status"`
}

// NewManager connects to the broker and prepares telemetry collection.
func NewManager(cfg Config, fleet *driver.Manager) (*Manager, error) {
	cfg.SetDefaults()
	opts, err := notify.NewClientOptions(cfg.Settings)
	if err != nil {
		return nil, err
	}
	if id := cfg.Settings.ClientID; id != "" {
		opts.SetClientID(id + "-telemetry")
	} else {
		opts.SetClientID("telemetry-" + uuid.NewString())
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Manager{
		cfg:   cfg,
		cli:   cli,
		fleet: fleet,
		log:   infralogger.New("telemetry"),
	}, nil
}

// Start subscribes to the telemetry topics and blocks until the context is
// done.
func (m *Manager) Start(ctx context.Context) {
	locTopic := strings.TrimSuffix(m.cfg.LocationPrefix, "/") + "/+"
	if token := m.cli.Subscribe(locTopic, m.cfg.Settings.QoS, m.onLocation); token.Wait() && token.Error() != nil {
		m.log.Errorf("subscribe %s: %v", locTopic, token.Error())
	}
	statusTopic := strings.TrimSuffix(m.cfg.StatusPrefix, "/") + "/+"
	if token := m.cli.Subscribe(statusTopic, m.cfg.Settings.QoS, m.onStatus); token.Wait() && token.Error() != nil {
		m.log.Errorf("subscribe %s: %v", statusTopic, token.Error())
	}
	<-ctx.Done()
	if m.cli.IsConnected() {
		m.cli.Disconnect(250)
	}
}

func (m *Manager) onLocation(_ paho.Client, msg paho.Message) {
	if err := m.applyLocation(extractID(msg.Topic()), msg.Payload()); err != nil {
		decodeErrors.Inc()
		m.log.Warnf("location update: %v", err)
	}
}

func (m *Manager) onStatus(_ paho.Client, msg paho.Message) {
	if err := m.applyStatus(extractID(msg.Topic()), msg.Payload()); err != nil {
		decodeErrors.Inc()
		m.log.Warnf("status update: %v", err)
	}
}

func (m *Manager) applyLocation(driverID string, payload []byte) error {
	var rep locationReport
	if err := json.Unmarshal(payload, &rep); err != nil {
		return fmt.Errorf("decode location for %s: %w", driverID, err)
	}
	if !m.fleet.UpdateLocation(driverID, rep.Lat, rep.Lng) {
		return fmt.Errorf("unknown driver %s", driverID)
	}
	locationUpdates.Inc()
	lastUpdate.Set(float64(time.Now().Unix()))
	return nil
}

func (m *Manager) applyStatus(driverID string, payload []byte) error {
	var rep statusReport
	if err := json.Unmarshal(payload, &rep); err != nil {
		return fmt.Errorf("decode status for %s: %w", driverID, err)
	}
	status := model.DriverStatus(rep.Status)
	if !status.Valid() {
		return fmt.Errorf("unknown status %q for %s", rep.Status, driverID)
	}
	if !m.fleet.UpdateStatus(driverID, status) {
		return fmt.Errorf("unknown driver %s", driverID)
	}
	statusUpdates.Inc()
	lastUpdate.Set(float64(time.Now().Unix()))
	return nil
}

func extractID(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}
