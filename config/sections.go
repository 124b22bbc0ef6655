package config

import (
	"fmt"

	"github.com/veeo/driver-dispatch/auth"
	"github.com/veeo/driver-dispatch/infra/notify"
)

// FCMConfig configures the push provider.
type FCMConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
	Key      string `json:"key"`
}

// WebhookConfig configures the webhook provider. When OAuth is present,
// deliveries authenticate via the client-credentials flow instead of static
// headers.
type WebhookConfig struct {
	Enabled bool              `json:"enabled"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	OAuth   *auth.Conf        `json:"oauth,omitempty"`
}

// MQTTConfig wraps the MQTT provider settings with an enable switch.
// Channel selects which notification channel the provider serves,
// defaulting to push.
type MQTTConfig struct {
	Enabled  bool              `json:"enabled"`
	Channel  string            `json:"channel"`
	Settings notify.MQTTConfig `json:"settings"`
}

// NotifyConfig selects and configures notification channel providers.
// DevChannels lists channels backed by the log-only provider, for
// environments without a real transport.
type NotifyConfig struct {
	FCM         FCMConfig     `json:"fcm"`
	Webhook     WebhookConfig `json:"webhook"`
	MQTT        MQTTConfig    `json:"mqtt"`
	DevChannels []string      `json:"dev_channels"`
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// SinkConfig selects one metrics sink: "prometheus", "influx" or "nop".
type SinkConfig struct {
	Type   string       `json:"type"`
	Influx InfluxConfig `json:"influx"`
}

// MetricsConfig configures the metrics sinks and the scrape endpoint.
type MetricsConfig struct {
	Sinks          []SinkConfig `json:"sinks"`
	PrometheusPort int          `json:"prometheus_port"`
}

// Validate checks the sink types.
func (c MetricsConfig) Validate() error {
	for _, s := range c.Sinks {
		switch s.Type {
		case "prometheus", "influx", "nop":
		default:
			return fmt.Errorf("unknown metrics sink type %q", s.Type)
		}
		if s.Type == "influx" && s.Influx.URL == "" {
			return fmt.Errorf("influx sink requires a url")
		}
	}
	return nil
}

// AuditConfig defines settings for the terminal-outcome store.
type AuditConfig struct {
	// Backend selects the store type: "jsonl" or "nop".
	Backend string `json:"backend"`
	// Path is the file location of the jsonl store.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "dispatch-audit.jsonl"
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	if c.Backend != "jsonl" && c.Backend != "nop" {
		return fmt.Errorf("unknown audit backend %s", c.Backend)
	}
	if c.Backend == "jsonl" && c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// DirectoryConfig configures the Redis driver mirror.
type DirectoryConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	Key      string `json:"key"`
}

func (c *DirectoryConfig) SetDefaults() {
	if c.Key == "" {
		c.Key = "drivers:geo"
	}
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
}

// StreamConfig configures the Kafka event exporter.
type StreamConfig struct {
	Enabled bool     `json:"enabled"`
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

func (c *StreamConfig) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "dispatch-events"
	}
}

func (c StreamConfig) Validate() error {
	if c.Enabled && len(c.Brokers) == 0 {
		return fmt.Errorf("stream requires at least one broker")
	}
	return nil
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token gates mutating and stats endpoints when set.
	Token string `json:"token"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
