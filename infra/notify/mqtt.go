package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/model"
)

// MQTTConfig defines the connection parameters for the Paho MQTT provider.
type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	UseTLS      bool   `json:"use_tls"`
	CABundle    string `json:"ca_bundle"`
	TimeoutMS   int    `json:"timeout_ms"`
}

// MQTTProvider publishes notifications to per-recipient topics, one topic
// per recipient type under the configured prefix.
type MQTTProvider struct {
	cli         paho.Client
	topicPrefix string
	qos         byte
	timeout     time.Duration
	log         logger.Logger
}

// NewMQTTProvider connects to the broker and returns a ready provider.
func NewMQTTProvider(cfg MQTTConfig, log logger.Logger) (*MQTTProvider, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("MQTT connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := paho.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	return &MQTTProvider{
		cli:         c,
		topicPrefix: cfg.TopicPrefix,
		qos:         cfg.QoS,
		timeout:     timeout,
		log:         log,
	}, nil
}

// NewClientOptions builds Paho options from the shared connection settings.
// Other MQTT consumers, such as the telemetry ingest, reuse it with their own
// client ids and handlers.
func NewClientOptions(cfg MQTTConfig) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CABundle != "" {
			pem, err := os.ReadFile(cfg.CABundle)
			if err != nil {
				return nil, fmt.Errorf("read ca bundle: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates parsed from %s", cfg.CABundle)
			}
			tlsCfg.RootCAs = pool
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func (p *MQTTProvider) topic(n model.Notification) string {
	return fmt.Sprintf("%s/%s/%s", p.topicPrefix, n.RecipientType, n.RecipientID)
}

func (p *MQTTProvider) Send(_ context.Context, n model.Notification) (bool, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return false, err
	}
	token := p.cli.Publish(p.topic(n), p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return false, fmt.Errorf("publish to %s timed out", p.topic(n))
	}
	if token.Error() != nil {
		return false, token.Error()
	}
	return true, nil
}

// Close disconnects from the broker.
func (p *MQTTProvider) Close() {
	p.cli.Disconnect(250)
}
