// Package stream exports dispatch lifecycle events to external consumers.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/internal/eventbus"
)

// KafkaExporter publishes dispatch events to a Kafka topic, keyed by request
// id so one ride's events land in order on the same partition.
type KafkaExporter struct {
	writer *kafka.Writer
	log    logger.Logger
}

func NewKafkaExporter(brokers []string, topic string, log logger.Logger) *KafkaExporter {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaExporter{writer: w, log: log}
}

// Publish writes one dispatch event.
func (k *KafkaExporter) Publish(ev dispatch.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.RequestID), Value: b})
}

// Run consumes dispatch events from the bus until the context is canceled.
func (k *KafkaExporter) Run(ctx context.Context, bus eventbus.EventBus) {
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				de, isDispatch := ev.(dispatch.Event)
				if !isDispatch {
					continue
				}
				if err := k.Publish(de); err != nil {
					k.log.Errorf("kafka publish for request %s failed: %v", de.RequestID, err)
				}
			}
		}
	}()
}

func (k *KafkaExporter) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
