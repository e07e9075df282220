package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/config"
)

const eventSchemaVersion = "1.0"

// KafkaLog mirrors audit events to a Kafka topic so external consumers can
// alert on authentication activity. Delivery is async fire-and-forget;
// producer errors are drained into the service log.
type KafkaLog struct {
	producer sarama.AsyncProducer
	topic    string
	service  string
	logger   *zap.Logger
	done     chan struct{}
}

// NewKafkaLog initialises the async producer against the configured brokers.
func NewKafkaLog(cfg config.KafkaSettings, appName string, logger *zap.Logger) (*KafkaLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	prefix := strings.TrimSpace(cfg.TopicPrefix)
	if prefix == "" {
		prefix = "entgeltrechner"
	}

	k := &KafkaLog{
		producer: producer,
		topic:    prefix + ".audit",
		service:  appName,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go k.drainErrors()

	logger.Info("kafka audit mirror initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", k.topic),
	)
	return k, nil
}

func (k *KafkaLog) drainErrors() {
	for {
		select {
		case err := <-k.producer.Errors():
			if err != nil {
				k.logger.Error("kafka audit producer error",
					zap.Error(err.Err),
					zap.String("topic", err.Msg.Topic),
				)
			}
		case <-k.done:
			return
		}
	}
}

type eventEnvelope struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Service   string         `json:"service"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Record publishes one audit event. Failures are logged and dropped.
func (k *KafkaLog) Record(ctx context.Context, event string, fields map[string]any) {
	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: event,
		Timestamp: time.Now().UTC(),
		Version:   eventSchemaVersion,
		Service:   k.service,
		Payload:   fields,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		k.logger.Error("marshal audit envelope", zap.String("event", event), zap.Error(err))
		return
	}

	message := &sarama.ProducerMessage{
		Topic: k.topic,
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case k.producer.Input() <- message:
	case <-ctx.Done():
		k.logger.Warn("dropping audit event, context cancelled", zap.String("event", event))
	}
}

// Close stops the error drain and shuts the producer down.
func (k *KafkaLog) Close() error {
	close(k.done)
	return k.producer.Close()
}
