package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"HoodChat/logger"
	"HoodChat/tools/errs"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderEventID     = "event-id"
	HeaderContentType = "content-type"
)

func BuildBaseConfig(c AppConfig) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = c.KafkaVersion
	cfg.ClientID = "hoodchat"

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = c.ProducerRetries
	if cfg.Producer.Retry.Max <= 0 {
		cfg.Producer.Retry.Max = 1
	}
	// same key, same partition: one chat's events stay ordered
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(c.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// EventProducer writes JSON records to one topic.
type EventProducer struct {
	producer sarama.SyncProducer
	client   sarama.Client
	topic    string
}

// NewEventProducer connects to the brokers and, when configured, makes sure
// the topic exists first.
func NewEventProducer(c AppConfig) (*EventProducer, error) {
	if len(c.Brokers) == 0 || c.Topic == "" {
		return nil, errs.ErrArgs.WrapMsg("kafka brokers and topic are required")
	}
	client, err := sarama.NewClient(c.Brokers, BuildBaseConfig(c))
	if err != nil {
		return nil, errs.WrapMsg(err, "kafka client", "brokers", strings.Join(c.Brokers, ","))
	}
	if c.AutoCreateTopicsOnStart {
		admin, err := sarama.NewClusterAdminFromClient(client)
		if err != nil {
			_ = client.Close()
			return nil, errs.WrapMsg(err, "kafka admin")
		}
		// the admin shares the client, closing it here would close both
		if err := EnsureTopics(admin, []string{c.Topic}, &c); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	p, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, errs.WrapMsg(err, "kafka producer")
	}
	ep := NewEventProducerWith(p, c.Topic)
	ep.client = client
	return ep, nil
}

func NewEventProducerWith(p sarama.SyncProducer, topic string) *EventProducer {
	return &EventProducer{producer: p, topic: topic}
}

// PublishJSON encodes v and sends it keyed by key, with a fresh event id header.
func (p *EventProducer) PublishJSON(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errs.WrapMsg(err, "marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventID), Value: []byte(uuid.NewString())},
			{Key: []byte(HeaderContentType), Value: []byte("application/json")},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errs.WrapMsg(err, "kafka send", "topic", p.topic, "key", key)
	}
	logger.Debug("[Kafka] event sent", zap.String("topic", p.topic), zap.String("key", key),
		zap.Int32("partition", partition), zap.Int64("offset", offset))
	return nil
}

func (p *EventProducer) Close() error {
	err := p.producer.Close()
	if p.client != nil && !p.client.Closed() {
		if cerr := p.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
