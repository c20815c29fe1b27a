package kafka

import "github.com/Shopify/sarama"

type AppConfig struct {
	Brokers                 []string
	Topic                   string
	PartitionsPerTopic      int32
	ReplicationFactor       int16
	ProducerRetries         int
	ProducerCompression     string // none/snappy/lz4/zstd
	KafkaVersion            sarama.KafkaVersion
	AutoCreateTopicsOnStart bool
}

func DefaultConfig() AppConfig {
	return AppConfig{
		Brokers:                 []string{"127.0.0.1:9092"},
		Topic:                   "chat.events",
		PartitionsPerTopic:      8,
		ReplicationFactor:       1,
		ProducerRetries:         5,
		ProducerCompression:     "snappy",
		KafkaVersion:            sarama.V2_1_0_0,
		AutoCreateTopicsOnStart: true,
	}
}
