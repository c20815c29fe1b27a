package kafka

import (
	"errors"

	"HoodChat/logger"
	"HoodChat/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// TopicAdmin is the part of sarama.ClusterAdmin needed to prepare topics.
type TopicAdmin interface {
	DescribeTopics(topics []string) ([]*sarama.TopicMetadata, error)
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	CreatePartitions(topic string, count int32, assignment [][]int32, validateOnly bool) error
}

// EnsureTopics creates missing topics and grows existing ones up to the
// configured partition count. Kafka cannot shrink partitions, so a larger
// existing count is left alone.
func EnsureTopics(admin TopicAdmin, topics []string, appCfg *AppConfig) error {
	for _, t := range topics {
		descs, err := admin.DescribeTopics([]string{t})
		if err != nil {
			return errs.WrapMsg(err, "describe topic", "topic", t)
		}
		exists := len(descs) == 1 && descs[0].Err == sarama.ErrNoError

		if !exists {
			minISR := "1"
			if appCfg.ReplicationFactor >= 3 {
				minISR = "2"
			}
			td := &sarama.TopicDetail{
				NumPartitions:     appCfg.PartitionsPerTopic,
				ReplicationFactor: appCfg.ReplicationFactor,
				ConfigEntries: map[string]*string{
					"cleanup.policy":                 strPtr("delete"),
					"min.insync.replicas":            strPtr(minISR),
					"unclean.leader.election.enable": strPtr("false"),
					"compression.type":               strPtr("producer"),
				},
			}
			if err := admin.CreateTopic(t, td, false); err != nil {
				var te *sarama.TopicError
				if (errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists) || errors.Is(err, sarama.ErrTopicAlreadyExists) {
					logger.Info("[Topic] exists (race)", zap.String("topic", t))
					continue
				}
				return errs.WrapMsg(err, "create topic", "topic", t)
			}
			logger.Info("[Topic] created", zap.String("topic", t),
				zap.Int32("partitions", appCfg.PartitionsPerTopic), zap.Int16("rf", appCfg.ReplicationFactor))
			continue
		}

		cur := int32(len(descs[0].Partitions))
		if appCfg.PartitionsPerTopic > cur {
			if err := admin.CreatePartitions(t, appCfg.PartitionsPerTopic, nil, false); err != nil {
				return errs.WrapMsg(err, "expand partitions", "topic", t, "from", cur, "to", appCfg.PartitionsPerTopic)
			}
			logger.Info("[Topic] partitions expanded", zap.String("topic", t), zap.Int32("from", cur), zap.Int32("to", appCfg.PartitionsPerTopic))
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
