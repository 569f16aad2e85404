package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// Consumer wraps a kafka.Reader subscribed to a topic group. Offsets are
// committed explicitly, after the caller has handled the message.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
	})

	return &Consumer{reader: reader}
}

func (c *Consumer) Fetch(ctx context.Context) (kafka.Message, error) {
	return c.reader.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, msgs ...kafka.Message) error {
	return c.reader.CommitMessages(ctx, msgs...)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
