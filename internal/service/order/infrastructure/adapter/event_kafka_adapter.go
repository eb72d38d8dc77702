package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"comerge/internal/service/order/domain"
)

const publishTimeout = 3 * time.Second

// OrderKafkaPublisher 是 port.EventPublisher 的 Kafka 实现。
// 发布发生在事务提交之后，失败由调用方记录日志，不回传给用户。
type OrderKafkaPublisher struct {
	writer *kafka.Writer
}

// NewOrderKafkaPublisher 创建订单事件生产者。
func NewOrderKafkaPublisher(brokers []string, topic string) *OrderKafkaPublisher {
	return &OrderKafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			WriteTimeout:           publishTimeout,
		},
	}
}

// PublishOrderPlaced 以订单号为 key 发布订单完成事件，
// 同一订单的事件落入同一分区保持顺序。
func (p *OrderKafkaPublisher) PublishOrderPlaced(ctx context.Context, event *domain.OrderPlacedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderNo),
		Value: payload,
	})
}

// Close 关闭底层的 Kafka writer。
func (p *OrderKafkaPublisher) Close() error {
	return p.writer.Close()
}
