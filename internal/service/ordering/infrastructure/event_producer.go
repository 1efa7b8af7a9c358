package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"unieats/internal/pkg/logger"
	"unieats/internal/pkg/mq"
	"unieats/internal/service/ordering/domain"
)

// KafkaEventProducer 将订单状态变更事件写入 Kafka，
// key 取 orderID 保证同一订单的事件落在同一分区
type KafkaEventProducer struct {
	writer *kafka.Writer
}

func NewKafkaEventProducer(brokers []string, topic string) *KafkaEventProducer {
	return &KafkaEventProducer{writer: mq.NewWriter(brokers, topic)}
}

func (p *KafkaEventProducer) PublishStateChanged(ctx context.Context, event *domain.OrderStateChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order state event")
	}
	if err := mq.ProduceMessage(ctx, p.writer, []byte(event.OrderID), payload); err != nil {
		return errors.Wrapf(err, "produce state event for order %s", event.OrderID)
	}
	logger.Ctx(ctx).Debug().
		Str("order_id", event.OrderID).
		Str("state", string(event.State)).
		Msg("order state event published")
	return nil
}

func (p *KafkaEventProducer) Close() error {
	return p.writer.Close()
}

// FanoutProducer 把同一事件广播给多个下游（Kafka、厨房大屏推送等），
// 任一下游失败不中断其余下游，返回第一个错误
type FanoutProducer struct {
	targets []domain.EventProducer
}

func NewFanoutProducer(targets ...domain.EventProducer) *FanoutProducer {
	return &FanoutProducer{targets: targets}
}

func (p *FanoutProducer) PublishStateChanged(ctx context.Context, event *domain.OrderStateChanged) error {
	var firstErr error
	for _, target := range p.targets {
		if err := target.PublishStateChanged(ctx, event); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("order_id", event.OrderID).
				Msg("event fanout target failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
