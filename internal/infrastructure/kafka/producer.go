package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/mgrimsby/property-ops/pkg/kafka/producer"
)

type EventPublisher struct {
	*producer.Producer
	topic string
}

func NewEventPublisher(producer *producer.Producer, topic string) *EventPublisher {
	return &EventPublisher{
		producer,
		topic,
	}
}

func (ep *EventPublisher) Publish(ctx context.Context, key, eventID string, value []byte) error {
	msg := kafka.Message{
		Topic: ep.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
		},
	}

	err := ep.Writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("EventPublisher - Publish - ep.Writer.WriteMessages: %w", err)
	}

	return nil
}

func (ep *EventPublisher) Close() error {
	err := ep.Producer.Close()
	if err != nil {
		return fmt.Errorf("EventPublisher - Close: %w", err)
	}

	return nil
}
