package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// LifecycleEvent is published for every order/delivery state change so
// downstream consumers (analytics, support tooling) can follow along.
type LifecycleEvent struct {
	OrderID   string    `json:"order_id"`
	Entity    string    `json:"entity"` // "order" or "delivery"
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ProducerAPI is the port the services publish through.
type ProducerAPI interface {
	PublishLifecycleEvent(evt LifecycleEvent) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[KafkaProducer] initialized topic=%s brokers=%v", topic, brokers)
	return &Producer{writer: w, topic: topic}
}

func (p *Producer) PublishLifecycleEvent(evt LifecycleEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: data,
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("❌ [KafkaProducer] failed to publish lifecycle event order=%s status=%s err=%v", evt.OrderID, evt.Status, err)
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	log.Printf("[KafkaProducer] closing writer topic=%s", p.topic)
	return p.writer.Close()
}

// NopProducer discards events when no brokers are configured.
type NopProducer struct{}

func (NopProducer) PublishLifecycleEvent(LifecycleEvent) error { return nil }
func (NopProducer) Close() error                               { return nil }
