// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

const TypeOrderCommitted = "order.committed"

// OrderCommitted is emitted after a cart is written as an order.
type OrderCommitted struct {
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	Discount   decimal.Decimal `json:"discount"`
	CouponCode string          `json:"coupon_code,omitempty"`
	DiscountID int64           `json:"discount_id,omitempty"`
	ItemCount  int             `json:"item_count"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewOrderCommitted builds the event for a committed order.
func NewOrderCommitted(o *models.Order) OrderCommitted {
	ev := OrderCommitted{
		Type:       TypeOrderCommitted,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Total:      o.Total,
		Discount:   o.Discount,
		OccurredAt: o.CreatedAt,
	}
	for _, it := range o.Items {
		ev.ItemCount += it.Quantity
	}
	if o.Applied != nil {
		ev.CouponCode = o.Applied.Code
		ev.DiscountID = o.Applied.DiscountID
	}
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// NewKafkaWriter creates a writer for topic balanced by least bytes.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records events in the service log when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, key string, event any) error {
	p.log.Info("event published", zap.String("key", key), zap.Any("event", event))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
