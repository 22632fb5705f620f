// Package events publishes submitted orders to Kafka for downstream
// analytics. Publishing is best effort and optional; the Noop publisher is
// wired when no brokers are configured.
package events

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/domain"
)

type Publisher interface {
	PublishOrder(ctx context.Context, order *domain.Order) error
	Close() error
}

type orderEvent struct {
	OrderID   string    `json:"order_id"`
	Total     float64   `json:"total"`
	Currency  string    `json:"currency"`
	Items     int       `json:"items"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

type Kafka struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewKafka(brokers []string, topic string, logger *zap.Logger) *Kafka {
	return &Kafka{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		logger: logger,
	}
}

func (k *Kafka) PublishOrder(ctx context.Context, order *domain.Order) error {
	value, err := json.Marshal(orderEvent{
		OrderID:   order.OrderID,
		Total:     order.Total,
		Currency:  order.Currency,
		Items:     len(order.Items),
		Country:   order.Country,
		CreatedAt: order.CreatedAt,
	})
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(order.OrderID),
		Value: value,
	}); err != nil {
		return err
	}
	k.logger.Debug("order event published", zap.String("order_id", order.OrderID))
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

type Noop struct{}

func (Noop) PublishOrder(context.Context, *domain.Order) error { return nil }
func (Noop) Close() error                                      { return nil }
