package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/domain"
	"github.com/nlukin/sheet-orders/internal/infrastructure/email"
	"github.com/nlukin/sheet-orders/internal/infrastructure/events"
	"github.com/nlukin/sheet-orders/internal/observability"
	"github.com/nlukin/sheet-orders/internal/pkg/pool"
)

//go:generate mockgen -source internal/application/service/order.go -destination=internal/application/service/order_mock_test.go -package=service

// Enqueuer is the write-queue surface the order service needs.
type Enqueuer interface {
	EnqueueWithKey(table string, rows [][]string, key string) <-chan error
}

const sideEffectTimeout = 30 * time.Second

type OrderService struct {
	queue       Enqueuer
	mailer      email.Sender
	publisher   events.Publisher
	workers     *pool.Pool
	ordersSheet string
	logger      *zap.Logger
	metrics     observability.Metrics
}

func NewOrderService(
	queue Enqueuer,
	mailer email.Sender,
	publisher events.Publisher,
	workers *pool.Pool,
	ordersSheet string,
	logger *zap.Logger,
	metrics observability.Metrics,
) *OrderService {
	return &OrderService{
		queue:       queue,
		mailer:      mailer,
		publisher:   publisher,
		workers:     workers,
		ordersSheet: ordersSheet,
		logger:      logger,
		metrics:     metrics,
	}
}

// Submit validates the order, waits for the write queue to land its rows in
// the orders sheet, then dispatches confirmation email and analytics event
// off the request path. An error means the order was not recorded.
func (s *OrderService) Submit(ctx context.Context, order *domain.Order) (SubmitStats, error) {
	var st SubmitStats

	if err := order.Validate(); err != nil {
		return st, err
	}
	if order.OrderID == "" {
		order.OrderID = newOrderID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	t0 := time.Now()
	done := s.queue.EnqueueWithKey(s.ordersSheet, order.Rows(), order.OrderID)

	select {
	case err := <-done:
		st.QueueMs = convertToMs(t0)
		if err != nil {
			s.metrics.ObserveEnqueue(st.QueueMs, false)
			s.logger.Error("order write rejected",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
			return st, err
		}
	case <-ctx.Done():
		// the write may still land; the caller just stopped waiting
		return st, ctx.Err()
	}

	s.metrics.ObserveEnqueue(st.QueueMs, true)
	s.logger.Info("order recorded",
		zap.String("order_id", order.OrderID),
		zap.Int("items", len(order.Items)),
		zap.Float64("queue_ms", st.QueueMs),
	)

	copied := *order
	s.workers.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.mailer.SendOrderConfirmation(ctx, &copied); err != nil {
			s.logger.Warn("confirmation email failed",
				zap.String("order_id", copied.OrderID),
				zap.Error(err),
			)
		}
	})
	s.workers.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.publisher.PublishOrder(ctx, &copied); err != nil {
			s.logger.Warn("order event publish failed",
				zap.String("order_id", copied.OrderID),
				zap.Error(err),
			)
		}
	})

	return st, nil
}

func newOrderID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "ord-" + hex.EncodeToString([]byte(time.Now().Format("20060102150405.000")))
	}
	return "ord-" + hex.EncodeToString(b[:])
}
