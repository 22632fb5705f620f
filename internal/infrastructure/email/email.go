// Package email sends plain-text order confirmations. Providers are
// interchangeable behind Sender; the SMTP implementation covers the default
// transactional-mail setup.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/config"
	"github.com/nlukin/sheet-orders/internal/domain"
)

type Sender interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
}

type SMTP struct {
	cfg    config.SMTP
	logger *zap.Logger
}

func NewSMTP(cfg config.SMTP, logger *zap.Logger) *SMTP {
	return &SMTP{cfg: cfg, logger: logger}
}

func (s *SMTP) SendOrderConfirmation(_ context.Context, order *domain.Order) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", order.Email)
	fmt.Fprintf(&b, "Subject: Order %s confirmed\r\n", order.OrderID)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", order.CustomerName)
	fmt.Fprintf(&b, "We received your order %s.\r\n\r\n", order.OrderID)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "  %dx %s (%s)\r\n", it.Quantity, it.Name, it.SKU)
	}
	fmt.Fprintf(&b, "\r\nTotal: %.2f %s\r\n", order.Total, order.Currency)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{order.Email}, []byte(b.String())); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", order.OrderID, err)
	}
	s.logger.Info("confirmation sent",
		zap.String("order_id", order.OrderID),
		zap.String("to", order.Email),
	)
	return nil
}

// Disabled is used when no SMTP host is configured.
type Disabled struct{}

func (Disabled) SendOrderConfirmation(context.Context, *domain.Order) error { return nil }
