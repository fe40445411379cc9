package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/showgrid/showgrid/internal/domain"
	"github.com/showgrid/showgrid/internal/mailer"
)

const consumerPrefetch = 50

var errDeliveriesClosed = errors.New("deliveries channel closed")

// Consumer drains the notification queue and turns each message into an
// email. Messages that cannot be decoded or sent are rejected without
// requeue so a poison message cannot wedge the queue.
type Consumer struct {
	url       string
	mailer    mailer.Mailer
	recipient string
	logger    *slog.Logger
}

func NewConsumer(url string, m mailer.Mailer, recipient string, logger *slog.Logger) *Consumer {
	return &Consumer{
		url:       url,
		mailer:    m,
		recipient: recipient,
		logger:    logger,
	}
}

// Run keeps a connection to the broker alive until ctx is cancelled,
// reconnecting with capped exponential backoff when the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Error("failed to dial broker", "error", err, "retry_in", backoff)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Error("consume loop ended, reconnecting", "error", err)
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.Qos(consumerPrefetch, 0, false)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	_, err = ch.QueueDeclare(QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	deliveries, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}

			err := c.handleMessage(d.Body)
			if err != nil {
				c.logger.Error("failed to handle notification", "error", err)
				d.Nack(false, false)
				continue
			}

			d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var notification Notification

	err := json.Unmarshal(body, &notification)
	if err != nil {
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	templateFile, err := templateForKind(notification.Kind)
	if err != nil {
		return err
	}

	// TODO: resolve the recipient from the booking's account once accounts
	// carry email addresses.
	err = c.mailer.Send(c.recipient, templateFile, map[string]any{
		"BookingID": notification.BookingID,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", notification.Kind, err)
	}

	c.logger.Info("notification sent", "kind", notification.Kind, "booking_id", notification.BookingID)

	return nil
}

func templateForKind(kind domain.NotificationKind) (string, error) {
	switch kind {
	case domain.NotificationBookingConfirmed:
		return "booking_confirmed.tmpl", nil
	case domain.NotificationRefundIntent:
		return "booking_refund.tmpl", nil
	case domain.NotificationBookingExpired:
		return "booking_expired.tmpl", nil
	default:
		return "", fmt.Errorf("unknown notification kind: %q", kind)
	}
}
