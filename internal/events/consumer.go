package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/ierr"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	Exchange = "orders.events"
	Queue    = "notifier.order_events"

	RoutingKeyOrderCreated       = "order.created"
	RoutingKeyOrderStatusChanged = "order.status_changed"

	consumerTag    = "notifier"
	prefetch       = 16
	handlerTimeout = 30 * time.Second
	maxBackoff     = 30 * time.Second
)

type OrderCreatedEvent struct {
	Order *broadcaster.OrderSummary `json:"order"`
}

type OrderStatusChangedEvent struct {
	OrderId int64  `json:"order_id"`
	Status  string `json:"status"`
}

// Consumer feeds order events published by the ordering backend into the
// notify handler. It reconnects with exponential backoff until its context
// is cancelled.
type Consumer struct {
	logger        *zap.Logger
	url           string
	notifyHandler handler.NotifyHandlerInterface
}

func NewConsumer(
	logger *zap.Logger,
	url string,
	notifyHandler handler.NotifyHandlerInterface,
) *Consumer {
	return &Consumer{
		logger,
		url,
		notifyHandler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second

	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			c.logger.Info("order event consumer stopped")
			return
		}

		c.logger.Error("order event consumer failed, retrying",
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq set QoS: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		return err
	}

	deliveries, err := ch.Consume(Queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", Queue, err)
	}

	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	c.logger.Info("consuming order events",
		zap.String("exchange", Exchange),
		zap.String("queue", Queue))

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(consumerTag, false)
			return nil
		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq channel closed: %w", cerr)
			}
			return errors.New("rabbitmq channel closed")
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery stream ended")
			}

			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	handlerCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	err := c.Dispatch(handlerCtx, d.RoutingKey, d.Body)
	cancel()

	if err != nil && ctx.Err() != nil {
		// Interrupted by shutdown; another consumer picks it up.
		c.logger.Info("requeueing order event",
			zap.String("routingKey", d.RoutingKey),
			zap.String("messageId", d.MessageId),
			zap.Error(err))

		_ = d.Nack(false, true)
		return
	}

	if err != nil {
		c.logger.Warn("dropping order event",
			zap.String("routingKey", d.RoutingKey),
			zap.String("messageId", d.MessageId),
			zap.Error(err))

		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

// Dispatch decodes one event body according to its routing key and notifies
// the connected sessions.
func (c *Consumer) Dispatch(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case RoutingKeyOrderCreated:
		var event OrderCreatedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return ierr.New(ierr.ErrorCodeInvalidArgument, err)
		}
		if event.Order == nil {
			return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing order"))
		}

		return c.notifyHandler.NotifyNewOrder(ctx, *event.Order)
	case RoutingKeyOrderStatusChanged:
		var event OrderStatusChangedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return ierr.New(ierr.ErrorCodeInvalidArgument, err)
		}

		return c.notifyHandler.NotifyOrderStatusChange(ctx, handler.OrderStatusChangeRequest{
			OrderId: event.OrderId,
			Status:  event.Status,
		})
	default:
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unexpected routing key "+routingKey))
	}
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}

	if _, err := ch.QueueDeclare(Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", Queue, err)
	}

	for _, routingKey := range []string{RoutingKeyOrderCreated, RoutingKeyOrderStatusChanged} {
		if err := ch.QueueBind(Queue, routingKey, Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", Queue, routingKey, err)
		}
	}

	return nil
}
