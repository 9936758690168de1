package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suchimauz/docplanner-slots-gateway/internal/config"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventPublisher рассылает события инвалидации недели в topic обменник
type EventPublisher struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	channel    publishChannel
	exchange   string
	routingKey string
	logger     out.LoggerPort
}

func NewEventPublisher(cfg *config.Config, origin string, logger out.LoggerPort) (*EventPublisher, error) {
	conn, err := amqp.Dial(cfg.RabbitMq.AmqpUri)
	if err != nil {
		logger.Error("rabbitmq.connect.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("rabbitmq.channel.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	if err := DeclareExchange(channel, cfg.RabbitMq.Exchange, logger); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	publisher := newEventPublisher(channel, cfg.RabbitMq.Exchange, origin, logger)
	publisher.conn = conn
	return publisher, nil
}

func newEventPublisher(channel publishChannel, exchange, origin string, logger out.LoggerPort) *EventPublisher {
	return &EventPublisher{
		channel:    channel,
		exchange:   exchange,
		routingKey: RoutingKey(origin),
		logger:     logger,
	}
}

func (p *EventPublisher) PublishAvailabilityInvalidated(ctx context.Context, event out.AvailabilityInvalidatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal invalidation event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.exchange, err)
	}

	p.logger.Debug("rabbitmq.event.published", out.LogFields{
		"exchange":   p.exchange,
		"routingKey": p.routingKey,
		"monday":     event.Monday,
		"eventId":    event.ID,
	})
	return nil
}

func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
