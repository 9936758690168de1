package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	publisher "github.com/suchimauz/docplanner-slots-gateway/internal/adapters/out/rabbitmq"
	"github.com/suchimauz/docplanner-slots-gateway/internal/config"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/in"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

var errEmptyMonday = errors.New("invalidation event without monday")

// InvalidationListener сбрасывает локальный кэш недели по событиям других инстансов
type InvalidationListener struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	useCase    in.SlotUseCase
	exchange   string
	origin     string
	logger     out.LoggerPort
	consumerWg sync.WaitGroup
}

func NewInvalidationListener(useCase in.SlotUseCase, cfg *config.Config, origin string, logger out.LoggerPort) (*InvalidationListener, error) {
	if !cfg.RabbitMq.Enabled {
		logger.Info("rabbitmq.disabled", out.LogFields{
			"message": "RabbitMQ is disabled, listener will not be started",
		})
		return nil, nil
	}

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

	listener := newInvalidationListener(useCase, cfg.RabbitMq.Exchange, origin, logger)
	listener.conn = conn
	listener.channel = channel
	return listener, nil
}

func newInvalidationListener(useCase in.SlotUseCase, exchange, origin string, logger out.LoggerPort) *InvalidationListener {
	return &InvalidationListener{
		useCase:  useCase,
		exchange: exchange,
		origin:   origin,
		logger:   logger,
	}
}

func (l *InvalidationListener) Start(ctx context.Context) error {
	if l == nil {
		return nil
	}

	if err := publisher.DeclareExchange(l.channel, l.exchange, l.logger); err != nil {
		return err
	}

	// Очередь своя у каждого инстанса и исчезает вместе с ним
	queue, err := l.channel.QueueDeclare(
		"",    // имя генерирует брокер
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := l.channel.QueueBind(queue.Name, publisher.BindingKey, l.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue.Name, err)
	}

	msgs, err := l.channel.Consume(
		queue.Name,
		"slots-gateway-"+l.origin,
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume from queue %s: %w", queue.Name, err)
	}

	l.logger.Info("rabbitmq.queue.started", out.LogFields{
		"queue":    queue.Name,
		"binding":  publisher.BindingKey,
		"exchange": l.exchange,
	})

	l.consumerWg.Add(1)
	go func() {
		defer l.consumerWg.Done()

		for {
			select {
			case <-ctx.Done():
				l.logger.Info("rabbitmq.consumer.stopping_by_context", out.LogFields{
					"queue": queue.Name,
				})
				return
			case msg, ok := <-msgs:
				if !ok {
					l.logger.Warn("rabbitmq.consumer.channel_closed", out.LogFields{
						"queue": queue.Name,
					})
					return
				}
				l.handleDelivery(ctx, msg)
			}
		}
	}()

	return nil
}

func (l *InvalidationListener) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	l.logger.Debug("rabbitmq.message.received", out.LogFields{
		"routingKey": msg.RoutingKey,
		"messageId":  msg.MessageId,
	})

	if err := l.processMessage(ctx, msg); err != nil {
		l.logger.Error("rabbitmq.process_message.failed", out.LogFields{
			"routingKey": msg.RoutingKey,
			"messageId":  msg.MessageId,
			"error":      err.Error(),
		})

		// Битое сообщение обратно в очередь не возвращаем
		if err := msg.Nack(false, false); err != nil {
			l.logger.Error("rabbitmq.message.nack_failed", out.LogFields{
				"error": err.Error(),
			})
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		l.logger.Error("rabbitmq.message.ack_failed", out.LogFields{
			"error": err.Error(),
		})
	}
}

func (l *InvalidationListener) processMessage(ctx context.Context, msg amqp.Delivery) error {
	routingKey, err := publisher.ParseRoutingKey(msg.RoutingKey)
	if err != nil {
		return err
	}

	// Свои события уже применены локально
	if routingKey.Origin == l.origin {
		return nil
	}

	var event out.AvailabilityInvalidatedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("decode invalidation event: %w", err)
	}
	if event.Origin == l.origin {
		return nil
	}
	if event.Monday == "" {
		return errEmptyMonday
	}

	if err := l.useCase.InvalidateWeek(ctx, event.Monday); err != nil {
		return err
	}

	l.logger.Info("rabbitmq.week.invalidated", out.LogFields{
		"monday":  event.Monday,
		"origin":  event.Origin,
		"reason":  event.Reason,
		"eventId": event.ID,
	})
	return nil
}

func (l *InvalidationListener) Stop() error {
	if l == nil || l.channel == nil {
		return nil
	}

	err := l.channel.Close()
	l.consumerWg.Wait()

	return errors.Join(err, l.conn.Close())
}
