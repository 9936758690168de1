package rabbitmq

import (
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

// Пример routingKey:
// slots.3f2c9a1e-5d7b-4c1a-9e4f-0a8b6c2d1e3f.availability.invalidate
const (
	routingKeyPrefix   = "slots"
	routingKeyResource = "availability"
	routingKeyAction   = "invalidate"

	// BindingKey ловит инвалидации от всех инстансов
	BindingKey = routingKeyPrefix + ".*." + routingKeyResource + "." + routingKeyAction

	declareAttempts = 3
)

var declareBackoff = 500 * time.Millisecond

type InvalidationRoutingKey struct {
	Origin string
}

func RoutingKey(origin string) string {
	return strings.Join([]string{routingKeyPrefix, origin, routingKeyResource, routingKeyAction}, ".")
}

func ParseRoutingKey(routingKey string) (InvalidationRoutingKey, error) {
	parts := strings.Split(routingKey, ".")
	if len(parts) != 4 ||
		parts[0] != routingKeyPrefix ||
		parts[1] == "" ||
		parts[2] != routingKeyResource ||
		parts[3] != routingKeyAction {
		return InvalidationRoutingKey{}, fmt.Errorf("invalid routing key: %s", routingKey)
	}

	return InvalidationRoutingKey{Origin: parts[1]}, nil
}

type exchangeDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

// DeclareExchange объявляет topic обменник, делая до трех попыток
func DeclareExchange(channel exchangeDeclarer, exchangeName string, logger out.LoggerPort) error {
	var err error
	for attempt := 1; attempt <= declareAttempts; attempt++ {
		err = channel.ExchangeDeclare(
			exchangeName, // имя обменника
			"topic",      // тип обменника
			true,         // durable
			false,        // auto-delete
			false,        // internal
			false,        // no-wait
			nil,          // аргументы
		)
		if err == nil {
			logger.Info("rabbitmq.exchange_declare.success", out.LogFields{
				"exchange": exchangeName,
			})
			return nil
		}

		logger.Warn("rabbitmq.exchange_declare.retry", out.LogFields{
			"exchange": exchangeName,
			"attempt":  attempt,
			"error":    err.Error(),
		})

		if attempt < declareAttempts {
			time.Sleep(declareBackoff)
		}
	}

	return fmt.Errorf("failed to declare exchange %s: %w", exchangeName, err)
}
