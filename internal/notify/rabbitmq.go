package notify

import (
	"context"
	"encoding/json"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

// amqpChannel is the subset of *amqp.Channel used by RabbitPublisher.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes alerts to a topic exchange. The routing key is
// <prefix>.<alert_type>.<severity>, e.g. aiops.alerts.log_analysis.high.
type RabbitPublisher struct {
	channel    amqpChannel
	exchange   string
	routingKey string
}

// NewRabbitPublisher opens a channel on conn and declares a durable topic exchange.
func NewRabbitPublisher(conn *amqp.Connection, exchange, routingKey string) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	return newRabbitPublisher(ch, exchange, routingKey), nil
}

func newRabbitPublisher(ch amqpChannel, exchange, routingKey string) *RabbitPublisher {
	if routingKey == "" {
		routingKey = "aiops.alerts"
	}
	return &RabbitPublisher{channel: ch, exchange: exchange, routingKey: routingKey}
}

// Publish implements Publisher.
func (p *RabbitPublisher) Publish(ctx context.Context, alert models.Alert) error {
	const op = "rabbitmq.Publish"
	body, err := json.Marshal(alert)
	if err != nil {
		return utils.NewAppError(op, "marshal alert", err)
	}
	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		p.RoutingKey(alert),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    alert.ID,
			Timestamp:    alert.Timestamp,
			Type:         string(alert.Type),
			Body:         body,
		},
	)
	if err != nil {
		return utils.NewAppError(op, p.exchange, err)
	}
	return nil
}

// RoutingKey returns the topic routing key for alert.
func (p *RabbitPublisher) RoutingKey(alert models.Alert) string {
	return p.routingKey + "." + string(alert.Type) + "." + strings.ToLower(string(alert.Severity))
}

// Close closes the underlying channel.
func (p *RabbitPublisher) Close() error {
	return p.channel.Close()
}
