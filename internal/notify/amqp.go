package notify

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
)

type NewAMQPParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Logger    *zap.SugaredLogger
}

type AMQPOut struct {
	fx.Out

	Conn    *amqp.Connection
	Channel *amqp.Channel
}

func NewAMQP(p NewAMQPParams) (AMQPOut, error) {
	url := strings.TrimSpace(p.Config.AMQPURL)
	if url == "" {
		p.Logger.Infow("rabbitmq_disabled", "reason", "missing AMQP_URL")
		return AMQPOut{Conn: nil, Channel: nil}, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return AMQPOut{}, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return AMQPOut{}, fmt.Errorf("rabbitmq channel: %w", err)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = ch.Close()
			_ = conn.Close()
			return nil
		},
	})

	p.Logger.Infow(
		"rabbitmq_enabled",
		"exchange", p.Config.AMQPExchange,
		"routing_key", p.Config.AMQPRoutingKey,
	)

	return AMQPOut{Conn: conn, Channel: ch}, nil
}
