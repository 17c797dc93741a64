// Package notify publishes product lifecycle events for the out-of-band
// notification collaborator (subscriber emails, price alerts). Publishing is
// best-effort and fully optional: a nil channel turns every publish into a
// debug-logged no-op.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
)

type ProductScrapedEvent struct {
	EventName string    `json:"event_name"`
	EventID   string    `json:"event_id"`
	TS        time.Time `json:"ts"`

	ProductID    string  `json:"product_id"`
	URL          string  `json:"url"`
	Title        string  `json:"title,omitempty"`
	CurrentPrice float64 `json:"current_price"`
	LowestPrice  float64 `json:"lowest_price"`
	FirstScrape  bool    `json:"first_scrape"`
}

type ProductSubscribedEvent struct {
	EventName string    `json:"event_name"`
	EventID   string    `json:"event_id"`
	TS        time.Time `json:"ts"`

	ProductID string `json:"product_id"`
	Email     string `json:"email"`
}

type Publisher struct {
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *zap.SugaredLogger

	publish func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type NewPublisherParams struct {
	fx.In

	Cfg     config.Config
	Channel *amqp.Channel `optional:"true"`
	Logger  *zap.SugaredLogger
}

func NewPublisher(p NewPublisherParams) *Publisher {
	var publishFn func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	if p.Channel != nil {
		publishFn = p.Channel.PublishWithContext
	}

	return &Publisher{
		channel:    p.Channel,
		exchange:   p.Cfg.AMQPExchange,
		routingKey: p.Cfg.AMQPRoutingKey,
		logger:     p.Logger,
		publish:    publishFn,
	}
}

func (p *Publisher) ProductScraped(ctx context.Context, ev ProductScrapedEvent) {
	if p.publish == nil {
		p.logger.Debugw("notify_skipped_rabbitmq_disabled", "product_id", ev.ProductID)
		return
	}

	if ev.EventName == "" {
		ev.EventName = "product/scraped"
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}

	p.emit(ctx, ev.EventID, ev.ProductID, ev.TS, ev)
}

// ProductSubscribed announces a first-time subscriber add so the notification
// collaborator can send its welcome email.
func (p *Publisher) ProductSubscribed(ctx context.Context, ev ProductSubscribedEvent) {
	if p.publish == nil {
		p.logger.Debugw("notify_skipped_rabbitmq_disabled", "product_id", ev.ProductID)
		return
	}

	if ev.EventName == "" {
		ev.EventName = "product/subscribed"
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}

	p.emit(ctx, ev.EventID, ev.ProductID, ev.TS, ev)
}

func (p *Publisher) emit(ctx context.Context, eventID, productID string, ts time.Time, ev any) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Errorw("notify_marshal_failed", "err", err)
		return
	}

	if err := p.publish(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    ts,
		MessageId:    eventID,
		Body:         body,
	}); err != nil {
		p.logger.Errorw("notify_publish_failed",
			"exchange", p.exchange,
			"routing_key", p.routingKey,
			"event_id", eventID,
			"err", err,
		)
		return
	}

	p.logger.Infow("notify_published", "event_id", eventID, "product_id", productID)
}
