// Package notify publishes refresh events to an AMQP exchange.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/logger"
)

// Publisher sends refresh events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev *RefreshEvent) error
}

// Client publishes to a durable topic exchange. Routing keys are
// prefix + "." + event type, or just the event type when prefix is empty.
type Client struct {
	url      string
	exchange string
	prefix   string
	log      zerolog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewClient dials url and declares the exchange.
func NewClient(url, exchange, prefix string) (*Client, error) {
	c := &Client{
		url:      url,
		exchange: exchange,
		prefix:   prefix,
		log:      logger.WithComponent("notify"),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// dialTimeout bounds the TCP connect of a dial or lazy redial.
const dialTimeout = 5 * time.Second

func (c *Client) connect() error {
	conn, err := amqp091.DialConfig(c.url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// RoutingKey returns the routing key for an event type.
func (c *Client) RoutingKey(eventType string) string {
	if c.prefix == "" {
		return eventType
	}
	return c.prefix + "." + eventType
}

// Publish sends ev as a persistent JSON message, reconnecting once if the
// channel has closed.
func (c *Client) Publish(ctx context.Context, ev *RefreshEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil || c.channel.IsClosed() {
		c.closeLocked()
		if err := c.connect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := c.RoutingKey(ev.Type)
	err = c.channel.PublishWithContext(
		ctx,
		c.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    ev.RefreshID,
			Timestamp:    ev.Timestamp,
			Type:         ev.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.log.Debug().
		Str("refresh_id", ev.RefreshID).
		Str("exchange", c.exchange).
		Str("routing_key", key).
		Msg("published refresh event")
	return nil
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

// Hook returns a cache hook that publishes every refresh attempt.
// Publish errors are logged and dropped.
func Hook(p Publisher, log zerolog.Logger) cache.Hook {
	return func(ctx context.Context, res cache.RefreshResult) {
		ev := NewRefreshEvent(res)
		if err := p.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("refresh_id", res.ID).Msg("refresh event not published")
		}
	}
}
