/**
 * @description
 * This package provides a RabbitMQ event producer used to announce credit decisions to
 * the rest of the platform (e.g. order auditing). It manages the AMQP connection and
 * channel, declares a durable topic exchange once, and publishes JSON payloads.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: The official Go client for RabbitMQ.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

// ErrProducerClosed is returned when publishing on a closed producer.
var ErrProducerClosed = errors.New("rabbitmq producer is closed")

// EventProducer is a client for publishing events to RabbitMQ.
// It is safe for concurrent use; publishes are serialised on one channel.
type EventProducer struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	declared map[string]bool
}

// SanitizeAMQPURL trims quotes and whitespace, checks the scheme and fills in the default
// vhost when the URL has no path. Named vhosts and query parameters are kept as given.
func SanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if clean == "" {
		return "", errors.New("AMQP url is empty")
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse AMQP url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	// The path names the vhost; only an absent path is normalised to the default "/".
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// NewEventProducer dials RabbitMQ, opens a channel and declares the given exchanges up
// front so publishing needs no extra broker round-trip.
func NewEventProducer(amqpURL string, exchanges ...string) (*EventProducer, error) {
	cleanURL, err := SanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	p := &EventProducer{
		conn:     conn,
		channel:  channel,
		declared: make(map[string]bool),
	}
	for _, exchange := range exchanges {
		if err := p.declareExchange(exchange); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

// declareExchange declares a durable topic exchange once. Callers hold p.mu or own p exclusively.
func (p *EventProducer) declareExchange(exchange string) error {
	if p.declared[exchange] {
		return nil
	}
	err := p.channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p.declared[exchange] = true
	return nil
}

// Publish sends an event to a specific exchange with a routing key.
func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		return ErrProducerClosed
	}

	if err := p.declareExchange(exchange); err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         jsonBody,
		})
}

// Close gracefully closes the channel and connection.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
