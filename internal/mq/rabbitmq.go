package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hagzilla/apiserver/config"
)

// RabbitMQClient maps channels to queues on the default exchange. Publishes
// go through one confirm-mode AMQP channel; every Subscribe opens its own.
type RabbitMQClient struct {
	conn     *amqp.Connection
	cfg      config.RabbitMQConfig
	mu       sync.Mutex
	pub      *amqp.Channel
	declared map[string]bool
}

func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := pub.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq confirm mode: %w", err)
	}

	return &RabbitMQClient{
		conn:     conn,
		cfg:      cfg,
		pub:      pub,
		declared: map[string]bool{},
	}, nil
}

// Publish returns once the broker has confirmed the message. A nack is an
// error.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	msg := toPublishing(data, attrs)

	r.mu.Lock()
	if !r.declared[channel] {
		if err := r.declare(r.pub, channel); err != nil {
			r.mu.Unlock()
			return "", err
		}
		r.declared[channel] = true
	}
	confirm, err := r.pub.PublishWithDeferredConfirmWithContext(ctx, "", channel, false, false, msg)
	r.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("rabbitmq publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", fmt.Errorf("rabbitmq confirm: %w", err)
	}
	if !acked {
		return "", fmt.Errorf("rabbitmq: broker nacked message %s", msg.MessageId)
	}
	return msg.MessageId, nil
}

// Subscribe blocks delivering messages to handler until ctx is done.
// A handler error requeues the message.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if r.cfg.PrefetchCount > 0 {
		if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("rabbitmq qos: %w", err)
		}
	}
	if err := r.declare(ch, channel); err != nil {
		return err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, channel, "apiserver-"+uuid.NewString(), false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, fromDelivery(delivery)); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pub != nil {
		_ = r.pub.Close()
	}
	return r.conn.Close()
}

func (r *RabbitMQClient) declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq declare %s: %w", queue, err)
	}
	return nil
}

// toPublishing builds a persistent JSON message. Attributes travel as
// string headers.
func toPublishing(data []byte, attrs map[string]string) amqp.Publishing {
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Headers:      headers,
		Body:         data,
	}
}

func fromDelivery(d amqp.Delivery) Message {
	msg := Message{ID: d.MessageId, Data: d.Body}
	if len(d.Headers) == 0 {
		return msg
	}
	msg.Attributes = make(map[string]string, len(d.Headers))
	for key, value := range d.Headers {
		switch v := value.(type) {
		case string:
			msg.Attributes[key] = v
		case []byte:
			msg.Attributes[key] = string(v)
		default:
			msg.Attributes[key] = fmt.Sprint(v)
		}
	}
	return msg
}
