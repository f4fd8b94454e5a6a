// Package mq publishes and consumes events over RabbitMQ or Google Cloud
// Pub/Sub. Channels map to queues on RabbitMQ and to topics on Pub/Sub.
package mq

import (
	"context"
	"fmt"

	"github.com/hagzilla/apiserver/config"
)

const (
	BackendNone     = "none"
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
)

type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to nack it.
type Handler func(ctx context.Context, msg Message) error

type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Open connects the backend selected by MQ_BACKEND. It returns a nil
// Backend and no error when messaging is switched off.
func Open(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return client, nil
	case BackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("mq: unknown backend %q", cfg.Backend)
	}
}
