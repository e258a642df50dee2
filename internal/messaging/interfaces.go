package messaging

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer é o escritor Kafka (instrumentado pelo otelkafka).
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Consumer é o leitor Kafka (instrumentado pelo otelkafka).
type Consumer interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}
