package messaging

import (
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const clientID = "stockledger"

// NewOrderReader cria o leitor do tópico de pedidos em um consumer group.
func NewOrderReader(brokers []string, topic, groupID string) (Consumer, error) {
	reader, err := otelkafka.NewReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}))
	if err != nil {
		return nil, fmt.Errorf("falha ao criar leitor kafka: %w", err)
	}
	return reader, nil
}

// NewAlertWriter cria o escritor do tópico de alertas, propagando o trace nos headers.
func NewAlertWriter(brokers []string, topic string, tp trace.TracerProvider) (Producer, error) {
	base := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.kafka.client_id", clientID),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("falha ao criar escritor kafka: %w", err)
	}
	return writer, nil
}
