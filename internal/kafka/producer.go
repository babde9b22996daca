package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"zafo-tickets/internal/logger"
	"zafo-tickets/internal/models"
)

// DocumentGeneratedTopic carries one message per delivered ticket document.
const DocumentGeneratedTopic = "zafo.tickets.document_generated"

// Publisher announces generated documents to the rest of the platform.
type Publisher interface {
	PublishDocumentGenerated(ctx context.Context, event models.DocumentGeneratedEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: topic, logger: log}
}

func (p *Producer) PublishDocumentGenerated(ctx context.Context, event models.DocumentGeneratedEvent) error {
	msg, err := documentMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Filename, p.topic, err)
	}
	p.logger.LogKafka("PUBLISHED", p.topic, fmt.Sprintf("%s (%d pages)", event.Filename, event.Pages))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// documentMessage keys by filename so regenerations of the same document
// land on one partition in order.
func documentMessage(event models.DocumentGeneratedEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal document event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Filename),
		Value: value,
		Time:  event.GeneratedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("document_generated")},
			{Key: "mode", Value: []byte(event.Mode)},
		},
	}, nil
}

// NoopPublisher stands in when Kafka is disabled or mocked.
type NoopPublisher struct {
	Logger *logger.Logger
}

func (n NoopPublisher) PublishDocumentGenerated(_ context.Context, event models.DocumentGeneratedEvent) error {
	if n.Logger != nil {
		n.Logger.LogKafka("SKIPPED", DocumentGeneratedTopic, event.Filename)
	}
	return nil
}

func (NoopPublisher) Close() error { return nil }
