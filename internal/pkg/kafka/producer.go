package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ErrUnavailable is returned by the fallback producer.
var ErrUnavailable = errors.New("kafka is not available")

type Producer interface {
	SendMessage(ctx context.Context, key string, message interface{}) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer returns a mock producer when no broker is reachable, so the
// service still starts; submitting jobs then fails with ErrUnavailable.
func NewProducer(brokers []string, topic string) Producer {
	if len(brokers) == 0 {
		logrus.Warn("No Kafka brokers configured, using mock producer")
		return &mockProducer{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		logrus.WithError(err).WithField("brokers", brokers).Warn("Kafka connection failed, using mock producer instead")
		return &mockProducer{}
	}
	defer conn.Close()

	// Создаем топик если не существует
	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.WithError(err).WithField("topic", topic).Info("Could not create topic (might already exist)")
	}

	logrus.WithFields(logrus.Fields{"brokers": brokers, "topic": topic}).Info("Connected to Kafka")
	return &kafkaProducer{writer: writer, topic: topic}
}

func (p *kafkaProducer) SendMessage(ctx context.Context, key string, message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: messageBytes,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logrus.WithError(err).WithField("topic", p.topic).Error("Failed to write message to Kafka")
		return err
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// Mock producer для работы без Kafka
type mockProducer struct{}

func (m *mockProducer) SendMessage(_ context.Context, key string, message interface{}) error {
	logrus.WithField("key", key).Warn("MOCK: task rejected, Kafka is not available")
	return ErrUnavailable
}

func (m *mockProducer) Close() error {
	return nil
}
