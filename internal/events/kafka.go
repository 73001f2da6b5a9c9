package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/stellar/go-stellar-sdk/support/log"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

var _ Producer = (*KafkaProducer)(nil)

func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     UserKeyBalancer{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *KafkaProducer) WriteMessages(ctx context.Context, messages ...Message) error {
	kafkaMessages := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		msgJSON, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshalling message: %w", err)
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Topic: msg.Topic,
			Key:   []byte(msg.Key),
			Value: msgJSON,
		})
	}

	if err := p.writer.WriteMessages(ctx, kafkaMessages...); err != nil {
		log.Ctx(ctx).Errorf("writing message on kafka: %s", err.Error())
		return fmt.Errorf("writing message on kafka: %w", err)
	}

	return nil
}

func (p *KafkaProducer) Close() error {
	log.Info("closing kafka producer")
	return p.writer.Close()
}

type KafkaConsumer struct {
	handlers []EventHandler
	topic    string
	reader   *kafka.Reader
}

var _ Consumer = (*KafkaConsumer)(nil)

func NewKafkaConsumer(brokers []string, topic, consumerGroupID string, handlers ...EventHandler) (*KafkaConsumer, error) {
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if consumerGroupID == "" {
		return nil, fmt.Errorf("consumer group ID is required")
	}

	k := KafkaConsumer{
		topic: topic,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: consumerGroupID,
			Topic:   topic,
		}),
	}

	if err := k.RegisterEventHandler(context.Background(), handlers...); err != nil {
		return nil, fmt.Errorf("registering event handlers: %w", err)
	}

	return &k, nil
}

func (k *KafkaConsumer) Topic() string {
	return k.topic
}

func (k *KafkaConsumer) Handlers() []EventHandler {
	return k.handlers
}

func (k *KafkaConsumer) RegisterEventHandler(ctx context.Context, handlers ...EventHandler) error {
	for _, handler := range handlers {
		log.Ctx(ctx).Infof("registering event handler %s for topic %s", handler.Name(), k.topic)
		k.handlers = append(k.handlers, handler)
	}
	return nil
}

// ReadMessage fetches the next message and commits its offset. Redelivery of messages that
// fail handling is the consumer loop's responsibility (in-process backoff, then DLQ), so the
// broker offset always advances.
func (k *KafkaConsumer) ReadMessage(ctx context.Context) (*Message, error) {
	kafkaMessage, err := k.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching message from kafka: %w", err)
	}

	var msg Message
	if err = json.Unmarshal(kafkaMessage.Value, &msg); err != nil {
		return nil, fmt.Errorf("unmarshaling message: %w", err)
	}

	if err = k.reader.CommitMessages(ctx, kafkaMessage); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	return &msg, nil
}

func (k *KafkaConsumer) Close() error {
	log.Infof("closing kafka consumer for topic %s", k.topic)
	return k.reader.Close()
}
