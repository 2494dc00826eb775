package zipkintracer

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
)

// DefaultKafkaTopic is the topic Zipkin collectors consume by default.
const DefaultKafkaTopic = "zipkin"

// KafkaTransport publishes every span batch as one Kafka message.
type KafkaTransport struct {
	producer sarama.SyncProducer
	topic    string
	encoding Encoding
	config   *sarama.Config
}

// KafkaOption sets a parameter for the KafkaTransport
type KafkaOption func(t *KafkaTransport)

// KafkaTopic sets the topic to publish to.
func KafkaTopic(topic string) KafkaOption {
	return func(t *KafkaTransport) { t.topic = topic }
}

// KafkaEncoding sets the payload encoding.
func KafkaEncoding(e Encoding) KafkaOption {
	return func(t *KafkaTransport) { t.encoding = e }
}

// KafkaCompression sets the producer compression codec. It has no effect
// with NewKafkaTransportWithProducer.
func KafkaCompression(codec sarama.CompressionCodec) KafkaOption {
	return func(t *KafkaTransport) {
		t.config.Producer.Compression = codec
		// sarama refuses zstd below protocol version 2.1.
		if codec == sarama.CompressionZSTD && !t.config.Version.IsAtLeast(sarama.V2_1_0_0) {
			t.config.Version = sarama.V2_1_0_0
		}
	}
}

// NewKafkaTransport connects a synchronous producer to brokers.
func NewKafkaTransport(brokers []string, options ...KafkaOption) (*KafkaTransport, error) {
	t := newKafkaTransport(options)
	producer, err := sarama.NewSyncProducer(brokers, t.config)
	if err != nil {
		return nil, fmt.Errorf("kafka transport: %w", err)
	}
	t.producer = producer
	return t, nil
}

// NewKafkaTransportWithProducer publishes through an existing producer. The
// transport closes it on Close.
func NewKafkaTransportWithProducer(p sarama.SyncProducer, options ...KafkaOption) (*KafkaTransport, error) {
	if p == nil {
		return nil, fmt.Errorf("kafka transport requires a producer")
	}
	t := newKafkaTransport(options)
	t.producer = p
	return t, nil
}

// NewKafkaConfig returns the producer configuration used by
// NewKafkaTransport.
func NewKafkaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	return config
}

func newKafkaTransport(options []KafkaOption) *KafkaTransport {
	t := &KafkaTransport{
		topic:    DefaultKafkaTopic,
		encoding: EncodingThrift,
		config:   NewKafkaConfig(),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Encoding implements EncodingTransport.
func (t *KafkaTransport) Encoding() Encoding {
	return t.encoding
}

// Send implements Transport.
func (t *KafkaTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := t.producer.SendMessage(&sarama.ProducerMessage{
		Topic: t.topic,
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

// Close implements Transport.
func (t *KafkaTransport) Close() error {
	return t.producer.Close()
}
