package broadcast

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/metrics"
)

// DefaultTopic receives every order event when KAFKA_TOPIC is unset.
const DefaultTopic = "jush.order-events"

var kafkaTracer = otel.Tracer("jush/broadcast/kafka")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes order events to a topic keyed by order id so every
// event for one order lands on the same partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
	pool   Submitter
}

func NewKafkaSink(brokers []string, topic string, pool Submitter) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{
		topic: topic,
		pool:  pool,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
		},
	}
}

// Publish is an event.Handler. Trace context is injected into the message
// headers here; the write itself runs on the pool.
func (k *KafkaSink) Publish(ctx context.Context, e event.Event) {
	value, err := encode("", e)
	if err != nil {
		logger.WithCtx(ctx).Warn("broadcast: encode event", "event", e.Name, "error", err)
		metrics.EventsFailed.WithLabelValues("kafka").Inc()
		return
	}

	msg := kafka.Message{Key: []byte(e.Key), Value: value, Time: e.At}
	otel.GetTextMapPropagator().Inject(ctx, &headerCarrier{msg: &msg})
	spanCtx := trace.SpanContextFromContext(ctx)

	err = k.pool.Submit("kafka-write", func(jobCtx context.Context) error {
		jobCtx, span := kafkaTracer.Start(trace.ContextWithRemoteSpanContext(jobCtx, spanCtx), "send "+k.topic,
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination.name", k.topic),
				attribute.String("messaging.kafka.message.key", e.Key),
			),
		)
		defer span.End()

		if err := k.writer.WriteMessages(jobCtx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.EventsFailed.WithLabelValues("kafka").Inc()
			return err
		}
		metrics.EventsEmitted.WithLabelValues(e.Name, "kafka").Inc()
		return nil
	})
	if err != nil {
		metrics.EventsFailed.WithLabelValues("kafka").Inc()
		logger.WithCtx(ctx).Warn("broadcast: kafka write not queued", "event", e.Name, "error", err)
	}
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// headerCarrier adapts kafka message headers to propagation.TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(c.msg.Headers))
	for i, h := range c.msg.Headers {
		keys[i] = h.Key
	}
	return keys
}
