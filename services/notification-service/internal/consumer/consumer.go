package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"github.com/turnly/turnly/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler processes one message. A returned error is retried; once retries are
// exhausted the offset is committed anyway so one bad event cannot stall the
// partition.
type Handler func(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) error

type Consumer struct {
	reader     *kafka.Reader
	logger     *slog.Logger
	handler    Handler
	maxTries   uint
	newBackOff func() backoff.BackOff
}

type Config struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MaxTries uint
}

func New(logger *slog.Logger, cfg Config, handler Handler) *Consumer {
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 5
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:     reader,
		logger:     logger,
		handler:    handler,
		maxTries:   cfg.MaxTries,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		_ = c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
		}
	}
}

// process runs the handler with retries and returns the last error once they
// are exhausted.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	op := func() (struct{}, error) {
		return struct{}{}, c.handler(ctxSpan, meta, msg)
	}
	if _, err := backoff.Retry(ctxSpan, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	); err != nil {
		c.logger.Error("handler error, skipping event", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
		span.RecordError(err)
		return err
	}
	return nil
}
