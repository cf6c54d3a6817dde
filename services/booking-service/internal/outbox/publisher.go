package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/turnly/turnly/libs/db"
	"github.com/turnly/turnly/libs/kafkax"
	otelx "github.com/turnly/turnly/libs/otel"
	"github.com/turnly/turnly/libs/whatsapp"
	"github.com/turnly/turnly/services/booking-service/internal/metrics"
)

// Dispatcher hands one outbox record to the outside world.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, r Record) error
	Close() error
}

type Publisher struct {
	pool        *db.Pool
	repo        *Repository
	dispatcher  Dispatcher
	logger      *slog.Logger
	pollEvery   time.Duration
	batchSize   int
	maxAttempts int
}

type PublisherConfig struct {
	PollEvery   time.Duration
	BatchSize   int
	MaxAttempts int
}

func NewPublisher(pool *db.Pool, repo *Repository, dispatcher Dispatcher, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Publisher{
		pool:        pool,
		repo:        repo,
		dispatcher:  dispatcher,
		logger:      logger,
		pollEvery:   cfg.PollEvery,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	defer func() {
		if err := p.dispatcher.Close(); err != nil {
			p.logger.Warn("outbox dispatcher close failed", "err", err)
		}
	}()
	p.logger.Info("outbox relay started", "dispatcher", p.dispatcher.Name(), "poll_every", p.pollEvery.String())

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publishBatch(ctx); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}

	var published []int64
	for _, r := range records {
		msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
		if err := p.dispatcher.Dispatch(msgCtx, r); err != nil {
			metrics.OutboxDispatched.WithLabelValues(p.dispatcher.Name(), "error").Inc()
			p.logger.Warn("outbox dispatch failed",
				"event_id", r.EventID,
				"event_type", r.EventType,
				"attempt", r.Attempts+1,
				"err", err,
			)
			if err := p.repo.MarkFailed(ctx, tx, r.ID, err.Error(), p.maxAttempts); err != nil {
				return err
			}
			continue
		}
		metrics.OutboxDispatched.WithLabelValues(p.dispatcher.Name(), "ok").Inc()
		published = append(published, r.ID)
	}

	if err := p.repo.MarkPublished(ctx, tx, published); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// KafkaDispatcher publishes each record to the topic named after its event type.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

func NewKafkaDispatcher(brokers []string) *KafkaDispatcher {
	return &KafkaDispatcher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}}
}

func (d *KafkaDispatcher) Name() string { return "kafka" }

func (d *KafkaDispatcher) Dispatch(ctx context.Context, r Record) error {
	return d.writer.WriteMessages(ctx, recordMessage(ctx, r))
}

func (d *KafkaDispatcher) Close() error { return d.writer.Close() }

func recordMessage(ctx context.Context, r Record) kafka.Message {
	msg := kafkax.NewMessage(kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType}, r.AggregateID, r.Payload)
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return msg
}

// DirectDispatcher sends confirmation messages in-process. It backs
// deployments without a broker; other event types are acknowledged unchanged.
type DirectDispatcher struct {
	sender whatsapp.Sender
	logger *slog.Logger
}

func NewDirectDispatcher(sender whatsapp.Sender, logger *slog.Logger) *DirectDispatcher {
	return &DirectDispatcher{sender: sender, logger: logger}
}

func (d *DirectDispatcher) Name() string { return "direct:" + d.sender.ProviderID() }

func (d *DirectDispatcher) Dispatch(ctx context.Context, r Record) error {
	if r.EventType != EventAppointmentConfirmed {
		return nil
	}
	p, err := DecodeConfirmation(r.Payload)
	if err != nil {
		// A malformed payload never gets better; drop it.
		d.logger.Error("dropping malformed confirmation event", "event_id", r.EventID, "err", err)
		return nil
	}
	id, err := d.sender.Send(ctx, p.RecipientPhone, p.MessageText)
	if err != nil {
		return fmt.Errorf("send confirmation for %s: %w", p.AppointmentID, err)
	}
	d.logger.Info("confirmation sent", "appointment_id", p.AppointmentID, "provider", d.sender.ProviderID(), "message_id", id)
	return nil
}

func (d *DirectDispatcher) Close() error { return nil }
