package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mykaresto/engine/pkg/idempotency"
	"github.com/mykaresto/engine/pkg/outbox"
	"github.com/mykaresto/engine/pkg/tracing"
)

// Consumer reads lifecycle events off Kafka and feeds the hub. The
// outbox relay delivers at least once, so duplicates are dropped via
// the redis marker before they reach clients.
type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	hub    *Hub
	idem   *idempotency.Store
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, hub *Hub, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		hub:    hub,
		idem:   idem,
		tracer: otel.Tracer("dashboard-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Debug("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		_, span := c.tracer.Start(msgCtx, "BroadcastNotification")

		var n outbox.Notification
		if err := json.Unmarshal(msg.Value, &n); err != nil {
			c.log.Error("unmarshal notification failed", "err", err)
			span.End()
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}
		c.hub.Publish(n)
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}
