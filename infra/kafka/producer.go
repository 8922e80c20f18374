// Package kafka publishes trades straight to a Kafka topic with
// segmentio/kafka-go, without going through the outbox.
package kafka

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tickmatch/domain/orderbook"
	"tickmatch/infra/codec"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer  messageWriter
	log     *zap.Logger
	timeout time.Duration
}

// NewProducer builds an async writer; delivery failures surface through
// the completion callback and are logged.
func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("kafka")
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error("delivery failed", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
	return newProducer(w, log)
}

func newProducer(w messageWriter, log *zap.Logger) *Producer {
	return &Producer{writer: w, log: log, timeout: time.Second}
}

// Send writes trades keyed by symbol so each symbol stays on one partition.
func (p *Producer) Send(ctx context.Context, trades ...orderbook.Trade) error {
	msgs := make([]kafka.Message, len(trades))
	for i, t := range trades {
		msgs[i] = kafka.Message{
			Key:   codec.Key(t),
			Value: codec.EncodeTrade(t),
			Time:  time.Unix(0, t.Time),
		}
	}
	return errors.Wrap(p.writer.WriteMessages(ctx, msgs...), "kafka: write")
}

// Publish makes the producer a trade sink.
func (p *Producer) Publish(trades []orderbook.Trade) {
	if len(trades) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.Send(ctx, trades...); err != nil {
		p.log.Error("publish failed",
			zap.String("symbol", trades[0].Symbol),
			zap.Uint64("trade_seq", trades[0].Seq),
			zap.Error(err))
	}
}

func (p *Producer) Close() error {
	return errors.Wrap(p.writer.Close(), "kafka: close")
}
