// Package broadcaster drains the trade outbox into Kafka through a sarama
// SyncProducer. Entries are marked SENT before the attempt and ACKED after
// the broker confirms, so a crash in between only causes a resend.
package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"tickmatch/infra/outbox"
)

const (
	DefaultInterval   = 250 * time.Millisecond
	DefaultMaxRetries = 5
)

type Config struct {
	Topic      string
	Interval   time.Duration
	MaxRetries uint32
}

type Broadcaster struct {
	outbox     *outbox.Outbox
	producer   sarama.SyncProducer
	topic      string
	interval   time.Duration
	maxRetries uint32
	log        *zap.Logger
}

// Stats summarises one pass over the outbox.
type Stats struct {
	Acked  int
	Failed int
	Pruned int
}

// NewSyncProducer dials brokers with acks from all in-sync replicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "broadcaster: producer")
	}
	return p, nil
}

func New(ob *outbox.Outbox, producer sarama.SyncProducer, cfg Config, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Broadcaster{
		outbox:     ob,
		producer:   producer,
		topic:      cfg.Topic,
		interval:   cfg.Interval,
		maxRetries: cfg.MaxRetries,
		log:        log.Named("broadcaster"),
	}
}

// Run replays the outbox every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("started", zap.Duration("interval", b.interval), zap.String("topic", b.topic))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// one last pass so a clean shutdown leaves nothing behind
			if _, err := b.RunOnce(); err != nil {
				b.log.Warn("final pass failed", zap.Error(err))
			}
			b.log.Info("stopped")
			return
		case <-ticker.C:
			if _, err := b.RunOnce(); err != nil {
				b.log.Warn("pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce publishes every pending entry in sequence order. A failed send
// holds back the rest of that symbol until the next pass, keeping each
// symbol's trades in order on the topic.
func (b *Broadcaster) RunOnce() (Stats, error) {
	var pending []outbox.Entry
	if err := b.outbox.ScanPending(func(e outbox.Entry) error {
		pending = append(pending, e)
		return nil
	}); err != nil {
		return Stats{}, err
	}

	var st Stats
	blocked := make(map[string]bool)
	for _, e := range pending {
		if blocked[e.Symbol] {
			continue
		}
		if err := b.outbox.Mark(e.Ref, outbox.StateSent, e.Retries); err != nil {
			return st, err
		}

		_, _, err := b.producer.SendMessage(&sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(e.Symbol),
			Value: sarama.ByteEncoder(e.Payload),
		})
		if err == nil {
			if err := b.outbox.Mark(e.Ref, outbox.StateAcked, e.Retries); err != nil {
				return st, err
			}
			st.Acked++
			continue
		}

		retries := e.Retries + 1
		log := b.log.With(zap.String("symbol", e.Symbol), zap.Uint32("run", e.Run), zap.Uint64("trade_seq", e.Seq), zap.Uint32("retries", retries))
		if retries >= b.maxRetries {
			log.Error("giving up on trade", zap.Error(err))
			if err := b.outbox.Mark(e.Ref, outbox.StateFailed, retries); err != nil {
				return st, err
			}
			st.Failed++
			continue
		}
		log.Warn("send failed, will retry", zap.Error(err))
		if err := b.outbox.Mark(e.Ref, outbox.StateSent, retries); err != nil {
			return st, err
		}
		blocked[e.Symbol] = true
	}

	n, err := b.outbox.DeleteAcked()
	st.Pruned = n
	return st, err
}

func (b *Broadcaster) Close() error {
	return errors.Wrap(b.producer.Close(), "broadcaster: close")
}
