package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"tickmatch/domain/orderbook"
)

// MaxPriceScale keeps 10^scale within int64.
const MaxPriceScale = 18

const (
	KafkaClientSarama  = "sarama"
	KafkaClientKafkaGo = "kafka-go"
)

// Config holds all application configuration
type Config struct {
	Engine  EngineConfig
	Logging LoggingConfig
	Journal JournalConfig
	Outbox  OutboxConfig
	Kafka   KafkaConfig
	Metrics MetricsConfig
}

// EngineConfig holds matching engine configuration
type EngineConfig struct {
	Symbols []string
	// PriceScale is the number of decimal places one tick represents.
	PriceScale int32
	Index      string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// JournalConfig enables the trade journal when Dir is set
type JournalConfig struct {
	Dir         string
	SegmentSize int64
}

// OutboxConfig enables the pebble trade outbox when Dir is set
type OutboxConfig struct {
	Dir string
}

// KafkaConfig holds trade publishing configuration
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Client            string
	BroadcastInterval time.Duration
}

// MetricsConfig serves /metrics when Addr is set
type MetricsConfig struct {
	Addr string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	// checked before narrowing so a huge value cannot wrap into range
	scale := getEnvInt("TICKMATCH_PRICE_SCALE", 2)
	if scale < 0 || scale > MaxPriceScale {
		return nil, errors.Newf("config: price scale %d out of range [0,%d]", scale, MaxPriceScale)
	}

	return &Config{
		Engine: EngineConfig{
			Symbols:    getEnvList("TICKMATCH_SYMBOLS", []string{"BTC-USD"}),
			PriceScale: int32(scale),
			Index:      getEnvString("TICKMATCH_INDEX", "rbtree"),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("TICKMATCH_LOG_LEVEL", "info"),
			Format: getEnvString("TICKMATCH_LOG_FORMAT", "console"),
		},
		Journal: JournalConfig{
			Dir:         getEnvString("TICKMATCH_JOURNAL_DIR", ""),
			SegmentSize: int64(getEnvInt("TICKMATCH_JOURNAL_SEGMENT_SIZE", 4<<20)),
		},
		Outbox: OutboxConfig{
			Dir: getEnvString("TICKMATCH_OUTBOX_DIR", ""),
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvList("TICKMATCH_KAFKA_BROKERS", nil),
			Topic:             getEnvString("TICKMATCH_KAFKA_TOPIC", "trades"),
			Client:            getEnvString("TICKMATCH_KAFKA_CLIENT", KafkaClientSarama),
			BroadcastInterval: getEnvDuration("TICKMATCH_BROADCAST_INTERVAL", 250*time.Millisecond),
		},
		Metrics: MetricsConfig{
			Addr: getEnvString("TICKMATCH_METRICS_ADDR", ""),
		},
	}, nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Engine.Symbols) == 0 {
		return errors.New("config: no symbols")
	}
	seen := make(map[string]bool, len(c.Engine.Symbols))
	for _, s := range c.Engine.Symbols {
		if seen[s] {
			return errors.Newf("config: duplicate symbol %q", s)
		}
		seen[s] = true
	}
	if c.Engine.PriceScale < 0 || c.Engine.PriceScale > MaxPriceScale {
		return errors.Newf("config: price scale %d out of range [0,%d]", c.Engine.PriceScale, MaxPriceScale)
	}
	if _, err := orderbook.ParseIndexKind(c.Engine.Index); err != nil {
		return errors.Wrap(err, "config")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return errors.Newf("config: unknown log format %q", c.Logging.Format)
	}

	if c.Journal.Dir != "" && c.Journal.SegmentSize <= 0 {
		return errors.Newf("config: invalid journal segment size %d", c.Journal.SegmentSize)
	}

	if len(c.Kafka.Brokers) > 0 {
		if c.Kafka.Topic == "" {
			return errors.New("config: kafka topic required")
		}
		switch c.Kafka.Client {
		case KafkaClientSarama:
			if c.Outbox.Dir == "" {
				return errors.New("config: sarama broadcaster needs an outbox dir")
			}
			if c.Kafka.BroadcastInterval <= 0 {
				return errors.Newf("config: invalid broadcast interval %s", c.Kafka.BroadcastInterval)
			}
		case KafkaClientKafkaGo:
		default:
			return errors.Newf("config: unknown kafka client %q", c.Kafka.Client)
		}
	}
	return nil
}

// String returns a short summary for startup logs
func (c *Config) String() string {
	return fmt.Sprintf(
		"Engine{Symbols:%v, Scale:%d, Index:%s}, Journal{%q}, Outbox{%q}, Kafka{Brokers:%v, Client:%s}",
		c.Engine.Symbols, c.Engine.PriceScale, c.Engine.Index,
		c.Journal.Dir, c.Outbox.Dir, c.Kafka.Brokers, c.Kafka.Client,
	)
}
