package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tickmatch/config"
	"tickmatch/domain/orderbook"
	"tickmatch/infra/journal"
	"tickmatch/infra/outbox"
)

const script = `
# two resting asks, one sweeping bid
add BTC-USD sell 100.00 5
add BTC-USD sell 101.00 5
add BTC-USD buy 101.00 7
cancel BTC-USD 1
add BTC-USD buy 1.005 1
book BTC-USD
`

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Engine:  config.EngineConfig{Symbols: []string{"BTC-USD"}, PriceScale: 2, Index: "btree"},
		Logging: config.LoggingConfig{Level: "debug", Format: "console"},
		Journal: config.JournalConfig{Dir: filepath.Join(dir, "journal"), SegmentSize: 1 << 20},
		Outbox:  config.OutboxConfig{Dir: filepath.Join(dir, "outbox")},
	}
}

func TestRunScript(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	err := run(context.Background(), cfg, zaptest.NewLogger(t), strings.NewReader(script), &out)
	require.NoError(t, err)

	lines := out.String()
	assert.Contains(t, lines, "trade #1 buy=3 sell=1 5 @ 100.00")
	assert.Contains(t, lines, "trade #2 buy=3 sell=2 2 @ 101.00")
	assert.Contains(t, lines, "cancel id=1: not found")
	assert.Contains(t, lines, "line 7: error:")
	assert.Contains(t, lines, "ask 101.00 x 3 (1)")

	var journaled []orderbook.Trade
	_, err = journal.Replay(cfg.Journal.Dir, func(tr orderbook.Trade) error {
		journaled = append(journaled, tr)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, journaled, 2)
	assert.Equal(t, int64(10000), journaled[0].Price)

	ob, err := outbox.Open(cfg.Outbox.Dir, nil)
	require.NoError(t, err)
	defer ob.Close()
	n := 0
	require.NoError(t, ob.ScanPending(func(outbox.Entry) error { n++; return nil }))
	assert.Equal(t, 2, n)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	// a reader that never delivers anything
	block := make(chan struct{})
	defer close(block)

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, zaptest.NewLogger(t), blockingReader(block), &bytes.Buffer{})
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

type blockingReader chan struct{}

func (b blockingReader) Read([]byte) (int, error) {
	<-b
	return 0, context.Canceled
}

func TestReplayJournal(t *testing.T) {
	cfg := testConfig(t)
	err := run(context.Background(), cfg, zaptest.NewLogger(t), strings.NewReader(script), &bytes.Buffer{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, replayJournal(cfg.Journal.Dir, cfg.Engine.PriceScale, zaptest.NewLogger(t), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "BTC-USD trade #1 buy=3 sell=1 5 @ 100.00"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "BTC-USD trade #2 buy=3 sell=2 2 @ 101.00"), lines[1])
	assert.Equal(t, "BTC-USD: 2 trades", lines[2])
}

func TestReplayJournalMissingDir(t *testing.T) {
	var out bytes.Buffer
	err := replayJournal(filepath.Join(t.TempDir(), "absent"), 2, zaptest.NewLogger(t), &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())
}
