// Package journal is an append-only, segmented log of executed trades.
//
// Each frame is [len:4][crc:4][payload] with big-endian integers and an
// IEEE CRC-32 of the payload. Payloads are codec-encoded trades; an empty
// payload marks the start of a run, since trade sequences restart with
// every fresh book. Segments rotate once they reach the configured size.
package journal

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"tickmatch/domain/orderbook"
	"tickmatch/infra/codec"
)

const (
	headerSize         = 8
	maxFrameSize       = 1 << 20
	DefaultSegmentSize = 4 << 20
)

type Config struct {
	Dir         string
	SegmentSize int64
	// SyncOnWrite fsyncs after every published batch.
	SyncOnWrite bool
}

type Journal struct {
	mu       sync.Mutex
	dir      string
	segSize  int64
	syncEach bool
	current  *segment
	segIndex int
	buf      []byte
	log      *zap.Logger
}

// Open starts a new segment after any existing ones and writes a run
// marker into it.
func Open(cfg Config, log *zap.Logger) (*Journal, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = DefaultSegmentSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "journal: create dir")
	}

	files, err := segments(cfg.Dir)
	if err != nil {
		return nil, err
	}
	next := 0
	if len(files) > 0 {
		last, err := segmentIndex(files[len(files)-1])
		if err != nil {
			return nil, err
		}
		next = last + 1
	}

	seg, err := openSegment(cfg.Dir, next)
	if err != nil {
		return nil, err
	}
	j := &Journal{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		syncEach: cfg.SyncOnWrite,
		current:  seg,
		segIndex: next,
		log:      log.Named("journal"),
	}
	if err := j.write(nil); err != nil {
		_ = seg.close()
		return nil, err
	}
	j.log.Info("opened", zap.String("dir", cfg.Dir), zap.Int("segment", next))
	return j, nil
}

// Append writes trades in order and rotates when the segment is full.
func (j *Journal) Append(trades ...orderbook.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.current == nil {
		return errors.New("journal: closed")
	}
	for _, t := range trades {
		if err := j.write(codec.EncodeTrade(t)); err != nil {
			return err
		}
	}
	if j.syncEach {
		if err := j.current.sync(); err != nil {
			return errors.Wrap(err, "journal: sync")
		}
	}
	return nil
}

// Publish makes the journal a trade sink. Write failures are logged; the
// book never sees them.
func (j *Journal) Publish(trades []orderbook.Trade) {
	if len(trades) == 0 {
		return
	}
	if err := j.Append(trades...); err != nil {
		j.log.Error("append failed",
			zap.String("symbol", trades[0].Symbol),
			zap.Uint64("trade_seq", trades[0].Seq),
			zap.Error(err))
	}
}

func (j *Journal) write(payload []byte) error {
	j.buf = j.buf[:0]
	j.buf = binary.BigEndian.AppendUint32(j.buf, uint32(len(payload)))
	j.buf = binary.BigEndian.AppendUint32(j.buf, crc32.ChecksumIEEE(payload))
	j.buf = append(j.buf, payload...)

	if err := j.current.append(j.buf); err != nil {
		return errors.Wrap(err, "journal: write")
	}
	if j.current.offset >= j.segSize {
		return j.rotate()
	}
	return nil
}

func (j *Journal) rotate() error {
	if err := j.current.sync(); err != nil {
		return errors.Wrap(err, "journal: sync")
	}
	_ = j.current.close()
	j.segIndex++

	seg, err := openSegment(j.dir, j.segIndex)
	if err != nil {
		j.current = nil
		return err
	}
	j.current = seg
	j.log.Debug("rotated", zap.Int("segment", j.segIndex))
	return nil
}

func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.current == nil {
		return nil
	}
	return errors.Wrap(j.current.sync(), "journal: sync")
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.current == nil {
		return nil
	}
	err := j.current.sync()
	if cerr := j.current.close(); err == nil {
		err = cerr
	}
	j.current = nil
	return errors.Wrap(err, "journal: close")
}
