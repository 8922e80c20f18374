package journal

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"tickmatch/domain/orderbook"
	"tickmatch/infra/codec"
)

var (
	ErrCorrupt    = errors.New("journal: corrupt frame")
	ErrOutOfOrder = errors.New("journal: non-monotonic trade sequence")
)

type ReplayHandler func(orderbook.Trade) error

// Replay feeds every journaled trade of dir to fn in write order and
// returns how many it delivered. Within a run, trade sequences must rise
// strictly per symbol. A frame cut short at the very end of the last
// segment is treated as the end of the journal.
func Replay(dir string, fn ReplayHandler) (int, error) {
	files, err := segments(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	last := make(map[string]uint64)
	for i, path := range files {
		tail := i == len(files)-1
		err := replaySegment(path, tail, func(payload []byte) error {
			if len(payload) == 0 {
				clear(last)
				return nil
			}
			t, err := codec.DecodeTrade(payload)
			if err != nil {
				return errors.Wrapf(err, "journal: %s", path)
			}
			if prev, ok := last[t.Symbol]; ok && t.Seq <= prev {
				return errors.Wrapf(ErrOutOfOrder, "%s: %s seq %d after %d", path, t.Symbol, t.Seq, prev)
			}
			last[t.Symbol] = t.Seq
			if err := fn(t); err != nil {
				return err
			}
			n++
			return nil
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func replaySegment(path string, tail bool, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "journal: open segment")
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header := make([]byte, headerSize)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF || (tail && err == io.ErrUnexpectedEOF) {
				return nil
			}
			return errors.Wrapf(ErrCorrupt, "%s: short header", path)
		}
		size := binary.BigEndian.Uint32(header[0:4])
		sum := binary.BigEndian.Uint32(header[4:8])
		if size > maxFrameSize {
			return errors.Wrapf(ErrCorrupt, "%s: frame of %d bytes", path, size)
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			if tail && (err == io.EOF || err == io.ErrUnexpectedEOF) {
				return nil
			}
			return errors.Wrapf(ErrCorrupt, "%s: short payload", path)
		}
		if crc32.ChecksumIEEE(payload) != sum {
			return errors.Wrapf(ErrCorrupt, "%s: crc mismatch", path)
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
}
