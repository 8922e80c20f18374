package outbox

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Pending reports whether the entry still has to reach the broker.
func (s State) Pending() bool { return s == StateNew || s == StateSent }

// -------------------- Entry --------------------

// Ref addresses one trade. Run tells apart the trade sequences of
// successive processes, which all start again at 1.
type Ref struct {
	Symbol string
	Run    uint32
	Seq    uint64
}

type Entry struct {
	Ref
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const valueHeader = 1 + 4 + 8

// value layout: [state:1][retries:4][lastAttempt:8][payload]
func encodeValue(e Entry) []byte {
	buf := make([]byte, valueHeader, valueHeader+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	return append(buf, e.Payload...)
}

// decodeValue copies the payload; pebble reuses value buffers.
func decodeValue(b []byte, e *Entry) error {
	if len(b) < valueHeader {
		return errors.Newf("outbox: value of %d bytes", len(b))
	}
	e.State = State(b[0])
	e.Retries = binary.BigEndian.Uint32(b[1:5])
	e.LastAttempt = int64(binary.BigEndian.Uint64(b[5:13]))
	e.Payload = bytes.Clone(b[valueHeader:])
	return nil
}

// -------------------- Keys --------------------

var (
	keyPrefix = []byte("trade/")
	keyUpper  = []byte("trade0") // '0' sorts right after '/'
	runKey    = []byte("meta/run")
)

// keyFor lays out trade/<symbol>/<run>/<seq>, so a scan yields each
// symbol's trades run by run in sequence order.
func keyFor(r Ref) []byte {
	return []byte(fmt.Sprintf("trade/%s/%010d/%020d", r.Symbol, r.Run, r.Seq))
}

func parseKey(k []byte) (Ref, error) {
	rest := bytes.TrimPrefix(k, keyPrefix)
	i := bytes.LastIndexByte(rest, '/')
	if i < 0 {
		return Ref{}, errors.Newf("outbox: bad key %q", k)
	}
	seq, err := strconv.ParseUint(string(rest[i+1:]), 10, 64)
	if err != nil {
		return Ref{}, errors.Wrapf(err, "outbox: bad key %q", k)
	}
	rest = rest[:i]
	i = bytes.LastIndexByte(rest, '/')
	if i < 0 {
		return Ref{}, errors.Newf("outbox: bad key %q", k)
	}
	run, err := strconv.ParseUint(string(rest[i+1:]), 10, 32)
	if err != nil {
		return Ref{}, errors.Wrapf(err, "outbox: bad key %q", k)
	}
	return Ref{Symbol: string(rest[:i]), Run: uint32(run), Seq: seq}, nil
}
