// Package outbox stores executed trades in pebble until the broadcaster
// has delivered them to Kafka. Only trades are kept; book state is never
// written here.
package outbox

import (
	"encoding/binary"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"tickmatch/domain/orderbook"
	"tickmatch/infra/codec"
)

var ErrNotFound = errors.New("outbox: entry not found")

type Outbox struct {
	db  *pebble.DB
	run uint32
	log *zap.Logger
	now func() time.Time
}

// Open claims the next run number, persisted in the database, so trades of
// this process never overwrite undelivered trades of an earlier one.
func Open(dir string, log *zap.Logger) (*Outbox, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "outbox: open")
	}
	run, err := nextRun(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	o := &Outbox{db: db, run: run, log: log.Named("outbox"), now: time.Now}
	o.log.Info("opened", zap.String("dir", dir), zap.Uint32("run", run))
	return o, nil
}

func nextRun(db *pebble.DB) (uint32, error) {
	var run uint32
	val, closer, err := db.Get(runKey)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		return 0, errors.Wrap(err, "outbox: read run")
	default:
		if len(val) != 4 {
			_ = closer.Close()
			return 0, errors.Newf("outbox: run marker of %d bytes", len(val))
		}
		run = binary.BigEndian.Uint32(val)
		_ = closer.Close()
	}
	run++
	if err := db.Set(runKey, binary.BigEndian.AppendUint32(nil, run), pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "outbox: write run")
	}
	return run, nil
}

func (o *Outbox) Close() error {
	return errors.Wrap(o.db.Close(), "outbox: close")
}

// Run is the run number this process writes under.
func (o *Outbox) Run() uint32 { return o.run }

// Ref addresses a trade of the current run.
func (o *Outbox) Ref(symbol string, seq uint64) Ref {
	return Ref{Symbol: symbol, Run: o.run, Seq: seq}
}

// -------------------- Writes --------------------

// Put records trades as NEW in one synced batch.
func (o *Outbox) Put(trades ...orderbook.Trade) error {
	b := o.db.NewBatch()
	defer b.Close()

	for _, t := range trades {
		v := encodeValue(Entry{State: StateNew, Payload: codec.EncodeTrade(t)})
		if err := b.Set(keyFor(o.Ref(t.Symbol, t.Seq)), v, nil); err != nil {
			return errors.Wrap(err, "outbox: put")
		}
	}
	return errors.Wrap(b.Commit(pebble.Sync), "outbox: commit")
}

// Publish makes the outbox a trade sink.
func (o *Outbox) Publish(trades []orderbook.Trade) {
	if len(trades) == 0 {
		return
	}
	if err := o.Put(trades...); err != nil {
		o.log.Error("put failed",
			zap.String("symbol", trades[0].Symbol),
			zap.Uint64("trade_seq", trades[0].Seq),
			zap.Int("trades", len(trades)),
			zap.Error(err))
	}
}

// Mark moves an entry to state and stamps the attempt time.
func (o *Outbox) Mark(r Ref, state State, retries uint32) error {
	e, err := o.Get(r)
	if err != nil {
		return err
	}
	e.State = state
	e.Retries = retries
	e.LastAttempt = o.now().UnixNano()
	return errors.Wrap(o.db.Set(keyFor(r), encodeValue(e), pebble.Sync), "outbox: mark")
}

// DeleteAcked drops every ACKED entry and returns how many it removed.
func (o *Outbox) DeleteAcked() (int, error) {
	b := o.db.NewBatch()
	defer b.Close()

	n := 0
	err := o.ScanState(StateAcked, func(e Entry) error {
		n++
		return b.Delete(keyFor(e.Ref), nil)
	})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "outbox: delete acked")
	}
	return n, nil
}

// -------------------- Reads --------------------

func (o *Outbox) Get(r Ref) (Entry, error) {
	val, closer, err := o.db.Get(keyFor(r))
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, errors.Wrapf(ErrNotFound, "%s/%d/%d", r.Symbol, r.Run, r.Seq)
	}
	if err != nil {
		return Entry{}, errors.Wrap(err, "outbox: get")
	}
	defer closer.Close()

	e := Entry{Ref: r}
	return e, decodeValue(val, &e)
}

// ScanPending visits NEW and SENT entries, symbol by symbol, oldest run
// first and in sequence order within a run.
func (o *Outbox) ScanPending(fn func(Entry) error) error {
	return o.scan(func(s State) bool { return s.Pending() }, fn)
}

func (o *Outbox) ScanState(state State, fn func(Entry) error) error {
	return o.scan(func(s State) bool { return s == state }, fn)
}

func (o *Outbox) scan(match func(State) bool, fn func(Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: keyUpper,
	})
	if err != nil {
		return errors.Wrap(err, "outbox: iterate")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) == 0 || !match(State(val[0])) {
			continue
		}

		var e Entry
		if e.Ref, err = parseKey(iter.Key()); err != nil {
			return err
		}
		if err := decodeValue(val, &e); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return errors.Wrap(iter.Error(), "outbox: iterate")
}
