package main

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"tickmatch/domain/orderbook"
	"tickmatch/infra/journal"
	"tickmatch/service"
)

// replayJournal prints every trade recorded under dir, prices rendered at
// scale, followed by a per-symbol count.
func replayJournal(dir string, scale int32, log *zap.Logger, out io.Writer) error {
	perSymbol := make(map[string]int)
	var order []string

	n, err := journal.Replay(dir, func(t orderbook.Trade) error {
		if perSymbol[t.Symbol] == 0 {
			order = append(order, t.Symbol)
		}
		perSymbol[t.Symbol]++
		_, err := fmt.Fprintf(out, "%s %s trade #%d buy=%d sell=%d %d @ %s\n",
			time.Unix(0, t.Time).UTC().Format(time.RFC3339Nano),
			t.Symbol, t.Seq, t.BuyOrderID, t.SellOrderID, t.Qty,
			service.FromTicks(t.Price, scale))
		return err
	})
	if err != nil {
		log.Error("replay stopped", zap.String("dir", dir), zap.Int("trades", n), zap.Error(err))
		return err
	}
	for _, sym := range order {
		fmt.Fprintf(out, "%s: %d trades\n", sym, perSymbol[sym])
	}
	log.Info("replay done", zap.String("dir", dir), zap.Int("trades", n))
	return nil
}
