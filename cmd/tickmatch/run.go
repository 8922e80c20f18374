package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"tickmatch/config"
	"tickmatch/domain/orderbook"
	"tickmatch/infra/journal"
	"tickmatch/infra/kafka"
	"tickmatch/infra/metrics"
	"tickmatch/infra/outbox"
	"tickmatch/jobs/broadcaster"
	"tickmatch/service"
)

// run wires every component from cfg, applies the commands read from in
// and tears everything down when in is exhausted or ctx is canceled.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger, in io.Reader, out io.Writer) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		sinks   orderbook.MultiSink
		closers []func() error
	)
	defer func() {
		cancel()
		wg.Wait()
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				log.Warn("close failed", zap.Error(cerr))
				if err == nil {
					err = cerr
				}
			}
		}
	}()

	m := metrics.New()

	// ---------------- Trade sinks ----------------

	if cfg.Journal.Dir != "" {
		j, err := journal.Open(journal.Config{Dir: cfg.Journal.Dir, SegmentSize: cfg.Journal.SegmentSize}, log)
		if err != nil {
			return err
		}
		sinks = append(sinks, j)
		closers = append(closers, j.Close)
	}

	var ob *outbox.Outbox
	if cfg.Outbox.Dir != "" {
		ob, err = outbox.Open(cfg.Outbox.Dir, log)
		if err != nil {
			return err
		}
		sinks = append(sinks, ob)
		closers = append(closers, ob.Close)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		switch cfg.Kafka.Client {
		case config.KafkaClientKafkaGo:
			p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
			sinks = append(sinks, p)
			closers = append(closers, p.Close)

		case config.KafkaClientSarama:
			producer, err := broadcaster.NewSyncProducer(cfg.Kafka.Brokers)
			if err != nil {
				return err
			}
			bc := broadcaster.New(ob, producer, broadcaster.Config{
				Topic:    cfg.Kafka.Topic,
				Interval: cfg.Kafka.BroadcastInterval,
			}, log)
			// closed before the outbox it drains
			closers = append(closers, bc.Close)
			wg.Add(1)
			go func() {
				defer wg.Done()
				bc.Run(ctx)
			}()
		}
	}

	// ---------------- Metrics ----------------

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
		log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
	}

	// ---------------- Exchange ----------------

	index, err := orderbook.ParseIndexKind(cfg.Engine.Index)
	if err != nil {
		return err
	}
	opts := service.Options{
		Symbols:    cfg.Engine.Symbols,
		Index:      index,
		PriceScale: cfg.Engine.PriceScale,
		Logger:     log,
		Metrics:    m,
	}
	if len(sinks) > 0 {
		opts.Sink = sinks
	}
	ex, err := service.NewExchange(opts)
	if err != nil {
		return err
	}

	return serve(ctx, ex, log, in, out)
}

// serve applies one command per input line. Bad commands are reported on
// out and skipped.
func serve(ctx context.Context, ex *service.Exchange, log *zap.Logger, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	n := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("interrupted", zap.Int("lines", n))
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return errors.Wrap(err, "read commands")
					}
				default:
				}
				log.Info("input exhausted", zap.Int("lines", n))
				return nil
			}
			n++

			cmd, err := service.ParseCommand(line)
			if errors.Is(err, service.ErrEmptyCommand) {
				continue
			}
			if err == nil {
				var res service.Outcome
				if res, err = ex.Apply(cmd); err == nil {
					fmt.Fprintln(out, ex.Format(res))
					continue
				}
			}
			fmt.Fprintf(out, "line %d: error: %v\n", n, err)
		}
	}
}
