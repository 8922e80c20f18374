package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tickmatch/config"
	"tickmatch/infra/logging"
)

func main() {
	replayDir := flag.String("replay", "", "print the trades journaled under `dir` and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-replay dir] [script]\n\nReads commands from script, or stdin when omitted.\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.Stringer("config", cfg))

	if *replayDir != "" {
		if err := replayJournal(*replayDir, cfg.Engine.PriceScale, log, os.Stdout); err != nil {
			_ = log.Sync()
			os.Exit(1)
		}
		return
	}

	// ---------------- Input ----------------

	var in io.Reader = os.Stdin
	if path := flag.Arg(0); path != "" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatal("open script", zap.String("path", path), zap.Error(err))
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, in, os.Stdout); err != nil {
		log.Error("exited with error", zap.Error(err))
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("bye")
}
