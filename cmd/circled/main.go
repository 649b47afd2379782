// circled is the single-writer driver daemon: it persists circle states in
// pebble and applies one operation per HTTP request, verifying every
// transition before committing it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CirclePool/internal/api"
	"CirclePool/internal/logger"
	"CirclePool/internal/store"
)

func main() {
	cfg := parseFlags()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger.Init(level)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(cfg *Config) error {
	st, err := store.Open(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("open store:\n%w", err)
	}
	defer st.Close()

	ids, err := st.ListCircles()
	if err != nil {
		return fmt.Errorf("list circles:\n%w", err)
	}

	logger.Info("starting circled",
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"circles", len(ids),
	)

	srv := api.New(cfg.HTTPAddress, st)
	srv.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Stop(ctx)
}
