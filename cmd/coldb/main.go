package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"colDB/internal/config"
	"colDB/internal/engine"
	"colDB/internal/logging"
	"colDB/internal/metrics"
	"colDB/internal/storage/memstore"
	"colDB/internal/storage/wal"

	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
	log        *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "coldb",
	Short:         "colDB columnar insert engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log = logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
	rootCmd.AddCommand(demoCmd, execCmd, tablesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// openEngine builds the storage engine from cfg and starts a DBEngine on it.
// The returned func closes the storage and the metrics server.
func openEngine() (*engine.DBEngine, func(), error) {
	opts := []memstore.Option{
		memstore.WithAcquireTimeout(cfg.Writer.Timeout),
		memstore.WithLogger(log),
	}

	var store *memstore.Engine
	if cfg.Storage.Dir == "" {
		store = memstore.New(opts...)
		log.Debug("using in-memory storage")
	} else {
		j, err := wal.Open(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		store, err = memstore.Open(j, opts...)
		if err != nil {
			j.Close()
			return nil, nil, err
		}
		log.Info("journal opened", "path", j.Path())
	}

	eng := engine.New(store, engine.WithLogger(log))
	if err := eng.Start(); err != nil {
		store.Close()
		return nil, nil, err
	}

	stopMetrics := serveMetrics(cfg.Metrics.Addr)
	closeFn := func() {
		stopMetrics()
		if err := store.Close(); err != nil {
			log.Warn("storage close failed", "error", err)
		}
	}
	return eng, closeFn, nil
}

// serveMetrics exposes /metrics on addr until the returned func is called.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
