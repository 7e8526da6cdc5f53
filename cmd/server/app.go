package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gotokenbridge/boltdb"
	"gotokenbridge/bridge"
	"gotokenbridge/chains"
	"gotokenbridge/config"
	"gotokenbridge/confirm"
	"gotokenbridge/mapping"
	"gotokenbridge/redis"
	"gotokenbridge/types"

	"github.com/hashicorp/go-hclog"
)

// Store is what both the redis and the bbolt backends provide.
type Store interface {
	bridge.OperationStore
	mapping.Cache
	GetMappings() ([]*types.AddressMapping, error)
	Close() error
}

var (
	_ Store = (*redis.Store)(nil)
	_ Store = (*boltdb.Store)(nil)
)

type app struct {
	cfg          *config.Configuration
	logger       hclog.Logger
	logFile      io.Closer
	chains       *chains.Registry
	store        Store
	resolver     *mapping.Resolver
	orchestrator *bridge.Orchestrator
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, logFile, err := newLogger(cfg, time.Now())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, logFile: logFile}

	a.store, err = openStore(cfg, logger)
	if err != nil {
		a.Close()

		return nil, err
	}

	a.chains, err = chains.Dial(cfg, logger)
	if err != nil {
		a.Close()

		return nil, fmt.Errorf("error connecting to chains: %w", err)
	}

	a.resolver = mapping.NewResolver(a.store, logger)
	a.orchestrator = bridge.NewOrchestrator(
		a.chains, a.store, a.resolver, confirm.NewWaiter(cfg.Bridge.MaxConfirmationWait, logger), logger)

	logger.Info("bridge ready", "source", cfg.Source.Name, "target", cfg.Target.Name, "store", cfg.Server.Store)

	return a, nil
}

func (a *app) Close() {
	if a.chains != nil {
		a.chains.Close()
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("error closing store", "err", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
}

func openStore(cfg *config.Configuration, logger hclog.Logger) (Store, error) {
	switch cfg.Server.Store {
	case "bolt":
		store, err := boltdb.New(cfg.Server.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("error opening bolt store: %w", err)
		}

		return store, nil
	case "redis":
		store := redis.New(cfg, logger)

		// without persistence do not continue
		if err := store.Ping(); err != nil {
			store.Close()

			return nil, fmt.Errorf("error connecting to redis: %w", err)
		}

		return store, nil
	}

	return nil, fmt.Errorf("unknown store %q", cfg.Server.Store)
}

// newLogger logs to stderr, or to a daily file logs/log_YYYY-MM-DD.txt under
// the configured directory.
func newLogger(cfg *config.Configuration, now time.Time) (hclog.Logger, io.Closer, error) {
	opts := &hclog.LoggerOptions{
		Name:       "gotokenbridge",
		Level:      hclog.LevelFromString(cfg.Log.Level),
		JSONFormat: cfg.Log.JSON,
		Output:     os.Stderr,
	}

	var file *os.File

	if cfg.Log.Dir != "" {
		if err := os.MkdirAll(cfg.Log.Dir, 0770); err != nil {
			return nil, nil, fmt.Errorf("error creating log directory: %w", err)
		}

		path := filepath.Join(cfg.Log.Dir, fmt.Sprintf("log_%s.txt", now.Format("2006-01-02")))

		var err error

		file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening log file for writing: %w", err)
		}

		opts.Output = file
	}

	if opts.Level == hclog.NoLevel {
		opts.Level = hclog.Info
	}

	logger := hclog.New(opts)

	if file == nil {
		return logger, nil, nil
	}

	return logger, file, nil
}

// commandContext is cancelled on SIGINT/SIGTERM or after timeout, if set.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)

	return ctx, func() {
		cancel()
		stop()
	}
}
