package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"bsid.es/despertador"
	"bsid.es/despertador/bolt"
	"bsid.es/despertador/internal/config"
	"bsid.es/despertador/internal/logger"
	"bsid.es/despertador/mem"
	"bsid.es/despertador/sqlite"
)

// env is an initialized alarm manager plus everything it was built from.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	manager *despertador.Manager
	closers []io.Closer
}

// setup loads configuration, opens the configured storage and initializes
// the alarm manager from it.
func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	log, logCloser := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	e := &env{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	settings, closer, err := openSettings(cfg.Storage)
	if err != nil {
		e.Close()
		return nil, err
	}
	if closer != nil {
		e.closers = append(e.closers, closer)
	}
	log.Debug("storage opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	m := despertador.NewManager(settings)
	m.Logger = log
	if err := m.Init(); err != nil {
		e.Close()
		return nil, fmt.Errorf("init alarms: %w", err)
	}
	e.manager = m
	return e, nil
}

func (e *env) Close() error {
	if e.manager != nil {
		e.manager.Close()
	}
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	return errors.Join(errs...)
}

// openSettings opens the settings backend named by cfg.Driver. The closer is
// nil for backends that hold no resources.
func openSettings(cfg config.StorageConfig) (despertador.Settings, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverBolt:
		s, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverMemory:
		return mem.NewSettings(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// withManager runs f against a freshly initialized manager and releases it.
func withManager(f func(m *despertador.Manager) error) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	return f(e.manager)
}
