package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/config"
	"github.com/llehouerou/shelves/internal/logging"
	"github.com/llehouerou/shelves/internal/reconcile"
	"github.com/llehouerou/shelves/internal/store"
)

// sourceFunc builds the catalog a command reconciles against.
type sourceFunc func(cfg *config.Config, log *zap.Logger) catalog.Source

func dirSource(cfg *config.Config, log *zap.Logger) catalog.Source {
	return catalog.NewDirSource(cfg.LibrarySources, log)
}

type commandContext struct {
	configFlag *string
	newSource  sourceFunc

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     *zap.Logger
	logErr  error
}

func newCommandContext(configFlag *string, newSource sourceFunc) *commandContext {
	if newSource == nil {
		newSource = dirSource
	}
	return &commandContext{
		configFlag: configFlag,
		newSource:  newSource,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*zap.Logger, error) {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logErr = err
			return
		}
		c.log, c.logErr = logging.New(cfg.GetLogConfig())
	})
	return c.log, c.logErr
}

func (c *commandContext) syncLogger() {
	if c.log != nil {
		_ = c.log.Sync()
	}
}

// withStore opens the library store for the duration of fn.
func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log, err := c.logger()
	if err != nil {
		return err
	}
	path, err := cfg.GetDBPath()
	if err != nil {
		return fmt.Errorf("resolve store path: %w", err)
	}
	st, err := store.Open(path, log)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("%w; is `shelves watch` running?", err)
		}
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("closing store failed", zap.Error(err))
		}
	}()
	return fn(st)
}

// newDriver builds a driver over the configured catalog. onPassError may be
// nil.
func (c *commandContext) newDriver(st *store.Store, onPassError func(error)) (*reconcile.Driver, catalog.Source, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := c.logger()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.HasLibrarySources() {
		log.Warn("no library_sources configured")
	}
	source := c.newSource(cfg, log)
	d := reconcile.NewDriver(source, st, log, reconcile.Options{
		UnknownArtist: cfg.GetUnknownArtist(),
		Collation:     cfg.GetCollation(),
		OnPassError:   onPassError,
	})
	return d, source, nil
}
