// Package app wires together configuration, logging, the dataset catalog,
// the fetcher and the load pipeline into a single Deps struct that commands
// receive at runtime.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yellowduckie/duckline/internal/catalog"
	"github.com/yellowduckie/duckline/internal/config"
	"github.com/yellowduckie/duckline/internal/logger"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/pipeline"
	"github.com/yellowduckie/duckline/internal/source"
	"github.com/yellowduckie/duckline/internal/store"
	"github.com/yellowduckie/duckline/internal/transform"
)

// Deps holds all runtime dependencies injected into command Run functions.
type Deps struct {
	Config   *config.Config
	Log      *logrus.Logger
	Catalog  *catalog.Catalog
	Fetcher  *source.Fetcher
	Pipeline *pipeline.Pipeline
}

// New builds a Deps from resolved config. The logger is built from the
// config unless log is non-nil.
func New(cfg *config.Config, log *logrus.Logger) (*Deps, error) {
	if log == nil {
		var err error
		log, err = logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
		if err != nil {
			return nil, err
		}
	}
	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	fetcher := source.NewFetcher(source.Options{
		DataDir:    cfg.DataDir,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		RatePerSec: cfg.Rate,
		Retries:    cfg.Retries,
		Logger:     log,
	})
	return &Deps{
		Config:   cfg,
		Log:      log,
		Catalog:  cat,
		Fetcher:  fetcher,
		Pipeline: pipeline.New(fetcher, pipeline.Options{Concurrency: cfg.Concurrency, Logger: log}),
	}, nil
}

// Datasets resolves names against the catalog. No names means every dataset.
func (d *Deps) Datasets(names ...string) ([]catalog.Dataset, error) {
	if len(names) == 0 {
		return d.Catalog.Datasets, nil
	}
	return d.Catalog.Lookup(names...)
}

// Load runs one pipeline load over the named datasets (all when empty).
func (d *Deps) Load(ctx context.Context, names ...string) (*pipeline.Snapshot, error) {
	ds, err := d.Datasets(names...)
	if err != nil {
		return nil, err
	}
	return d.Pipeline.Load(ctx, ds...)
}

// Window parses name, falling back to the configured default when empty.
func (d *Deps) Window(name string) (transform.Window, error) {
	if name == "" {
		name = d.Config.Window
	}
	return transform.ParseWindow(name)
}

// Windowed applies window w against the configured clock.
func (d *Deps) Windowed(s model.Series, w transform.Window) model.Series {
	return transform.FilterWindow(s, w, d.Config.Clock())
}

// OpenStore opens the bbolt store at the configured path.
// Callers must Close it.
func (d *Deps) OpenStore() (*store.Store, error) {
	st, err := store.Open(d.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store (is another duckline running?): %w", err)
	}
	return st, nil
}

// SaveSnapshot writes every series of snap to the store as the last-good copy.
func (d *Deps) SaveSnapshot(snap *pipeline.Snapshot) error {
	st, err := d.OpenStore()
	if err != nil {
		return err
	}
	defer st.Close()
	rec := store.LoadRecord{ID: snap.ID, LoadedAt: snap.LoadedAt, Rejected: snap.Rejected()}
	if err := st.SaveLoad(rec, snap.Series); err != nil {
		return fmt.Errorf("saving load %s: %w", snap.ID, err)
	}
	logger.Component(d.Log, "store").WithFields(logrus.Fields{
		"load_id":  snap.ID,
		"datasets": len(snap.Series),
	}).Info("saved snapshot")
	return nil
}

// StoredSeries reads the last-good copies of the named datasets from the
// store. A missing dataset is an error naming it.
func (d *Deps) StoredSeries(names ...string) (map[string]model.Series, time.Time, error) {
	ds, err := d.Datasets(names...)
	if err != nil {
		return nil, time.Time{}, err
	}
	st, err := d.OpenStore()
	if err != nil {
		return nil, time.Time{}, err
	}
	defer st.Close()

	out := make(map[string]model.Series, len(ds))
	var oldest time.Time
	for _, dset := range ds {
		got, ok, err := st.GetSeries(dset.Name)
		if err != nil {
			return nil, time.Time{}, err
		}
		if !ok {
			return nil, time.Time{}, fmt.Errorf("dataset %q is not in the store (run with --save first)", dset.Name)
		}
		out[dset.Name] = got.Points
		if oldest.IsZero() || got.SavedAt.Before(oldest) {
			oldest = got.SavedAt
		}
	}
	return out, oldest, nil
}
