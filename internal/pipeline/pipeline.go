// Package pipeline orchestrates one load: fetch every dataset concurrently,
// build the series, and publish a single immutable snapshot. Consumers read
// the current snapshot; they never see a partially built one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yellowduckie/duckline/internal/catalog"
	"github.com/yellowduckie/duckline/internal/logger"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/series"
	"github.com/yellowduckie/duckline/internal/util"
)

// ErrStale is returned by a Load that was superseded by a later Load.
// Its results are discarded; the later load owns the published state.
var ErrStale = errors.New("pipeline: load superseded by a newer load")

// Loader fetches and decodes the raw rows of one dataset.
type Loader interface {
	Load(ctx context.Context, d catalog.Dataset) ([]model.RawRecord, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, d catalog.Dataset) ([]model.RawRecord, error)

func (f LoaderFunc) Load(ctx context.Context, d catalog.Dataset) ([]model.RawRecord, error) {
	return f(ctx, d)
}

// Snapshot is the immutable result of one successful load.
type Snapshot struct {
	ID       string
	LoadedAt time.Time
	Datasets map[string]catalog.Dataset
	Series   map[string]model.Series
	Stats    map[string]series.BuildStats
}

// Get returns the named series.
func (s *Snapshot) Get(name string) (model.Series, bool) {
	if s == nil {
		return nil, false
	}
	ser, ok := s.Series[name]
	return ser, ok
}

// Names returns the dataset names in the snapshot, sorted.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	names := lo.Keys(s.Series)
	sort.Strings(names)
	return names
}

// Rejected returns the total malformed-row count across datasets.
func (s *Snapshot) Rejected() int {
	if s == nil {
		return 0
	}
	return lo.SumBy(lo.Values(s.Stats), func(b series.BuildStats) int { return b.Rejected })
}

// Options configures a Pipeline.
type Options struct {
	Concurrency int // max datasets fetched at once; <= 0 means unbounded
	Logger      logrus.FieldLogger
	OnPublish   func(*Snapshot)
}

// Pipeline owns the current snapshot. Loads may overlap; the most
// recently started one wins and earlier ones are cancelled.
type Pipeline struct {
	loader      Loader
	concurrency int
	log         *logrus.Entry
	onPublish   func(*Snapshot)

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	lastErr error

	current atomic.Pointer[Snapshot]
}

// New creates a Pipeline around loader.
func New(loader Loader, opts Options) *Pipeline {
	return &Pipeline{
		loader:      loader,
		concurrency: opts.Concurrency,
		log:         logger.Component(opts.Logger, "pipeline"),
		onPublish:   opts.OnPublish,
	}
}

// Current returns the last published snapshot, or nil before the first
// successful load.
func (p *Pipeline) Current() *Snapshot {
	return p.current.Load()
}

// Series returns a series from the current snapshot.
func (p *Pipeline) Series(name string) (model.Series, bool) {
	return p.Current().Get(name)
}

// LastError returns the error of the most recent failed load that was not
// superseded, or nil once a later load succeeds.
func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Load fetches every dataset, waits for all of them, builds the series and
// publishes them as one snapshot. If any fetch fails nothing is published,
// the previous snapshot stays current and the combined error is returned.
// Starting a new Load cancels any Load still in flight; the superseded call
// returns ErrStale.
func (p *Pipeline) Load(ctx context.Context, datasets ...catalog.Dataset) (*Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	seq := p.seq
	p.cancel = cancel
	p.mu.Unlock()

	log, id := logger.WithLoadID(p.log)
	log.WithField("datasets", len(datasets)).Debug("load started")
	started := time.Now()

	raws := make([][]model.RawRecord, len(datasets))
	var (
		g    errgroup.Group
		emu  sync.Mutex
		errs util.MultiError
	)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i, d := range datasets {
		i, d := i, d
		g.Go(func() error {
			recs, err := p.loader.Load(ctx, d)
			if err != nil {
				emu.Lock()
				errs.Add(fmt.Errorf("%s: %w", d.Name, err))
				emu.Unlock()
				return nil
			}
			raws[i] = recs
			return nil
		})
	}
	// Loaders never fail the group; every failure is collected in errs.
	_ = g.Wait()

	if p.superseded(seq) {
		log.Debug("load superseded, discarding")
		return nil, ErrStale
	}
	if err := errs.Err(); err != nil {
		p.mu.Lock()
		if seq == p.seq {
			p.lastErr = err
		}
		p.mu.Unlock()
		log.WithError(err).Warn("load failed, keeping previous snapshot")
		return nil, err
	}

	snap := &Snapshot{
		ID:       id,
		LoadedAt: time.Now().UTC(),
		Datasets: make(map[string]catalog.Dataset, len(datasets)),
		Series:   make(map[string]model.Series, len(datasets)),
		Stats:    make(map[string]series.BuildStats, len(datasets)),
	}
	for i, d := range datasets {
		built, stats := series.Build(raws[i], d.SeriesConfig())
		snap.Datasets[d.Name] = d
		snap.Series[d.Name] = built
		snap.Stats[d.Name] = stats

		entry := log.WithFields(logrus.Fields{
			"dataset":    d.Name,
			"rows":       stats.Rows,
			"kept":       stats.Kept,
			"rejected":   stats.Rejected,
			"duplicates": stats.Duplicates,
		})
		if stats.Rejected > 0 {
			entry.WithField("reasons", stats.Reasons).Warn("malformed rows dropped")
		} else {
			entry.Debug("built")
		}
	}

	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		return nil, ErrStale
	}
	p.current.Store(snap)
	p.lastErr = nil
	p.mu.Unlock()

	log.WithField("elapsed", time.Since(started).Round(time.Millisecond)).Info("snapshot published")
	if p.onPublish != nil {
		p.onPublish(snap)
	}
	return snap, nil
}

func (p *Pipeline) superseded(seq uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return seq != p.seq
}
