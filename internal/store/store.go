// Package store provides a thin bbolt wrapper for duckline's local store of
// last-good series.
//
// The store is written explicitly (`series get --save`, `watch --save`) and
// read by `--store` commands when the sources are unreachable. The load
// pipeline never reads it: a published snapshot always comes from a fresh
// load.
//
// Buckets:
//
//	series — built series keyed by dataset name
//	loads  — one record per saved load, keyed by load ID
//	_meta  — internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/yellowduckie/duckline/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketSeries   = []byte("series")
	bucketLoads    = []byte("loads")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"series", "loads"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSeries, bucketLoads, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Series ───────────────────────────────────────────────────────────────────

// Stored is one saved series. Points encode NaN as null (see model.Point).
type Stored struct {
	Name    string       `json:"name"`
	LoadID  string       `json:"load_id,omitempty"`
	SavedAt time.Time    `json:"saved_at"`
	Points  model.Series `json:"points"`
}

// Entry summarises a saved series for listings without decoding points.
type Entry struct {
	Name    string
	LoadID  string
	SavedAt time.Time
	Points  int
	First   time.Time
	Last    time.Time
	Bytes   int
}

// PutSeries stores s as the last-good copy of name, stamping SavedAt.
func (s *Store) PutSeries(name, loadID string, pts model.Series) error {
	b, err := encodeSeries(name, loadID, pts, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeries).Put([]byte(name), b)
	})
}

func encodeSeries(name, loadID string, pts model.Series, at time.Time) ([]byte, error) {
	if pts == nil {
		pts = model.Series{}
	}
	b, err := json.Marshal(Stored{Name: name, LoadID: loadID, SavedAt: at, Points: pts})
	if err != nil {
		return nil, fmt.Errorf("encoding series %s: %w", name, err)
	}
	return b, nil
}

// GetSeries retrieves a saved series by dataset name.
// Returns (stored, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetSeries(name string) (Stored, bool, error) {
	var st Stored
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSeries).Get([]byte(name))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &st)
	})
	if err != nil {
		return Stored{}, false, fmt.Errorf("decoding series %s: %w", name, err)
	}
	return st, st.Name != "", nil
}

// ListSeries returns an entry per saved series, sorted by name.
func (s *Store) ListSeries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeries).ForEach(func(k, v []byte) error {
			var st Stored
			if err := json.Unmarshal(v, &st); err != nil {
				return fmt.Errorf("decoding series %s: %w", k, err)
			}
			e := Entry{Name: st.Name, LoadID: st.LoadID, SavedAt: st.SavedAt, Points: len(st.Points), Bytes: len(v)}
			if len(st.Points) > 0 {
				e.First, e.Last = st.Points.First().Date, st.Points.Last().Date
			}
			entries = append(entries, e)
			return nil
		})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, err
}

// DeleteSeries removes a saved series. Deleting a missing name is not an error.
func (s *Store) DeleteSeries(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeries).Delete([]byte(name))
	})
}

// ─── Loads ────────────────────────────────────────────────────────────────────

// LoadRecord describes one saved load.
type LoadRecord struct {
	ID       string    `json:"id"`
	LoadedAt time.Time `json:"loaded_at"`
	SavedAt  time.Time `json:"saved_at"`
	Datasets []string  `json:"datasets"`
	Points   int       `json:"points"`
	Rejected int       `json:"rejected"`
}

// SaveLoad writes every series of a load plus its record in one transaction.
// Datasets and Points on rec are recomputed from series.
func (s *Store) SaveLoad(rec LoadRecord, series map[string]model.Series) error {
	now := time.Now().UTC()
	rec.SavedAt = now
	rec.Datasets = nil
	rec.Points = 0
	for name, pts := range series {
		rec.Datasets = append(rec.Datasets, name)
		rec.Points += len(pts)
	}
	sort.Strings(rec.Datasets)

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range rec.Datasets {
			b, err := encodeSeries(name, rec.ID, series[name], now)
			if err != nil {
				return err
			}
			if err := tx.Bucket(bucketSeries).Put([]byte(name), b); err != nil {
				return err
			}
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding load record: %w", err)
		}
		return tx.Bucket(bucketLoads).Put([]byte(rec.ID), b)
	})
}

// ListLoads returns saved load records, oldest first.
func (s *Store) ListLoads() ([]LoadRecord, error) {
	var recs []LoadRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLoads).ForEach(func(k, v []byte) error {
			var r LoadRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			recs = append(recs, r)
			return nil
		})
	})
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].SavedAt.Before(recs[j].SavedAt) })
	return recs, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			st := BucketStats{Name: name}
			_ = b.ForEach(func(k, v []byte) error {
				st.Count++
				st.Bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, st)
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	known := false
	for _, b := range AllBuckets {
		known = known || b == name
	}
	if !known {
		return fmt.Errorf("unknown bucket %q (valid: %v)", name, AllBuckets)
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
