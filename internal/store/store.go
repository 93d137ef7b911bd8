/* SPDX-License-Identifier: AGPL-3.0-or-later
 *
 * Zymatik Annonars - A read-optimized genomic variant annotation store.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published
 * by the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package store wraps go.etcd.io/bbolt as the ordered key-value engine
// behind every dataset directory: named buckets stand in for "column
// families", a bucket-scoped cursor gives forward iteration with seek, and
// bbolt's own Compact helper gives bulk compaction after import. Every
// dataset directory has at least a "meta" and a "data" bucket; a few (SV
// datasets) have extras.
//
// Read-only handles (the serve-phase open) additionally build a
// github.com/FastFilter/xorfilter Xor8 per column family on first Get,
// so a lookup for a key that was never imported answers "definitely
// absent" in O(1) without paying for a B+tree descent. Write handles skip
// this: a freshly imported key wouldn't be reflected in a filter built
// once at open time.
package store

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FastFilter/xorfilter"
	bolt "go.etcd.io/bbolt"

	"github.com/zymatik-com/annonars/internal/errs"
)

// MetaBucket is the mandatory metadata column family, read first on open.
const MetaBucket = "meta"

// DataBucket is the default data column family name used by most datasets.
const DataBucket = "data"

// Well-known meta keys every dataset carries.
const (
	MetaAnnonarsVersion = "annonars-version"
	MetaGenomeRelease   = "genome-release"
	MetaDBName          = "db-name"
	MetaDBVersion       = "db-version"

	// MetaGnomadVersion is the dataset-specific secondary version key
	// frequency stores carry; the query engine dispatches its decode
	// schema on the major version recorded here.
	MetaGnomadVersion = "gnomad-version"
)

// DB is a single dataset directory's store handle.
type DB struct {
	bolt     *bolt.DB
	path     string
	readOnly bool

	filterMu  sync.Mutex
	filters   map[string]*xorfilter.Xor8
	attempted map[string]bool
}

// Open opens (or creates, in write mode) a dataset directory for either
// import (write) or serve (read-only). In read-only mode, multiple
// processes may open the same path concurrently.
func Open(path string, readOnly bool) (*DB, error) {
	opts := &bolt.Options{
		Timeout:  5 * time.Second,
		ReadOnly: readOnly,
	}

	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: could not create store directory: %v", errs.ErrStore, err)
		}
	}

	db, err := bolt.Open(path, 0o644, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open store at %s: %v", errs.ErrStore, path, err)
	}

	return &DB{bolt: db, path: path, readOnly: readOnly}, nil
}

// Close releases the underlying file handle.
func (d *DB) Close() error {
	return d.bolt.Close()
}

// CreateColumnFamilies ensures the named buckets exist, creating any that
// are missing. Called once at the start of every import.
func (d *DB) CreateColumnFamilies(names ...string) error {
	return d.bolt.Update(func(tx *bolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("%w: could not create column family %q: %v", errs.ErrStore, name, err)
			}
		}
		return nil
	})
}

// PutMeta writes an ASCII meta key/value pair. Importers call this right
// after CreateColumnFamilies and before streaming any records.
func (d *DB) PutMeta(key, value string) error {
	return d.Put(MetaBucket, []byte(key), []byte(value))
}

// GetMeta reads a meta key, returning errs.ErrMissingMetadata if absent.
func (d *DB) GetMeta(key string) (string, error) {
	v, err := d.Get(MetaBucket, []byte(key))
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("%w: %q", errs.ErrMissingMetadata, key)
	}
	return string(v), nil
}

// AllMeta reads every key in the meta column family.
func (d *DB) AllMeta() (map[string]string, error) {
	out := make(map[string]string)

	err := d.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(MetaBucket))
		if b == nil {
			return fmt.Errorf("%w: no meta column family", errs.ErrMissingMetadata)
		}
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Put writes a single key in the named column family. Safe for concurrent
// use by multiple goroutines sharing one *DB (bbolt serializes writers
// internally).
func (d *DB) Put(cf string, key, value []byte) error {
	return d.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return fmt.Errorf("%w: no such column family %q", errs.ErrStore, cf)
		}
		return b.Put(key, value)
	})
}

// Get reads a single key from the named column family. A missing key
// returns (nil, nil) -- absence is not an error.
func (d *DB) Get(cf string, key []byte) ([]byte, error) {
	if d.readOnly {
		if f := d.negativeFilter(cf); f != nil && !f.Contains(hashKey(key)) {
			return nil, nil
		}
	}

	var out []byte

	err := d.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return fmt.Errorf("%w: no such column family %q", errs.ErrStore, cf)
		}
		v := b.Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// GetForUpdate reads the current value (nil if absent) and atomically
// replaces it with whatever fn returns, in a single write transaction --
// the primitive merge-on-import datasets build their read-modify-write on.
func (d *DB) GetForUpdate(cf string, key []byte, fn func(existing []byte) ([]byte, error)) error {
	return d.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return fmt.Errorf("%w: no such column family %q", errs.ErrStore, cf)
		}

		existing := b.Get(key)
		var existingCopy []byte
		if existing != nil {
			existingCopy = append([]byte(nil), existing...)
		}

		updated, err := fn(existingCopy)
		if err != nil {
			return err
		}

		return b.Put(key, updated)
	})
}

// Cursor is a forward iterator with seek over one column family. Not safe
// for concurrent use, and must not outlive the transaction it was opened
// under -- callers use WithCursor rather than holding one directly.
type Cursor struct {
	c        *bolt.Cursor
	key, val []byte
}

// Seek positions the cursor at the first key >= prefix.
func (c *Cursor) Seek(prefix []byte) {
	c.key, c.val = c.c.Seek(prefix)
}

// Valid reports whether the cursor currently points at a key.
func (c *Cursor) Valid() bool {
	return c.key != nil
}

// Key returns the current key. Only valid when Valid() is true.
func (c *Cursor) Key() []byte {
	return c.key
}

// Value returns the current value. Only valid when Valid() is true.
func (c *Cursor) Value() []byte {
	return c.val
}

// Next advances the cursor forward by one key.
func (c *Cursor) Next() {
	c.key, c.val = c.c.Next()
}

// WithCursor runs fn with a forward cursor scoped to cf, inside a single
// read transaction.
func (d *DB) WithCursor(cf string, fn func(c *Cursor) error) error {
	return d.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return fmt.Errorf("%w: no such column family %q", errs.ErrStore, cf)
		}
		return fn(&Cursor{c: b.Cursor()})
	})
}

// ForEach walks every key/value pair in cf in key order, starting from the
// first key whose prefix is >= from the given seek prefix (nil means from
// the start), stopping as soon as stop returns true for a key or fn
// returns an error.
func (d *DB) ForEach(cf string, seekPrefix []byte, stop func(key []byte) bool, fn func(key, value []byte) error) error {
	return d.WithCursor(cf, func(c *Cursor) error {
		if seekPrefix != nil {
			c.Seek(seekPrefix)
		} else {
			c.Seek(nil)
		}

		for c.Valid() {
			if stop != nil && stop(c.Key()) {
				return nil
			}
			if err := fn(c.Key(), c.Value()); err != nil {
				return err
			}
			c.Next()
		}

		return nil
	})
}

// Compact rewrites every column family into a fresh file, then atomically
// replaces the original. It is run once at the end of every import.
func Compact(path string) error {
	src, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("%w: could not open store for compaction: %v", errs.ErrStore, err)
	}

	tmpPath := path + ".compact.tmp"
	dst, err := bolt.Open(tmpPath, 0o644, nil)
	if err != nil {
		src.Close()
		return fmt.Errorf("%w: could not open compaction target: %v", errs.ErrStore, err)
	}

	if err := bolt.Compact(dst, src, 0); err != nil {
		dst.Close()
		src.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: compaction failed: %v", errs.ErrStore, err)
	}

	if err := dst.Close(); err != nil {
		src.Close()
		return fmt.Errorf("%w: could not close compaction target: %v", errs.ErrStore, err)
	}
	if err := src.Close(); err != nil {
		return fmt.Errorf("%w: could not close compaction source: %v", errs.ErrStore, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: could not swap in compacted store: %v", errs.ErrStore, err)
	}

	return nil
}

// negativeFilter returns the lazily-built Xor8 filter for cf, or nil if
// the column family is empty or filter construction failed -- either way
// a nil return means Get must fall back to the normal bbolt lookup.
func (d *DB) negativeFilter(cf string) *xorfilter.Xor8 {
	d.filterMu.Lock()
	defer d.filterMu.Unlock()

	if d.attempted == nil {
		d.attempted = make(map[string]bool)
		d.filters = make(map[string]*xorfilter.Xor8)
	}
	if d.attempted[cf] {
		return d.filters[cf]
	}
	d.attempted[cf] = true

	f, err := d.buildNegativeFilter(cf)
	if err != nil {
		return nil
	}
	d.filters[cf] = f
	return f
}

// buildNegativeFilter scans every key currently in cf and populates an
// Xor8 filter over their hashes. Built once per column family per handle;
// a write through a different, concurrently-open handle is invisible to
// it, which is why it is only consulted on read-only handles.
func (d *DB) buildNegativeFilter(cf string) (*xorfilter.Xor8, error) {
	var hashes []uint64

	err := d.WithCursor(cf, func(c *Cursor) error {
		c.Seek(nil)
		for c.Valid() {
			hashes = append(hashes, hashKey(c.Key()))
			c.Next()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	return xorfilter.Populate(hashes)
}

// hashKey folds an arbitrary-length store key down to the uint64 keyspace
// Xor8 operates over.
func hashKey(key []byte) uint64 {
	h := fnv.New64a()
	h.Write(key)
	return h.Sum64()
}

// Path returns the filesystem path this handle was opened from.
func (d *DB) Path() string {
	return d.path
}
