package bolt

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/strandkv/strand/lib/db"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// DBOptions configures a bolt database.
type DBOptions struct {
	// Path is the database file, created if missing.
	Path string

	// Bucket is the bucket holding all entries. Defaults to "strand".
	Bucket string

	// FileMode is used when creating the database file. Defaults to 0600.
	FileMode os.FileMode

	// OpenTimeout bounds the wait for the file lock. Defaults to 1s.
	OpenTimeout time.Duration

	// SweepInterval is the period of the background sweep dropping
	// expired entries. Defaults to a minute.
	SweepInterval time.Duration

	// NoSync skips the fsync after each commit, trading durability for
	// write throughput. Intended for bulk loads and tests.
	NoSync bool
}

func (o DBOptions) withDefaults() DBOptions {
	if o.Bucket == "" {
		o.Bucket = "strand"
	}
	if o.FileMode == 0 {
		o.FileMode = 0600
	}
	if o.OpenTimeout <= 0 {
		o.OpenTimeout = time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
	return o
}

// --------------------------------------------------------------------------
// Database
// --------------------------------------------------------------------------

// DB is a bbolt-backed implementation of db.StringDB. Every entry is
// stored as an 8-byte big-endian expiration deadline (unix nanoseconds,
// zero = never) followed by the value bytes. Each operation runs in its
// own transaction; read-modify-write operations are therefore atomic
// without further locking.
//
// Readers treat expired entries as missing; a background sweep drops
// them from disk.
type DB struct {
	opts   DBOptions
	db     *bbolt.DB
	bucket []byte

	stop    chan struct{}
	sweepWG sync.WaitGroup
	closed  atomic.Bool
}

var _ db.StringDB = (*DB)(nil)

// Open opens or creates the database file and starts the expiry sweep.
func Open(opts DBOptions) (*DB, error) {
	opts = opts.withDefaults()
	if opts.Path == "" {
		return nil, errors.New("bolt: database path must not be empty")
	}

	bdb, err := bbolt.Open(opts.Path, opts.FileMode, &bbolt.Options{Timeout: opts.OpenTimeout})
	if err != nil {
		return nil, err
	}
	bdb.NoSync = opts.NoSync

	d := &DB{
		opts:   opts,
		db:     bdb,
		bucket: []byte(opts.Bucket),
		stop:   make(chan struct{}),
	}

	if err := bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(d.bucket)
		return err
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	d.sweepWG.Add(1)
	go d.sweep()

	return d, nil
}

// --------------------------------------------------------------------------
// Record encoding
// --------------------------------------------------------------------------

func encodeRecord(value []byte, expireAt int64) []byte {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf, uint64(expireAt))
	copy(buf[8:], value)
	return buf
}

func decodeRecord(raw []byte) (value []byte, expireAt int64, ok bool) {
	if len(raw) < 8 {
		return nil, 0, false
	}
	return raw[8:], int64(binary.BigEndian.Uint64(raw)), true
}

func liveAt(expireAt, now int64) bool {
	return expireAt == 0 || expireAt > now
}

func deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return time.Now().Add(ttl).UnixNano()
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry without expiration.
func (d *DB) Set(key string, value []byte) {
	d.SetE(key, value, 0)
}

// SetE inserts or updates an entry that expires after ttl (zero = never).
func (d *DB) SetE(key string, value []byte, ttl time.Duration) {
	record := encodeRecord(value, deadline(ttl))
	_ = d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(d.bucket).Put([]byte(key), record)
	})
}

// SetCond inserts or updates an entry subject to cond and reports
// whether the write happened.
func (d *DB) SetCond(key string, value []byte, ttl time.Duration, cond db.SetCond) bool {
	now := time.Now().UnixNano()
	record := encodeRecord(value, deadline(ttl))

	stored := false
	_ = d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(d.bucket)
		_, expireAt, ok := decodeRecord(b.Get([]byte(key)))
		alive := ok && liveAt(expireAt, now)
		if (cond == db.CondIfUnset && alive) || (cond == db.CondIfSet && !alive) {
			return nil
		}
		stored = true
		return b.Put([]byte(key), record)
	})
	return stored
}

// Update atomically transforms the entry under key inside a single
// write transaction. An existing ttl is preserved.
func (d *DB) Update(key string, fn func(old []byte, loaded bool) (next []byte, write bool)) (oldVal []byte, loaded bool) {
	now := time.Now().UnixNano()

	_ = d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(d.bucket)
		cur, expireAt, ok := decodeRecord(b.Get([]byte(key)))
		alive := ok && liveAt(expireAt, now)

		var old []byte
		if alive {
			old = cur
		}

		next, write := fn(old, alive)

		// bbolt buffers are only valid inside the transaction
		if alive {
			oldVal = append([]byte(nil), cur...)
		}
		loaded = alive

		if !write {
			return nil
		}
		keep := int64(0)
		if alive {
			keep = expireAt
		}
		return b.Put([]byte(key), encodeRecord(next, keep))
	})
	return oldVal, loaded
}

// Expire replaces the ttl of a live entry (zero ttl persists the key)
// and reports whether the key existed.
func (d *DB) Expire(key string, ttl time.Duration) bool {
	now := time.Now().UnixNano()
	expireAt := deadline(ttl)

	ok := false
	_ = d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(d.bucket)
		value, cur, found := decodeRecord(b.Get([]byte(key)))
		if !found || !liveAt(cur, now) {
			return nil
		}
		ok = true
		return b.Put([]byte(key), encodeRecord(value, expireAt))
	})
	return ok
}

// Delete removes an entry with the specified key.
func (d *DB) Delete(key string) {
	_ = d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(d.bucket).Delete([]byte(key))
	})
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Get retrieves the value for an exact key, copying it out of the
// transaction.
func (d *DB) Get(key string) (value []byte, loaded bool) {
	now := time.Now().UnixNano()
	_ = d.db.View(func(tx *bbolt.Tx) error {
		raw, expireAt, ok := decodeRecord(tx.Bucket(d.bucket).Get([]byte(key)))
		if !ok || !liveAt(expireAt, now) {
			return nil
		}
		value = append([]byte(nil), raw...)
		loaded = true
		return nil
	})
	return value, loaded
}

// Has checks whether a live entry for key exists.
func (d *DB) Has(key string) bool {
	_, loaded := d.Get(key)
	return loaded
}

// --------------------------------------------------------------------------
// Sweep
// --------------------------------------------------------------------------

// sweep periodically drops expired entries from disk. Readers already
// treat them as missing, the sweep only reclaims space.
func (d *DB) sweep() {
	defer d.sweepWG.Done()

	ticker := time.NewTicker(d.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			now := time.Now().UnixNano()
			_ = d.db.Update(func(tx *bbolt.Tx) error {
				c := tx.Bucket(d.bucket).Cursor()
				for k, v := c.First(); k != nil; k, v = c.Next() {
					if _, expireAt, ok := decodeRecord(v); ok && !liveAt(expireAt, now) {
						if err := c.Delete(); err != nil {
							return err
						}
					}
				}
				return nil
			})
		}
	}
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save streams a consistent copy of the whole database file to w.
func (d *DB) Save(w io.Writer) error {
	return d.db.View(func(tx *bbolt.Tx) error {
		_, err := tx.WriteTo(w)
		return err
	})
}

// Load is not supported: the database file is the state. Restore a
// snapshot by placing it at the configured path before Open.
func (d *DB) Load(r io.Reader) error {
	return errors.New("bolt: load not supported, open the snapshot file directly")
}

// --------------------------------------------------------------------------
// Feature Support
// --------------------------------------------------------------------------

const supportedFeatures = db.FeatureSet | db.FeatureSetCond | db.FeatureUpdate |
	db.FeatureGet | db.FeatureExpire | db.FeatureDelete | db.FeatureHas |
	db.FeatureSave | db.FeatureGarbageCollect

// SupportsFeature checks if the database supports the specified feature(s).
func (d *DB) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

// GetInfo returns information about the database.
func (d *DB) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType: db.ImplBolt,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetCond, db.FeatureUpdate,
			db.FeatureGet, db.FeatureExpire, db.FeatureDelete, db.FeatureHas,
			db.FeatureSave, db.FeatureGarbageCollect,
		},
		Metadata: map[string]interface{}{
			"path":   d.opts.Path,
			"bucket": d.opts.Bucket,
		},
	}
	_ = d.db.View(func(tx *bbolt.Tx) error {
		info.Keys = tx.Bucket(d.bucket).Stats().KeyN
		info.SizeBytes = int(tx.Size())
		return nil
	})
	return info
}

// Close stops the sweep and closes the database file.
func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	close(d.stop)
	d.sweepWG.Wait()
	return d.db.Close()
}
