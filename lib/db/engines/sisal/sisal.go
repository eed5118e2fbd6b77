package sisal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strandkv/strand/lib/db"
	"github.com/strandkv/strand/lib/db/util"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// DBOptions configures a sisal database.
type DBOptions struct {
	// NumShards is the number of map shards, rounded up to a power of
	// two. More shards reduce lock contention at the cost of memory.
	NumShards int

	// GCInterval is the fallback wake interval of the garbage collector
	// when no expiration is scheduled.
	GCInterval time.Duration

	// CollectStats enables the value size histogram reported by GetInfo.
	CollectStats bool
}

// DefaultOptions returns the options used when a zero DBOptions is given.
func DefaultOptions() DBOptions {
	return DBOptions{
		NumShards:    16,
		GCInterval:   time.Second,
		CollectStats: true,
	}
}

func (o DBOptions) withDefaults() DBOptions {
	def := DefaultOptions()
	if o.NumShards <= 0 {
		o.NumShards = def.NumShards
	}
	if o.GCInterval <= 0 {
		o.GCInterval = def.GCInterval
	}
	return o
}

// nextPowerOfTwo rounds n up to the next power of two.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// --------------------------------------------------------------------------
// Data Structures
// --------------------------------------------------------------------------

// entry is a stored value with its absolute expiration deadline.
type entry struct {
	value    []byte
	expireAt int64 // unix nanoseconds, 0 = never
}

// live reports whether the entry has not expired at now.
func (e entry) live(now int64) bool {
	return e.expireAt == 0 || e.expireAt > now
}

// shard is one slice of the key space guarded by its own lock.
type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

// gcEvent tells the collector to (re)schedule or cancel a key's
// expiration. A zero deadline cancels.
type gcEvent struct {
	key      string
	deadline int64
}

// DB is an in-memory sharded string database with real-time expiration.
//
// Keys are hashed to shards with a per-instance seed; each shard carries
// its own read-write lock. Expirations flow as events through a lock-free
// queue to a single collector goroutine that owns a deadline heap, so
// writes never contend on a shared timer structure. Reads treat expired
// entries as missing even before the collector drops them.
type DB struct {
	opts   DBOptions
	shards []*shard
	mask   uint64
	seed   uint64

	events *util.LockFreeMPSC[gcEvent]
	gcWG   sync.WaitGroup
	closed atomic.Bool

	keys  atomic.Int64 // physical entries, including not-yet-collected
	bytes atomic.Int64 // approximate stored value bytes
	hist  *util.SizeHistogram
}

var _ db.StringDB = (*DB)(nil)

// New creates a sisal database and starts its garbage collector.
func New(opts DBOptions) *DB {
	opts = opts.withDefaults()
	numShards := nextPowerOfTwo(opts.NumShards)

	d := &DB{
		opts:   opts,
		shards: make([]*shard, numShards),
		mask:   uint64(numShards - 1),
		seed:   util.GenerateSeed(),
		events: util.NewLockFreeMPSC[gcEvent](),
		hist:   util.NewSizeHistogram(),
	}
	for i := range d.shards {
		d.shards[i] = &shard{items: make(map[string]entry)}
	}

	d.gcWG.Add(1)
	go d.collect()

	return d
}

func (d *DB) shard(key string) *shard {
	return d.shards[util.HashString(key, d.seed)&d.mask]
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
	expireAt := deadline(ttl)

	s := d.shard(key)
	s.mu.Lock()
	old, existed := s.items[key]
	s.items[key] = entry{value: value, expireAt: expireAt}
	s.mu.Unlock()

	d.account(old, existed, value)
	d.reschedule(key, old, existed, expireAt)
}

// SetCond inserts or updates an entry subject to cond and reports
// whether the write happened.
func (d *DB) SetCond(key string, value []byte, ttl time.Duration, cond db.SetCond) bool {
	now := time.Now().UnixNano()
	expireAt := deadline(ttl)

	s := d.shard(key)
	s.mu.Lock()
	old, existed := s.items[key]
	alive := existed && old.live(now)
	if (cond == db.CondIfUnset && alive) || (cond == db.CondIfSet && !alive) {
		s.mu.Unlock()
		return false
	}
	s.items[key] = entry{value: value, expireAt: expireAt}
	s.mu.Unlock()

	d.account(old, existed, value)
	d.reschedule(key, old, existed, expireAt)
	return true
}

// Update atomically transforms the entry under key. An existing ttl is
// preserved; fn runs under the shard lock and must not touch the db.
func (d *DB) Update(key string, fn func(old []byte, loaded bool) (next []byte, write bool)) (oldVal []byte, loaded bool) {
	now := time.Now().UnixNano()

	s := d.shard(key)
	s.mu.Lock()
	cur, existed := s.items[key]
	alive := existed && cur.live(now)
	if alive {
		oldVal = cur.value
	}

	next, write := fn(oldVal, alive)
	if !write {
		s.mu.Unlock()
		return oldVal, alive
	}

	e := entry{value: next}
	if alive {
		e.expireAt = cur.expireAt
	}
	s.items[key] = e
	s.mu.Unlock()

	d.account(cur, existed, next)
	if !alive {
		// a dead entry's stale deadline must not collect the new value
		d.reschedule(key, cur, existed, 0)
	}
	return oldVal, alive
}

// Expire replaces the ttl of a live entry (zero ttl persists the key)
// and reports whether the key existed.
func (d *DB) Expire(key string, ttl time.Duration) bool {
	now := time.Now()
	expireAt := int64(0)
	if ttl > 0 {
		expireAt = now.Add(ttl).UnixNano()
	}

	s := d.shard(key)
	s.mu.Lock()
	cur, existed := s.items[key]
	if !existed || !cur.live(now.UnixNano()) {
		s.mu.Unlock()
		return false
	}
	had := cur.expireAt != 0
	cur.expireAt = expireAt
	s.items[key] = cur
	s.mu.Unlock()

	if expireAt != 0 {
		d.events.Push(gcEvent{key: key, deadline: expireAt})
	} else if had {
		d.events.Push(gcEvent{key: key})
	}
	return true
}

// Delete removes an entry with the specified key.
func (d *DB) Delete(key string) {
	s := d.shard(key)
	s.mu.Lock()
	old, existed := s.items[key]
	if existed {
		delete(s.items, key)
	}
	s.mu.Unlock()

	if existed {
		d.keys.Add(-1)
		d.bytes.Add(-int64(len(old.value)))
		if old.expireAt != 0 {
			d.events.Push(gcEvent{key: key})
		}
	}
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Get retrieves the value for an exact key. Expired entries count as
// missing even before the collector has dropped them.
func (d *DB) Get(key string) (value []byte, loaded bool) {
	now := time.Now().UnixNano()
	s := d.shard(key)
	s.mu.RLock()
	e, existed := s.items[key]
	s.mu.RUnlock()

	if !existed || !e.live(now) {
		return nil, false
	}
	return e.value, true
}

// Has checks whether a live entry for key exists.
func (d *DB) Has(key string) bool {
	_, loaded := d.Get(key)
	return loaded
}

// --------------------------------------------------------------------------
// Accounting and GC plumbing
// --------------------------------------------------------------------------

func deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return time.Now().Add(ttl).UnixNano()
}

// account updates the key and byte counters for a write replacing old.
func (d *DB) account(old entry, existed bool, value []byte) {
	if existed {
		d.bytes.Add(int64(len(value)) - int64(len(old.value)))
	} else {
		d.keys.Add(1)
		d.bytes.Add(int64(len(value)))
	}
	if d.opts.CollectStats {
		d.hist.AddSample(len(value))
	}
}

// reschedule queues the GC events for a write that replaced old with a
// value expiring at expireAt (zero = never).
func (d *DB) reschedule(key string, old entry, existed bool, expireAt int64) {
	if expireAt != 0 {
		d.events.Push(gcEvent{key: key, deadline: expireAt})
		return
	}
	if existed && old.expireAt != 0 {
		d.events.Push(gcEvent{key: key})
	}
}

// collect owns the deadline heap. Writes publish expiration changes as
// events; the heap's deadlines are advisory, the authoritative expiry
// check happens under the shard lock in dropExpired.
func (d *DB) collect() {
	defer d.gcWG.Done()

	heap := util.NewExpiryHeap()
	timer := time.NewTimer(d.opts.GCInterval)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-d.events.Recv():
			if !ok {
				return
			}
			if ev.deadline == 0 {
				heap.Cancel(ev.key)
			} else {
				heap.Schedule(ev.key, ev.deadline)
			}
		case <-timer.C:
			now := time.Now().UnixNano()
			for {
				key, ok := heap.PopDue(now)
				if !ok {
					break
				}
				d.dropExpired(key, now)
			}
		}

		// size the next sleep to the earliest deadline
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		next := d.opts.GCInterval
		if _, dl, ok := heap.Peek(); ok {
			if until := time.Duration(dl - time.Now().UnixNano()); until < next {
				next = until
			}
			if next < time.Millisecond {
				next = time.Millisecond
			}
		}
		timer.Reset(next)
	}
}

// dropExpired removes key if it is actually expired at now.
func (d *DB) dropExpired(key string, now int64) {
	s := d.shard(key)
	s.mu.Lock()
	e, ok := s.items[key]
	if ok && e.expireAt != 0 && e.expireAt <= now {
		delete(s.items, key)
		d.keys.Add(-1)
		d.bytes.Add(-int64(len(e.value)))
	}
	s.mu.Unlock()
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

const (
	snapshotMagic   uint32 = 0x5349534c // "SISL"
	snapshotVersion uint8  = 1
)

// Save writes all live entries to w. Shards are locked one at a time, so
// the snapshot is per-shard consistent.
func (d *DB) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.BigEndian, snapshotMagic); err != nil {
		return err
	}
	if err := bw.WriteByte(snapshotVersion); err != nil {
		return err
	}

	now := time.Now().UnixNano()
	for _, s := range d.shards {
		s.mu.RLock()
		for key, e := range s.items {
			if !e.live(now) {
				continue
			}
			if err := writeSnapshotEntry(bw, key, e); err != nil {
				s.mu.RUnlock()
				return err
			}
		}
		s.mu.RUnlock()
	}

	// zero key length terminates the stream
	if err := binary.Write(bw, binary.BigEndian, uint32(0)); err != nil {
		return err
	}
	return bw.Flush()
}

func writeSnapshotEntry(w io.Writer, key string, e entry) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(key))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, key); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(e.value))); err != nil {
		return err
	}
	if _, err := w.Write(e.value); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, e.expireAt)
}

// Load replaces the database state with a snapshot produced by Save.
// Entries whose deadline has passed are skipped.
func (d *DB) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	var magic uint32
	if err := binary.Read(br, binary.BigEndian, &magic); err != nil {
		return err
	}
	if magic != snapshotMagic {
		return fmt.Errorf("sisal: bad snapshot magic %#x", magic)
	}
	version, err := br.ReadByte()
	if err != nil {
		return err
	}
	if version != snapshotVersion {
		return fmt.Errorf("sisal: unsupported snapshot version %d", version)
	}

	// reset all shards and counters
	for _, s := range d.shards {
		s.mu.Lock()
		s.items = make(map[string]entry)
		s.mu.Unlock()
	}
	d.keys.Store(0)
	d.bytes.Store(0)

	now := time.Now().UnixNano()
	for {
		var keyLen uint32
		if err := binary.Read(br, binary.BigEndian, &keyLen); err != nil {
			return err
		}
		if keyLen == 0 {
			return nil
		}

		keyBuf := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBuf); err != nil {
			return err
		}
		var valLen uint32
		if err := binary.Read(br, binary.BigEndian, &valLen); err != nil {
			return err
		}
		value := make([]byte, valLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}
		var expireAt int64
		if err := binary.Read(br, binary.BigEndian, &expireAt); err != nil {
			return err
		}

		e := entry{value: value, expireAt: expireAt}
		if !e.live(now) {
			continue
		}

		key := string(keyBuf)
		s := d.shard(key)
		s.mu.Lock()
		s.items[key] = e
		s.mu.Unlock()
		d.keys.Add(1)
		d.bytes.Add(int64(len(value)))
		if expireAt != 0 {
			d.events.Push(gcEvent{key: key, deadline: expireAt})
		}
	}
}

// --------------------------------------------------------------------------
// Feature Support
// --------------------------------------------------------------------------

const supportedFeatures = db.FeatureSet | db.FeatureSetCond | db.FeatureUpdate |
	db.FeatureGet | db.FeatureExpire | db.FeatureDelete | db.FeatureHas |
	db.FeatureSave | db.FeatureLoad | db.FeatureGarbageCollect

// SupportsFeature checks if the database supports the specified feature(s).
func (d *DB) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

// GetInfo returns information about the database.
func (d *DB) GetInfo() db.DatabaseInfo {
	shardSizes := make([]float64, len(d.shards))
	for i, s := range d.shards {
		s.mu.RLock()
		shardSizes[i] = float64(len(s.items))
		s.mu.RUnlock()
	}

	meta := map[string]interface{}{
		"shards":             len(d.shards),
		"shard_distribution": util.NewDistributionStats(shardSizes),
	}
	if d.opts.CollectStats {
		meta["value_size_avg"] = d.hist.AverageSize()
		meta["value_size_median"] = d.hist.MedianEstimate()
	}

	return db.DatabaseInfo{
		SizeBytes: int(d.bytes.Load()),
		Keys:      int(d.keys.Load()),
		DbType:    db.ImplSisal,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetCond, db.FeatureUpdate,
			db.FeatureGet, db.FeatureExpire, db.FeatureDelete, db.FeatureHas,
			db.FeatureSave, db.FeatureLoad, db.FeatureGarbageCollect,
		},
		Metadata: meta,
	}
}

// Close stops the garbage collector. The database must not be used after
// Close.
func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.events.Close()
	d.gcWG.Wait()
	return nil
}
