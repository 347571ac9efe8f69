package aggregator

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// shardCount is the number of shards in the record store.
const shardCount = 32

// recordStore is a sharded map from path key to per-key metric record. To
// avoid lock bottlenecks under many concurrent recorders the map is divided
// into shardCount shards selected by xxhash of the path key.
type recordStore struct {
	shards []*recordShard
}

// recordShard guards one slice of the key space.
type recordShard struct {
	sync.RWMutex // guards access to the internal map

	items map[string]*record
}

// newRecordStore creates an empty sharded record store.
func newRecordStore() *recordStore {
	store := &recordStore{
		shards: make([]*recordShard, shardCount),
	}
	for i := range shardCount {
		store.shards[i] = &recordShard{items: make(map[string]*record)}
	}

	return store
}

// shard returns the shard owning the given path key.
func (s *recordStore) shard(pathKey string) *recordShard {
	return s.shards[xxhash.Sum64String(pathKey)%shardCount]
}

// get retrieves the record for a path key.
func (s *recordStore) get(pathKey string) (*record, bool) {
	shard := s.shard(pathKey)
	shard.RLock()

	rec, ok := shard.items[pathKey]
	shard.RUnlock()

	return rec, ok
}

// getOrCreate returns the record for a path key, creating it with newFn when
// absent. When creation would push the distinct-key count past limit, it
// reports overflow and creates nothing. The distinct counter is
// reserved before insertion and rolled back on overflow, so the count never
// exceeds the limit even under concurrent inserts on different shards.
func (s *recordStore) getOrCreate(pathKey string, distinct *atomic.Int64, limit int64, newFn func() *record) (*record, bool) {
	shard := s.shard(pathKey)
	shard.Lock()
	defer shard.Unlock()

	if rec, ok := shard.items[pathKey]; ok {
		return rec, false
	}

	if distinct.Add(1) > limit {
		distinct.Add(-1)

		return nil, true
	}

	rec := newFn()
	shard.items[pathKey] = rec

	return rec, false
}

// count returns the number of records within the store.
func (s *recordStore) count() int {
	count := 0

	for i := range shardCount {
		shard := s.shards[i]
		shard.RLock()

		count += len(shard.items)
		shard.RUnlock()
	}

	return count
}

// iter calls fn for every record. The read lock is held for all calls within
// a given shard, so fn sees a consistent view of a shard, but not across
// shards.
func (s *recordStore) iter(fn func(pathKey string, rec *record)) {
	for idx := range s.shards {
		shard := s.shards[idx]
		shard.RLock()

		for pathKey, rec := range shard.items {
			fn(pathKey, rec)
		}

		shard.RUnlock()
	}
}
