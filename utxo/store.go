// Package utxo implements the UTXO set store and the per-outpoint state
// tracker.
//
// Store has two implementations, selectable via configuration: an
// in-memory map, and an LRU-cached disk-backed variant. The disk-backed
// variant checks the cache, falls through to leveldb on a miss, and
// caches what it finds — including misses, so a hot absent key never
// hits disk twice. On-disk keys carry a type-tag byte prefix ahead of
// the fixed-width outpoint bytes.
package utxo

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/zenithcoin/zenithd/chaintypes"
)

const utxoKeyPrefix = 'u'

// Store maps OutPoint -> UTXO. Implementations must be safe for
// concurrent use by multiple readers and a single batch writer; one
// write lock covers the whole set, with no finer-grained per-entry
// locking.
type Store interface {
	Get(op chaintypes.OutPoint) (*chaintypes.UTXO, bool, error)
	Put(utxo *chaintypes.UTXO) error
	Delete(op chaintypes.OutPoint) error
	Has(op chaintypes.OutPoint) (bool, error)
	// Batch applies deletes then puts atomically from the caller's
	// perspective (mempool/finality only ever mutate the set per-tx, in
	// one batch).
	Batch(puts []*chaintypes.UTXO, deletes []chaintypes.OutPoint) error
}

// MemoryStore is the in-memory Store variant.
type MemoryStore struct {
	mu   sync.RWMutex
	utxo map[chaintypes.OutPoint]*chaintypes.UTXO
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{utxo: make(map[chaintypes.OutPoint]*chaintypes.UTXO)}
}

func (s *MemoryStore) Get(op chaintypes.OutPoint) (*chaintypes.UTXO, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.utxo[op]
	return u, ok, nil
}

func (s *MemoryStore) Put(u *chaintypes.UTXO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utxo[u.OutPoint] = u
	return nil
}

func (s *MemoryStore) Delete(op chaintypes.OutPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.utxo, op)
	return nil
}

func (s *MemoryStore) Has(op chaintypes.OutPoint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.utxo[op]
	return ok, nil
}

func (s *MemoryStore) Batch(puts []*chaintypes.UTXO, deletes []chaintypes.OutPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range deletes {
		delete(s.utxo, op)
	}
	for _, u := range puts {
		s.utxo[u.OutPoint] = u
	}
	return nil
}

// Len returns the number of live UTXOs, for tests and the CLI.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.utxo)
}

// DiskStore is the LRU-cached, leveldb-backed Store variant.
type DiskStore struct {
	mu    sync.Mutex
	db    *leveldb.DB
	cache *lru.Cache
}

// NewDiskStore opens (or creates) a leveldb database at path, fronted by
// an LRU of cacheSize entries.
func NewDiskStore(path string, cacheSize int) (*DiskStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &DiskStore{db: db, cache: cache}, nil
}

func diskKey(op chaintypes.OutPoint) []byte {
	b := make([]byte, 0, 1+32+4)
	b = append(b, utxoKeyPrefix)
	b = append(b, op.TxID[:]...)
	b = append(b, byte(op.Vout>>24), byte(op.Vout>>16), byte(op.Vout>>8), byte(op.Vout))
	return b
}

func (s *DiskStore) Get(op chaintypes.OutPoint) (*chaintypes.UTXO, bool, error) {
	if cached, ok := s.cache.Get(op); ok {
		if cached == nil {
			return nil, false, nil
		}
		return cached.(*chaintypes.UTXO), true, nil
	}

	raw, err := s.db.Get(diskKey(op), nil)
	if err == leveldb.ErrNotFound {
		s.cache.Add(op, nil) // cache the miss
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	u, err := chaintypes.UnmarshalUTXO(raw)
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(op, u)
	return u, true, nil
}

func (s *DiskStore) Put(u *chaintypes.UTXO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Put(diskKey(u.OutPoint), u.Marshal(), nil); err != nil {
		return err
	}
	s.cache.Add(u.OutPoint, u)
	return nil
}

func (s *DiskStore) Delete(op chaintypes.OutPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Delete(diskKey(op), nil); err != nil {
		return err
	}
	s.cache.Add(op, nil)
	return nil
}

func (s *DiskStore) Has(op chaintypes.OutPoint) (bool, error) {
	_, ok, err := s.Get(op)
	return ok, err
}

func (s *DiskStore) Batch(puts []*chaintypes.UTXO, deletes []chaintypes.OutPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := new(leveldb.Batch)
	for _, op := range deletes {
		batch.Delete(diskKey(op))
	}
	for _, u := range puts {
		batch.Put(diskKey(u.OutPoint), u.Marshal())
	}
	if err := s.db.Write(batch, nil); err != nil {
		return err
	}
	for _, op := range deletes {
		s.cache.Add(op, nil)
	}
	for _, u := range puts {
		s.cache.Add(u.OutPoint, u)
	}
	return nil
}

func (s *DiskStore) Close() error { return s.db.Close() }
