// Package blockindex implements the height -> block persistent layout,
// plus the genesis-verification rule: a mismatched genesis forces a
// clean rebuild of the local chain database.
//
// The disk variant uses the same LRU-fronted leveldb pairing as package
// utxo's DiskStore, keyed by height instead of outpoint. Index has the
// method set of package chainsync's LocalChain, but its Rewind only
// removes blocks; package node wraps it so that a rewind also reverts
// the removed blocks' UTXO effects.
package blockindex

import (
	"encoding/binary"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

const blockKeyPrefix = 'b'

// Index maps height -> block, tracking the current tip height.
type Index interface {
	Height() uint64
	HashAt(height uint64) (ids.ID, bool)
	BlockAt(height uint64) (*chaintypes.Block, bool)
	Put(block *chaintypes.Block) error
	// Rewind removes every block above toHeight, the index half of a
	// rollback. Caller is
	// responsible for the corresponding UTXO-state rollback (package
	// utxo's Tracker/Store), since the index itself holds no opinion on
	// UTXO lifecycle.
	Rewind(toHeight uint64) error
}

// MemoryIndex is an in-memory Index, the default for tests and small
// deployments.
type MemoryIndex struct {
	mu     sync.RWMutex
	blocks map[uint64]*chaintypes.Block
	tip    uint64
	has    bool
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{blocks: make(map[uint64]*chaintypes.Block)}
}

func (idx *MemoryIndex) Height() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tip
}

func (idx *MemoryIndex) HashAt(h uint64) (ids.ID, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	b, ok := idx.blocks[h]
	if !ok {
		return ids.Empty, false
	}
	return b.Hash(), true
}

func (idx *MemoryIndex) BlockAt(h uint64) (*chaintypes.Block, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	b, ok := idx.blocks[h]
	return b, ok
}

func (idx *MemoryIndex) Put(block *chaintypes.Block) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.blocks[block.Header.Height] = block
	if !idx.has || block.Header.Height > idx.tip {
		idx.tip = block.Header.Height
		idx.has = true
	}
	return nil
}

func (idx *MemoryIndex) Rewind(toHeight uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for h := range idx.blocks {
		if h > toHeight {
			delete(idx.blocks, h)
		}
	}
	idx.tip = toHeight
	return nil
}

// DiskIndex is the leveldb-backed, LRU-fronted Index variant.
type DiskIndex struct {
	mu    sync.Mutex
	db    *leveldb.DB
	cache *lru.Cache
	tip   uint64
	has   bool
}

func NewDiskIndex(path string, cacheSize int) (*DiskIndex, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	idx := &DiskIndex{db: db, cache: cache}
	if err := idx.loadTip(); err != nil {
		return nil, err
	}
	return idx, nil
}

func heightKey(h uint64) []byte {
	b := make([]byte, 9)
	b[0] = blockKeyPrefix
	binary.BigEndian.PutUint64(b[1:], h)
	return b
}

func (idx *DiskIndex) loadTip() error {
	iter := idx.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		if len(key) != 9 || key[0] != blockKeyPrefix {
			continue
		}
		h := binary.BigEndian.Uint64(key[1:])
		if !idx.has || h > idx.tip {
			idx.tip = h
			idx.has = true
		}
	}
	return iter.Error()
}

func (idx *DiskIndex) Height() uint64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.tip
}

func (idx *DiskIndex) BlockAt(h uint64) (*chaintypes.Block, bool) {
	if cached, ok := idx.cache.Get(h); ok {
		if cached == nil {
			return nil, false
		}
		return cached.(*chaintypes.Block), true
	}
	raw, err := idx.db.Get(heightKey(h), nil)
	if err == leveldb.ErrNotFound {
		idx.cache.Add(h, nil)
		return nil, false
	} else if err != nil {
		return nil, false
	}
	block, err := chaintypes.UnmarshalBlock(raw)
	if err != nil {
		return nil, false
	}
	idx.cache.Add(h, block)
	return block, true
}

func (idx *DiskIndex) HashAt(h uint64) (ids.ID, bool) {
	block, ok := idx.BlockAt(h)
	if !ok {
		return ids.Empty, false
	}
	return block.Hash(), true
}

func (idx *DiskIndex) Put(block *chaintypes.Block) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.db.Put(heightKey(block.Header.Height), block.Bytes(), nil); err != nil {
		return err
	}
	idx.cache.Add(block.Header.Height, block)
	if !idx.has || block.Header.Height > idx.tip {
		idx.tip = block.Header.Height
		idx.has = true
	}
	return nil
}

func (idx *DiskIndex) Rewind(toHeight uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	batch := new(leveldb.Batch)
	for h := idx.tip; h > toHeight; h-- {
		batch.Delete(heightKey(h))
		idx.cache.Remove(h)
	}
	if err := idx.db.Write(batch, nil); err != nil {
		return err
	}
	idx.tip = toHeight
	return nil
}

func (idx *DiskIndex) Close() error { return idx.db.Close() }

// ErrGenesisMismatch is returned by VerifyGenesis when the persisted
// genesis block's hash disagrees with the canonical genesis supplied at
// startup; a mismatch forces a clean rebuild of the local chain
// database.
type ErrGenesisMismatch struct {
	Persisted, Canonical ids.ID
}

func (e *ErrGenesisMismatch) Error() string {
	return fmt.Sprintf("blockindex: persisted genesis %s does not match canonical genesis %s; rebuild required", e.Persisted, e.Canonical)
}

// VerifyGenesis checks idx's height-0 block (if any) against canonical.
// Returns nil if idx is empty (nothing to verify yet) or the persisted
// genesis matches; otherwise ErrGenesisMismatch, which callers must treat
// as "wipe and resync from scratch" rather than attempt a partial repair.
func VerifyGenesis(idx Index, canonical *chaintypes.Block) error {
	existing, ok := idx.BlockAt(0)
	if !ok {
		return nil
	}
	if existing.Hash() != canonical.Hash() {
		return &ErrGenesisMismatch{Persisted: existing.Hash(), Canonical: canonical.Hash()}
	}
	return nil
}
