// Package mempool holds transactions between broadcast and finalization:
// admission checks, conflict tracking, a bloom-filter fast path for
// duplicate detection, TTL-based eviction of stale entries, and draining
// of finalized transactions for block assembly.
//
// The bloom filter gives a cheap "definitely-not-present" pre-check
// ahead of the exact map lookup that decides admission; a false positive
// only costs the redundant probe that would have happened anyway.
package mempool

import (
	"hash"
	"hash/fnv"
	"sync"
	"time"

	"github.com/steakknife/bloomfilter"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
)

type mempoolEntry struct {
	tx         *chaintypes.Transaction
	addedAt    time.Time
	finalized  bool
	finalizedAt uint64 // block height
}

// Mempool is safe for concurrent use.
type Mempool struct {
	cfg *config.Config

	mu         sync.Mutex
	txs        map[ids.ID]*mempoolEntry
	conflicts  *conflictSet
	filter     *bloomfilter.Filter
	totalBytes int
}

// New builds an empty Mempool sized for cfg.HardTxLimit entries.
func New(cfg *config.Config) (*Mempool, error) {
	filter, err := bloomfilter.NewOptimal(uint64(cfg.HardTxLimit), 0.001)
	if err != nil {
		return nil, err
	}
	return &Mempool{
		cfg:       cfg,
		txs:       make(map[ids.ID]*mempoolEntry),
		conflicts: newConflictSet(),
		filter:    filter,
	}, nil
}

// bloomKey hashes id into the hash.Hash64 the bloom filter's Add/Contains
// expect, so a duplicate check never needs the full 32-byte key.
func bloomKey(id ids.ID) hash.Hash64 {
	h := fnv.New64a()
	h.Write(id[:])
	return h
}

// Add admits tx, rejecting it if already present, conflicting, or the
// mempool is at its hard limit. The caller is responsible for having run
// txvalidator.Validate first; Add only enforces mempool-local invariants.
func (m *Mempool) Add(tx *chaintypes.Transaction, now time.Time) error {
	txID := tx.TxID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.filter.Contains(bloomKey(txID)) {
		if _, ok := m.txs[txID]; ok {
			return &ErrAlreadyPresent{TxID: txID}
		}
	}

	if conflicting := m.conflicts.conflictsWith(tx); len(conflicting) > 0 {
		return &ErrConflict{TxID: txID, ConflictsWith: conflicting}
	}

	if len(m.txs) >= m.cfg.HardTxLimit {
		return &ErrFull{Limit: m.cfg.HardTxLimit}
	}

	m.txs[txID] = &mempoolEntry{tx: tx, addedAt: now}
	m.conflicts.add(tx)
	m.filter.Add(bloomKey(txID))
	m.totalBytes += tx.Size()
	return nil
}

// Remove discards txID regardless of its finalized status, releasing its
// claimed outpoints.
func (m *Mempool) Remove(txID ids.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.txs[txID]
	if !ok {
		return &ErrNotFound{TxID: txID}
	}
	m.totalBytes -= e.tx.Size()
	m.conflicts.remove(txID)
	delete(m.txs, txID)
	return nil
}

// Get returns the held transaction for txID, if any.
func (m *Mempool) Get(txID ids.ID) (*chaintypes.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.txs[txID]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// MarkFinalized records that txID reached quorum at height, so the next
// DrainFinalized call returns it and the TTL sweep skips it.
func (m *Mempool) MarkFinalized(txID ids.ID, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.txs[txID]
	if !ok {
		return &ErrNotFound{TxID: txID}
	}
	e.finalized = true
	e.finalizedAt = height
	return nil
}

// DrainFinalized removes and returns every transaction marked finalized,
// for the block builder to assemble into a candidate block body.
func (m *Mempool) DrainFinalized() []*chaintypes.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*chaintypes.Transaction
	for txID, e := range m.txs {
		if !e.finalized {
			continue
		}
		out = append(out, e.tx)
		m.totalBytes -= e.tx.Size()
		m.conflicts.remove(txID)
		delete(m.txs, txID)
	}
	return out
}

// EvictStale removes every non-finalized transaction older than
// cfg.MempoolTTL, returning the evicted transactions so the caller can
// release the input locks each one still holds; eviction always
// releases.
func (m *Mempool) EvictStale(now time.Time) []*chaintypes.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []*chaintypes.Transaction
	for txID, e := range m.txs {
		if e.finalized {
			continue
		}
		if now.Sub(e.addedAt) < m.cfg.MempoolTTL {
			continue
		}
		evicted = append(evicted, e.tx)
		m.totalBytes -= e.tx.Size()
		m.conflicts.remove(txID)
		delete(m.txs, txID)
	}
	return evicted
}

// Len returns the number of held transactions, finalized or not.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// SizeBytes returns the summed encoded size of every held transaction.
func (m *Mempool) SizeBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes
}
