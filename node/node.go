// Package node composes the consensus library into a runnable
// masternode: stores, state tracker, mempool, finality engine, block
// consensus, peer manager, and every background loop (reapers,
// keep-alive, vote timeouts, the block-boundary producer). Every
// subsystem is constructed here and handed its collaborators
// explicitly; nothing reaches for a global.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zenithcoin/zenithd/blockindex"
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/consensus"
	"github.com/zenithcoin/zenithd/finality"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/logging"
	"github.com/zenithcoin/zenithd/mempool"
	"github.com/zenithcoin/zenithd/metrics"
	"github.com/zenithcoin/zenithd/peer"
	"github.com/zenithcoin/zenithd/reward"
	"github.com/zenithcoin/zenithd/txvalidator"
	"github.com/zenithcoin/zenithd/utxo"
	"github.com/zenithcoin/zenithd/wire"
	"github.com/zenithcoin/zenithd/xcrypto"
)

const (
	utxoSubdir    = "utxo"
	blocksSubdir  = "blocks"
	statusFile    = "status.json"
	defaultCache  = 4096
	sweepInterval = 5 * time.Second
)

// Options selects the node's persistence and network bootstrap.
type Options struct {
	// DataDir is the root of the on-disk layout; empty selects the
	// in-memory store variants.
	DataDir string
	// Genesis is the canonical genesis document every peer must share.
	Genesis *GenesisDoc
	// Key signs this masternode's votes.
	Key xcrypto.PrivateKey
	// Seeds are peer addresses dialed at startup.
	Seeds []string
	// CacheSize bounds the LRU in front of each disk store; 0 uses the
	// default.
	CacheSize int
}

// Node owns every consensus subsystem for one masternode process.
type Node struct {
	cfg     *config.Config
	log     *logging.Logger
	metrics *metrics.Registry
	opts    Options

	genesis *chaintypes.Block
	store   utxo.Store
	tracker *utxo.Tracker
	bus     *utxo.Bus
	mpool   *mempool.Mempool
	votes   *finality.Engine
	blocks  *consensus.Engine
	index   blockindex.Index
	rewards *reward.Tracker
	peers   *peer.Manager
	health  *peer.HealthMonitor
	key     xcrypto.PrivateKey

	mu      sync.Mutex
	members *chaintypes.Set
	// awaiting correlates BlockRequest heights to the goroutine waiting
	// on the matching BlockResponse (chainsync's header fetch).
	awaiting map[uint64]chan *chaintypes.Block
	// reconcileWant records, per height, the majority hash a pending
	// reconciliation fetch must produce.
	reconcileWant map[uint64]ids.ID
	// spentArchive retains the UTXOs consumed by in-flight transactions.
	// Finalize deletes spent entries from the live set,
	// but reconciliation must still resolve them to re-validate a
	// majority block containing a transaction we also finalized. Pruned
	// at block commitment.
	spentArchive map[chaintypes.OutPoint]*chaintypes.UTXO
}

// New wires a Node from cfg and opts. The caller must have set
// cfg.GenesisTimestamp, cfg.GenesisHash, and cfg.NodeID consistently
// with opts.Genesis and opts.Key (cmd/zenithd does this from the genesis
// document).
func New(cfg *config.Config, log *logging.Logger, opts Options) (*Node, error) {
	genesisBlock := opts.Genesis.Block()
	members, err := opts.Genesis.MasternodeSet()
	if err != nil {
		return nil, err
	}
	if cfg.GenesisHash != genesisBlock.Hash() {
		return nil, fmt.Errorf("node: cfg.GenesisHash does not match the loaded genesis document")
	}

	reg := metrics.New(prometheus.NewRegistry())

	store, index, err := openStores(cfg, log, opts, genesisBlock)
	if err != nil {
		return nil, err
	}

	bus, err := utxo.NewBus()
	if err != nil {
		return nil, err
	}
	tracker := utxo.NewTracker(store)

	mpool, err := mempool.New(cfg)
	if err != nil {
		bus.Close()
		return nil, err
	}

	n := &Node{
		cfg:           cfg,
		log:           log,
		metrics:       reg,
		opts:          opts,
		genesis:       genesisBlock,
		store:         store,
		tracker:       tracker,
		bus:           bus,
		mpool:         mpool,
		index:         index,
		rewards:       reward.NewGenesisTracker(members),
		key:           opts.Key,
		members:       members,
		awaiting:      make(map[uint64]chan *chaintypes.Block),
		reconcileWant: make(map[uint64]ids.ID),
		spentArchive:  make(map[chaintypes.OutPoint]*chaintypes.UTXO),
	}
	n.votes = finality.NewEngine(cfg, store, tracker, mpool, members, reg, bus)
	n.peers = peer.NewManager(cfg, log, reg, n.selfInfo, n.handleMessage)
	n.blocks = consensus.NewEngine(cfg, n.peers.Pool(), members, reg, cfg.NodeID)

	if err := n.seedChain(); err != nil {
		bus.Close()
		return nil, err
	}
	return n, nil
}

// openStores builds the configured Store/Index pair, enforcing the
// genesis-verification rule: a persisted chain with a different genesis
// is wiped and rebuilt from scratch.
func openStores(cfg *config.Config, log *logging.Logger, opts Options, genesisBlock *chaintypes.Block) (utxo.Store, blockindex.Index, error) {
	if opts.DataDir == "" {
		return utxo.NewMemoryStore(), blockindex.NewMemoryIndex(), nil
	}

	cache := opts.CacheSize
	if cache <= 0 {
		cache = defaultCache
	}
	utxoPath := filepath.Join(opts.DataDir, utxoSubdir)
	blocksPath := filepath.Join(opts.DataDir, blocksSubdir)

	open := func() (utxo.Store, *blockindex.DiskIndex, error) {
		store, err := utxo.NewDiskStore(utxoPath, cache)
		if err != nil {
			return nil, nil, err
		}
		index, err := blockindex.NewDiskIndex(blocksPath, cache)
		if err != nil {
			return nil, nil, err
		}
		return store, index, nil
	}

	store, index, err := open()
	if err != nil {
		return nil, nil, err
	}
	if err := blockindex.VerifyGenesis(index, genesisBlock); err != nil {
		log.Warn("persisted genesis mismatch, rebuilding chain database", "err", err)
		index.Close()
		if closer, ok := store.(*utxo.DiskStore); ok {
			closer.Close()
		}
		if err := os.RemoveAll(utxoPath); err != nil {
			return nil, nil, err
		}
		if err := os.RemoveAll(blocksPath); err != nil {
			return nil, nil, err
		}
		store, index, err = open()
		if err != nil {
			return nil, nil, err
		}
	}
	return store, index, nil
}

// seedChain installs the genesis block and its coinbase outputs if the
// index is empty, and seeds the consensus head from the persisted tip.
func (n *Node) seedChain() error {
	if _, ok := n.index.BlockAt(0); !ok {
		if err := n.index.Put(n.genesis); err != nil {
			return err
		}
	}
	// (Re)register every live UTXO's outpoint with the tracker. For the
	// in-memory store this materializes genesis allocations; for a disk
	// store it restores tracker entries for what survived the last run.
	for _, tx := range n.genesis.Transactions {
		txID := tx.TxID()
		for vout, out := range tx.Outputs {
			op := chaintypes.OutPoint{TxID: txID, Vout: uint32(vout)}
			if has, _ := n.store.Has(op); !has {
				u := &chaintypes.UTXO{OutPoint: op, Value: out.Value, ScriptPubKey: out.ScriptPubKey, Address: out.Address}
				if err := n.store.Put(u); err != nil {
					return err
				}
			}
			n.tracker.Init(op)
		}
	}

	tip := n.index.Height()
	if hash, ok := n.index.HashAt(tip); ok {
		n.blocks.SetHead(tip, hash)
	}
	return nil
}

// selfInfo is the handshake identity provider handed to the peer manager.
func (n *Node) selfInfo() peer.Info {
	return peer.Info{
		NodeID:          n.cfg.NodeID,
		GenesisHash:     n.cfg.GenesisHash,
		Height:          n.index.Height(),
		ProtocolVersion: n.cfg.ProtocolVersion,
	}
}

// Members returns the current masternode set snapshot.
func (n *Node) Members() *chaintypes.Set {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.members
}

// SetMembers applies a membership change observed from the external
// membership component, propagating the new snapshot to both engines.
// Already-open vote windows keep the quorum they captured at open.
func (n *Node) SetMembers(members *chaintypes.Set) {
	n.mu.Lock()
	n.members = members
	n.mu.Unlock()
	n.votes.SetMembers(members)
	n.blocks.SetMembers(members)
}

// Run starts every background loop and blocks until ctx is canceled.
func (n *Node) Run(ctx context.Context) error {
	if err := n.peers.Listen(); err != nil {
		return err
	}

	health, err := peer.NewHealthMonitor(n.peers.Pool(), n.cfg.PeerIdleTimeout, n.cfg.KeepaliveInterval)
	if err != nil {
		return err
	}
	n.health = health
	defer health.Stop()
	defer n.bus.Close()

	var wg sync.WaitGroup
	run := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	run(func() { _ = n.peers.Serve(ctx) })
	run(func() {
		peer.NewKeepAlive(n.peers.Pool(), n.cfg.KeepaliveInterval, n.cfg.BroadcastTimeout).Run(ctx)
	})
	run(func() {
		peer.NewReaper(n.peers.Pool(), n.cfg.PeerIdleTimeout, sweepInterval).Run(ctx)
	})
	run(func() {
		reaper := utxo.NewReaper(n.tracker, n.bus, utxo.ReaperConfig{
			LockTimeout:    n.cfg.LockTimeout,
			PendingTimeout: n.cfg.PendingTimeout,
			SweepInterval:  sweepInterval,
		})
		reaper.OnRelease(func(op chaintypes.OutPoint, txID ids.ID) {
			_ = n.mpool.Remove(txID)
			n.mu.Lock()
			delete(n.spentArchive, op)
			n.mu.Unlock()
		})
		reaper.Run(ctx)
	})
	run(func() { n.voteTimeoutLoop(ctx) })
	run(func() { n.mempoolSweepLoop(ctx) })
	run(func() { n.producerLoop(ctx) })
	run(func() { n.syncLoop(ctx) })
	run(func() { n.statusLoop(ctx) })

	for _, seed := range n.opts.Seeds {
		if err := n.peers.Connect(ctx, seed); err != nil {
			n.log.Warn("seed dial failed", "addr", seed, "err", err)
		}
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

// SubmitTx validates, admits, and opens a vote window for tx, then asks
// the network to vote. The DoS shield runs before any
// lock or shared state is touched.
func (n *Node) SubmitTx(tx *chaintypes.Transaction, now time.Time) error {
	if size := tx.Size(); size > n.cfg.HardTxLimit {
		return &txvalidator.ErrTxTooLarge{Size: size, Max: n.cfg.HardTxLimit}
	}
	txID := tx.TxID()
	height := n.index.Height() + 1

	if err := txvalidator.Validate(n.cfg, tx, n.resolveSpendable(txID), now.Unix(), height); err != nil {
		if n.metrics != nil {
			n.metrics.TxRejected.WithLabelValues("validation").Inc()
		}
		return err
	}
	// Snapshot the inputs into the spent archive before any of them can
	// be deleted from the live set by finalization.
	resolve := n.resolveSpendable(txID)
	n.mu.Lock()
	for _, in := range tx.Inputs {
		if u, ok := resolve(in.OutPoint); ok {
			n.spentArchive[in.OutPoint] = u
		}
	}
	n.mu.Unlock()

	if err := n.mpool.Add(tx, now); err != nil {
		return err
	}
	if err := n.votes.Open(tx, height, now); err != nil {
		_ = n.mpool.Remove(txID)
		return err
	}

	// Lock notices race ahead of the authoritative gossip so remote
	// nodes observe AlreadyLocked as early as possible.
	for _, in := range tx.Inputs {
		notice := &wire.UtxoLockNotice{OutPoint: in.OutPoint, TxID: txID, Timestamp: now.Unix()}
		notice.Signature = n.key.Sign(notice.SigHash())
		n.peers.Pool().Broadcast(notice, n.cfg.BroadcastTimeout)
	}
	n.peers.Pool().Broadcast(&wire.TxBroadcast{Tx: tx}, n.cfg.BroadcastTimeout)
	n.peers.Pool().Broadcast(&wire.VoteRequest{TxID: txID}, n.cfg.BroadcastTimeout)
	n.castVote(txID, true, now)
	return nil
}

// resolveSpendable returns the validator's UTXO view for a transaction:
// an outpoint resolves only while Unspent or already Locked by this same
// transaction (the re-broadcast case).
func (n *Node) resolveSpendable(txID ids.ID) txvalidator.UTXOResolver {
	return func(op chaintypes.OutPoint) (*chaintypes.UTXO, bool) {
		u, ok, err := n.store.Get(op)
		if err != nil || !ok {
			return nil, false
		}
		st, err := n.tracker.State(op)
		if err != nil {
			return nil, false
		}
		switch st.Kind {
		case chaintypes.Unspent:
			return u, true
		case chaintypes.Locked:
			if st.TxID == txID {
				return u, true
			}
		}
		return nil, false
	}
}

// resolveLive resolves any outpoint still present in the UTXO set,
// regardless of lock state, falling back to the spent archive — the view
// reconciliation uses when re-validating a majority block whose
// transactions this node may already have locked or finalized.
func (n *Node) resolveLive(op chaintypes.OutPoint) (*chaintypes.UTXO, bool) {
	u, ok, err := n.store.Get(op)
	if err == nil && ok {
		return u, true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	u, ok = n.spentArchive[op]
	return u, ok
}

// castVote signs and tallies our own vote, then broadcasts it.
func (n *Node) castVote(txID ids.ID, approve bool, now time.Time) {
	v := &chaintypes.Vote{
		TxID:      txID,
		Voter:     n.cfg.NodeID,
		Approve:   approve,
		Timestamp: now.Unix(),
	}
	v.Signature = n.key.Sign(v.SigHash())
	if _, err := n.votes.Vote(v, now); err != nil {
		n.log.Debug("self vote not tallied", "txid", txID, "err", err)
	}
	n.peers.Pool().Broadcast(&wire.Vote{Vote: v}, n.cfg.BroadcastTimeout)
}

func (n *Node) voteTimeoutLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, txID := range n.votes.Timeout(time.Now()) {
				n.log.Info("vote window timed out", "txid", txID)
			}
		}
	}
}

func (n *Node) mempoolSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, tx := range n.mpool.EvictStale(time.Now()) {
				txID := tx.TxID()
				for _, in := range tx.Inputs {
					_ = n.tracker.Release(in.OutPoint, txID)
					n.mu.Lock()
					delete(n.spentArchive, in.OutPoint)
					n.mu.Unlock()
				}
				n.log.Info("evicted stale transaction", "txid", txID)
			}
			if n.metrics != nil {
				n.metrics.MempoolSize.Set(float64(n.mpool.Len()))
			}
		}
	}
}

// Status is the CLI-facing snapshot.
type Status struct {
	Height       uint64 `json:"height"`
	TipHash      string `json:"tipHash"`
	Peers        int    `json:"peers"`
	PendingVotes int    `json:"pendingVotes"`
	MempoolSize  int    `json:"mempoolSize"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// CurrentStatus assembles the live status snapshot.
func (n *Node) CurrentStatus() Status {
	tip := n.index.Height()
	hash, _ := n.index.HashAt(tip)
	return Status{
		Height:       tip,
		TipHash:      hash.String(),
		Peers:        n.peers.Pool().Len(),
		PendingVotes: n.votes.PendingCount(),
		MempoolSize:  n.mpool.Len(),
		UpdatedAt:    time.Now().Unix(),
	}
}

// statusLoop persists the status snapshot for the offline CLI commands
// to read while the node runs.
func (n *Node) statusLoop(ctx context.Context) {
	if n.opts.DataDir == "" {
		return
	}
	path := filepath.Join(n.opts.DataDir, statusFile)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = os.Remove(path)
			return
		case <-ticker.C:
			raw, err := json.Marshal(n.CurrentStatus())
			if err == nil {
				_ = os.WriteFile(path, raw, 0o644)
			}
		}
	}
}

// ReadStatusFile loads the status snapshot a running node last wrote
// under dataDir, reporting false if none exists.
func ReadStatusFile(dataDir string) (Status, bool) {
	raw, err := os.ReadFile(filepath.Join(dataDir, statusFile))
	if err != nil {
		return Status{}, false
	}
	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return Status{}, false
	}
	return s, true
}

// TxView is the state-tracker view of one transaction (CLI get-tx).
type TxView struct {
	TxID      string   `json:"txid"`
	Decision  string   `json:"decision"`
	InMempool bool     `json:"inMempool"`
	Inputs    []string `json:"inputs"`
}

// DescribeTx reports what the node currently knows about txID.
func (n *Node) DescribeTx(txID ids.ID) TxView {
	view := TxView{TxID: txID.String(), Decision: "unknown"}
	if d, ok := n.votes.Decision(txID); ok {
		switch d {
		case finality.Finalized:
			view.Decision = "finalized"
		case finality.Rejected:
			view.Decision = "rejected"
		default:
			view.Decision = "pending"
		}
	}
	if tx, ok := n.mpool.Get(txID); ok {
		view.InMempool = true
		for _, in := range tx.Inputs {
			st, err := n.tracker.State(in.OutPoint)
			if err != nil {
				view.Inputs = append(view.Inputs, in.OutPoint.String()+" unknown")
				continue
			}
			view.Inputs = append(view.Inputs, in.OutPoint.String()+" "+st.Kind.String())
		}
	}
	return view
}
