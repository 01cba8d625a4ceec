// chain.go drives the chain forward and, when necessary, backward: the
// block-boundary producer loop, block commitment into the index and UTXO
// state, the fork check with its un-Confirm rollback, and catch-up sync
// against the best peer.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/zenithcoin/zenithd/block"
	"github.com/zenithcoin/zenithd/chainsync"
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/consensus"
	"github.com/zenithcoin/zenithd/fatal"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/utxo"
	"github.com/zenithcoin/zenithd/vdf"
	"github.com/zenithcoin/zenithd/wire"
)

// producerLoop wakes at every scheduled block boundary, builds the
// deterministic candidate, and drives the comparison round to a
// decision.
func (n *Node) producerLoop(ctx context.Context) {
	for {
		boundary := n.nextBoundary(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(boundary)):
		}
		n.produceAt(ctx, boundary)
	}
}

// nextBoundary returns the earliest T(h) strictly after now.
func (n *Node) nextBoundary(now time.Time) time.Time {
	h := n.cfg.HeightAt(now) + 1
	return time.Unix(n.cfg.TimestampForHeight(h), 0)
}

// produceAt runs one comparison round for the height scheduled at
// boundary.
func (n *Node) produceAt(ctx context.Context, boundary time.Time) {
	height := n.index.Height() + 1
	scheduled := n.cfg.HeightAt(boundary)
	if scheduled < height {
		// The chain is ahead of the schedule (a prior round at this
		// boundary already landed); nothing to do.
		return
	}
	prevHash, ok := n.index.HashAt(height - 1)
	if !ok {
		n.log.Error("no parent block for scheduled height", "height", height)
		return
	}

	finalized := n.mpool.DrainFinalized()
	var fees uint64
	for _, tx := range finalized {
		if fee, ok := n.votes.PopFee(tx.TxID()); ok {
			fees += fee
		}
	}

	candidate := block.Candidate{
		Height:            height,
		PreviousHash:      prevHash,
		FinalizedTxs:      finalized,
		TotalFees:         fees,
		EligibleForReward: n.rewards.EligibleForCurrentBlock(),
		Version:           1,
	}
	built, err := block.Build(n.cfg, candidate)
	if err != nil {
		n.log.Error("block build failed", "height", height, "err", err)
		return
	}

	n.blocks.BeginRound(built, time.Now())
	n.log.Info("block candidate built",
		"height", height, "hash", built.Hash(), "txs", len(built.Transactions))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		outcome, local, _ := n.blocks.Tick(time.Now())
		switch outcome {
		case consensus.Pending:
			continue
		case consensus.Agreed:
			if local != nil {
				n.commitBlock(local)
			}
			return
		case consensus.NeedsReconciliation:
			// The fetch was issued by the announcement handler; the
			// round resolves (or this height is retried) from there.
			return
		case consensus.Failed:
			n.log.Warn("no block agreement, skipping round", "height", height)
			return
		}
	}
}

// commitBlock applies an agreed block: persist it, confirm every spent
// input, materialize any output this node has not yet seen (sync path),
// and advance the reward eligibility interval. Idempotent per height —
// re-committing the tip block is a no-op.
func (n *Node) commitBlock(blk *chaintypes.Block) {
	height := blk.Header.Height
	if existing, ok := n.index.HashAt(height); ok {
		if existing != blk.Hash() {
			// The chain never produces two blocks at one height; a
			// different candidate arriving after commitment is stale
			// round state, never an overwrite.
			n.log.Warn("refusing to replace committed block",
				"height", height, "committed", existing, "candidate", blk.Hash())
		}
		return
	}
	if height > 0 {
		parent, ok := n.index.HashAt(height - 1)
		if !ok {
			fatal.Abort(n.log, "block commit with no parent in the index",
				"height", height, "hash", blk.Hash())
		}
		if parent != blk.Header.PreviousHash {
			fatal.Abort(n.log, "block commit breaks previous-hash linkage",
				"height", height, "parent", parent, "claimed", blk.Header.PreviousHash)
		}
	}
	if err := n.index.Put(blk); err != nil {
		n.log.Error("block persist failed", "height", height, "err", err)
		return
	}

	now := time.Now()
	for _, tx := range blk.Transactions {
		txID := tx.TxID()
		for _, in := range tx.Inputs {
			n.mu.Lock()
			delete(n.spentArchive, in.OutPoint)
			n.mu.Unlock()
			if err := n.tracker.Confirm(in.OutPoint, txID, height, now); err != nil {
				// Sync path: we never voted this tx through
				// SpentPending, so Confirm fails and the tracker entry
				// keeps its current state; the store delete below still
				// removes the outpoint.
				n.log.Debug("confirm skipped", "outpoint", in.OutPoint, "err", err)
			}
			_ = n.store.Delete(in.OutPoint)
			if n.bus != nil {
				_ = n.bus.Publish(utxo.Event{OutPoint: in.OutPoint, Kind: chaintypes.Confirmed, TxID: txID})
			}
		}
		for vout, out := range tx.Outputs {
			op := chaintypes.OutPoint{TxID: txID, Vout: uint32(vout)}
			if has, _ := n.store.Has(op); !has {
				u := &chaintypes.UTXO{OutPoint: op, Value: out.Value, ScriptPubKey: out.ScriptPubKey, Address: out.Address}
				_ = n.store.Put(u)
			}
			n.tracker.Init(op)
		}
	}

	n.rewards.AdvanceInterval(n.Members())
	n.log.Info("block committed", "height", height, "hash", blk.Hash())

	n.peers.Pool().Broadcast(&wire.BlockAnnouncement{Header: &blk.Header}, n.cfg.BroadcastTimeout)
}

// verifyIncoming runs every acceptance rule a peer-supplied block must
// pass before commitment: the deterministic construction rules (via
// consensus.Reconcile) and, when enabled, the proof-of-time.
func (n *Node) verifyIncoming(blk *chaintypes.Block, height uint64, prevHash, wantHash ids.ID) error {
	if err := consensus.Reconcile(n.cfg, blk, height, prevHash, wantHash, n.resolveLive); err != nil {
		return err
	}
	if n.cfg.VDFEnabled && height >= n.cfg.VDFMinHeight {
		pot := blk.Header.ProofOfTime
		if pot == nil {
			return fmt.Errorf("node: block %d carries no proof of time", height)
		}
		mod, err := vdf.GenerateModulus(n.cfg.VDFModulusBits, n.cfg.GenesisTimestamp)
		if err != nil {
			return err
		}
		if err := vdf.Verify(mod, pot); err != nil {
			return err
		}
	}
	return nil
}

// syncLoop periodically measures the best peer's height against ours
// and, when behind, runs the fork check followed by forward catch-up.
func (n *Node) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.syncOnce(ctx)
		}
	}
}

func (n *Node) syncOnce(ctx context.Context) {
	best, ok := n.peers.Pool().BestPeer()
	if !ok || best.Info.Height <= n.index.Height() {
		return
	}
	if !chainsync.WithinTimeTolerance(n.cfg, best.Info.Height, time.Now()) {
		n.log.Warn("peer reports implausible height",
			"peer", best.Info.NodeID, "height", best.Info.Height)
		return
	}

	res, err := chainsync.Reconcile(ctx, n.localChain(), n.headerFetcher(), best.Info.NodeID, best.Info.Height)
	if err != nil {
		n.log.Warn("fork check aborted", "peer", best.Info.NodeID, "err", err)
		return
	}
	if res.DifferentChain {
		n.log.Error("peer is on a different chain", "peer", best.Info.NodeID)
		return
	}
	if res.RewoundFrom > 0 {
		n.log.Warn("rewound local chain",
			"from", res.RewoundFrom, "to", res.CommonAncestor)
	}
	n.catchUp(ctx, best.Info.NodeID, best.Info.Height)
}

// catchUp fetches, verifies, and commits each missing block in order.
func (n *Node) catchUp(ctx context.Context, peerID ids.ShortID, peerHeight uint64) {
	for h := n.index.Height() + 1; h <= peerHeight; h++ {
		blk, err := n.fetchBlock(ctx, peerID, h)
		if err != nil {
			n.log.Warn("catch-up fetch failed", "height", h, "err", err)
			return
		}
		prevHash, ok := n.index.HashAt(h - 1)
		if !ok {
			return
		}
		if err := n.verifyIncoming(blk, h, prevHash, blk.Hash()); err != nil {
			n.log.Error("catch-up block failed verification", "height", h, "err", err)
			return
		}
		n.commitBlock(blk)
		n.blocks.SetHead(h, blk.Hash())
	}
}

// fetchBlock requests height from peerID and waits for the matching
// BlockResponse, bounded by the broadcast timeout scaled for a full
// block transfer.
func (n *Node) fetchBlock(ctx context.Context, peerID ids.ShortID, height uint64) (*chaintypes.Block, error) {
	ch := make(chan *chaintypes.Block, 1)
	n.mu.Lock()
	n.awaiting[height] = ch
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		delete(n.awaiting, height)
		n.mu.Unlock()
	}()

	n.peers.Pool().SendTo([]ids.ShortID{peerID}, &wire.BlockRequest{Height: height}, n.cfg.BroadcastTimeout)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case blk := <-ch:
		return blk, nil
	case <-time.After(n.cfg.BlockCompareWindow):
		return nil, chainsync.ErrTimeout
	}
}

// headerFetcher adapts fetchBlock into chainsync's HeaderFetcher seam.
func (n *Node) headerFetcher() chainsync.HeaderFetcher {
	return headerFetchFunc(func(ctx context.Context, peerID ids.ShortID, height uint64) (ids.ID, error) {
		blk, err := n.fetchBlock(ctx, peerID, height)
		if err != nil {
			return ids.Empty, err
		}
		return blk.Hash(), nil
	})
}

type headerFetchFunc func(ctx context.Context, peer ids.ShortID, height uint64) (ids.ID, error)

func (f headerFetchFunc) FetchHeaderHash(ctx context.Context, peer ids.ShortID, height uint64) (ids.ID, error) {
	return f(ctx, peer, height)
}

// localChain adapts the index plus the UTXO rollback into chainsync's
// LocalChain seam: Rewind removes blocks AND reverts the UTXO effects of
// each removed block, top-down.
func (n *Node) localChain() chainsync.LocalChain {
	return &rollbackChain{n: n}
}

type rollbackChain struct{ n *Node }

func (c *rollbackChain) Height() uint64 { return c.n.index.Height() }

func (c *rollbackChain) HashAt(h uint64) (ids.ID, bool) { return c.n.index.HashAt(h) }

func (c *rollbackChain) Rewind(toHeight uint64) error {
	n := c.n
	for h := n.index.Height(); h > toHeight; h-- {
		blk, ok := n.index.BlockAt(h)
		if !ok {
			continue
		}
		for _, tx := range blk.Transactions {
			txID := tx.TxID()
			// Outputs minted by this block vanish with it.
			for vout := range tx.Outputs {
				op := chaintypes.OutPoint{TxID: txID, Vout: uint32(vout)}
				_ = n.store.Delete(op)
			}
			// Spent inputs fall back from Confirmed to SpentFinalized;
			// the spending transactions themselves stay finalized.
			for _, in := range tx.Inputs {
				_ = n.tracker.Unconfirm(in.OutPoint, txID)
			}
		}
	}
	if err := n.index.Rewind(toHeight); err != nil {
		return err
	}
	if hash, ok := n.index.HashAt(toHeight); ok {
		n.blocks.SetHead(toHeight, hash)
	}
	return nil
}
