// handlers.go dispatches every inbound wire message. Transport errors
// stay in package peer; everything here is protocol semantics: gossip
// admission, vote tallying, block-hash comparison, and the
// request/response correlation chainsync's header fetch rides on.
package node

import (
	"time"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/consensus"
	"github.com/zenithcoin/zenithd/finality"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/wire"
	"github.com/zenithcoin/zenithd/xcrypto"
)

func (n *Node) handleMessage(from ids.ShortID, msg interface{}) {
	now := time.Now()
	switch m := msg.(type) {
	case *wire.TxBroadcast:
		n.handleTxBroadcast(m.Tx, now)
	case *wire.VoteRequest:
		n.handleVoteRequest(from, m.TxID, now)
	case *wire.Vote:
		n.handleVote(m.Vote, now)
	case *wire.UtxoLockNotice:
		n.handleLockNotice(from, m)
	case *wire.UtxoStateChange:
		n.log.Debug("peer state change",
			"peer", from, "outpoint", m.OutPoint, "old", m.Old.String(), "new", m.New.String())
	case *wire.BlockAnnouncement:
		n.handleBlockAnnouncement(from, m.Header, now)
	case *wire.BlockRequest:
		n.handleBlockRequest(from, m.Height)
	case *wire.BlockResponse:
		n.handleBlockResponse(from, m.Block, now)
	case *wire.Ping:
		n.peers.Pool().SendTo([]ids.ShortID{from}, &wire.Pong{Nonce: m.Nonce}, n.cfg.BroadcastTimeout)
	case *wire.Pong:
		// Touch already happened in the manager's read loop.
	case *wire.GenesisRequest:
		n.peers.Pool().SendTo([]ids.ShortID{from}, &wire.GenesisResponse{Block: n.genesis}, n.cfg.BroadcastTimeout)
	case *wire.GenesisResponse:
		if m.Block.Hash() != n.cfg.GenesisHash {
			n.log.Error("peer served a foreign genesis", "peer", from, "hash", m.Block.Hash())
		}
	default:
		n.log.Debug("unhandled message", "peer", from)
	}
}

// handleLockNotice takes the announced lock ahead of the authoritative
// TxBroadcast, so a racing local spend observes AlreadyLocked — but only
// when the notice is signed by a current masternode.
func (n *Node) handleLockNotice(from ids.ShortID, m *wire.UtxoLockNotice) {
	mn, ok := n.Members().Get(from)
	if !ok {
		return
	}
	pub, err := xcrypto.PublicKeyFromBytes(mn.PublicKey)
	if err != nil || !pub.Verify(m.SigHash(), m.Signature) {
		n.log.Debug("lock notice with bad signature", "peer", from, "outpoint", m.OutPoint)
		return
	}
	_ = n.tracker.Lock(m.OutPoint, m.TxID, time.Unix(m.Timestamp, 0))
}

// handleTxBroadcast admits gossiped transactions exactly like a local
// submission; a duplicate or conflicting spend is expected traffic, not
// an error worth more than a debug line.
func (n *Node) handleTxBroadcast(tx *chaintypes.Transaction, now time.Time) {
	if tx == nil {
		return
	}
	if err := n.SubmitTx(tx, now); err != nil {
		n.log.Debug("gossiped tx not admitted", "txid", tx.TxID(), "err", err)
	}
}

// handleVoteRequest answers with our signed vote, but only for a
// transaction we hold in our own mempool with a window open — an honest
// voter never approves a spend it cannot itself verify, and never
// approves a second transaction for an outpoint it has already seen
// locked by another (the lock attempt during admission enforces that).
func (n *Node) handleVoteRequest(from ids.ShortID, txID ids.ID, now time.Time) {
	if _, ok := n.mpool.Get(txID); !ok {
		return
	}
	d, ok := n.votes.Decision(txID)
	if !ok || d != finality.Pending {
		return
	}
	v := &chaintypes.Vote{
		TxID:      txID,
		Voter:     n.cfg.NodeID,
		Approve:   true,
		Timestamp: now.Unix(),
	}
	v.Signature = n.key.Sign(v.SigHash())
	n.peers.Pool().SendTo([]ids.ShortID{from}, &wire.Vote{Vote: v}, n.cfg.BroadcastTimeout)
}

func (n *Node) handleVote(v *chaintypes.Vote, now time.Time) {
	if v == nil {
		return
	}
	decision, err := n.votes.Vote(v, now)
	if err != nil {
		n.log.Debug("vote not tallied", "txid", v.TxID, "voter", v.Voter, "err", err)
		return
	}
	if decision == finality.Finalized {
		n.log.Info("transaction finalized", "txid", v.TxID)
	}
}

func (n *Node) handleBlockAnnouncement(from ids.ShortID, header *chaintypes.Header, now time.Time) {
	if header == nil {
		return
	}
	outcome, local, wantHash := n.blocks.Observe(from, header, now)
	switch outcome {
	case consensus.Agreed:
		if local != nil {
			n.commitBlock(local)
		}
	case consensus.NeedsReconciliation:
		n.mu.Lock()
		n.reconcileWant[header.Height] = wantHash
		n.mu.Unlock()
		n.peers.Pool().SendTo([]ids.ShortID{from}, &wire.BlockRequest{Height: header.Height}, n.cfg.BroadcastTimeout)
	}
}

func (n *Node) handleBlockRequest(from ids.ShortID, height uint64) {
	block, ok := n.index.BlockAt(height)
	if !ok {
		return
	}
	n.peers.Pool().SendTo([]ids.ShortID{from}, &wire.BlockResponse{Block: block}, n.cfg.BroadcastTimeout)
}

// handleBlockResponse serves two consumers: a goroutine awaiting this
// height (chainsync header fetch or catch-up) gets the block directly;
// otherwise the block is treated as the majority candidate for a pending
// reconciliation and verified under the deterministic rules before
// acceptance.
func (n *Node) handleBlockResponse(from ids.ShortID, block *chaintypes.Block, now time.Time) {
	if block == nil {
		return
	}
	height := block.Header.Height

	n.mu.Lock()
	waiter, isAwaited := n.awaiting[height]
	if isAwaited {
		delete(n.awaiting, height)
	}
	wantHash, wantReconcile := n.reconcileWant[height]
	if wantReconcile {
		delete(n.reconcileWant, height)
	}
	n.mu.Unlock()

	if isAwaited {
		select {
		case waiter <- block:
		default:
		}
		return
	}
	if !wantReconcile {
		return
	}

	prevHash, ok := n.index.HashAt(height - 1)
	if !ok {
		n.log.Warn("reconciliation target has no local parent", "height", height)
		return
	}
	if err := n.verifyIncoming(block, height, prevHash, wantHash); err != nil {
		n.log.Error("majority block failed verification", "peer", from, "height", height, "err", err)
		return
	}
	n.commitBlock(block)
	n.blocks.AcceptReconciled(block)
	n.log.Info("accepted majority block after reconciliation", "height", height, "hash", wantHash)
}
