// Package chainsync implements fork detection and catch-up sync: before
// applying any received block to a non-empty local chain, locate the
// deepest common ancestor with the best peer, rewind if the peer's chain
// has diverged, then sync forward. The backward probe is timeout-safe
// and never rewinds on a network timeout.
package chainsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
)

// HeaderFetcher asks a peer for the header hash it has at a given height,
// independent of package peer's wire plumbing so this package is testable
// against a fake. A timeout must surface as ErrTimeout so FindCommonAncestor
// can tell "peer didn't answer" apart from "peer disagrees".
type HeaderFetcher interface {
	FetchHeaderHash(ctx context.Context, peer ids.ShortID, height uint64) (ids.ID, error)
}

// ErrTimeout is returned by a HeaderFetcher implementation when the peer
// does not respond within its deadline.
var ErrTimeout = errors.New("chainsync: peer request timed out")

// LocalChain is the subset of the block index chainsync needs: reading a
// header hash at a height, the current tip, and rewinding state back to
// a given height, removing blocks and reverting the removed blocks'
// UTXO effects.
type LocalChain interface {
	Height() uint64
	HashAt(height uint64) (ids.ID, bool)
	Rewind(toHeight uint64) error
}

// Result describes the outcome of a fork check.
type Result struct {
	CommonAncestor uint64
	RewoundFrom    uint64 // 0 if no rewind occurred
	DifferentChain bool   // true if no match was found down to height 0
}

// FindCommonAncestor starts from min(local height, peer height) and
// walks backward comparing header hashes
// until a match is found, the peer reports a different hash at every height
// down to 1 (returns 0; height 0 itself is not probed here, Reconcile
// compares the genesis hashes), or the round is aborted by a timeout
// (never rewinds on a timeout — retried later).
func FindCommonAncestor(ctx context.Context, local LocalChain, fetcher HeaderFetcher, peerID ids.ShortID, peerHeight uint64) (uint64, error) {
	h := local.Height()
	if peerHeight < h {
		h = peerHeight
	}

	for h > 0 {
		peerHash, err := fetcher.FetchHeaderHash(ctx, peerID, h)
		if err != nil {
			return 0, fmt.Errorf("chainsync: abort fork check at height %d: %w", h, err)
		}
		localHash, ok := local.HashAt(h)
		if ok && localHash == peerHash {
			return h, nil
		}
		h--
	}
	return 0, nil
}

// Reconcile runs the full fork check: find the common
// ancestor, rewind the local chain if the peer has diverged above it,
// and report whether the chains share no ancestor at all (height 0
// mismatch — a different genesis, logged severe and never rewound).
func Reconcile(ctx context.Context, local LocalChain, fetcher HeaderFetcher, peerID ids.ShortID, peerHeight uint64) (Result, error) {
	ancestor, err := FindCommonAncestor(ctx, local, fetcher, peerID, peerHeight)
	if err != nil {
		return Result{}, err
	}

	localHeight := local.Height()
	if ancestor == 0 {
		if genesisHash, ok := local.HashAt(0); ok {
			peerGenesis, ferr := fetcher.FetchHeaderHash(ctx, peerID, 0)
			if ferr == nil && peerGenesis != genesisHash {
				return Result{DifferentChain: true}, nil
			}
		}
	}

	res := Result{CommonAncestor: ancestor}
	if ancestor < localHeight {
		if err := local.Rewind(ancestor); err != nil {
			return Result{}, fmt.Errorf("chainsync: rewind to %d: %w", ancestor, err)
		}
		res.RewoundFrom = localHeight
	}
	return res, nil
}

// WithinTimeTolerance applies the optional time-based height guard:
// reject a peer-reported height that exceeds the number of
// block-interval boundaries that could plausibly have elapsed since
// genesis, plus TimeTolerance blocks of slack.
func WithinTimeTolerance(cfg *config.Config, peerHeight uint64, now time.Time) bool {
	maxPlausible := cfg.HeightAt(now) + cfg.TimeTolerance
	return peerHeight <= maxPlausible
}
