// reconcile.go handles minority divergence: when the local candidate
// differs only because it is missing a transaction the majority
// included, the node fetches the winning block by hash and accepts it
// only after re-deriving it under the deterministic construction rules
// and re-validating every included transaction — never accepting an
// arbitrary peer-supplied block on hash agreement alone.
package consensus

import (
	"sort"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/merkle"
	"github.com/zenithcoin/zenithd/txvalidator"
)

// Reconcile verifies that candidate is a legitimately-built block for
// height at the expected previous hash and wantHash, per the
// deterministic construction rules, then validates every
// non-coinbase transaction against resolve (a view of the UTXO set as of
// just before candidate's inclusion). It returns nil only if candidate is
// acceptable as the canonical block for this height.
func Reconcile(cfg *config.Config, candidate *chaintypes.Block, height uint64, previousHash ids.ID, wantHash ids.ID, resolve txvalidator.UTXOResolver) error {
	if candidate.Hash() != wantHash {
		return &ErrHashMismatch{Want: wantHash, Got: candidate.Hash()}
	}
	if candidate.Header.Height != height {
		return &ErrWrongHeight{Want: height, Got: candidate.Header.Height}
	}
	if candidate.Header.PreviousHash != previousHash {
		return &ErrWrongPreviousHash{Want: previousHash, Got: candidate.Header.PreviousHash}
	}
	if candidate.Header.Timestamp != cfg.TimestampForHeight(height) {
		return &ErrWrongTimestamp{Want: cfg.TimestampForHeight(height), Got: candidate.Header.Timestamp}
	}
	if len(candidate.Transactions) == 0 || !candidate.Transactions[0].IsCoinbase() {
		return ErrMissingCoinbase
	}
	if !sort.SliceIsSorted(candidate.Transactions[1:], func(i, j int) bool {
		return candidate.Transactions[1+i].TxID().Less(candidate.Transactions[1+j].TxID())
	}) {
		return ErrTxOrderViolation
	}

	leaves := make([]ids.ID, len(candidate.Transactions))
	for i, tx := range candidate.Transactions {
		leaves[i] = tx.TxID()
	}
	if merkle.Root(leaves) != candidate.Header.MerkleRoot {
		return ErrMerkleMismatch
	}

	for _, tx := range candidate.Transactions[1:] {
		if err := txvalidator.Validate(cfg, tx, resolve, candidate.Header.Timestamp, height); err != nil {
			return &ErrInvalidIncludedTx{TxID: tx.TxID(), Cause: err}
		}
	}
	return nil
}
