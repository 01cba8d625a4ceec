// Package block implements the deterministic block builder: at each
// scheduled wall-clock boundary every masternode independently
// constructs a byte-identical candidate from the same deterministic
// inputs — fixed timestamp, sorted masternode set, sorted drained
// transactions, integer-only reward split, fixed-arity Merkle root,
// coinbase first.
package block

import (
	"crypto/sha256"
	"sort"

	"github.com/zenithcoin/zenithd/chainaddr"
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/hashing"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/merkle"
	"github.com/zenithcoin/zenithd/reward"
	"github.com/zenithcoin/zenithd/vdf"
)

// Candidate is everything Build needs to assemble height h's block.
type Candidate struct {
	Height            uint64
	PreviousHash      ids.ID
	FinalizedTxs      []*chaintypes.Transaction
	TotalFees         uint64 // sum of FeesOf(tx) across FinalizedTxs, computed by the caller
	EligibleForReward []chaintypes.Masternode
	Version           uint32
}

// Build assembles the deterministic candidate block for c.Height. The
// caller supplies the already-finalized transaction set (drained from
// the mempool) and the eligibility snapshot for this height's reward;
// Build performs no I/O and no clock reads, so two nodes given identical
// inputs produce byte-identical output.
func Build(cfg *config.Config, c Candidate) (*chaintypes.Block, error) {
	sortedTxs := make([]*chaintypes.Transaction, len(c.FinalizedTxs))
	copy(sortedTxs, c.FinalizedTxs)
	sort.Slice(sortedTxs, func(i, j int) bool {
		return sortedTxs[i].TxID().Less(sortedTxs[j].TxID())
	})

	treasury, payouts := reward.Split(cfg, c.EligibleForReward, c.TotalFees)
	coinbase := buildCoinbase(cfg, c.Height, treasury, payouts)

	allTxs := make([]*chaintypes.Transaction, 0, len(sortedTxs)+1)
	allTxs = append(allTxs, coinbase)
	allTxs = append(allTxs, sortedTxs...)

	leaves := make([]ids.ID, len(allTxs))
	for i, tx := range allTxs {
		leaves[i] = tx.TxID()
	}
	root := merkle.Root(leaves)

	header := chaintypes.Header{
		Height:       c.Height,
		PreviousHash: c.PreviousHash,
		MerkleRoot:   root,
		Timestamp:    cfg.TimestampForHeight(c.Height),
		Version:      c.Version,
	}

	if cfg.VDFEnabled && c.Height >= cfg.VDFMinHeight {
		inputHash := vdfInputHash(c.PreviousHash, c.Height)
		mod, err := vdf.GenerateModulus(cfg.VDFModulusBits, cfg.GenesisTimestamp)
		if err != nil {
			return nil, err
		}
		pot, err := vdf.Evaluate(mod, inputHash, cfg.VDFIterations)
		if err != nil {
			return nil, err
		}
		header.ProofOfTime = pot
	}

	return &chaintypes.Block{Header: header, Transactions: allTxs}, nil
}

// FeesOf computes a transaction's fee (input sum minus output sum) given
// a UTXO resolver, for the caller to sum before calling Build.
func FeesOf(tx *chaintypes.Transaction, resolve func(chaintypes.OutPoint) (*chaintypes.UTXO, bool)) (uint64, error) {
	inSum, err := tx.InputSum(resolve)
	if err != nil {
		return 0, err
	}
	return inSum - tx.OutputSum(), nil
}

func buildCoinbase(cfg *config.Config, height uint64, treasury uint64, payouts []reward.Payout) *chaintypes.Transaction {
	outputs := make([]chaintypes.TxOutput, 0, len(payouts)+1)
	if treasury > 0 {
		outputs = append(outputs, chaintypes.TxOutput{Value: treasury, Address: cfg.TreasuryAddr})
	}
	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		addr, err := masternodeAddress(cfg, p.MasternodeID)
		if err != nil {
			continue
		}
		outputs = append(outputs, chaintypes.TxOutput{Value: p.Amount, Address: addr})
	}
	return &chaintypes.Transaction{
		Version:   1,
		Outputs:   outputs,
		LockTime:  uint32(height),
		Timestamp: cfg.TimestampForHeight(height),
	}
}

func vdfInputHash(previousHash ids.ID, height uint64) ids.ID {
	buf := make([]byte, 0, 40)
	buf = append(buf, previousHash[:]...)
	buf = append(buf, byte(height>>56), byte(height>>48), byte(height>>40), byte(height>>32),
		byte(height>>24), byte(height>>16), byte(height>>8), byte(height))
	return hashing.ComputeID(buf)
}

// masternodeAddress derives the payout address for m by hashing its
// public key exactly as an ordinary output's script_pubkey would;
// masternode reward outputs use the same commitment so they spend like
// any other
// UTXO).
func masternodeAddress(cfg *config.Config, m chaintypes.Masternode) (string, error) {
	h := sha256.Sum256(m.PublicKey)
	return chainaddr.Encode(cfg.AddressVersion, h[:20])
}
