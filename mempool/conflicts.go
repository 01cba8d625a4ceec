// conflicts.go tracks which mempool transactions contend for the same
// outpoint, so the mempool can refuse a second spend of an
// already-pending outpoint without round-tripping through the UTXO
// tracker. The bookkeeping is a single outpoint -> spender map under
// the one-owner-per-outpoint rule: at most one processing
// transaction may claim a given outpoint at a time.
package mempool

import (
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

type conflictSet struct {
	// outpoint -> the single tx currently claiming it
	owner map[chaintypes.OutPoint]ids.ID
	// tx -> the outpoints it claims, so Remove can clean owner up
	spends map[ids.ID][]chaintypes.OutPoint
}

func newConflictSet() *conflictSet {
	return &conflictSet{
		owner:  make(map[chaintypes.OutPoint]ids.ID),
		spends: make(map[ids.ID][]chaintypes.OutPoint),
	}
}

// conflictsWith returns the IDs of processing transactions that spend at
// least one outpoint tx also spends.
func (c *conflictSet) conflictsWith(tx *chaintypes.Transaction) []ids.ID {
	seen := ids.NewSet(0)
	var out []ids.ID
	for _, in := range tx.Inputs {
		if owner, ok := c.owner[in.OutPoint]; ok && owner != tx.TxID() && !seen.Contains(owner) {
			seen.Add(owner)
			out = append(out, owner)
		}
	}
	return out
}

// add registers tx's claimed outpoints. Callers must have already
// checked conflictsWith returns nothing they wish to preserve.
func (c *conflictSet) add(tx *chaintypes.Transaction) {
	txID := tx.TxID()
	ops := make([]chaintypes.OutPoint, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		c.owner[in.OutPoint] = txID
		ops = append(ops, in.OutPoint)
	}
	c.spends[txID] = ops
}

// remove releases every outpoint tx claimed.
func (c *conflictSet) remove(txID ids.ID) {
	for _, op := range c.spends[txID] {
		if c.owner[op] == txID {
			delete(c.owner, op)
		}
	}
	delete(c.spends, txID)
}
