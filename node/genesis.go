// genesis.go loads and materializes the canonical genesis document: a
// JSON file naming the chain's start time, initial coin allocations, and
// the founding masternode set. Every node on a network must load a
// byte-identical document — the genesis block derived from it is the
// hash exchanged at handshake time, and a mismatch quarantines the
// peer.
package node

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

// GenesisAllocation is one initial UTXO minted by the genesis coinbase.
type GenesisAllocation struct {
	Address string `json:"address"`
	Value   uint64 `json:"value"`
}

// GenesisMasternode is one founding member of the masternode set.
type GenesisMasternode struct {
	ID         string `json:"id"`        // hex, 20 bytes
	PublicKey  string `json:"publicKey"` // hex, 32-byte Ed25519
	Tier       string `json:"tier"`      // bronze | silver | gold
	Collateral uint64 `json:"collateral"`
}

// GenesisDoc is the canonical JSON genesis description, verified at
// load.
type GenesisDoc struct {
	Timestamp       int64               `json:"timestamp"`
	TreasuryAddress string              `json:"treasuryAddress"`
	Allocations     []GenesisAllocation `json:"allocations"`
	Masternodes     []GenesisMasternode `json:"masternodes"`
}

// LoadGenesisDoc reads and parses the genesis document at path.
func LoadGenesisDoc(path string) (*GenesisDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("node: read genesis: %w", err)
	}
	return ParseGenesisDoc(raw)
}

// ParseGenesisDoc parses raw JSON into a validated GenesisDoc.
func ParseGenesisDoc(raw []byte) (*GenesisDoc, error) {
	doc := &GenesisDoc{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("node: parse genesis: %w", err)
	}
	if doc.Timestamp <= 0 {
		return nil, fmt.Errorf("node: genesis timestamp must be positive, got %d", doc.Timestamp)
	}
	if len(doc.Masternodes) == 0 {
		return nil, fmt.Errorf("node: genesis names no masternodes")
	}
	return doc, nil
}

// Block derives the deterministic height-0 block: a single coinbase
// minting every allocation, anchored to the document's timestamp. Two
// nodes loading the same document produce the same block bytes and hash.
func (d *GenesisDoc) Block() *chaintypes.Block {
	outputs := make([]chaintypes.TxOutput, 0, len(d.Allocations))
	for _, a := range d.Allocations {
		outputs = append(outputs, chaintypes.TxOutput{Value: a.Value, Address: a.Address})
	}
	coinbase := &chaintypes.Transaction{
		Version:   1,
		Outputs:   outputs,
		Timestamp: d.Timestamp,
	}
	header := chaintypes.Header{
		Height:       0,
		PreviousHash: ids.Empty,
		MerkleRoot:   coinbase.TxID(),
		Timestamp:    d.Timestamp,
		Version:      1,
	}
	return &chaintypes.Block{Header: header, Transactions: []*chaintypes.Transaction{coinbase}}
}

// MasternodeSet builds the founding membership snapshot.
func (d *GenesisDoc) MasternodeSet() (*chaintypes.Set, error) {
	members := make([]chaintypes.Masternode, 0, len(d.Masternodes))
	for i, m := range d.Masternodes {
		idBytes, err := hex.DecodeString(m.ID)
		if err != nil {
			return nil, fmt.Errorf("node: genesis masternode %d: bad id: %w", i, err)
		}
		id, err := ids.ToShortID(idBytes)
		if err != nil {
			return nil, fmt.Errorf("node: genesis masternode %d: %w", i, err)
		}
		pub, err := hex.DecodeString(m.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("node: genesis masternode %d: bad public key: %w", i, err)
		}
		tier, err := parseTier(m.Tier)
		if err != nil {
			return nil, fmt.Errorf("node: genesis masternode %d: %w", i, err)
		}
		members = append(members, chaintypes.Masternode{
			ID:           id,
			PublicKey:    pub,
			Tier:         tier,
			Collateral:   m.Collateral,
			RegisteredAt: d.Timestamp,
		})
	}
	return chaintypes.NewSet(members), nil
}

func parseTier(s string) (chaintypes.Tier, error) {
	switch s {
	case "bronze":
		return chaintypes.TierBronze, nil
	case "silver":
		return chaintypes.TierSilver, nil
	case "gold":
		return chaintypes.TierGold, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", s)
	}
}
