package chaintypes

import (
	"github.com/zenithcoin/zenithd/codec"
	"github.com/zenithcoin/zenithd/hashing"
	"github.com/zenithcoin/zenithd/ids"
)

// ProofOfTime is the optional VDF time-lock anchoring a block to real
// elapsed time. Verification is O(log Iterations);
// evaluation (package vdf) is inherently sequential.
type ProofOfTime struct {
	Output     []byte
	Proof      []byte
	Iterations uint64
	InputHash  ids.ID
}

func (p *ProofOfTime) marshal(w *codec.Writer) {
	w.WriteBool(p != nil)
	if p == nil {
		return
	}
	w.WriteBytes(p.Output)
	w.WriteBytes(p.Proof)
	w.WriteUint64(p.Iterations)
	w.WriteFixedBytes(p.InputHash[:])
}

func unmarshalProofOfTime(r *codec.Reader) *ProofOfTime {
	if !r.ReadBool() {
		return nil
	}
	p := &ProofOfTime{}
	p.Output = r.ReadBytes()
	p.Proof = r.ReadBytes()
	p.Iterations = r.ReadUint64()
	copy(p.InputHash[:], r.ReadFixedBytes(32))
	return p
}

// Header is a block's fixed-size metadata.
type Header struct {
	Height       uint64
	PreviousHash ids.ID
	MerkleRoot   ids.ID
	Timestamp    int64
	Version      uint32
	ProofOfTime  *ProofOfTime
}

func (h *Header) marshal(w *codec.Writer) {
	w.WriteUint64(h.Height)
	w.WriteFixedBytes(h.PreviousHash[:])
	w.WriteFixedBytes(h.MerkleRoot[:])
	w.WriteInt64(h.Timestamp)
	w.WriteUint32(h.Version)
	h.ProofOfTime.marshal(w)
}

// Bytes returns the canonical encoding of the header.
func (h *Header) Bytes() []byte {
	w := codec.NewWriter()
	h.marshal(w)
	return w.Bytes()
}

// Hash returns SHA-256(canonical-encoding(header)) — the value the next
// block's PreviousHash must equal.
func (h *Header) Hash() ids.ID { return hashing.ComputeID(h.Bytes()) }

// UnmarshalHeader parses the canonical encoding produced by Header.Bytes.
func UnmarshalHeader(b []byte) (*Header, error) {
	r, err := codec.NewReader(b)
	if err != nil {
		return nil, err
	}
	h := &Header{}
	h.Height = r.ReadUint64()
	copy(h.PreviousHash[:], r.ReadFixedBytes(32))
	copy(h.MerkleRoot[:], r.ReadFixedBytes(32))
	h.Timestamp = r.ReadInt64()
	h.Version = r.ReadUint32()
	h.ProofOfTime = unmarshalProofOfTime(r)
	if err := r.Done(); err != nil {
		return nil, err
	}
	return h, nil
}

// Block is a header plus its ordered transaction list; Transactions[0] is
// always the coinbase.
type Block struct {
	Header       Header
	Transactions []*Transaction
}

// Bytes returns the canonical encoding of the full block.
func (b *Block) Bytes() []byte {
	w := codec.NewWriter()
	b.Header.marshal(w)
	w.WriteUint32(uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		txBytes := tx.Bytes()
		w.WriteBytes(txBytes)
	}
	return w.Bytes()
}

// Hash returns the hash of the block's header (the block's identity).
func (b *Block) Hash() ids.ID { return b.Header.Hash() }

// UnmarshalBlock parses the canonical encoding produced by Block.Bytes.
func UnmarshalBlock(raw []byte) (*Block, error) {
	r, err := codec.NewReader(raw)
	if err != nil {
		return nil, err
	}
	blk := &Block{}
	blk.Header.Height = r.ReadUint64()
	copy(blk.Header.PreviousHash[:], r.ReadFixedBytes(32))
	copy(blk.Header.MerkleRoot[:], r.ReadFixedBytes(32))
	blk.Header.Timestamp = r.ReadInt64()
	blk.Header.Version = r.ReadUint32()
	blk.Header.ProofOfTime = unmarshalProofOfTime(r)

	n := r.ReadUint32()
	blk.Transactions = make([]*Transaction, n)
	for i := range blk.Transactions {
		txBytes := r.ReadBytes()
		if r.Err() != nil {
			return nil, r.Err()
		}
		tx, err := UnmarshalTransaction(txBytes)
		if err != nil {
			return nil, err
		}
		blk.Transactions[i] = tx
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return blk, nil
}
