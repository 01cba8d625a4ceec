// Package wire implements the binary message set for
// masternode-to-masternode traffic: TxBroadcast, VoteRequest, Vote,
// UtxoLockNotice, UtxoStateChange, BlockAnnouncement, BlockRequest,
// BlockResponse, Ping/Pong, GenesisRequest/GenesisResponse.
//
// Every message body rides package codec's deterministic binary encoding
// (the same encoding txids and block hashes are derived from), framed
// with a 4-byte big-endian length prefix and a message-type tag byte
// ahead of the codec-encoded body.
package wire

import (
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/codec"
	"github.com/zenithcoin/zenithd/hashing"
	"github.com/zenithcoin/zenithd/ids"
)

// Type tags the kind of message a Frame body decodes to.
type Type byte

const (
	TypeTxBroadcast Type = iota + 1
	TypeVoteRequest
	TypeVote
	TypeUtxoLockNotice
	TypeUtxoStateChange
	TypeBlockAnnouncement
	TypeBlockRequest
	TypeBlockResponse
	TypePing
	TypePong
	TypeGenesisRequest
	TypeGenesisResponse
)

func (t Type) String() string {
	switch t {
	case TypeTxBroadcast:
		return "TxBroadcast"
	case TypeVoteRequest:
		return "VoteRequest"
	case TypeVote:
		return "Vote"
	case TypeUtxoLockNotice:
		return "UtxoLockNotice"
	case TypeUtxoStateChange:
		return "UtxoStateChange"
	case TypeBlockAnnouncement:
		return "BlockAnnouncement"
	case TypeBlockRequest:
		return "BlockRequest"
	case TypeBlockResponse:
		return "BlockResponse"
	case TypePing:
		return "Ping"
	case TypePong:
		return "Pong"
	case TypeGenesisRequest:
		return "GenesisRequest"
	case TypeGenesisResponse:
		return "GenesisResponse"
	default:
		return "Unknown"
	}
}

// TxBroadcast gossips a transaction.
type TxBroadcast struct{ Tx *chaintypes.Transaction }

// VoteRequest asks the recipient to cast a vote on TxID.
type VoteRequest struct{ TxID ids.ID }

// Vote carries one signed masternode vote.
type Vote struct{ Vote *chaintypes.Vote }

// UtxoLockNotice is the latency fast-path announcement that a lock was
// acquired, ahead of the authoritative state-change event.
type UtxoLockNotice struct {
	OutPoint  chaintypes.OutPoint
	TxID      ids.ID
	Timestamp int64
	Signature []byte
}

// SigHash returns the hash the announcing masternode signs: every field
// except Signature.
func (m *UtxoLockNotice) SigHash() []byte {
	w := codec.NewWriter()
	w.WriteFixedBytes(m.OutPoint.TxID[:])
	w.WriteUint32(m.OutPoint.Vout)
	w.WriteFixedBytes(m.TxID[:])
	w.WriteInt64(m.Timestamp)
	return hashing.ComputeHash256(w.Bytes())
}

// UtxoStateChange announces a state transition an observing peer should
// apply to its own view.
type UtxoStateChange struct {
	OutPoint chaintypes.OutPoint
	Old      chaintypes.StateKind
	New      chaintypes.StateKind
}

// BlockAnnouncement gossips a newly produced header.
type BlockAnnouncement struct{ Header *chaintypes.Header }

// BlockRequest asks for the full block at Height.
type BlockRequest struct{ Height uint64 }

// BlockResponse answers a BlockRequest (or a by-hash reconciliation
// fetch) with a full block.
type BlockResponse struct{ Block *chaintypes.Block }

// Ping/Pong are the peer manager's keep-alive pair.
type Ping struct{ Nonce uint64 }
type Pong struct{ Nonce uint64 }

// GenesisRequest/GenesisResponse let a newly joined or resyncing node
// fetch the canonical genesis block to verify against its own.
type GenesisRequest struct{}
type GenesisResponse struct{ Block *chaintypes.Block }

// Encode dispatches msg to its Type tag and codec-encoded body.
func Encode(msg interface{}) (Type, []byte, error) {
	w := codec.NewWriter()
	switch m := msg.(type) {
	case *TxBroadcast:
		w.WriteBytes(m.Tx.Bytes())
		return TypeTxBroadcast, w.Bytes(), nil
	case *VoteRequest:
		w.WriteFixedBytes(m.TxID[:])
		return TypeVoteRequest, w.Bytes(), nil
	case *Vote:
		w.WriteBytes(m.Vote.Bytes())
		return TypeVote, w.Bytes(), nil
	case *UtxoLockNotice:
		w.WriteFixedBytes(m.OutPoint.TxID[:])
		w.WriteUint32(m.OutPoint.Vout)
		w.WriteFixedBytes(m.TxID[:])
		w.WriteInt64(m.Timestamp)
		w.WriteBytes(m.Signature)
		return TypeUtxoLockNotice, w.Bytes(), nil
	case *UtxoStateChange:
		w.WriteFixedBytes(m.OutPoint.TxID[:])
		w.WriteUint32(m.OutPoint.Vout)
		w.WriteByte(byte(m.Old))
		w.WriteByte(byte(m.New))
		return TypeUtxoStateChange, w.Bytes(), nil
	case *BlockAnnouncement:
		w.WriteBytes(m.Header.Bytes())
		return TypeBlockAnnouncement, w.Bytes(), nil
	case *BlockRequest:
		w.WriteUint64(m.Height)
		return TypeBlockRequest, w.Bytes(), nil
	case *BlockResponse:
		w.WriteBytes(m.Block.Bytes())
		return TypeBlockResponse, w.Bytes(), nil
	case *Ping:
		w.WriteUint64(m.Nonce)
		return TypePing, w.Bytes(), nil
	case *Pong:
		w.WriteUint64(m.Nonce)
		return TypePong, w.Bytes(), nil
	case *GenesisRequest:
		return TypeGenesisRequest, w.Bytes(), nil
	case *GenesisResponse:
		w.WriteBytes(m.Block.Bytes())
		return TypeGenesisResponse, w.Bytes(), nil
	default:
		return 0, nil, ErrUnknownMessage
	}
}

// Decode parses body (as produced by Encode, sans the Type tag which the
// framing layer carries separately) back into the concrete message typ
// names.
func Decode(typ Type, body []byte) (interface{}, error) {
	r, err := codec.NewReader(body)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeTxBroadcast:
		txBytes := r.ReadBytes()
		if err := r.Done(); err != nil {
			return nil, err
		}
		tx, err := chaintypes.UnmarshalTransaction(txBytes)
		if err != nil {
			return nil, err
		}
		return &TxBroadcast{Tx: tx}, nil
	case TypeVoteRequest:
		var m VoteRequest
		copy(m.TxID[:], r.ReadFixedBytes(32))
		return &m, r.Done()
	case TypeVote:
		voteBytes := r.ReadBytes()
		if err := r.Done(); err != nil {
			return nil, err
		}
		v, err := chaintypes.UnmarshalVote(voteBytes)
		if err != nil {
			return nil, err
		}
		return &Vote{Vote: v}, nil
	case TypeUtxoLockNotice:
		var m UtxoLockNotice
		copy(m.OutPoint.TxID[:], r.ReadFixedBytes(32))
		m.OutPoint.Vout = r.ReadUint32()
		copy(m.TxID[:], r.ReadFixedBytes(32))
		m.Timestamp = r.ReadInt64()
		m.Signature = r.ReadBytes()
		return &m, r.Done()
	case TypeUtxoStateChange:
		var m UtxoStateChange
		copy(m.OutPoint.TxID[:], r.ReadFixedBytes(32))
		m.OutPoint.Vout = r.ReadUint32()
		m.Old = chaintypes.StateKind(r.ReadByte())
		m.New = chaintypes.StateKind(r.ReadByte())
		return &m, r.Done()
	case TypeBlockAnnouncement:
		hdrBytes := r.ReadBytes()
		if err := r.Done(); err != nil {
			return nil, err
		}
		hdr, err := chaintypes.UnmarshalHeader(hdrBytes)
		if err != nil {
			return nil, err
		}
		return &BlockAnnouncement{Header: hdr}, nil
	case TypeBlockRequest:
		var m BlockRequest
		m.Height = r.ReadUint64()
		return &m, r.Done()
	case TypeBlockResponse:
		blkBytes := r.ReadBytes()
		if err := r.Done(); err != nil {
			return nil, err
		}
		blk, err := chaintypes.UnmarshalBlock(blkBytes)
		if err != nil {
			return nil, err
		}
		return &BlockResponse{Block: blk}, nil
	case TypePing:
		var m Ping
		m.Nonce = r.ReadUint64()
		return &m, r.Done()
	case TypePong:
		var m Pong
		m.Nonce = r.ReadUint64()
		return &m, r.Done()
	case TypeGenesisRequest:
		return &GenesisRequest{}, r.Done()
	case TypeGenesisResponse:
		blkBytes := r.ReadBytes()
		if err := r.Done(); err != nil {
			return nil, err
		}
		blk, err := chaintypes.UnmarshalBlock(blkBytes)
		if err != nil {
			return nil, err
		}
		return &GenesisResponse{Block: blk}, nil
	default:
		return nil, ErrUnknownMessage
	}
}
