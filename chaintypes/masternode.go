package chaintypes

import "github.com/zenithcoin/zenithd/ids"

// Tier is a masternode's collateral tier; its integer value is also its
// voting weight.
type Tier uint64

const (
	TierBronze Tier = 1
	TierSilver Tier = 10
	TierGold   Tier = 100
)

func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	default:
		return "unknown"
	}
}

// Masternode is read-only metadata owned by an external membership
// component; the consensus core only observes join/leave events and
// treats the set as authoritative at the moment it reads it.
type Masternode struct {
	ID           ids.ShortID
	PublicKey    []byte // raw 32-byte Ed25519 public key
	Tier         Tier
	Collateral   uint64
	RegisteredAt int64
}

// Weight returns the masternode's voting weight, equal to its tier value.
func (m *Masternode) Weight() uint64 { return uint64(m.Tier) }

// Set is an immutable snapshot of the masternode membership, sorted
// ascending by ID, the total order deterministic block construction
// depends on.
type Set struct {
	members []Masternode
	byID    map[ids.ShortID]*Masternode
	weight  uint64
}

// NewSet builds a Set from members, sorting a defensive copy ascending by
// ID and computing total weighted power once.
func NewSet(members []Masternode) *Set {
	sorted := make([]Masternode, len(members))
	copy(sorted, members)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].ID.Less(sorted[j-1].ID); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	byID := make(map[ids.ShortID]*Masternode, len(sorted))
	var weight uint64
	for i := range sorted {
		byID[sorted[i].ID] = &sorted[i]
		weight += sorted[i].Weight()
	}
	return &Set{members: sorted, byID: byID, weight: weight}
}

// Members returns the set's masternodes in ascending-ID order. The caller
// must not mutate the returned slice.
func (s *Set) Members() []Masternode { return s.members }

// Get looks up a masternode by id.
func (s *Set) Get(id ids.ShortID) (*Masternode, bool) {
	m, ok := s.byID[id]
	return m, ok
}

// TotalWeight returns W, the total weighted voting power of the set.
func (s *Set) TotalWeight() uint64 { return s.weight }

// Len returns the number of masternodes in the set.
func (s *Set) Len() int { return len(s.members) }

// Quorum returns Q = ceil(2W/3), the approval quorum for this set.
func (s *Set) Quorum() uint64 { return Quorum(s.weight) }

// ByzantineTolerance returns f = floor((W-1)/3).
func (s *Set) ByzantineTolerance() uint64 { return ByzantineTolerance(s.weight) }

// Quorum computes ceil(2W/3) for an arbitrary total weight W.
func Quorum(w uint64) uint64 { return (2*w + 2) / 3 }

// ByzantineTolerance computes floor((W-1)/3) for an arbitrary total weight W.
func ByzantineTolerance(w uint64) uint64 {
	if w == 0 {
		return 0
	}
	return (w - 1) / 3
}
