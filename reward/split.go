package reward

import (
	"sort"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
)

const bpsDenominator = 10000

// bps converts a configured fraction (e.g. 0.05) into basis points once,
// at call time from a fixed config value rather than from any
// per-block/iteration-dependent input, so the only floating-point
// arithmetic in the reward path is a single deterministic conversion of
// a constant, never part of the per-node split itself.
func bps(pct float64) uint64 {
	return uint64(pct*bpsDenominator + 0.5)
}

// Payout is one masternode's share of a block's reward.
type Payout struct {
	MasternodeID chaintypes.Masternode
	Amount       uint64
}

// Split computes the full distribution of a block's reward plus fees
// across the treasury and eligible masternodes: integer division
// throughout, with any division remainder assigned to the
// lexicographically smallest eligible masternode id.
//
// eligible must already be the block's EligibleForCurrentBlock() set;
// Split does not itself consult the eligibility tracker.
func Split(cfg *config.Config, eligible []chaintypes.Masternode, totalFees uint64) (treasury uint64, payouts []Payout) {
	treasuryFromReward := cfg.BlockReward * bps(cfg.TreasuryPct) / bpsDenominator
	treasuryFromFees := totalFees * bps(cfg.FeeTreasuryPct) / bpsDenominator
	treasury = treasuryFromReward + treasuryFromFees

	remaining := (cfg.BlockReward - treasuryFromReward) + (totalFees - treasuryFromFees)

	if len(eligible) == 0 {
		// No eligible masternode this interval: the undistributed
		// remainder also goes to the treasury rather than vanishing.
		return treasury + remaining, nil
	}

	sorted := make([]chaintypes.Masternode, len(eligible))
	copy(sorted, eligible)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.Less(sorted[j].ID) })

	var totalWeight uint64
	for _, m := range sorted {
		totalWeight += m.Weight()
	}

	payouts = make([]Payout, len(sorted))
	var distributed uint64
	for i, m := range sorted {
		share := remaining * m.Weight() / totalWeight
		payouts[i] = Payout{MasternodeID: m, Amount: share}
		distributed += share
	}

	if leftover := remaining - distributed; leftover > 0 {
		payouts[0].Amount += leftover // sorted[0] is lexicographically smallest
	}

	return treasury, payouts
}
