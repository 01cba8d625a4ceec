// Package config holds the immutable configuration record every subsystem
// is constructed with. Thresholds, timings and network parameters live in
// one record built once at startup and passed by shared reference; there
// are no hidden singletons.
package config

import (
	"time"

	"github.com/zenithcoin/zenithd/chainaddr"
	"github.com/zenithcoin/zenithd/ids"
)

// Network selects which timing/address-version defaults apply.
type Network int

const (
	Mainnet Network = iota
	Testnet
)

// Config is the immutable set of consensus-visible parameters plus the
// implementation knobs needed to run a node. Construct
// once with Default*Config and never mutate afterward; share by pointer.
type Config struct {
	Network Network

	// Timing parameters
	BlockInterval     time.Duration
	VoteDeadline      time.Duration
	LockTimeout       time.Duration
	PendingTimeout    time.Duration
	MaxClockDrift     time.Duration
	MaxFutureBlock    time.Duration
	MinBlockInterval  time.Duration
	BlockCompareWindow time.Duration
	BroadcastTimeout  time.Duration
	PeerIdleTimeout   time.Duration
	KeepaliveInterval time.Duration
	MempoolTTL        time.Duration
	TimeTolerance     uint64 // blocks

	GenesisTimestamp int64

	// Rate limiting / sizes
	MaxVotesPerPeerPerRound int
	MaxTxSize               int
	HardTxLimit             int
	MaxMessageBytes         int

	// Reward policy
	TreasuryPct    float64
	FeeTreasuryPct float64
	TreasuryAddr   string
	BlockReward    uint64

	// VDF
	VDFEnabled          bool
	VDFMinHeight        uint64 // 0 = mandatory from genesis
	VDFIterations       uint64
	VDFModulusBits      int

	// Address encoding
	AddressVersion chainaddr.Version

	// Networking
	ListenAddr      string
	MaxPeers        int
	TCPKeepaliveIdle, TCPKeepaliveInterval time.Duration
	TCPKeepaliveProbes int

	// Handshake identity
	NodeID          ids.ShortID
	GenesisHash     ids.ID
	ProtocolVersion uint32

	// NAT traversal is always attempted best-effort; failures are logged,
	// never fatal. No knob disables it.
}

// DefaultTestnetConfig returns the testnet defaults.
func DefaultTestnetConfig() *Config {
	return &Config{
		Network:            Testnet,
		BlockInterval:      10 * time.Minute,
		VoteDeadline:       10 * time.Second,
		LockTimeout:        60 * time.Second,
		PendingTimeout:     90 * time.Second,
		MaxClockDrift:      5 * time.Minute,
		MaxFutureBlock:     30 * time.Second,
		MinBlockInterval:   9 * time.Minute,
		BlockCompareWindow: 8 * time.Second,
		BroadcastTimeout:   200 * time.Millisecond,
		PeerIdleTimeout:    90 * time.Second,
		KeepaliveInterval:  30 * time.Second,
		MempoolTTL:         time.Hour,
		TimeTolerance:      10,

		MaxVotesPerPeerPerRound: 3,
		MaxTxSize:               100 * 1024,
		HardTxLimit:             1024 * 1024,
		MaxMessageBytes:         10 << 20,

		TreasuryPct:    0.05,
		FeeTreasuryPct: 0.50,
		BlockReward:    50 * 1e8,

		VDFEnabled:     false,
		VDFIterations:  0,
		VDFModulusBits: 2048,

		AddressVersion: chainaddr.VersionTestnet,

		ListenAddr: "0.0.0.0:21000",
		MaxPeers:   256,

		TCPKeepaliveIdle:     30 * time.Second,
		TCPKeepaliveInterval: 30 * time.Second,
		TCPKeepaliveProbes:   3,

		ProtocolVersion: 1,
	}
}

// DefaultMainnetConfig returns the mainnet defaults (1h block interval).
func DefaultMainnetConfig() *Config {
	c := DefaultTestnetConfig()
	c.Network = Mainnet
	c.BlockInterval = time.Hour
	c.MinBlockInterval = time.Duration(float64(c.BlockInterval) * 0.9)
	c.AddressVersion = chainaddr.VersionMainnet
	return c
}

// HeightAt returns the scheduled height for wall-clock time t: the number
// of whole BlockInterval boundaries elapsed since genesis.
func (c *Config) HeightAt(t time.Time) uint64 {
	elapsed := t.Unix() - c.GenesisTimestamp
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed) / uint64(c.BlockInterval.Seconds())
}

// TimestampForHeight returns T(h) = GENESIS_TS + h*BLOCK_INTERVAL.
func (c *Config) TimestampForHeight(h uint64) int64 {
	return c.GenesisTimestamp + int64(h)*int64(c.BlockInterval.Seconds())
}
