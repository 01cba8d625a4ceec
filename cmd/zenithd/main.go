// Command zenithd is the thin CLI over the consensus library: a `run`
// entrypoint that composes and starts a node, plus the status/get-tx/
// get-utxo read commands external tooling scripts against. Exit codes:
// 0 success, 1 recoverable error, 2 invariant violation.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/btcsuite/btcutil"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"

	"github.com/zenithcoin/zenithd/blockindex"
	"github.com/zenithcoin/zenithd/chainaddr"
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/hashing"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/logging"
	"github.com/zenithcoin/zenithd/node"
	"github.com/zenithcoin/zenithd/utxo"
	"github.com/zenithcoin/zenithd/xcrypto"
)

const (
	exitRecoverable = 1
	exitInvariant   = 2

	genesisFileName = "genesis.json"
	keyFileName     = "masternode.key"
)

func main() {
	app := &cli.App{
		Name:  "zenithd",
		Usage: "masternode consensus daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "datadir",
				Usage: "chain data directory",
				Value: btcutil.AppDataDir("zenithd", false),
			},
			&cli.BoolFlag{
				Name:  "mainnet",
				Usage: "use mainnet parameters (default testnet)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "start the masternode",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen address override (host:port)",
					},
					&cli.StringSliceFlag{
						Name:  "seed",
						Usage: "peer address to dial at startup (repeatable)",
					},
				},
				Action: runNode,
			},
			{
				Name:   "status",
				Usage:  "print height, tip hash, peer count, pending votes",
				Action: showStatus,
			},
			{
				Name:      "get-tx",
				Usage:     "print what the chain knows about a transaction",
				ArgsUsage: "<txid>",
				Action:    showTx,
			},
			{
				Name:      "get-utxo",
				Usage:     "print the state of an outpoint",
				ArgsUsage: "<txid:vout>",
				Action:    showUTXO,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if _, ok := err.(cli.ExitCoder); !ok {
			err = cli.Exit(err.Error(), exitRecoverable)
		}
		cli.HandleExitCoder(err)
	}
}

func resolveDataDir(c *cli.Context) (string, error) {
	dir, err := homedir.Expand(c.String("datadir"))
	if err != nil {
		return "", err
	}
	return dir, nil
}

func buildConfig(c *cli.Context) *config.Config {
	if c.Bool("mainnet") {
		return config.DefaultMainnetConfig()
	}
	return config.DefaultTestnetConfig()
}

// loadKey reads the node's Ed25519 seed from the data directory,
// generating and persisting a fresh one on first run.
func loadKey(dataDir string) (xcrypto.PrivateKey, error) {
	path := filepath.Join(dataDir, keyFileName)
	raw, err := os.ReadFile(path)
	if err == nil {
		seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return xcrypto.PrivateKey{}, fmt.Errorf("malformed key file %s: %w", path, err)
		}
		return xcrypto.PrivateKeyFromSeed(seed)
	}
	if !os.IsNotExist(err) {
		return xcrypto.PrivateKey{}, err
	}

	priv, _, err := xcrypto.GenerateKey()
	if err != nil {
		return xcrypto.PrivateKey{}, err
	}
	seed := make([]byte, 32)
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return xcrypto.PrivateKey{}, err
	}
	copy(seed, priv.Seed())
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600); err != nil {
		return xcrypto.PrivateKey{}, err
	}
	return priv, nil
}

// nodeIDFor derives a masternode id from its public key: the first 20
// bytes of SHA-256(pubkey), the same derivation genesis documents use.
func nodeIDFor(pub xcrypto.PublicKey) ids.ShortID {
	var id ids.ShortID
	copy(id[:], hashing.ComputeHash256(pub.Bytes())[:20])
	return id
}

func runNode(c *cli.Context) error {
	dataDir, err := resolveDataDir(c)
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	log, err := logging.New(c.Bool("verbose"))
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	defer log.Sync()

	doc, err := node.LoadGenesisDoc(filepath.Join(dataDir, genesisFileName))
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	key, err := loadKey(dataDir)
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}

	cfg := buildConfig(c)
	cfg.GenesisTimestamp = doc.Timestamp
	cfg.GenesisHash = doc.Block().Hash()
	cfg.NodeID = nodeIDFor(key.Public())
	cfg.TreasuryAddr = doc.TreasuryAddress
	if listen := c.String("listen"); listen != "" {
		cfg.ListenAddr = listen
	}

	n, err := node.New(cfg, log, node.Options{
		DataDir: dataDir,
		Genesis: doc,
		Key:     key,
		Seeds:   c.StringSlice("seed"),
	})
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("zenithd starting", "nodeID", cfg.NodeID, "datadir", dataDir)
	if err := n.Run(ctx); err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	return nil
}

func showStatus(c *cli.Context) error {
	dataDir, err := resolveDataDir(c)
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}

	status, live := node.ReadStatusFile(dataDir)
	if !live {
		// No running node: read what the persisted chain alone can
		// answer. Peer count and pending votes are runtime state.
		idx, err := blockindex.NewDiskIndex(filepath.Join(dataDir, "blocks"), 16)
		if err != nil {
			return cli.Exit(fmt.Sprintf("no running node and no readable chain database: %v", err), exitRecoverable)
		}
		defer idx.Close()
		tip := idx.Height()
		hash, ok := idx.HashAt(tip)
		if !ok && tip > 0 {
			return cli.Exit(fmt.Sprintf("chain database has height %d but no tip block", tip), exitInvariant)
		}
		status.Height = tip
		status.TipHash = hash.String()
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"height", status.Height})
	t.AppendRow(table.Row{"tip hash", status.TipHash})
	t.AppendRow(table.Row{"peers", status.Peers})
	t.AppendRow(table.Row{"pending votes", status.PendingVotes})
	if live {
		t.AppendRow(table.Row{"mempool", status.MempoolSize})
	}
	t.Render()
	return nil
}

func showTx(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: zenithd get-tx <txid>", exitRecoverable)
	}
	txID, err := parseID(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	dataDir, err := resolveDataDir(c)
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}

	idx, err := blockindex.NewDiskIndex(filepath.Join(dataDir, "blocks"), 16)
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	defer idx.Close()

	for h := idx.Height(); ; h-- {
		blk, ok := idx.BlockAt(h)
		if !ok {
			if h > 0 {
				return cli.Exit(fmt.Sprintf("chain database is missing block %d below its tip", h), exitInvariant)
			}
			break
		}
		for _, tx := range blk.Transactions {
			if tx.TxID() != txID {
				continue
			}
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Field", "Value"})
			t.AppendRow(table.Row{"txid", txID.String()})
			t.AppendRow(table.Row{"state", "confirmed"})
			t.AppendRow(table.Row{"block height", h})
			t.AppendRow(table.Row{"outputs", len(tx.Outputs)})
			t.AppendRow(table.Row{"value out", chainaddr.Amount(tx.OutputSum()).String()})
			t.Render()
			return nil
		}
		if h == 0 {
			break
		}
	}
	fmt.Printf("%s: not found in any confirmed block (may be pending on a running node)\n", txID)
	return nil
}

func showUTXO(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: zenithd get-utxo <txid:vout>", exitRecoverable)
	}
	op, err := parseOutPoint(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	dataDir, err := resolveDataDir(c)
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}

	store, err := utxo.NewDiskStore(filepath.Join(dataDir, "utxo"), 16)
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	defer store.Close()

	u, ok, err := store.Get(op)
	if err != nil {
		return cli.Exit(err.Error(), exitRecoverable)
	}
	if !ok {
		fmt.Printf("%s: not in the live UTXO set (spent, or never existed)\n", op)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"outpoint", op.String()})
	t.AppendRow(table.Row{"value", chainaddr.Amount(u.Value).String()})
	t.AppendRow(table.Row{"address", u.Address})
	t.AppendRow(table.Row{"state", "live (unspent or in flight)"})
	t.Render()
	return nil
}

func parseID(s string) (ids.ID, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return ids.Empty, fmt.Errorf("malformed txid %q: %w", s, err)
	}
	return ids.ToID(raw)
}

func parseOutPoint(s string) (chaintypes.OutPoint, error) {
	var op chaintypes.OutPoint
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return op, fmt.Errorf("malformed outpoint %q: want <txid>:<vout>", s)
	}
	txID, err := parseID(s[:i])
	if err != nil {
		return op, err
	}
	vout, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return op, fmt.Errorf("malformed vout in %q: %w", s, err)
	}
	op.TxID = txID
	op.Vout = uint32(vout)
	return op, nil
}
