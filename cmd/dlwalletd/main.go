// DataLayer singleton wallet daemon.
//
// Usage:
//
//	dlwalletd                 Run wallet daemon against an existing keystore wallet
//	dlwalletd --help          Show help message
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/dlsingleton/wallet/config"
	klog "github.com/dlsingleton/wallet/internal/log"
	"github.com/dlsingleton/wallet/internal/netquery"
	"github.com/dlsingleton/wallet/internal/refwallet"
	"github.com/dlsingleton/wallet/internal/rpc"
	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/internal/storage"
	"github.com/dlsingleton/wallet/internal/walletadapter"
	"github.com/dlsingleton/wallet/pkg/crypto"
)

// defaultWalletName is the keystore entry this daemon opens when none is
// configured via --wallet-file.
const defaultWalletName = "default"

func main() {
	// ── 1. Load config (defaults → file → flags) ────────────────────────
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Init logger ──────────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logs dir: %v\n", err)
			os.Exit(1)
		}
		logFile = logsDir + "/dlwallet.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("main")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("datadir", cfg.DataDir).
		Msg("Starting DataLayer singleton wallet")

	// ── 3. Open or create the keystore wallet ───────────────────────────
	ks, err := refwallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open keystore")
	}
	walletName := cfg.Wallet.FilePath
	if walletName == "" {
		walletName = defaultWalletName
	}

	seed, err := loadOrCreateSeed(ks, walletName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to unlock wallet")
	}
	master, err := refwallet.NewMasterKey(seed)
	for i := range seed {
		seed[i] = 0
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to derive master key")
	}

	// ── 4. Open storage ──────────────────────────────────────────────────
	storeDir := filepath.Join(cfg.NetDataDir(), "store")
	db, err := storage.NewBadger(storeDir)
	if err != nil {
		logger.Fatal().Err(err).Str("path", storeDir).Msg("failed to open database")
	}
	defer db.Close()

	store := singleton.NewStore(db)

	// ── 5. Join the peer network ──────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	netNode, err := netquery.New(ctx, cfg.P2P, filepath.Join(cfg.NetDataDir(), "p2p"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start p2p node")
	}
	defer netNode.Close()

	// ── 6. Wire the standard-wallet collaborators onto local storage ────
	adapter := walletadapter.New(db, master, crypto.CoinName, 1)
	evaluator := walletadapter.NewScriptEvaluator()

	// ── 7. Construct the singleton wallet ────────────────────────────────
	var mu sync.Mutex
	wallet := singleton.New(singleton.Config{
		Mu:        &mu,
		Store:     store,
		TxStore:   adapter,
		Chain:     netNode,
		Actions:   netNode,
		Standard:  adapter,
		Derive:    adapter,
		Interests: adapter,
		Signer:    adapter,
		Eval:      evaluator,
		CoinName:  crypto.CoinName,
		WalletID:  1,
	})

	// ── 8. Subscribe to gossiped singleton spends ────────────────────────
	go func() {
		if err := netNode.SubscribeCoinSpends(ctx, wallet.SingletonRemoved); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("coin-spend subscription ended")
		}
	}()

	// ── 9. Start RPC server ──────────────────────────────────────────────
	rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
	rpcServer := rpc.New(rpcAddr, &mu, wallet, netNode, cfg.RPC)
	if err := rpcServer.Start(); err != nil {
		logger.Fatal().Err(err).Str("addr", rpcAddr).Msg("failed to start RPC server")
	}
	defer rpcServer.Stop()

	logger.Info().Str("addr", rpcServer.Addr()).Msg("RPC server started")
	logger.Info().Msg("Wallet daemon started successfully")

	// ── 10. Wait for shutdown ─────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	cancel()
	logger.Info().Msg("goodbye")
}

// loadOrCreateSeed opens walletName from ks, prompting for its password. If
// the wallet doesn't exist yet, it generates a fresh mnemonic, prints it
// once for the operator to record, and creates the wallet under a
// newly-chosen password.
func loadOrCreateSeed(ks *refwallet.Keystore, walletName string) ([]byte, error) {
	names, err := ks.List()
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}

	for _, n := range names {
		if n == walletName {
			password, err := readPassword(fmt.Sprintf("Password for wallet %q: ", walletName))
			if err != nil {
				return nil, err
			}
			return ks.Load(walletName, password)
		}
	}

	mnemonic, err := refwallet.GenerateMnemonic()
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}
	fmt.Fprintf(os.Stderr, "\nNo wallet named %q found. Generated a new one.\n", walletName)
	fmt.Fprintf(os.Stderr, "Write down this recovery phrase; it will not be shown again:\n\n  %s\n\n", mnemonic)

	seed, err := refwallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}

	password, err := readPassword(fmt.Sprintf("Choose a password for wallet %q: ", walletName))
	if err != nil {
		return nil, err
	}
	if err := ks.Create(walletName, seed, password, refwallet.DefaultParams()); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	return seed, nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}
