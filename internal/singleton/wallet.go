package singleton

import (
	"context"
	"sync"

	"github.com/dlsingleton/wallet/pkg/types"
)

// CoinNameFunc computes a coin's deterministic name from its parent coin
// info, puzzle hash, and amount. Satisfied by pkg/crypto.CoinName.
type CoinNameFunc func(parentCoinInfo, puzzleHash types.Hash, amount uint64) types.CoinID

// Wallet orchestrates the singleton record store against its external
// collaborators. It performs no internal locking: callers are expected to
// hold mu for the duration of any multi-step operation, mirroring the
// original wallet-state-manager's single cooperative lock.
type Wallet struct {
	mu *sync.Mutex

	store     Store
	txStore   TransactionStore
	chain     ChainQuery
	actions   ActionQueue
	standard  StandardWallet
	derive    DerivationIndex
	interests InterestRegistry
	signer    Signer
	eval      ScriptEvaluator
	coinName  CoinNameFunc

	walletID uint32
}

// Config bundles a Wallet's external collaborators.
type Config struct {
	Mu        *sync.Mutex
	Store     Store
	TxStore   TransactionStore
	Chain     ChainQuery
	Actions   ActionQueue
	Standard  StandardWallet
	Derive    DerivationIndex
	Interests InterestRegistry
	Signer    Signer
	Eval      ScriptEvaluator
	CoinName  CoinNameFunc
	WalletID  uint32
}

// New constructs a Wallet from its collaborators.
func New(cfg Config) *Wallet {
	return &Wallet{
		mu:        cfg.Mu,
		store:     cfg.Store,
		txStore:   cfg.TxStore,
		chain:     cfg.Chain,
		actions:   cfg.Actions,
		standard:  cfg.Standard,
		derive:    cfg.Derive,
		interests: cfg.Interests,
		signer:    cfg.Signer,
		eval:      cfg.Eval,
		coinName:  cfg.CoinName,
		walletID:  cfg.WalletID,
	}
}

// GetLatestSingleton returns the highest-generation record for a launcher.
func (w *Wallet) GetLatestSingleton(launcherID types.LauncherID) (*SingletonRecord, error) {
	return w.store.GetLatest(launcherID)
}

// GetHistory returns records for generations [fromGen, toGen] (toGen < 0
// means through the latest), sorted ascending by generation.
func (w *Wallet) GetHistory(launcherID types.LauncherID, fromGen uint32, toGen int64) ([]SingletonRecord, error) {
	return w.store.GetHistory(launcherID, fromGen, toGen)
}

// GetSingletonRecord looks up a tracked record by its coin ID.
func (w *Wallet) GetSingletonRecord(coinID types.CoinID) (*SingletonRecord, error) {
	return w.store.GetRecord(coinID)
}

// GetSingletonsByRoot looks up every tracked record carrying the given
// root, via the store's secondary root index.
func (w *Wallet) GetSingletonsByRoot(root types.Root) ([]SingletonRecord, error) {
	return w.store.GetByRoot(root)
}

// GetOwnedSingletons filters all tracked launchers down to the ones whose
// current generation's inner puzzle hash is recognized by the wallet's own
// derivation index.
func (w *Wallet) GetOwnedSingletons(ctx context.Context) ([]SingletonRecord, error) {
	launchers, err := w.store.ListLaunchers()
	if err != nil {
		return nil, err
	}
	var owned []SingletonRecord
	for _, id := range launchers {
		latest, err := w.store.GetLatest(id)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			continue
		}
		rec, err := w.derive.GetDerivationRecordForPuzzleHash(ctx, latest.InnerPuzzleHash)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			owned = append(owned, *latest)
		}
	}
	return owned, nil
}

// GetPuzzleInfo returns the full puzzle hash and current coin for a
// launcher's latest generation — the asset-driver half of the offer flow,
// used to find out what coin backs a launcher before an offer spend is
// built against it.
func (w *Wallet) GetPuzzleInfo(launcherID types.LauncherID) (fullPuzzleHash types.Hash, coin Coin, err error) {
	latest, err := w.store.GetLatest(launcherID)
	if err != nil {
		return types.Hash{}, Coin{}, err
	}
	if latest == nil {
		return types.Hash{}, Coin{}, ErrNotTracked
	}
	fullPuzzleHash = w.eval.FullPuzzleHash(latest.InnerPuzzleHash, types.Hash(latest.Root), types.Hash(launcherID))
	coin = Coin{ParentCoinInfo: latest.LineageProof.ParentName, PuzzleHash: fullPuzzleHash, Amount: currentAmount(latest.LineageProof)}
	return fullPuzzleHash, coin, nil
}

// GetCoinsToOffer returns the single current coin an offer spend for this
// launcher would be built against.
func (w *Wallet) GetCoinsToOffer(launcherID types.LauncherID) ([]Coin, error) {
	_, coin, err := w.GetPuzzleInfo(launcherID)
	if err != nil {
		return nil, err
	}
	return []Coin{coin}, nil
}

// StopTrackingSingleton deletes every record for a launcher plus its
// LauncherInfo, unconditionally.
func (w *Wallet) StopTrackingSingleton(ctx context.Context, launcherID types.LauncherID) error {
	records, err := w.store.GetHistory(launcherID, 0, -1)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := w.store.DeleteRecord(r.CoinID); err != nil {
			return err
		}
	}
	return w.store.DeleteLauncherInfo(launcherID)
}

// The following satisfy the generic "wallet" shape a wallet-manager driver
// expects. A DataLayer singleton carries no fungible balance, so every
// balance accessor is a deliberate no-op rather than a gap the caller has
// to special-case.

// NewPeak is a no-op: singleton tracking reacts to coin removal/creation
// notifications, not new-peak notifications directly.
func (w *Wallet) NewPeak(ctx context.Context, height uint32, headerHash types.Hash) error {
	return nil
}

// GetConfirmedBalance always returns zero.
func (w *Wallet) GetConfirmedBalance(ctx context.Context) (uint64, error) { return 0, nil }

// GetUnconfirmedBalance always returns zero.
func (w *Wallet) GetUnconfirmedBalance(ctx context.Context) (uint64, error) { return 0, nil }

// GetSpendableBalance always returns zero.
func (w *Wallet) GetSpendableBalance(ctx context.Context) (uint64, error) { return 0, nil }

// GetPendingChangeBalance always returns zero.
func (w *Wallet) GetPendingChangeBalance(ctx context.Context) (uint64, error) { return 0, nil }

// GetMaxSendAmount always returns zero: a singleton's amount is fixed by
// definition, never a free-form send quantity.
func (w *Wallet) GetMaxSendAmount(ctx context.Context) (uint64, error) { return 0, nil }

func currentAmount(lp types.LineageProof) uint64 {
	if lp.Amount == nil {
		return 1
	}
	return *lp.Amount
}
