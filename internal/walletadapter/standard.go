package walletadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dlsingleton/wallet/internal/refwallet"
	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/internal/storage"
	"github.com/dlsingleton/wallet/pkg/crypto"
	"github.com/dlsingleton/wallet/pkg/types"
)

const (
	prefixDerivation = "deriv/"
	prefixCounter    = "ctr/"
	prefixCoin       = "coin/"
	prefixInterest   = "interest/"
	prefixTx         = "tx/"
	prefixTxWallet   = "txw/"

	counterExternal = "external"
)

// Wallet is the concrete StandardWallet/DerivationIndex/Signer/
// InterestRegistry/TransactionStore the singleton package borrows coin
// selection, puzzle derivation, and signing services from. It owns a
// single BIP-44 account rooted at the HD master key it was built from.
type Wallet struct {
	mu       sync.Mutex
	db       storage.DB
	master   *refwallet.HDKey
	coinName singleton.CoinNameFunc
	walletID uint32
}

// New constructs a Wallet over db, deriving puzzle hashes from master
// under account 0.
func New(db storage.DB, master *refwallet.HDKey, coinName singleton.CoinNameFunc, walletID uint32) *Wallet {
	return &Wallet{db: db, master: master, coinName: coinName, walletID: walletID}
}

// derivationRecordKey computes the storage key for a puzzle hash's
// derivation record.
func derivationRecordKey(puzzleHash types.Hash) []byte {
	return append([]byte(prefixDerivation), puzzleHash[:]...)
}

func (w *Wallet) nextExternalIndex() (uint32, error) {
	key := append([]byte(prefixCounter), []byte(counterExternal)...)
	// Both DB backends return an error rather than (nil, nil) for a
	// missing key; no counter yet just means we start at index 0.
	data, _ := w.db.Get(key)
	var idx uint32
	if data != nil {
		if err := json.Unmarshal(data, &idx); err != nil {
			return 0, fmt.Errorf("decode derivation counter: %w", err)
		}
	}
	next, err := json.Marshal(idx + 1)
	if err != nil {
		return 0, err
	}
	if err := w.db.Put(key, next); err != nil {
		return 0, fmt.Errorf("advance derivation counter: %w", err)
	}
	return idx, nil
}

// GetNewPuzzleHash derives the next unused external puzzle hash, persists
// its derivation record, and returns it.
func (w *Wallet) GetNewPuzzleHash(ctx context.Context) (types.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	index, err := w.nextExternalIndex()
	if err != nil {
		return types.Hash{}, err
	}
	child, err := w.master.DerivePuzzleHash(0, refwallet.ChangeExternal, index)
	if err != nil {
		return types.Hash{}, fmt.Errorf("derive puzzle hash %d: %w", index, err)
	}
	puzzleHash := child.PuzzleHash()

	rec := singleton.DerivationRecord{
		Index:      index,
		PuzzleHash: puzzleHash,
		PubKey:     child.PublicKeyBytes(),
		WalletID:   w.walletID,
		Hardened:   false,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return types.Hash{}, err
	}
	if err := w.db.Put(derivationRecordKey(puzzleHash), data); err != nil {
		return types.Hash{}, fmt.Errorf("store derivation record: %w", err)
	}
	return puzzleHash, nil
}

// GetNewPuzzle returns the reveal standing in for a fresh p2_delegated_or_hidden
// puzzle curried with the new puzzle hash's public key.
func (w *Wallet) GetNewPuzzle(ctx context.Context) (singleton.Program, error) {
	puzzleHash, err := w.GetNewPuzzleHash(ctx)
	if err != nil {
		return nil, err
	}
	return singleton.Program(puzzleHash[:]), nil
}

// PuzzleForPK wraps a public key as the puzzle reveal it resolves to.
func (w *Wallet) PuzzleForPK(pubKey []byte) (singleton.Program, error) {
	return singleton.Program(crypto.Hash(pubKey).Bytes()), nil
}

// GetDerivationRecordForPuzzleHash answers whether this wallet derived
// puzzleHash, returning nil (not an error) when it did not.
func (w *Wallet) GetDerivationRecordForPuzzleHash(ctx context.Context, puzzleHash types.Hash) (*singleton.DerivationRecord, error) {
	data, err := w.db.Get(derivationRecordKey(puzzleHash))
	if err != nil {
		// Both DB backends return an error rather than (nil, nil) for a
		// missing key; absence just means this wallet never derived it.
		return nil, nil
	}
	if data == nil {
		return nil, nil
	}
	var rec singleton.DerivationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode derivation record: %w", err)
	}
	return &rec, nil
}

// GenerateSignedTransaction builds the constrained single-destination send
// CreateTandemXCHTx and the generic wallet-send flow rely on: select coins
// covering amount+fee, pay amount to the caller's chosen puzzle hash (or to
// a freshly derived one when none is given), and sign the result. A
// zero-amount fee-only spend creates no payment output.
func (w *Wallet) GenerateSignedTransaction(ctx context.Context, req singleton.StandardSendRequest) (*singleton.TransactionRecord, error) {
	target := req.PuzzleHash
	if target.IsZero() && req.Amount > 0 {
		ph, err := w.GetNewPuzzleHash(ctx)
		if err != nil {
			return nil, err
		}
		target = ph
	}

	coins, err := w.SelectCoins(ctx, req.Amount+req.Fee)
	if err != nil {
		return nil, fmt.Errorf("select coins for send: %w", err)
	}

	var spends []singleton.CoinSpend
	var additions []singleton.Coin
	for i, c := range coins {
		spend := singleton.CoinSpend{Coin: c}
		if i == 0 && req.Amount > 0 {
			additions = append(additions, singleton.Coin{
				ParentCoinInfo: types.Hash(c.Name(w.coinName)),
				PuzzleHash:     target,
				Amount:         req.Amount,
			})
		}
		spends = append(spends, spend)
	}

	var bundle singleton.SpendBundle
	for _, spend := range spends {
		signed, err := w.Sign(ctx, spend)
		if err != nil {
			return nil, fmt.Errorf("sign send coin: %w", err)
		}
		bundle.CoinSpends = append(bundle.CoinSpends, signed.CoinSpends...)
		bundle.AggregatedSig = append(bundle.AggregatedSig, signed.AggregatedSig...)
	}

	name := crypto.Hash([]byte(fmt.Sprintf("send/%d/%d", req.Amount, req.Fee)))
	tx := &singleton.TransactionRecord{
		Name:        name,
		SpendBundle: &bundle,
		Removals:    coins,
		Additions:   additions,
		FeeAmount:   req.Fee,
		WalletID:    w.walletID,
	}
	if err := w.AddPendingTransaction(ctx, *tx); err != nil {
		return nil, err
	}
	return tx, nil
}
