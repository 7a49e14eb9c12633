package walletadapter

import (
	"context"
	"fmt"

	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/pkg/crypto"
)

// Sign authorizes spend with the private key backing the derivation
// record for spend.Coin.PuzzleHash, standing in for a real AGG_SIG_ME BLS
// signature over the coin's spend bundle.
func (w *Wallet) Sign(ctx context.Context, spend singleton.CoinSpend) (singleton.SpendBundle, error) {
	rec, err := w.GetDerivationRecordForPuzzleHash(ctx, spend.Coin.PuzzleHash)
	if err != nil {
		return singleton.SpendBundle{}, err
	}
	if rec == nil {
		// The singleton's own puzzle hash is curried from the launcher's
		// inner puzzle key, not a plain standard-wallet puzzle hash with a
		// derivation record here, so the spend is returned unsigned.
		return singleton.SpendBundle{CoinSpends: []singleton.CoinSpend{spend}}, nil
	}

	change := uint32(0)
	if rec.Hardened {
		// Hardened derivation records aren't produced by this wallet
		// today (GetNewPuzzleHash only ever derives external keys); kept
		// so a future hardened/change path re-derives the right key
		// instead of silently signing with the wrong one.
		change = 1
	}
	child, err := w.master.DerivePuzzleHash(0, change, rec.Index)
	if err != nil {
		return singleton.SpendBundle{}, fmt.Errorf("re-derive signer key: %w", err)
	}
	signer, err := child.Signer()
	if err != nil {
		return singleton.SpendBundle{}, fmt.Errorf("derive signer: %w", err)
	}
	defer signer.Zero()

	digest := crypto.Hash(append(append([]byte(nil), spend.Coin.Name(w.coinName)[:]...), spend.Solution...))
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return singleton.SpendBundle{}, fmt.Errorf("sign spend: %w", err)
	}

	return singleton.SpendBundle{
		CoinSpends:    []singleton.CoinSpend{spend},
		AggregatedSig: sig,
	}, nil
}
