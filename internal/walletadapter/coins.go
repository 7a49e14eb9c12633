package walletadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dlsingleton/wallet/internal/refwallet"
	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/pkg/types"
)

func coinKey(coinID types.CoinID) []byte {
	return append([]byte(prefixCoin), coinID[:]...)
}

// AddFundingCoin registers a plain coin as spendable by this wallet — how
// an externally-received payment (or the chain-sync path noticing a coin
// paid to one of this wallet's own puzzle hashes) becomes available to
// SelectCoins.
func (w *Wallet) AddFundingCoin(coin singleton.Coin) error {
	data, err := json.Marshal(coin)
	if err != nil {
		return err
	}
	return w.db.Put(coinKey(coin.Name(w.coinName)), data)
}

// SelectCoins satisfies singleton.StandardWallet: it picks enough tracked
// plain coins to cover amount, removing the selected coins from the
// spendable set (mirroring them being consumed by the resulting spend).
func (w *Wallet) SelectCoins(ctx context.Context, amount uint64) ([]singleton.Coin, error) {
	w.mu.Lock()
	unlocked := false
	defer func() {
		if !unlocked {
			w.mu.Unlock()
		}
	}()

	byID := make(map[types.CoinID]singleton.Coin)
	var utxos []refwallet.UTXO
	err := w.db.ForEach([]byte(prefixCoin), func(key, value []byte) error {
		var c singleton.Coin
		if err := json.Unmarshal(value, &c); err != nil {
			return fmt.Errorf("decode funding coin: %w", err)
		}
		id := c.Name(w.coinName)
		byID[id] = c
		utxos = append(utxos, refwallet.UTXO{CoinID: id, PuzzleHash: c.PuzzleHash, Value: c.Amount})
		return nil
	})
	if err != nil {
		return nil, err
	}

	selection, err := refwallet.SelectCoins(utxos, amount)
	if err != nil {
		return nil, fmt.Errorf("select coins: %w", err)
	}

	coins := make([]singleton.Coin, 0, len(selection.Inputs))
	for _, u := range selection.Inputs {
		coins = append(coins, byID[u.CoinID])
		if err := w.db.Delete(coinKey(u.CoinID)); err != nil {
			return nil, fmt.Errorf("remove spent coin: %w", err)
		}
	}

	// GetNewPuzzleHash takes w.mu itself.
	w.mu.Unlock()
	unlocked = true

	if selection.Change > 0 {
		changeHash, err := w.GetNewPuzzleHash(ctx)
		if err != nil {
			return nil, fmt.Errorf("derive change puzzle hash: %w", err)
		}
		change := singleton.Coin{
			ParentCoinInfo: types.Hash(coins[0].Name(w.coinName)),
			PuzzleHash:     changeHash,
			Amount:         selection.Change,
		}
		if err := w.AddFundingCoin(change); err != nil {
			return nil, fmt.Errorf("store change coin: %w", err)
		}
	}

	return coins, nil
}
