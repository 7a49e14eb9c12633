package walletadapter

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/pkg/types"
)

func txKey(name types.Hash) []byte {
	return append([]byte(prefixTx), name[:]...)
}

func txWalletKey(walletID uint32, name types.Hash) []byte {
	key := append([]byte(prefixTxWallet), 0, 0, 0, 0)
	binary.BigEndian.PutUint32(key[len(prefixTxWallet):], walletID)
	return append(key, name[:]...)
}

// AddPendingTransaction satisfies singleton.TransactionStore: it persists
// tx under its name and indexes it by wallet ID so GetUnconfirmedForWallet
// can scan for it until it is confirmed or deleted.
func (w *Wallet) AddPendingTransaction(ctx context.Context, tx singleton.TransactionRecord) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction record: %w", err)
	}
	if err := w.db.Put(txKey(tx.Name), data); err != nil {
		return fmt.Errorf("store transaction record: %w", err)
	}
	if !tx.Confirmed {
		if err := w.db.Put(txWalletKey(tx.WalletID, tx.Name), []byte{1}); err != nil {
			return fmt.Errorf("index unconfirmed transaction: %w", err)
		}
	}
	return nil
}

// GetTransactionRecord satisfies singleton.TransactionStore, returning nil
// (not an error) when name isn't known.
func (w *Wallet) GetTransactionRecord(ctx context.Context, name types.Hash) (*singleton.TransactionRecord, error) {
	data, err := w.db.Get(txKey(name))
	if err != nil {
		// Both DB backends return an error rather than (nil, nil) for a
		// missing key; "not found" is the only case that matters here.
		return nil, nil
	}
	if data == nil {
		return nil, nil
	}
	var tx singleton.TransactionRecord
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction record: %w", err)
	}
	return &tx, nil
}

// GetUnconfirmedForWallet satisfies singleton.TransactionStore, scanning
// the per-wallet unconfirmed index rather than every stored transaction.
func (w *Wallet) GetUnconfirmedForWallet(ctx context.Context, walletID uint32) ([]singleton.TransactionRecord, error) {
	prefix := append([]byte(prefixTxWallet), 0, 0, 0, 0)
	binary.BigEndian.PutUint32(prefix[len(prefixTxWallet):], walletID)

	var names []types.Hash
	err := w.db.ForEach(prefix, func(key, value []byte) error {
		name := key[len(prefix):]
		if len(name) != types.HashSize {
			return fmt.Errorf("unconfirmed index: malformed key")
		}
		var h types.Hash
		copy(h[:], name)
		names = append(names, h)
		return nil
	})
	if err != nil {
		return nil, err
	}

	txs := make([]singleton.TransactionRecord, 0, len(names))
	for _, name := range names {
		tx, err := w.GetTransactionRecord(ctx, name)
		if err != nil {
			return nil, err
		}
		if tx == nil {
			continue
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

// DeleteTransactionRecord satisfies singleton.TransactionStore, removing
// both the record and its unconfirmed-index entry (the latter delete is a
// no-op if the transaction was already confirmed).
func (w *Wallet) DeleteTransactionRecord(ctx context.Context, name types.Hash) error {
	tx, err := w.GetTransactionRecord(ctx, name)
	if err != nil {
		return err
	}
	if tx != nil {
		if err := w.db.Delete(txWalletKey(tx.WalletID, name)); err != nil {
			return fmt.Errorf("remove unconfirmed index entry: %w", err)
		}
	}
	return w.db.Delete(txKey(name))
}
