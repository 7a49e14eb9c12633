package walletadapter

import (
	"context"
	"encoding/binary"

	"github.com/dlsingleton/wallet/pkg/types"
)

func interestHashKey(hash types.Hash) []byte {
	return append([]byte(prefixInterest+"ph/"), hash[:]...)
}

func interestCoinKey(coinID types.Hash) []byte {
	return append([]byte(prefixInterest+"coin/"), coinID[:]...)
}

// AddInterestedPuzzleHashes satisfies singleton.InterestRegistry: it marks
// hashes as belonging to walletID so the sync layer's chain subscriptions
// pick up coins paid to them.
func (w *Wallet) AddInterestedPuzzleHashes(ctx context.Context, hashes []types.Hash, walletID uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, walletID)
	for _, h := range hashes {
		if err := w.db.Put(interestHashKey(h), buf); err != nil {
			return err
		}
	}
	return nil
}

// AddInterestedCoinIDs satisfies singleton.InterestRegistry: it marks
// coinIDs as ones the sync layer should report spends for, independent of
// whether their puzzle hash is itself tracked.
func (w *Wallet) AddInterestedCoinIDs(ctx context.Context, coinIDs []types.Hash) error {
	for _, id := range coinIDs {
		if err := w.db.Put(interestCoinKey(id), []byte{1}); err != nil {
			return err
		}
	}
	return nil
}

// IsInterestedInPuzzleHash reports whether hash was previously registered
// via AddInterestedPuzzleHashes, for callers (the sync layer) deciding
// whether an incoming coin belongs to this wallet.
func (w *Wallet) IsInterestedInPuzzleHash(hash types.Hash) (bool, error) {
	data, err := w.db.Get(interestHashKey(hash))
	if err != nil {
		// Both DB backends return an error rather than (nil, nil) for a
		// missing key; absence just means "not interested".
		return false, nil
	}
	return data != nil, nil
}
