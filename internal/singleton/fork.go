package singleton

import (
	"context"

	"github.com/dlsingleton/wallet/internal/log"
	"github.com/dlsingleton/wallet/pkg/types"
)

// PotentiallyHandleResubmit reconciles a launcher's pending chain against
// what just confirmed, after every confirmed advance. See SPEC_FULL.md §4.E
// for the full algorithm.
func (w *Wallet) PotentiallyHandleResubmit(ctx context.Context, launcherID types.LauncherID) error {
	stale, err := w.store.GetUnconfirmed(launcherID)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	lowestGen := stale[0].Generation
	fullBranch, err := w.store.GetHistory(launcherID, lowestGen, -1)
	if err != nil {
		return err
	}
	if sameBranch(stale, fullBranch) {
		return nil
	}

	rootChanged, err := w.branchRootChanged(stale[0])
	if err != nil {
		return err
	}

	recovered, err := w.deleteStalePendingState(ctx, stale)
	if err != nil {
		return err
	}

	if rootChanged {
		log.Fork.Info().Str("launcher_id", launcherID.String()).Msg("root changed across fork, pending chain abandoned")
		return nil
	}

	return w.rebaseStale(ctx, launcherID, stale, recovered)
}

// sameBranch reports whether the unconfirmed records are, as a set, exactly
// the full branch loaded from the lowest unconfirmed generation onward —
// i.e. nothing confirmed superseded them.
func sameBranch(unconfirmed, fullBranch []SingletonRecord) bool {
	if len(unconfirmed) != len(fullBranch) {
		return false
	}
	seen := make(map[types.CoinID]bool, len(unconfirmed))
	for _, r := range unconfirmed {
		seen[r.CoinID] = true
	}
	for _, r := range fullBranch {
		if !seen[r.CoinID] {
			return false
		}
	}
	return true
}

// branchRootChanged determines whether root actually changed along the
// confirmed branch relative to the parent of the first unconfirmed record:
// true if the parent record is missing, or if any confirmed record for the
// same launcher at or above the first unconfirmed record's generation
// disagrees with the parent's root.
func (w *Wallet) branchRootChanged(firstStale SingletonRecord) (bool, error) {
	parentCoinID := types.CoinID(firstStale.LineageProof.ParentName)
	parent, err := w.store.GetRecord(parentCoinID)
	if err != nil {
		return false, err
	}
	if parent == nil {
		return true, nil
	}

	siblings, err := w.store.GetHistory(firstStale.LauncherID, firstStale.Generation, -1)
	if err != nil {
		return false, err
	}
	for _, s := range siblings {
		if s.Confirmed && s.Root != parent.Root {
			return true, nil
		}
	}
	return false, nil
}

// deleteStalePendingState deletes every TransactionRecord that created a
// stale record (keyed, per this wallet's convention, by the created coin's
// own id), any standard-wallet fee transaction whose removals overlap
// those, and the stale SingletonRecords themselves. The transactions are
// deleted one by one through the TransactionStore; the record deletions go
// through one store batch and commit together. It returns the total fee
// recovered from the deleted transactions, generation to fee, for the
// rebase step.
func (w *Wallet) deleteStalePendingState(ctx context.Context, stale []SingletonRecord) (map[uint32]uint64, error) {
	recovered := make(map[uint32]uint64, len(stale))

	var staleRemovals []types.Hash
	for _, s := range stale {
		tx, err := w.txStore.GetTransactionRecord(ctx, types.Hash(s.CoinID))
		if err != nil {
			return nil, err
		}
		if tx == nil {
			continue
		}
		recovered[s.Generation] = tx.FeeAmount
		for _, removal := range tx.Removals {
			staleRemovals = append(staleRemovals, types.Hash(removal.Name(w.coinName)))
		}
		if err := w.txStore.DeleteTransactionRecord(ctx, tx.Name); err != nil {
			return nil, err
		}
	}

	if w.walletID != 0 && len(staleRemovals) > 0 {
		pending, err := w.txStore.GetUnconfirmedForWallet(ctx, w.walletID)
		if err != nil {
			return nil, err
		}
		for _, tx := range pending {
			if w.txRemovalsOverlap(tx, staleRemovals) {
				if err := w.txStore.DeleteTransactionRecord(ctx, tx.Name); err != nil {
					return nil, err
				}
			}
		}
	}

	batch := w.store.NewBatch()
	for _, s := range stale {
		if err := batch.Delete(recordKey(s.CoinID)); err != nil {
			return nil, err
		}
		if err := batch.Delete(genKey(s.LauncherID, s.Generation, s.CoinID)); err != nil {
			return nil, err
		}
		if err := batch.Delete(rootIndexKey(s.Root, s.CoinID)); err != nil {
			return nil, err
		}
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	return recovered, nil
}

func (w *Wallet) txRemovalsOverlap(tx TransactionRecord, removals []types.Hash) bool {
	for _, r := range tx.Removals {
		removalID := types.Hash(r.Name(w.coinName))
		for _, stale := range removals {
			if removalID == stale {
				return true
			}
		}
	}
	return false
}

// rebaseStale attempts an automatic rebase: for each stale record, re-author
// a successor against the new confirmed tip for the same root. If
// re-authoring fails partway, the newly-added pending records are undone, and the error is
// logged and returned; SingletonRemoved logs it as a warning and does not
// propagate it.
func (w *Wallet) rebaseStale(ctx context.Context, launcherID types.LauncherID, stale []SingletonRecord, recovered map[uint32]uint64) error {
	var rebuilt []types.CoinID
	for _, s := range stale {
		puzzleHash := s.InnerPuzzleHash
		amount := currentAmount(s.LineageProof)
		root := s.Root
		result, err := w.CreateUpdateStateSpend(ctx, UpdateStateRequest{
			LauncherID:          launcherID,
			RootHash:            &root,
			NewPuzzleHash:       &puzzleHash,
			NewAmount:           &amount,
			Fee:                 recovered[s.Generation],
			Sign:                true,
			AddPendingSingleton: true,
		})
		if err != nil {
			for _, id := range rebuilt {
				_ = w.store.DeleteRecord(id)
			}
			log.Fork.Warn().Str("launcher_id", launcherID.String()).Err(err).Msg("automatic rebase failed, undid partial pending state")
			return err
		}
		rebuilt = append(rebuilt, result.NewRecord.CoinID)
		if result.AnnounceRecord != nil {
			rebuilt = append(rebuilt, result.AnnounceRecord.CoinID)
		}
	}
	return nil
}
