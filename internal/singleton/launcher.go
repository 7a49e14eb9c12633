package singleton

import (
	"context"
	"fmt"

	"github.com/dlsingleton/wallet/internal/log"
	"github.com/dlsingleton/wallet/pkg/types"
)

// LauncherPuzzleHash is the canonical puzzle hash every genuine singleton
// launcher coin must be locked under. A reference constant here stands in
// for the full CLVM puzzle reveal the ScriptEvaluator would otherwise be
// asked to recognize.
var LauncherPuzzleHash = types.Hash{0x5a, 0x1c, 0x4e, 0xd8} // placeholder, see ScriptEvaluator

// launchSolution is the decoded shape of a launcher coin's solution:
// (fullPuzzleHash, amount, root, innerPuzzleHash).
type launchSolution struct {
	FullPuzzleHash  types.Hash
	Amount          uint64
	Root            types.Root
	InnerPuzzleHash types.Hash
}

// decodeLaunchSolution pulls the launch tuple out of a launcher spend's
// solution program. Concrete decoding is delegated to the injected
// ScriptEvaluator via RunPuzzle, which is expected to surface the tuple as
// a single OpRemark condition whose Args carry the four fields in order.
func decodeLaunchSolution(ctx context.Context, eval ScriptEvaluator, spend CoinSpend) (launchSolution, error) {
	conditions, err := eval.RunPuzzle(ctx, spend.Puzzle, spend.Solution)
	if err != nil {
		return launchSolution{}, fmt.Errorf("run launcher puzzle: %w", err)
	}
	for _, c := range conditions {
		if c.Opcode != types.OpRemark || len(c.Args) != 4 {
			continue
		}
		var sol launchSolution
		copy(sol.FullPuzzleHash[:], c.Args[0])
		sol.Amount = decodeUint64BE(c.Args[1])
		copy(sol.Root[:], c.Args[2])
		copy(sol.InnerPuzzleHash[:], c.Args[3])
		return sol, nil
	}
	return launchSolution{}, ErrNotALauncher
}

func decodeUint64BE(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// MatchLauncherSpend statically verifies a coin spend is a genuine
// singleton launch: the solution decodes to the launch tuple, the full
// puzzle hash recomputes correctly from it and the spent coin's own name,
// and amount is odd.
func (w *Wallet) MatchLauncherSpend(ctx context.Context, spend CoinSpend) (ok bool, innerPuzzleHash types.Hash, err error) {
	sol, err := decodeLaunchSolution(ctx, w.eval, spend)
	if err != nil {
		if err == ErrNotALauncher {
			return false, types.Hash{}, nil
		}
		return false, types.Hash{}, err
	}
	if sol.Amount == 0 || sol.Amount%2 == 0 {
		return false, types.Hash{}, nil
	}
	launcherCoinID := spend.Coin.Name(w.coinName)
	expectedFullPuzzleHash := w.eval.FullPuzzleHash(sol.InnerPuzzleHash, types.Hash(sol.Root), types.Hash(launcherCoinID))
	if expectedFullPuzzleHash != sol.FullPuzzleHash {
		return false, types.Hash{}, nil
	}
	return true, sol.InnerPuzzleHash, nil
}

// TrackNewLauncherID is the entry point for a singleton the wallet did not
// itself launch.
func (w *Wallet) TrackNewLauncherID(ctx context.Context, launcherID types.LauncherID, spend *CoinSpend, height *uint32) error {
	if existing, err := w.store.GetLauncherInfo(launcherID); err != nil {
		return err
	} else if existing != nil {
		log.Sync.Debug().Str("launcher_id", launcherID.String()).Msg("launcher already tracked")
		return nil
	}

	if spend != nil {
		if spend.Coin.Name(w.coinName) == types.CoinID(launcherID) {
			return w.NewLauncherSpend(ctx, *spend, height)
		}
	}

	states, err := w.chain.GetCoinState(ctx, []types.Hash{types.Hash(launcherID)})
	if err != nil {
		return fmt.Errorf("query launcher coin state: %w", err)
	}
	if len(states) == 0 || states[0].SpentHeight == nil {
		return fmt.Errorf("%w: launcher coin not yet spent", ErrNotTracked)
	}
	cs := states[0]
	return w.actions.RequestPuzzleSolution(ctx, types.Hash(launcherID), *cs.SpentHeight, "NewLauncherSpendResponse", nil)
}

// NewLauncherSpendResponse reassembles a CoinSpend from a queued action's
// response and the stored launcher coin, then ingests it.
func (w *Wallet) NewLauncherSpendResponse(ctx context.Context, launcherID types.LauncherID, launcherCoin Coin, resp PuzzleSolutionResponse) error {
	spend := CoinSpend{
		Coin:     launcherCoin,
		Puzzle:   resp.Puzzle,
		Solution: resp.Solution,
	}
	height := resp.Height
	return w.NewLauncherSpend(ctx, spend, &height)
}

// NewLauncherSpend is the core ingestion routine for a launcher spend.
func (w *Wallet) NewLauncherSpend(ctx context.Context, spend CoinSpend, height *uint32) error {
	ok, _, err := w.MatchLauncherSpend(ctx, spend)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotALauncher
	}

	sol, err := decodeLaunchSolution(ctx, w.eval, spend)
	if err != nil {
		return err
	}
	launcherID := types.LauncherID(spend.Coin.Name(w.coinName))
	childCoinID := w.coinName(types.Hash(launcherID), sol.FullPuzzleHash, sol.Amount)

	existing, err := w.store.GetLatest(launcherID)
	if err != nil {
		return err
	}

	var ts uint64
	if height != nil {
		ts, err = w.chain.GetTimestampForHeight(ctx, *height)
		if err != nil {
			return fmt.Errorf("get timestamp for height %d: %w", *height, err)
		}
	}

	switch {
	case existing != nil && existing.CoinID == childCoinID:
		// The wallet authored this launch itself; promote it to confirmed.
		confirmed := existing.WithConfirmed(derefHeight(height), ts)
		if err := w.store.PutRecord(confirmed); err != nil {
			return err
		}
	case existing == nil:
		if err := w.verifyDerivedCoinID(childCoinID, types.Hash(launcherID), sol.InnerPuzzleHash, sol.Root, launcherID, sol.Amount); err != nil {
			return err
		}
		record, err := NewSingletonRecord(
			childCoinID,
			launcherID,
			sol.Root,
			sol.InnerPuzzleHash,
			sol.Amount,
			true,
			derefHeight(height),
			types.LineageProof{ParentName: types.Hash(launcherID)},
			0,
			ts,
		)
		if err != nil {
			return err
		}
		if err := w.store.PutRecord(record); err != nil {
			return err
		}
	default:
		log.Launcher.Debug().Str("launcher_id", launcherID.String()).Msg("launcher spend already processed")
		return nil
	}

	if err := w.store.PutLauncherInfo(LauncherInfo{
		LauncherID:     launcherID,
		ParentCoinInfo: spend.Coin.ParentCoinInfo,
		Amount:         spend.Coin.Amount,
	}); err != nil {
		return err
	}
	if err := w.interests.AddInterestedPuzzleHashes(ctx, []types.Hash{sol.FullPuzzleHash}, 0); err != nil {
		return err
	}
	if err := w.interests.AddInterestedCoinIDs(ctx, []types.Hash{types.Hash(childCoinID)}); err != nil {
		return err
	}
	return w.txStore.AddPendingTransaction(ctx, TransactionRecord{
		Name:      types.Hash(childCoinID),
		Additions: []Coin{{ParentCoinInfo: types.Hash(launcherID), PuzzleHash: sol.FullPuzzleHash, Amount: sol.Amount}},
		Confirmed: true,
	})
}

func derefHeight(h *uint32) uint32 {
	if h == nil {
		return 0
	}
	return *h
}
