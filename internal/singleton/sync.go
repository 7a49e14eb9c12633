package singleton

import (
	"bytes"
	"context"

	"github.com/dlsingleton/wallet/internal/log"
	"github.com/dlsingleton/wallet/pkg/types"
)

// SingletonPuzzlePrefix marks a puzzle reveal as an instance of the
// DataLayer singleton outer puzzle layer, standing in for the mod-hash
// curry recognition a real CLVM driver performs.
var SingletonPuzzlePrefix = []byte{0x6d, 0x07, 0x9d, 0x53}

// MatchSingleton reports whether puzzle is shaped like a DataLayer
// singleton spend. Installed as a generic hook across every coin type, so a
// non-match is an ordinary, silent case rather than an error.
func MatchSingleton(puzzle Program) bool {
	return bytes.HasPrefix(puzzle, SingletonPuzzlePrefix)
}

// SingletonRemoved is invoked by the wallet's coin-removal sync path
// whenever a coin the wallet is watching gets spent. See SPEC_FULL.md §4.D
// for the full algorithm.
func (w *Wallet) SingletonRemoved(ctx context.Context, parentSpend CoinSpend, height uint32) error {
	if !MatchSingleton(parentSpend.Puzzle) {
		return nil
	}

	parentCoinID := types.CoinID(parentSpend.Coin.Name(w.coinName))
	rec, err := w.store.GetRecord(parentCoinID)
	if err != nil {
		return err
	}
	if rec == nil {
		log.Sync.Warn().Str("coin_id", types.Hash(parentCoinID).String()).Err(ErrNotTracked).Msg("singleton removed for untracked lineage")
		return nil
	}

	conditions, err := w.eval.RunPuzzle(ctx, parentSpend.Puzzle, parentSpend.Solution)
	if err != nil {
		return err
	}

	var (
		foundOdd bool
		amount   uint64
		memo     types.SuccessorMemo
	)
	for _, c := range conditions {
		if c.Opcode != types.OpCreateCoin || len(c.Args) < 2 {
			continue
		}
		a := decodeUint64BE(c.Args[1])
		if a == 0 || a%2 == 0 {
			continue
		}
		foundOdd = true
		amount = a
		if len(c.Args) < 3 {
			log.Sync.Warn().Str("launcher_id", rec.LauncherID.String()).Err(ErrMissingHint).Msg("successor coin missing hint tuple")
			return nil
		}
		memo, err = types.DecodeSuccessorMemo(c.Args[2])
		if err != nil {
			log.Sync.Warn().Str("launcher_id", rec.LauncherID.String()).Err(err).Msg("malformed successor hint tuple")
			return nil
		}
		break
	}
	if !foundOdd {
		log.Sync.Info().Str("launcher_id", rec.LauncherID.String()).Err(ErrMelted).Msg("singleton melted, no successor")
		return nil
	}

	fullPuzzleHash := w.eval.FullPuzzleHash(memo.InnerPuzzleHash, types.Hash(memo.Root), types.Hash(memo.LauncherID))
	childCoinID := w.coinName(types.Hash(parentCoinID), fullPuzzleHash, amount)

	ts, err := w.chain.GetTimestampForHeight(ctx, height)
	if err != nil {
		return err
	}

	if err := w.verifyDerivedCoinID(childCoinID, types.Hash(parentCoinID), memo.InnerPuzzleHash, memo.Root, memo.LauncherID, amount); err != nil {
		return err
	}
	parentAmount := currentAmount(rec.LineageProof)
	newRecord, err := NewSingletonRecord(
		childCoinID,
		memo.LauncherID,
		memo.Root,
		memo.InnerPuzzleHash,
		amount,
		true,
		height,
		types.LineageProof{
			ParentName:            types.Hash(parentCoinID),
			ParentInnerPuzzleHash: &rec.InnerPuzzleHash,
			Amount:                &parentAmount,
		},
		rec.Generation+1,
		ts,
	)
	if err != nil {
		return err
	}

	if err := w.store.PutRecord(newRecord); err != nil {
		return err
	}
	if err := w.interests.AddInterestedCoinIDs(ctx, []types.Hash{types.Hash(childCoinID)}); err != nil {
		return err
	}

	if err := w.PotentiallyHandleResubmit(ctx, memo.LauncherID); err != nil {
		log.Fork.Warn().Str("launcher_id", memo.LauncherID.String()).Err(err).Msg("automatic rebase failed, leaving pending state as-is")
	}
	return nil
}
