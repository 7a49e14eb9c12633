package singleton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dlsingleton/wallet/pkg/crypto"
	"github.com/dlsingleton/wallet/pkg/types"
)

// OfferDependency describes, for one offered launcher, the new root it is
// being updated to and the set of peer launchers whose current roots must
// be proven to include specific 32-byte values before the offer's graftroot
// branch will release its update.
type OfferDependency struct {
	NewRoot types.Root
	Proofs  map[types.LauncherID][][]byte // peer launcher ID -> values to prove included in that peer's root
}

// MerkleProof is a simplified inclusion proof: the sibling hashes from leaf
// to root, paired with which side each sibling sits on.
type MerkleProof struct {
	Siblings []types.Hash
	IsRight  []bool
}

// simplifyMerkleProof recomputes the root a leaf value reduces to under a
// proof, the Go equivalent of the original's simplify_merkle_proof.
func simplifyMerkleProof(value []byte, proof MerkleProof) types.Root {
	acc := crypto.Hash(value)
	for i, sib := range proof.Siblings {
		if i < len(proof.IsRight) && proof.IsRight[i] {
			acc = crypto.HashConcat(acc, sib)
		} else {
			acc = crypto.HashConcat(sib, acc)
		}
	}
	return types.Root(acc)
}

// Offer bundles the spend(s) that carry one or more singleton updates whose
// release is gated on cross-singleton merkle proofs, plus the dummy
// requested-payment placeholders for any positive amounts in the original
// offer dict.
type Offer struct {
	RequestedPayments map[types.LauncherID]uint64
	Bundle            SpendBundle
}

// graftrootBranch is the simplified wire shape spliced into a singleton
// spend's solution by MakeUpdateOffer and later resolved in place by
// FinishGraftrootSolutions. A real driver curries this information into the
// CLVM graftroot-offer puzzle instead of appending it to the solution
// bytes; this placeholder keeps the same information, just not curried.
type graftrootBranch struct {
	LauncherID   types.LauncherID
	NewRoot      types.Root
	Dependencies []graftrootDependencyBranch
}

type graftrootDependencyBranch struct {
	PeerLauncherID          types.LauncherID
	ValuesToProve           [][]byte
	ResolvedInnerPuzzleHash *types.Hash
	ResolvedRoot            *types.Root
}

const graftrootMagic = "DLGRAFT1"

func spliceGraftrootBranch(base Program, branch graftrootBranch) Program {
	data, err := json.Marshal(branch)
	if err != nil {
		// branch is always built from in-memory values the caller
		// controls; a marshal failure here means a programming error.
		panic(fmt.Sprintf("marshal graftroot branch: %v", err))
	}
	out := append([]byte(nil), base...)
	out = append(out, []byte(graftrootMagic)...)
	out = append(out, data...)
	return out
}

func extractGraftrootBranch(solution Program) (graftrootBranch, bool) {
	idx := bytes.Index(solution, []byte(graftrootMagic))
	if idx < 0 {
		return graftrootBranch{}, false
	}
	var branch graftrootBranch
	if err := json.Unmarshal(solution[idx+len(graftrootMagic):], &branch); err != nil {
		return graftrootBranch{}, false
	}
	return branch, true
}

// MakeUpdateOffer builds an Offer covering every launcher offered a
// negative amount in offerDict: an announceNewState update spend per
// launcher with signing and pending-record-insertion suppressed, its
// graftroot branch rewritten to require the given dependency set, signed in
// isolation and re-aggregated with the rest of its original bundle.
// Positive amounts in offerDict become dummy requested-payment
// placeholders. See SPEC_FULL.md §4.F.
func (w *Wallet) MakeUpdateOffer(ctx context.Context, offerDict map[types.LauncherID]int64, dependencies map[types.LauncherID]OfferDependency, fee uint64) (*Offer, error) {
	var offeredLaunchers []types.LauncherID
	for id, amt := range offerDict {
		if amt < 0 {
			offeredLaunchers = append(offeredLaunchers, id)
		}
	}

	feeLeft := fee
	var bundles []SpendBundle
	for _, launcherID := range offeredLaunchers {
		dep, ok := dependencies[launcherID]
		if !ok {
			return nil, fmt.Errorf("make update offer for %s: %w", launcherID, ErrMissingProof)
		}

		newPuzzleHash, err := w.standard.GetNewPuzzleHash(ctx)
		if err != nil {
			return nil, err
		}
		root := dep.NewRoot
		singletonAmount := uint64(1)

		result, err := w.CreateUpdateStateSpend(ctx, UpdateStateRequest{
			LauncherID:          launcherID,
			RootHash:            &root,
			NewPuzzleHash:       &newPuzzleHash,
			NewAmount:           &singletonAmount,
			Fee:                 feeLeft,
			Sign:                false,
			AddPendingSingleton: false,
			AnnounceNewState:    true,
		})
		if err != nil {
			return nil, err
		}
		feeLeft = 0

		if result.PrimaryTx.SpendBundle == nil {
			return nil, fmt.Errorf("make update offer for %s: update spend carries no bundle", launcherID)
		}

		dlSpendIdx := -1
		for i, cs := range result.PrimaryTx.SpendBundle.CoinSpends {
			if MatchSingleton(cs.Puzzle) {
				dlSpendIdx = i
				break
			}
		}
		if dlSpendIdx < 0 {
			return nil, fmt.Errorf("make update offer for %s: no singleton spend in update bundle", launcherID)
		}
		dlSpend := result.PrimaryTx.SpendBundle.CoinSpends[dlSpendIdx]
		var otherSpends []CoinSpend
		for i, cs := range result.PrimaryTx.SpendBundle.CoinSpends {
			if i != dlSpendIdx {
				otherSpends = append(otherSpends, cs)
			}
		}

		branch := graftrootBranch{LauncherID: launcherID, NewRoot: dep.NewRoot}
		for peer, values := range dep.Proofs {
			branch.Dependencies = append(branch.Dependencies, graftrootDependencyBranch{
				PeerLauncherID: peer,
				ValuesToProve:  values,
			})
		}

		rewrittenSpend := CoinSpend{
			Coin:     dlSpend.Coin,
			Puzzle:   dlSpend.Puzzle,
			Solution: spliceGraftrootBranch(dlSpend.Solution, branch),
		}
		signedBundle, err := w.signer.Sign(ctx, rewrittenSpend)
		if err != nil {
			return nil, err
		}

		aggregated := SpendBundle{
			CoinSpends:    append(append([]CoinSpend(nil), signedBundle.CoinSpends...), otherSpends...),
			AggregatedSig: append([]byte(nil), signedBundle.AggregatedSig...),
		}
		if result.FeeTx != nil && result.FeeTx.SpendBundle != nil {
			aggregated.CoinSpends = append(aggregated.CoinSpends, result.FeeTx.SpendBundle.CoinSpends...)
			aggregated.AggregatedSig = append(aggregated.AggregatedSig, result.FeeTx.SpendBundle.AggregatedSig...)
		}
		bundles = append(bundles, aggregated)
	}

	requested := make(map[types.LauncherID]uint64)
	for id, amt := range offerDict {
		if amt > 0 {
			requested[id] = uint64(amt)
		}
	}

	return &Offer{RequestedPayments: requested, Bundle: aggregateBundles(bundles)}, nil
}

func aggregateBundles(bundles []SpendBundle) SpendBundle {
	var out SpendBundle
	for _, b := range bundles {
		out.CoinSpends = append(out.CoinSpends, b.CoinSpends...)
		out.AggregatedSig = append(out.AggregatedSig, b.AggregatedSig...)
	}
	return out
}

// FinishGraftrootSolutions walks every coin spend in offer's bundle, finds
// the DataLayer singletons that are the tip of their local chain within the
// offer (not themselves a parent of another spend in the bundle), and uses
// them to build a launcherID -> current inner puzzle hash map. It then
// resolves each spend's graftroot branch against the caller-supplied merkle
// proofs and splices the resolved proofs and inner puzzle hashes back into
// that spend's solution.
func (w *Wallet) FinishGraftrootSolutions(ctx context.Context, offer Offer, proofs map[types.Root]MerkleProof) (*Offer, error) {
	parentNames := make(map[types.Hash]bool, len(offer.Bundle.CoinSpends))
	for _, cs := range offer.Bundle.CoinSpends {
		parentNames[cs.Coin.ParentCoinInfo] = true
	}

	tipInnerPuzzleHash := make(map[types.LauncherID]types.Hash)
	for _, cs := range offer.Bundle.CoinSpends {
		if !MatchSingleton(cs.Puzzle) {
			continue
		}
		coinID := cs.Coin.Name(w.coinName)
		if parentNames[types.Hash(coinID)] {
			continue // this spend's coin is itself spent again within the bundle
		}
		rec, err := w.store.GetRecord(coinID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		tipInnerPuzzleHash[rec.LauncherID] = rec.InnerPuzzleHash
	}

	newSpends := make([]CoinSpend, 0, len(offer.Bundle.CoinSpends))
	for _, cs := range offer.Bundle.CoinSpends {
		if !MatchSingleton(cs.Puzzle) {
			newSpends = append(newSpends, cs)
			continue
		}
		branch, ok := extractGraftrootBranch(cs.Solution)
		if !ok {
			newSpends = append(newSpends, cs)
			continue
		}

		for i, dep := range branch.Dependencies {
			var assertedRoot *types.Root
			var matched bool
			for _, value := range dep.ValuesToProve {
				matched = false
				for candidateRoot, proof := range proofs {
					if simplifyMerkleProof(value, proof) == candidateRoot {
						if assertedRoot == nil {
							r := candidateRoot
							assertedRoot = &r
						} else if *assertedRoot != candidateRoot {
							return nil, fmt.Errorf("dependency %s: %w", dep.PeerLauncherID, ErrInconsistentRoots)
						}
						matched = true
						break
					}
				}
				if !matched {
					return nil, fmt.Errorf("dependency %s: %w", dep.PeerLauncherID, ErrMissingProof)
				}
			}
			innerPuzzleHash, ok := tipInnerPuzzleHash[dep.PeerLauncherID]
			if !ok {
				return nil, fmt.Errorf("dependency %s: %w: peer singleton not present in offer bundle", dep.PeerLauncherID, ErrMissingProof)
			}
			branch.Dependencies[i].ResolvedInnerPuzzleHash = &innerPuzzleHash
			branch.Dependencies[i].ResolvedRoot = assertedRoot
		}

		resolvedSolution := spliceGraftrootBranch(stripGraftrootBranch(cs.Solution), branch)
		newSpends = append(newSpends, CoinSpend{Coin: cs.Coin, Puzzle: cs.Puzzle, Solution: resolvedSolution})
	}

	return &Offer{RequestedPayments: nil, Bundle: SpendBundle{CoinSpends: newSpends, AggregatedSig: offer.Bundle.AggregatedSig}}, nil
}

func stripGraftrootBranch(solution Program) Program {
	idx := bytes.Index(solution, []byte(graftrootMagic))
	if idx < 0 {
		return solution
	}
	return append([]byte(nil), solution[:idx]...)
}

// OfferSummary is a pure, read-only view of which launchers an Offer
// updates, their new root, and their proof dependencies.
type OfferSummary struct {
	Offered []SingletonOfferSummary
}

// SingletonOfferSummary summarizes one offered launcher's update within an
// Offer.
type SingletonOfferSummary struct {
	LauncherID   types.LauncherID
	NewRoot      types.Root
	Dependencies []OfferDependencySummary
}

// OfferDependencySummary summarizes one cross-singleton proof dependency.
type OfferDependencySummary struct {
	LauncherID    types.LauncherID
	ValuesToProve [][]byte
}

// GetOfferSummary never mutates offer; used by RPC/CLI display layers.
func (w *Wallet) GetOfferSummary(ctx context.Context, offer Offer) (*OfferSummary, error) {
	summary := &OfferSummary{}
	for _, cs := range offer.Bundle.CoinSpends {
		if !MatchSingleton(cs.Puzzle) {
			continue
		}
		branch, ok := extractGraftrootBranch(cs.Solution)
		if !ok {
			continue
		}
		entry := SingletonOfferSummary{LauncherID: branch.LauncherID, NewRoot: branch.NewRoot}
		for _, dep := range branch.Dependencies {
			entry.Dependencies = append(entry.Dependencies, OfferDependencySummary{
				LauncherID:    dep.PeerLauncherID,
				ValuesToProve: dep.ValuesToProve,
			})
		}
		summary.Offered = append(summary.Offered, entry)
	}
	return summary, nil
}
