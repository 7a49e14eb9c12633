package singleton

import (
	"context"
	"fmt"

	"github.com/dlsingleton/wallet/pkg/types"
)

// spendableInfo is the resolved state CreateUpdateStateSpend needs before
// it can build a successor spend: the latest confirmed record and the
// lineage proof of its own parent.
type spendableInfo struct {
	Record       SingletonRecord
	ParentProof  types.LineageProof
}

// GetSpendableSingletonInfo fetches the latest record for a launcher,
// requires it be confirmed, requires its own lineage proof be complete,
// and resolves the *parent's* lineage proof (see resolveParentLineage).
func (w *Wallet) GetSpendableSingletonInfo(launcherID types.LauncherID) (*spendableInfo, error) {
	latest, err := w.store.GetLatest(launcherID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNotTracked
	}
	if !latest.Confirmed {
		return nil, ErrPending
	}
	// Generation 0's own lineage proof is rooted at the launcher coin and is
	// never "complete" by definition (no inner puzzle hash/amount exists for
	// a plain launcher coin); resolveParentLineage already special-cases it.
	if latest.Generation > 0 && !latest.LineageComplete() {
		return nil, ErrInsufficientLineage
	}

	parentProof, err := w.resolveParentLineage(launcherID, *latest)
	if err != nil {
		return nil, err
	}
	return &spendableInfo{Record: *latest, ParentProof: parentProof}, nil
}

// resolveParentLineage resolves the lineage proof of rec's own parent
// generation. When the parent isn't tracked as a separate record, rec's own
// lineage proof is returned unchanged; the launcher coin's LauncherInfo is
// not consulted.
func (w *Wallet) resolveParentLineage(launcherID types.LauncherID, rec SingletonRecord) (types.LineageProof, error) {
	if rec.Generation == 0 {
		// Genesis's parent is the launcher coin itself: no inner puzzle
		// hash or amount, per the LineageProof doc comment.
		return types.LineageProof{ParentName: types.Hash(launcherID)}, nil
	}
	parentCoinID := types.CoinID(rec.LineageProof.ParentName)
	parent, err := w.store.GetRecord(parentCoinID)
	if err != nil {
		return types.LineageProof{}, err
	}
	if parent == nil {
		// Parent isn't separately tracked; fall back to rec's own
		// lineage proof.
		return rec.LineageProof, nil
	}
	amount := currentAmount(parent.LineageProof)
	return types.LineageProof{
		ParentName:            parent.LineageProof.ParentName,
		ParentInnerPuzzleHash: &parent.InnerPuzzleHash,
		Amount:                &amount,
	}, nil
}

// UpdateStateRequest parameterizes CreateUpdateStateSpend.
type UpdateStateRequest struct {
	LauncherID       types.LauncherID
	RootHash         *types.Root // nil = keep current root
	NewPuzzleHash    *types.Hash // nil = wallet-chosen
	NewAmount        *uint64     // nil = unchanged
	Fee              uint64
	CoinAnnouncements   []types.Announcement
	PuzzleAnnouncements []types.Announcement
	Sign                bool
	AddPendingSingleton bool
	AnnounceNewState    bool
}

// UpdateStateResult is what CreateUpdateStateSpend produces.
type UpdateStateResult struct {
	PrimaryTx    TransactionRecord
	FeeTx        *TransactionRecord
	NewRecord    SingletonRecord
	AnnounceRecord *SingletonRecord
}

// CreateUpdateStateSpend builds a spend advancing a singleton to a new
// root/inner-puzzle-hash/amount. See SPEC_FULL.md §4.C for the full
// numbered algorithm this implements.
func (w *Wallet) CreateUpdateStateSpend(ctx context.Context, req UpdateStateRequest) (*UpdateStateResult, error) {
	info, err := w.GetSpendableSingletonInfo(req.LauncherID)
	if err != nil {
		return nil, err
	}
	rec := info.Record

	rootHash := rec.Root
	if req.RootHash != nil {
		rootHash = *req.RootHash
	}

	derivation, err := w.derive.GetDerivationRecordForPuzzleHash(ctx, rec.InnerPuzzleHash)
	if err != nil {
		return nil, err
	}
	if derivation == nil {
		return nil, ErrNotOwned
	}

	newPuzzleHash := req.NewPuzzleHash
	if newPuzzleHash == nil {
		ph, err := w.standard.GetNewPuzzleHash(ctx)
		if err != nil {
			return nil, err
		}
		newPuzzleHash = &ph
	}

	amount := currentAmount(rec.LineageProof)
	if req.NewAmount != nil {
		amount = *req.NewAmount
	}
	if amount == 0 || amount%2 == 0 {
		return nil, ErrInvalidAmount
	}

	nextFullPuzzleHash := w.eval.FullPuzzleHash(*newPuzzleHash, types.Hash(rootHash), types.Hash(req.LauncherID))

	currentFullPuzzleHash := w.eval.FullPuzzleHash(rec.InnerPuzzleHash, types.Hash(rec.Root), types.Hash(req.LauncherID))
	currentCoin := Coin{
		ParentCoinInfo: rec.LineageProof.ParentName,
		PuzzleHash:     currentFullPuzzleHash,
		Amount:         currentAmount(rec.LineageProof),
	}

	childCoinID := w.coinName(types.Hash(currentCoin.Name(w.coinName)), nextFullPuzzleHash, amount)

	if err := w.verifyDerivedCoinID(childCoinID, types.Hash(rec.CoinID), *newPuzzleHash, rootHash, req.LauncherID, amount); err != nil {
		return nil, err
	}
	parentAmount := currentAmount(rec.LineageProof)
	newRecord, err := NewSingletonRecord(
		childCoinID,
		req.LauncherID,
		rootHash,
		*newPuzzleHash,
		amount,
		false,
		0,
		types.LineageProof{
			ParentName:            types.Hash(rec.CoinID),
			ParentInnerPuzzleHash: &rec.InnerPuzzleHash,
			Amount:                &parentAmount,
		},
		rec.Generation+1,
		0,
	)
	if err != nil {
		return nil, err
	}

	puzzleAnnouncements := append([]types.Announcement(nil), req.PuzzleAnnouncements...)

	var announceRecord *SingletonRecord
	targetPuzzleHash := *newPuzzleHash
	targetAmount := amount
	if req.AnnounceNewState {
		announcePuzzleHash := w.eval.FullPuzzleHash(*newPuzzleHash, types.Hash(rootHash), types.Hash(req.LauncherID))
		announceCoinID := w.coinName(types.Hash(childCoinID), announcePuzzleHash, amount)
		ann := types.Announcement{OriginInfo: types.Hash(announceCoinID), Message: []byte("new-state")}
		puzzleAnnouncements = append(puzzleAnnouncements, ann)

		if err := w.verifyDerivedCoinID(announceCoinID, types.Hash(childCoinID), *newPuzzleHash, rootHash, req.LauncherID, amount); err != nil {
			return nil, err
		}
		rec2, err := NewSingletonRecord(
			announceCoinID,
			req.LauncherID,
			rootHash,
			*newPuzzleHash,
			amount,
			false,
			0,
			types.LineageProof{
				ParentName:            types.Hash(childCoinID),
				ParentInnerPuzzleHash: newPuzzleHash,
				Amount:                &amount,
			},
			rec.Generation+2,
			0,
		)
		if err != nil {
			return nil, err
		}
		announceRecord = &rec2
	}

	memo := types.EncodeSuccessorMemo(types.SuccessorMemo{
		LauncherID:      req.LauncherID,
		Root:            rootHash,
		InnerPuzzleHash: targetPuzzleHash,
	})

	innerSolution := buildUpdateSolution(targetPuzzleHash, targetAmount, memo, rootHash != rec.Root, req.CoinAnnouncements, puzzleAnnouncements)
	fullSolution := buildFullSolution(info.ParentProof, currentAmount(rec.LineageProof), innerSolution)

	spend := CoinSpend{
		Coin: currentCoin,
		// A real driver curries the full CLVM reveal from
		// (innerPuzzleHash, root, launcherID) via the ScriptEvaluator;
		// MatchSingleton only needs to recognize the puzzle's shape.
		Puzzle:   Program(SingletonPuzzlePrefix),
		Solution: fullSolution,
	}

	var bundle SpendBundle
	if req.Sign {
		var err error
		bundle, err = w.signer.Sign(ctx, spend)
		if err != nil {
			return nil, err
		}
	} else {
		bundle = SpendBundle{CoinSpends: []CoinSpend{spend}}
	}

	if announceRecord != nil {
		bundle.CoinSpends = append(bundle.CoinSpends, CoinSpend{
			Coin: Coin{
				ParentCoinInfo: types.Hash(childCoinID),
				PuzzleHash:     nextFullPuzzleHash,
				Amount:         amount,
			},
			Puzzle: Program(SingletonPuzzlePrefix),
		})
	}

	primaryTx := TransactionRecord{
		Name:        types.Hash(childCoinID),
		SpendBundle: &bundle,
		FeeAmount:   req.Fee,
		WalletID:    w.walletID,
	}

	result := &UpdateStateResult{PrimaryTx: primaryTx, NewRecord: newRecord, AnnounceRecord: announceRecord}

	if req.Fee > 0 {
		feeTx, err := w.CreateTandemXCHTx(ctx, req.Fee, childCoinID)
		if err != nil {
			return nil, err
		}
		result.FeeTx = feeTx
	}

	if req.AddPendingSingleton {
		if err := w.store.PutRecord(newRecord); err != nil {
			return nil, err
		}
		if announceRecord != nil {
			if err := w.store.PutRecord(*announceRecord); err != nil {
				return nil, err
			}
		}
		if err := w.txStore.AddPendingTransaction(ctx, primaryTx); err != nil {
			return nil, err
		}
		if result.FeeTx != nil {
			if err := w.txStore.AddPendingTransaction(ctx, *result.FeeTx); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// buildUpdateSolution assembles the inner solution driving a successor
// spend: a CREATE_COIN primary carrying the successor memo tuple, the
// asserted announcements, and — when the root is changing — the magic
// -24 "new metadata condition" spliced ahead of the ordinary solution, the
// mechanism the DataLayer inner puzzle uses to actually change root rather
// than just move amount/ownership.
func buildUpdateSolution(newPuzzleHash types.Hash, amount uint64, memo []byte, rootChanged bool, coinAnnouncements, puzzleAnnouncements []types.Announcement) Program {
	var conditions []types.Condition
	if rootChanged {
		conditions = append(conditions, types.Condition{Opcode: types.OpNewMetadataCondition})
	}
	conditions = append(conditions, types.Condition{
		Opcode: types.OpCreateCoin,
		Args:   [][]byte{newPuzzleHash[:], types.EncodeUint64BE(amount), memo},
	})
	for _, a := range coinAnnouncements {
		conditions = append(conditions, types.Condition{Opcode: types.OpAssertCoinAnnouncement, Args: [][]byte{a.OriginInfo[:], a.Message}})
	}
	for _, a := range puzzleAnnouncements {
		conditions = append(conditions, types.Condition{Opcode: types.OpAssertPuzzleAnnouncement, Args: [][]byte{a.OriginInfo[:], a.Message}})
	}
	return encodeConditions(conditions)
}

// buildFullSolution wraps an inner solution with the singleton outer
// puzzle's own two leading solution arguments: the parent's lineage proof
// and the current coin's amount. A real driver threads these into the
// standard "singleton_top_layer" outer puzzle solution ahead of the inner
// puzzle's own solution.
func buildFullSolution(parentProof types.LineageProof, amount uint64, innerSolution Program) Program {
	out := append([]byte(nil), parentProof.ParentName[:]...)
	if parentProof.ParentInnerPuzzleHash != nil {
		out = append(out, parentProof.ParentInnerPuzzleHash[:]...)
	}
	if parentProof.Amount != nil {
		out = append(out, types.EncodeUint64BE(*parentProof.Amount)...)
	}
	out = append(out, types.EncodeUint64BE(amount)...)
	out = append(out, 0xfe)
	out = append(out, innerSolution...)
	return out
}

// encodeConditions is a placeholder wire encoding; a real driver would hand
// this to the ScriptEvaluator's CLVM assembler. Kept deterministic and
// round-trippable for tests.
func encodeConditions(conditions []types.Condition) Program {
	var out []byte
	for _, c := range conditions {
		out = append(out, byte(c.Opcode))
		for _, a := range c.Args {
			out = append(out, byte(len(a)))
			out = append(out, a...)
		}
		out = append(out, 0xff)
	}
	return out
}

// CreateTandemXCHTx builds the paired zero-amount fee-only standard-wallet
// transaction covering fee > 0. The two bundles are linked by the caller
// aggregating them into one spend bundle before broadcast; primaryCoinID
// identifies which singleton spend this fee transaction is paired with, for
// logging.
func (w *Wallet) CreateTandemXCHTx(ctx context.Context, fee uint64, primaryCoinID types.CoinID) (*TransactionRecord, error) {
	tx, err := w.standard.GenerateSignedTransaction(ctx, StandardSendRequest{
		Amount: 0,
		Fee:    fee,
	})
	if err != nil {
		return nil, fmt.Errorf("create tandem fee transaction for %s: %w", primaryCoinID, err)
	}
	return tx, nil
}

// GenerateNewReporter builds the very first generation of a new singleton.
func (w *Wallet) GenerateNewReporter(ctx context.Context, initialRoot types.Root, fee uint64) (*UpdateStateResult, error) {
	origin, err := w.standard.SelectCoins(ctx, 1+fee)
	if err != nil {
		return nil, fmt.Errorf("select origin coin: %w", err)
	}
	if len(origin) == 0 {
		return nil, fmt.Errorf("select origin coin: no coins returned")
	}
	originCoin := origin[0]

	innerPuzzleHash, err := w.standard.GetNewPuzzleHash(ctx)
	if err != nil {
		return nil, err
	}

	launcherCoin := Coin{ParentCoinInfo: types.Hash(originCoin.Name(w.coinName)), PuzzleHash: LauncherPuzzleHash, Amount: 1}
	launcherID := types.LauncherID(launcherCoin.Name(w.coinName))

	fullPuzzleHash := w.eval.FullPuzzleHash(innerPuzzleHash, types.Hash(initialRoot), types.Hash(launcherID))
	childCoinID := w.coinName(types.Hash(launcherID), fullPuzzleHash, 1)

	if err := w.verifyDerivedCoinID(childCoinID, types.Hash(launcherID), innerPuzzleHash, initialRoot, launcherID, 1); err != nil {
		return nil, err
	}
	record, err := NewSingletonRecord(
		childCoinID,
		launcherID,
		initialRoot,
		innerPuzzleHash,
		1,
		false,
		0,
		types.LineageProof{ParentName: types.Hash(launcherID)},
		0,
		0,
	)
	if err != nil {
		return nil, err
	}

	if err := w.store.PutRecord(record); err != nil {
		return nil, err
	}
	if err := w.interests.AddInterestedPuzzleHashes(ctx, []types.Hash{fullPuzzleHash}, w.walletID); err != nil {
		return nil, err
	}

	launchSpend := CoinSpend{Coin: launcherCoin}
	bundle := SpendBundle{CoinSpends: []CoinSpend{launchSpend}}
	tx := TransactionRecord{
		Name:        types.Hash(childCoinID),
		SpendBundle: &bundle,
		FeeAmount:   fee,
		WalletID:    w.walletID,
	}
	if err := w.txStore.AddPendingTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return &UpdateStateResult{PrimaryTx: tx, NewRecord: record}, nil
}

// GenerateSignedTransaction is the constrained single-destination entry
// point used by generic wallet-send flows.
func (w *Wallet) GenerateSignedTransaction(ctx context.Context, req StandardSendRequest) (*TransactionRecord, error) {
	var launcherID types.LauncherID
	switch {
	case req.LauncherID != nil:
		launcherID = *req.LauncherID
	case req.Coin != nil:
		rec, err := w.store.GetRecord(types.CoinID(req.Coin.Name(w.coinName)))
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, ErrNotTracked
		}
		launcherID = rec.LauncherID
	default:
		return nil, fmt.Errorf("generate signed transaction: no launcher ID or coin supplied")
	}

	result, err := w.CreateUpdateStateSpend(ctx, UpdateStateRequest{
		LauncherID:          launcherID,
		NewPuzzleHash:       &req.PuzzleHash,
		NewAmount:           &req.Amount,
		Fee:                 req.Fee,
		Sign:                true,
		AddPendingSingleton: true,
	})
	if err != nil {
		return nil, err
	}
	return &result.PrimaryTx, nil
}
