package rpc

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/pkg/types"
)

func hashToHex(h types.Hash) string { return h.String() }

func parseHash(s string) (types.Hash, *Error) {
	h, err := types.HexToHash(s)
	if err != nil {
		return types.Hash{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid hash: %v", err)}
	}
	return h, nil
}

func parseLauncherID(s string) (types.LauncherID, *Error) {
	h, err := parseHash(s)
	if err != nil {
		return types.LauncherID{}, err
	}
	return types.LauncherID(h), nil
}

func parseRoot(s string) (types.Root, *Error) {
	h, err := parseHash(s)
	if err != nil {
		return types.Root{}, err
	}
	return types.Root(h), nil
}

func coinToWire(c singleton.Coin) CoinWire {
	return CoinWire{
		ParentCoinInfo: hashToHex(c.ParentCoinInfo),
		PuzzleHash:     hashToHex(c.PuzzleHash),
		Amount:         c.Amount,
	}
}

func coinSpendToWire(cs singleton.CoinSpend) CoinSpendWire {
	return CoinSpendWire{
		Coin:     coinToWire(cs.Coin),
		Puzzle:   hex.EncodeToString(cs.Puzzle),
		Solution: hex.EncodeToString(cs.Solution),
	}
}

func bundleToWire(b singleton.SpendBundle) SpendBundleWire {
	out := SpendBundleWire{AggregatedSig: hex.EncodeToString(b.AggregatedSig)}
	for _, cs := range b.CoinSpends {
		out.CoinSpends = append(out.CoinSpends, coinSpendToWire(cs))
	}
	return out
}

func wireToCoin(w CoinWire) (singleton.Coin, *Error) {
	parent, err := parseHash(w.ParentCoinInfo)
	if err != nil {
		return singleton.Coin{}, err
	}
	puzzleHash, err := parseHash(w.PuzzleHash)
	if err != nil {
		return singleton.Coin{}, err
	}
	return singleton.Coin{ParentCoinInfo: parent, PuzzleHash: puzzleHash, Amount: w.Amount}, nil
}

func wireToCoinSpend(w CoinSpendWire) (singleton.CoinSpend, *Error) {
	coin, err := wireToCoin(w.Coin)
	if err != nil {
		return singleton.CoinSpend{}, err
	}
	puzzle, decErr := hex.DecodeString(w.Puzzle)
	if decErr != nil {
		return singleton.CoinSpend{}, &Error{Code: CodeInvalidParams, Message: "invalid puzzle hex"}
	}
	solution, decErr := hex.DecodeString(w.Solution)
	if decErr != nil {
		return singleton.CoinSpend{}, &Error{Code: CodeInvalidParams, Message: "invalid solution hex"}
	}
	return singleton.CoinSpend{Coin: coin, Puzzle: singleton.Program(puzzle), Solution: singleton.Program(solution)}, nil
}

func wireToBundle(w SpendBundleWire) (singleton.SpendBundle, *Error) {
	sig, err := hex.DecodeString(w.AggregatedSig)
	if err != nil {
		return singleton.SpendBundle{}, &Error{Code: CodeInvalidParams, Message: "invalid aggregated signature hex"}
	}
	bundle := singleton.SpendBundle{AggregatedSig: sig}
	for _, csw := range w.CoinSpends {
		cs, cerr := wireToCoinSpend(csw)
		if cerr != nil {
			return singleton.SpendBundle{}, cerr
		}
		bundle.CoinSpends = append(bundle.CoinSpends, cs)
	}
	return bundle, nil
}

func wireToOffer(w OfferWire) (singleton.Offer, *Error) {
	bundle, err := wireToBundle(w.Bundle)
	if err != nil {
		return singleton.Offer{}, err
	}
	requested := make(map[types.LauncherID]uint64, len(w.RequestedPayments))
	for idHex, amt := range w.RequestedPayments {
		id, perr := parseLauncherID(idHex)
		if perr != nil {
			return singleton.Offer{}, perr
		}
		requested[id] = amt
	}
	return singleton.Offer{RequestedPayments: requested, Bundle: bundle}, nil
}

func offerToWire(o singleton.Offer) OfferWire {
	w := OfferWire{Bundle: bundleToWire(o.Bundle)}
	if len(o.RequestedPayments) > 0 {
		w.RequestedPayments = make(map[string]uint64, len(o.RequestedPayments))
		for id, amt := range o.RequestedPayments {
			w.RequestedPayments[hashToHex(types.Hash(id))] = amt
		}
	}
	return w
}

// currentRecordAmount recovers the amount this generation's lineage proof
// carries for its own child, falling back to the singleton convention of 1
// when a generation's proof doesn't (yet) carry one.
func currentRecordAmount(r singleton.SingletonRecord) uint64 {
	if r.LineageProof.Amount != nil {
		return *r.LineageProof.Amount
	}
	return 1
}

func recordToResult(r singleton.SingletonRecord) SingletonRecordResult {
	return SingletonRecordResult{
		CoinID:          hashToHex(types.Hash(r.CoinID)),
		LauncherID:      hashToHex(types.Hash(r.LauncherID)),
		Root:            hashToHex(types.Hash(r.Root)),
		InnerPuzzleHash: hashToHex(r.InnerPuzzleHash),
		Amount:          currentRecordAmount(r),
		Confirmed:       r.Confirmed,
		ConfirmedHeight: r.ConfirmedAtHeight,
		Generation:      r.Generation,
		Timestamp:       r.Timestamp,
	}
}

func txName(tx singleton.TransactionRecord) string {
	return hashToHex(tx.Name)
}

// ── Singleton endpoints ─────────────────────────────────────────────────

func (s *Server) handleGetLatest(req *Request) (interface{}, *Error) {
	var p LauncherParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	launcherID, perr := parseLauncherID(p.LauncherID)
	if perr != nil {
		return nil, perr
	}
	rec, err := s.wallet.GetLatestSingleton(launcherID)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if rec == nil {
		return nil, &Error{Code: CodeNotFound, Message: "launcher not tracked"}
	}
	return recordToResult(*rec), nil
}

func (s *Server) handleGetHistory(req *Request) (interface{}, *Error) {
	var p HistoryParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	launcherID, perr := parseLauncherID(p.LauncherID)
	if perr != nil {
		return nil, perr
	}
	toGen := int64(-1)
	if p.ToGen != 0 {
		toGen = p.ToGen
	}
	records, err := s.wallet.GetHistory(launcherID, p.FromGen, toGen)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	result := SingletonHistoryResult{Records: make([]SingletonRecordResult, 0, len(records))}
	for _, r := range records {
		result.Records = append(result.Records, recordToResult(r))
	}
	return result, nil
}

func (s *Server) handleGetByRoot(req *Request) (interface{}, *Error) {
	var p RootParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	root, perr := parseRoot(p.Root)
	if perr != nil {
		return nil, perr
	}
	records, err := s.wallet.GetSingletonsByRoot(root)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	result := SingletonHistoryResult{Records: make([]SingletonRecordResult, 0, len(records))}
	for _, r := range records {
		result.Records = append(result.Records, recordToResult(r))
	}
	return result, nil
}

func (s *Server) handleGetOwned(ctx context.Context, req *Request) (interface{}, *Error) {
	records, err := s.wallet.GetOwnedSingletons(ctx)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	result := SingletonHistoryResult{Records: make([]SingletonRecordResult, 0, len(records))}
	for _, r := range records {
		result.Records = append(result.Records, recordToResult(r))
	}
	return result, nil
}

func (s *Server) handleLaunch(ctx context.Context, req *Request) (interface{}, *Error) {
	var p LaunchParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	root, perr := parseRoot(p.InitialRoot)
	if perr != nil {
		return nil, perr
	}
	result, err := s.wallet.GenerateNewReporter(ctx, root, p.Fee)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return LaunchResult{
		LauncherID: hashToHex(types.Hash(result.NewRecord.LauncherID)),
		CoinID:     hashToHex(types.Hash(result.NewRecord.CoinID)),
		TxName:     txName(result.PrimaryTx),
	}, nil
}

func (s *Server) handleUpdate(ctx context.Context, req *Request) (interface{}, *Error) {
	var p UpdateParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	launcherID, perr := parseLauncherID(p.LauncherID)
	if perr != nil {
		return nil, perr
	}

	ureq := singleton.UpdateStateRequest{
		LauncherID:          launcherID,
		Fee:                 p.Fee,
		Sign:                true,
		AddPendingSingleton: true,
		AnnounceNewState:    p.AnnounceOnly,
	}
	if p.RootHash != "" {
		root, rerr := parseRoot(p.RootHash)
		if rerr != nil {
			return nil, rerr
		}
		ureq.RootHash = &root
	}
	if p.NewPuzzleHash != "" {
		ph, herr := parseHash(p.NewPuzzleHash)
		if herr != nil {
			return nil, herr
		}
		ureq.NewPuzzleHash = &ph
	}
	if p.NewAmount != 0 {
		amt := p.NewAmount
		ureq.NewAmount = &amt
	}

	result, err := s.wallet.CreateUpdateStateSpend(ctx, ureq)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	out := UpdateResult{
		NewCoinID: hashToHex(types.Hash(result.NewRecord.CoinID)),
		NewRoot:   hashToHex(types.Hash(result.NewRecord.Root)),
		TxName:    txName(result.PrimaryTx),
	}
	if result.FeeTx != nil {
		out.FeeTxName = txName(*result.FeeTx)
	}
	return out, nil
}

func (s *Server) handleStopTracking(ctx context.Context, req *Request) (interface{}, *Error) {
	var p LauncherParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	launcherID, perr := parseLauncherID(p.LauncherID)
	if perr != nil {
		return nil, perr
	}
	if err := s.wallet.StopTrackingSingleton(ctx, launcherID); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return struct{}{}, nil
}

// ── Offer endpoints ─────────────────────────────────────────────────────

func (s *Server) handleOfferMake(ctx context.Context, req *Request) (interface{}, *Error) {
	var p MakeOfferParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}

	offered := make(map[types.LauncherID]int64, len(p.Offered))
	for idHex, amt := range p.Offered {
		id, perr := parseLauncherID(idHex)
		if perr != nil {
			return nil, perr
		}
		offered[id] = amt
	}

	deps := make(map[types.LauncherID]singleton.OfferDependency, len(p.Dependencies))
	for idHex, depParam := range p.Dependencies {
		id, perr := parseLauncherID(idHex)
		if perr != nil {
			return nil, perr
		}
		root, perr2 := parseRoot(depParam.NewRoot)
		if perr2 != nil {
			return nil, perr2
		}
		proofs := make(map[types.LauncherID][][]byte, len(depParam.Proofs))
		for peerHex, values := range depParam.Proofs {
			peerID, perr3 := parseLauncherID(peerHex)
			if perr3 != nil {
				return nil, perr3
			}
			decoded := make([][]byte, 0, len(values))
			for _, v := range values {
				b, herr := hex.DecodeString(v)
				if herr != nil {
					return nil, &Error{Code: CodeInvalidParams, Message: "invalid proof value hex"}
				}
				decoded = append(decoded, b)
			}
			proofs[peerID] = decoded
		}
		deps[id] = singleton.OfferDependency{NewRoot: root, Proofs: proofs}
	}

	offer, err := s.wallet.MakeUpdateOffer(ctx, offered, deps, p.Fee)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return offerToWire(*offer), nil
}

func (s *Server) handleOfferFinishGraftroot(ctx context.Context, req *Request) (interface{}, *Error) {
	var p FinishGraftrootParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	offer, oerr := wireToOffer(p.Offer)
	if oerr != nil {
		return nil, oerr
	}
	proofs := make(map[types.Root]singleton.MerkleProof, len(p.Proofs))
	for rootHex, proofParam := range p.Proofs {
		root, perr := parseRoot(rootHex)
		if perr != nil {
			return nil, perr
		}
		mp := singleton.MerkleProof{IsRight: proofParam.IsRight}
		for _, sib := range proofParam.Siblings {
			h, herr := parseHash(sib)
			if herr != nil {
				return nil, herr
			}
			mp.Siblings = append(mp.Siblings, h)
		}
		proofs[root] = mp
	}

	resolved, err := s.wallet.FinishGraftrootSolutions(ctx, offer, proofs)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return offerToWire(*resolved), nil
}

func (s *Server) handleOfferGetSummary(ctx context.Context, req *Request) (interface{}, *Error) {
	var p GetOfferSummaryParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	offer, oerr := wireToOffer(p.Offer)
	if oerr != nil {
		return nil, oerr
	}
	summary, err := s.wallet.GetOfferSummary(ctx, offer)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	result := OfferSummaryResult{}
	for _, entry := range summary.Offered {
		wire := SingletonOfferSummaryWire{
			LauncherID: hashToHex(types.Hash(entry.LauncherID)),
			NewRoot:    hashToHex(types.Hash(entry.NewRoot)),
		}
		for _, d := range entry.Dependencies {
			values := make([]string, 0, len(d.ValuesToProve))
			for _, v := range d.ValuesToProve {
				values = append(values, hex.EncodeToString(v))
			}
			wire.Dependencies = append(wire.Dependencies, OfferDependencySummaryWire{
				LauncherID:    hashToHex(types.Hash(d.LauncherID)),
				ValuesToProve: values,
			})
		}
		result.Offered = append(result.Offered, wire)
	}
	return result, nil
}

// ── Net endpoints ───────────────────────────────────────────────────────

func (s *Server) handleNetGetPeerInfo(req *Request) (interface{}, *Error) {
	if s.net == nil {
		return PeerInfoResult{}, nil
	}
	peers := s.net.Peers()
	result := PeerInfoResult{Count: len(peers)}
	for _, p := range peers {
		result.Peers = append(result.Peers, PeerInfo{ID: p.String()})
	}
	return result, nil
}
