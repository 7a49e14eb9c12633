package singleton

import (
	"context"
	"fmt"
	"sync"

	"github.com/dlsingleton/wallet/internal/storage"
	"github.com/dlsingleton/wallet/pkg/crypto"
	"github.com/dlsingleton/wallet/pkg/types"
)

// testHarness bundles a Wallet wired against in-memory fakes for every
// collaborator, so individual tests only have to seed the state relevant to
// the scenario under test.
type testHarness struct {
	wallet    *Wallet
	chain     *fakeChainQuery
	actions   *fakeActionQueue
	standard  *fakeStandardWallet
	derive    *fakeDerivationIndex
	interests *fakeInterestRegistry
	signer    *fakeSigner
	txStore   *fakeTxStore
}

func newTestHarness() *testHarness {
	store := NewStore(storage.NewMemory())
	chain := &fakeChainQuery{states: map[types.Hash]CoinState{}, timestamps: map[uint32]uint64{}}
	actions := &fakeActionQueue{}
	standard := &fakeStandardWallet{}
	derive := &fakeDerivationIndex{records: map[types.Hash]DerivationRecord{}}
	interests := &fakeInterestRegistry{}
	signer := &fakeSigner{}
	txStore := &fakeTxStore{records: map[types.Hash]TransactionRecord{}, unconfirmed: map[uint32]map[types.Hash]bool{}}

	var mu sync.Mutex
	wallet := New(Config{
		Mu:        &mu,
		Store:     store,
		TxStore:   txStore,
		Chain:     chain,
		Actions:   actions,
		Standard:  standard,
		Derive:    derive,
		Interests: interests,
		Signer:    signer,
		Eval:      fakeEval{},
		CoinName:  crypto.CoinName,
		WalletID:  1,
	})

	return &testHarness{
		wallet:    wallet,
		chain:     chain,
		actions:   actions,
		standard:  standard,
		derive:    derive,
		interests: interests,
		signer:    signer,
		txStore:   txStore,
	}
}

// fakeChainQuery answers GetCoinState from a fixed map and hands out a
// deterministic timestamp for any height not explicitly stubbed.
type fakeChainQuery struct {
	states     map[types.Hash]CoinState
	timestamps map[uint32]uint64
}

func (f *fakeChainQuery) GetCoinState(ctx context.Context, coinIDs []types.Hash) ([]CoinState, error) {
	var out []CoinState
	for _, id := range coinIDs {
		if cs, ok := f.states[id]; ok {
			out = append(out, cs)
		}
	}
	return out, nil
}

func (f *fakeChainQuery) GetTimestampForHeight(ctx context.Context, height uint32) (uint64, error) {
	if ts, ok := f.timestamps[height]; ok {
		return ts, nil
	}
	return uint64(height) * 1000, nil
}

type requestedSolution struct {
	CoinID   types.Hash
	Height   uint32
	Callback string
	Data     []byte
}

// fakeActionQueue records every deferred request instead of resolving it,
// mirroring how an async peer round trip looks until its callback fires.
type fakeActionQueue struct {
	requests []requestedSolution
}

func (f *fakeActionQueue) RequestPuzzleSolution(ctx context.Context, coinID types.Hash, height uint32, callback string, data []byte) error {
	f.requests = append(f.requests, requestedSolution{CoinID: coinID, Height: height, Callback: callback, Data: data})
	return nil
}

// fakeStandardWallet hands out a fixed coin set and a queue of puzzle
// hashes, one per call to GetNewPuzzleHash, in the order tests enqueue them.
type fakeStandardWallet struct {
	coins        []Coin
	puzzleHashes []types.Hash
	nextIdx      int
	feeTxCount   int
}

func (f *fakeStandardWallet) SelectCoins(ctx context.Context, amount uint64) ([]Coin, error) {
	return f.coins, nil
}

func (f *fakeStandardWallet) GetNewPuzzleHash(ctx context.Context) (types.Hash, error) {
	if f.nextIdx >= len(f.puzzleHashes) {
		return types.Hash{}, fmt.Errorf("fakeStandardWallet: out of stubbed puzzle hashes")
	}
	h := f.puzzleHashes[f.nextIdx]
	f.nextIdx++
	return h, nil
}

func (f *fakeStandardWallet) GetNewPuzzle(ctx context.Context) (Program, error) {
	h, err := f.GetNewPuzzleHash(ctx)
	if err != nil {
		return nil, err
	}
	return Program(h[:]), nil
}

func (f *fakeStandardWallet) PuzzleForPK(pubKey []byte) (Program, error) {
	return Program(append([]byte(nil), pubKey...)), nil
}

func (f *fakeStandardWallet) GenerateSignedTransaction(ctx context.Context, req StandardSendRequest) (*TransactionRecord, error) {
	f.feeTxCount++
	name := crypto.Hash([]byte(fmt.Sprintf("fee-tx-%d", f.feeTxCount)))
	return &TransactionRecord{Name: name, FeeAmount: req.Fee, WalletID: 1}, nil
}

// fakeDerivationIndex reports ownership only for puzzle hashes a test has
// explicitly registered in records.
type fakeDerivationIndex struct {
	records map[types.Hash]DerivationRecord
}

func (f *fakeDerivationIndex) GetDerivationRecordForPuzzleHash(ctx context.Context, puzzleHash types.Hash) (*DerivationRecord, error) {
	if rec, ok := f.records[puzzleHash]; ok {
		return &rec, nil
	}
	return nil, nil
}

// fakeInterestRegistry just records what it was told, for assertions.
type fakeInterestRegistry struct {
	puzzleHashes []types.Hash
	coinIDs      []types.Hash
}

func (f *fakeInterestRegistry) AddInterestedPuzzleHashes(ctx context.Context, hashes []types.Hash, walletID uint32) error {
	f.puzzleHashes = append(f.puzzleHashes, hashes...)
	return nil
}

func (f *fakeInterestRegistry) AddInterestedCoinIDs(ctx context.Context, coinIDs []types.Hash) error {
	f.coinIDs = append(f.coinIDs, coinIDs...)
	return nil
}

// fakeSigner "signs" by just wrapping the spend, recording nothing beyond
// what the real Signer contract promises.
type fakeSigner struct{}

func (fakeSigner) Sign(ctx context.Context, spend CoinSpend) (SpendBundle, error) {
	return SpendBundle{CoinSpends: []CoinSpend{spend}, AggregatedSig: []byte("test-sig")}, nil
}

// fakeTxStore is a minimal in-memory TransactionStore, independent of the
// on-disk walletadapter implementation so these tests stay import-cycle
// free and isolated to the singleton package's own contract.
type fakeTxStore struct {
	records     map[types.Hash]TransactionRecord
	unconfirmed map[uint32]map[types.Hash]bool
}

func (f *fakeTxStore) AddPendingTransaction(ctx context.Context, tx TransactionRecord) error {
	f.records[tx.Name] = tx
	if !tx.Confirmed {
		if f.unconfirmed[tx.WalletID] == nil {
			f.unconfirmed[tx.WalletID] = map[types.Hash]bool{}
		}
		f.unconfirmed[tx.WalletID][tx.Name] = true
	}
	return nil
}

func (f *fakeTxStore) GetTransactionRecord(ctx context.Context, name types.Hash) (*TransactionRecord, error) {
	if tx, ok := f.records[name]; ok {
		return &tx, nil
	}
	return nil, nil
}

func (f *fakeTxStore) GetUnconfirmedForWallet(ctx context.Context, walletID uint32) ([]TransactionRecord, error) {
	var out []TransactionRecord
	for name := range f.unconfirmed[walletID] {
		if tx, ok := f.records[name]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeTxStore) DeleteTransactionRecord(ctx context.Context, name types.Hash) error {
	if tx, ok := f.records[name]; ok {
		if m := f.unconfirmed[tx.WalletID]; m != nil {
			delete(m, name)
		}
	}
	delete(f.records, name)
	return nil
}

// fakeEval stands in for the real walletadapter.ScriptEvaluator: the same
// curry-and-hash FullPuzzleHash shape, and a RunPuzzle that decodes the
// exact wire format this package's own encodeConditions produces.
type fakeEval struct{}

func (fakeEval) FullPuzzleHash(innerPuzzleHash, root, launcherID types.Hash) types.Hash {
	buf := make([]byte, 0, len(SingletonPuzzlePrefix)+3*types.HashSize)
	buf = append(buf, SingletonPuzzlePrefix...)
	buf = append(buf, launcherID[:]...)
	buf = append(buf, root[:]...)
	buf = append(buf, innerPuzzleHash[:]...)
	return crypto.Hash(buf)
}

func (fakeEval) RunPuzzle(ctx context.Context, puzzle, solution Program) ([]Condition, error) {
	if !MatchSingleton(puzzle) {
		return nil, fmt.Errorf("run puzzle: not a recognized singleton reveal")
	}
	return decodeTestConditions(solution)
}

var testConditionArity = map[types.Opcode]int{
	types.OpRemark:                   4,
	types.OpCreateCoin:               3,
	types.OpAssertCoinAnnouncement:   2,
	types.OpAssertPuzzleAnnouncement: 2,
	types.OpNewMetadataCondition:     0,
}

// decodeTestConditions mirrors encodeConditions' wire format: opcode byte,
// then that opcode's fixed argument count each length-prefixed by a single
// byte, terminated by 0xff.
func decodeTestConditions(data []byte) ([]Condition, error) {
	var out []Condition
	i := 0
	for i < len(data) {
		opcode := types.Opcode(int8(data[i]))
		i++
		arity, ok := testConditionArity[opcode]
		if !ok {
			return nil, fmt.Errorf("decode conditions: unrecognized opcode %s", opcode)
		}
		cond := Condition{Opcode: opcode}
		for a := 0; a < arity; a++ {
			if i >= len(data) {
				return nil, fmt.Errorf("decode conditions: truncated argument")
			}
			n := int(data[i])
			i++
			if i+n > len(data) {
				return nil, fmt.Errorf("decode conditions: truncated argument bytes")
			}
			cond.Args = append(cond.Args, append([]byte(nil), data[i:i+n]...))
			i += n
		}
		if i >= len(data) || data[i] != 0xff {
			return nil, fmt.Errorf("decode conditions: missing terminator")
		}
		i++
		out = append(out, cond)
	}
	return out, nil
}
