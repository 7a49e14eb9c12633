// Package singleton tracks, advances, and arbitrates Chia-style singleton
// coins: coins that, once launched, persist across a chain of spends under a
// fixed launcher ID, each spend publishing a new data root and a new inner
// puzzle hash. The package depends only on the interfaces declared in this
// file; concrete network, signing, scripting, and storage collaborators are
// wired in by cmd/dlwalletd.
package singleton

import (
	"context"

	"github.com/dlsingleton/wallet/pkg/types"
)

// Coin is a plain (non-singleton) coin the standard wallet can spend — an
// origin coin for a launcher, or a fee/change coin for a tandem spend.
type Coin struct {
	ParentCoinInfo types.Hash
	PuzzleHash     types.Hash
	Amount         uint64
}

// Name returns this coin's coin ID.
func (c Coin) Name(coinName func(parent, puzzleHash types.Hash, amount uint64) types.CoinID) types.CoinID {
	return coinName(c.ParentCoinInfo, c.PuzzleHash, c.Amount)
}

// Program is an opaque serialized puzzle or solution (a CLVM program in the
// original; here just the bytes the ScriptEvaluator knows how to run).
type Program []byte

// CoinSpend pairs a coin with the puzzle reveal and solution spending it.
type CoinSpend struct {
	Coin     Coin
	Puzzle   Program
	Solution Program
}

// SpendBundle aggregates one or more coin spends plus the aggregated
// signature authorizing them.
type SpendBundle struct {
	CoinSpends     []CoinSpend
	AggregatedSig  []byte
}

// CoinState describes a coin's on-chain status as reported by a peer.
type CoinState struct {
	Coin            Coin
	SpentHeight     *uint32
	CreatedHeight   *uint32
	ParentSpend     *CoinSpend
}

// TransactionRecord is a wallet-level record of a submitted spend bundle,
// independent of any one coin within it.
type TransactionRecord struct {
	Name          types.Hash
	SpendBundle   *SpendBundle
	Removals      []Coin
	Additions     []Coin
	FeeAmount     uint64
	Confirmed     bool
	WalletID      uint32
}

// DerivationRecord is a single entry in the wallet's derivation index,
// mapping a derived key to the puzzle hash it resolves to.
type DerivationRecord struct {
	Index        uint32
	PuzzleHash   types.Hash
	PubKey       []byte
	WalletID     uint32
	Hardened     bool
}

// PuzzleSolutionResponse is the asynchronous reply to a queued
// RequestPuzzleSolution action, carrying the puzzle reveal and solution a
// peer returned for a previously-spent coin.
type PuzzleSolutionResponse struct {
	CoinID   types.Hash
	Height   uint32
	Puzzle   Program
	Solution Program
}

// StandardSendRequest is a single-destination, single-amount send request,
// the shape GenerateSignedTransaction forwards into CreateUpdateStateSpend.
type StandardSendRequest struct {
	LauncherID    *types.LauncherID // nil: resolve from Coin's tracked record
	Coin          *Coin
	Amount        uint64
	PuzzleHash    types.Hash
	Fee           uint64
}

// Condition is a single parsed output of running a puzzle against a
// solution (re-exported from pkg/types for collaborator signatures).
type Condition = types.Condition

// ChainQuery reaches the network for coin state the wallet doesn't already
// have cached locally.
type ChainQuery interface {
	GetCoinState(ctx context.Context, coinIDs []types.Hash) ([]CoinState, error)
	GetTimestampForHeight(ctx context.Context, height uint32) (uint64, error)
}

// ActionQueue defers a request for data that can only be answered
// asynchronously (a peer's response to a puzzle-solution request), firing a
// named callback when the answer arrives.
type ActionQueue interface {
	RequestPuzzleSolution(ctx context.Context, coinID types.Hash, height uint32, callback string, data []byte) error
}

// StandardWallet is the plain XCH wallet the singleton wallet borrows coins
// and signing/puzzle-derivation services from.
type StandardWallet interface {
	SelectCoins(ctx context.Context, amount uint64) ([]Coin, error)
	GetNewPuzzle(ctx context.Context) (Program, error)
	GetNewPuzzleHash(ctx context.Context) (types.Hash, error)
	PuzzleForPK(pubKey []byte) (Program, error)
	GenerateSignedTransaction(ctx context.Context, req StandardSendRequest) (*TransactionRecord, error)
}

// DerivationIndex answers "do we own this puzzle hash" questions.
type DerivationIndex interface {
	GetDerivationRecordForPuzzleHash(ctx context.Context, puzzleHash types.Hash) (*DerivationRecord, error)
}

// InterestRegistry tells the sync layer which puzzle hashes and coin IDs
// this wallet cares about being notified of.
type InterestRegistry interface {
	AddInterestedPuzzleHashes(ctx context.Context, hashes []types.Hash, walletID uint32) error
	AddInterestedCoinIDs(ctx context.Context, coinIDs []types.Hash) error
}

// Signer authorizes a coin spend, returning the spend bundle carrying its
// signature.
type Signer interface {
	Sign(ctx context.Context, spend CoinSpend) (SpendBundle, error)
}

// TransactionStore persists TransactionRecords, independent of the
// singleton Store's own record-keeping.
type TransactionStore interface {
	GetTransactionRecord(ctx context.Context, name types.Hash) (*TransactionRecord, error)
	GetUnconfirmedForWallet(ctx context.Context, walletID uint32) ([]TransactionRecord, error)
	DeleteTransactionRecord(ctx context.Context, name types.Hash) error
	AddPendingTransaction(ctx context.Context, tx TransactionRecord) error
}

// ScriptEvaluator is the on-chain script language collaborator: it derives
// a full puzzle hash from a singleton's inner puzzle hash, root, and
// launcher ID, and runs a puzzle against a solution to recover conditions.
type ScriptEvaluator interface {
	FullPuzzleHash(innerPuzzleHash, root, launcherID types.Hash) types.Hash
	RunPuzzle(ctx context.Context, puzzle Program, solution Program) ([]Condition, error)
}
