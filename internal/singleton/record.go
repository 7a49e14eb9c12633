package singleton

import (
	"fmt"

	"github.com/dlsingleton/wallet/pkg/types"
)

// SingletonRecord is the wallet's local view of one generation of a
// singleton lineage.
type SingletonRecord struct {
	CoinID            types.CoinID
	LauncherID        types.LauncherID
	Root              types.Root
	InnerPuzzleHash   types.Hash
	Confirmed         bool
	ConfirmedAtHeight uint32 // 0 when unconfirmed
	LineageProof      types.LineageProof
	Generation        uint32 // 0 = genesis
	Timestamp         uint64 // unix seconds, 0 when unconfirmed
}

// LauncherInfo records the launcher coin that began a lineage.
type LauncherInfo struct {
	LauncherID     types.LauncherID // == coin name of the launcher coin
	ParentCoinInfo types.Hash
	Amount         uint64 // always 1 for a genuine singleton launcher
}

// NewSingletonRecord constructs a record and eagerly enforces invariant 5:
// the amount implied by this generation's full puzzle must be odd. Chia's
// singleton convention marks the "real" singleton coin this way, as
// distinct from an ephemeral announcement coin.
func NewSingletonRecord(
	coinID types.CoinID,
	launcherID types.LauncherID,
	root types.Root,
	innerPuzzleHash types.Hash,
	amount uint64,
	confirmed bool,
	confirmedAtHeight uint32,
	lineageProof types.LineageProof,
	generation uint32,
	timestamp uint64,
) (SingletonRecord, error) {
	if amount == 0 || amount%2 == 0 {
		return SingletonRecord{}, fmt.Errorf("%w: amount %d is not odd", ErrInvariantViolation, amount)
	}
	if !confirmed && (confirmedAtHeight != 0 || timestamp != 0) {
		return SingletonRecord{}, fmt.Errorf("%w: unconfirmed record carries confirmed height/timestamp", ErrInvariantViolation)
	}
	return SingletonRecord{
		CoinID:            coinID,
		LauncherID:        launcherID,
		Root:              root,
		InnerPuzzleHash:   innerPuzzleHash,
		Confirmed:         confirmed,
		ConfirmedAtHeight: confirmedAtHeight,
		LineageProof:      lineageProof,
		Generation:        generation,
		Timestamp:         timestamp,
	}, nil
}

// verifyDerivedCoinID enforces invariant 4: coinID must equal the
// deterministic derivation CoinName(parentName, FullPuzzleHash(innerPuzzleHash,
// root, launcherID), amount). Constructing a record whose coinID disagrees
// with that derivation is a programming error, not a runtime condition a
// caller can recover from.
func (w *Wallet) verifyDerivedCoinID(coinID types.CoinID, parentName types.Hash, innerPuzzleHash types.Hash, root types.Root, launcherID types.LauncherID, amount uint64) error {
	fullPuzzleHash := w.eval.FullPuzzleHash(innerPuzzleHash, types.Hash(root), types.Hash(launcherID))
	expected := w.coinName(parentName, fullPuzzleHash, amount)
	if expected != coinID {
		return fmt.Errorf("%w: coin id %s disagrees with deterministic derivation %s",
			ErrInvariantViolation, types.Hash(coinID), types.Hash(expected))
	}
	return nil
}

// WithConfirmed returns a copy of the record promoted to confirmed at the
// given height and timestamp.
func (r SingletonRecord) WithConfirmed(height uint32, timestamp uint64) SingletonRecord {
	r.Confirmed = true
	r.ConfirmedAtHeight = height
	r.Timestamp = timestamp
	return r
}

// WithRoot returns a copy of the record with a new root.
func (r SingletonRecord) WithRoot(root types.Root) SingletonRecord {
	r.Root = root
	return r
}

// WithInnerPuzzleHash returns a copy of the record with a new inner puzzle
// hash (new owner/spend authority).
func (r SingletonRecord) WithInnerPuzzleHash(innerPuzzleHash types.Hash) SingletonRecord {
	r.InnerPuzzleHash = innerPuzzleHash
	return r
}

// LineageComplete reports whether this record's lineage proof carries
// enough information to spend against.
func (r SingletonRecord) LineageComplete() bool {
	return r.LineageProof.Complete()
}
