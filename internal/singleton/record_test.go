package singleton

import (
	"errors"
	"testing"

	"github.com/dlsingleton/wallet/pkg/types"
)

func TestNewSingletonRecord_RejectsEvenAmount(t *testing.T) {
	_, err := NewSingletonRecord(
		types.CoinID{0x01}, types.LauncherID{0x02}, types.Root{0x03}, types.Hash{0x04},
		2, true, 10, types.LineageProof{ParentName: types.Hash{0x02}}, 0, 100,
	)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation for an even amount, got %v", err)
	}
}

func TestNewSingletonRecord_RejectsZeroAmount(t *testing.T) {
	_, err := NewSingletonRecord(
		types.CoinID{0x01}, types.LauncherID{0x02}, types.Root{0x03}, types.Hash{0x04},
		0, true, 10, types.LineageProof{ParentName: types.Hash{0x02}}, 0, 100,
	)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation for a zero amount, got %v", err)
	}
}

func TestNewSingletonRecord_RejectsUnconfirmedWithHeight(t *testing.T) {
	_, err := NewSingletonRecord(
		types.CoinID{0x01}, types.LauncherID{0x02}, types.Root{0x03}, types.Hash{0x04},
		1, false, 10, types.LineageProof{ParentName: types.Hash{0x02}}, 0, 0,
	)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation for an unconfirmed record carrying a height, got %v", err)
	}
}

func TestNewSingletonRecord_RejectsUnconfirmedWithTimestamp(t *testing.T) {
	_, err := NewSingletonRecord(
		types.CoinID{0x01}, types.LauncherID{0x02}, types.Root{0x03}, types.Hash{0x04},
		1, false, 0, types.LineageProof{ParentName: types.Hash{0x02}}, 0, 100,
	)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation for an unconfirmed record carrying a timestamp, got %v", err)
	}
}

// A genesis record's lineage proof, by definition, never carries a parent
// inner puzzle hash or amount — its parent is a plain launcher coin, not a
// prior singleton generation — so LineageComplete must report false even
// for an otherwise well-formed confirmed genesis record.
func TestSingletonRecord_GenesisLineageNeverComplete(t *testing.T) {
	rec, err := NewSingletonRecord(
		types.CoinID{0x01}, types.LauncherID{0x02}, types.Root{0x03}, types.Hash{0x04},
		1, true, 10, types.LineageProof{ParentName: types.Hash{0x02}}, 0, 100,
	)
	if err != nil {
		t.Fatalf("NewSingletonRecord: %v", err)
	}
	if rec.LineageComplete() {
		t.Fatalf("expected a genesis record's lineage proof to never be complete")
	}
}

func TestSingletonRecord_LineageCompleteAtLaterGeneration(t *testing.T) {
	parentInner := types.Hash{0x05}
	parentAmount := uint64(1)
	rec, err := NewSingletonRecord(
		types.CoinID{0x01}, types.LauncherID{0x02}, types.Root{0x03}, types.Hash{0x04},
		1, true, 10,
		types.LineageProof{ParentName: types.Hash{0x06}, ParentInnerPuzzleHash: &parentInner, Amount: &parentAmount},
		1, 100,
	)
	if err != nil {
		t.Fatalf("NewSingletonRecord: %v", err)
	}
	if !rec.LineageComplete() {
		t.Fatalf("expected a generation-1 record with a full lineage proof to be complete")
	}
}

func TestSingletonRecord_WithConfirmed(t *testing.T) {
	rec, err := NewSingletonRecord(
		types.CoinID{0x01}, types.LauncherID{0x02}, types.Root{0x03}, types.Hash{0x04},
		1, false, 0, types.LineageProof{ParentName: types.Hash{0x02}}, 0, 0,
	)
	if err != nil {
		t.Fatalf("NewSingletonRecord: %v", err)
	}
	confirmed := rec.WithConfirmed(42, 1700000000)
	if !confirmed.Confirmed || confirmed.ConfirmedAtHeight != 42 || confirmed.Timestamp != 1700000000 {
		t.Fatalf("unexpected confirmed record: %+v", confirmed)
	}
	if rec.Confirmed {
		t.Fatalf("WithConfirmed must not mutate the receiver")
	}
}
