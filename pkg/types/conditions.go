package types

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies a CLVM condition opcode relevant to singleton spends.
// Only the handful the wallet actually has to recognize are named here —
// everything else just passes through GetSpendableSingletonInfo/
// SingletonRemoved unexamined.
type Opcode int64

const (
	OpRemark                   Opcode = 1
	OpAggSigMe                 Opcode = 50
	OpCreateCoin               Opcode = 51
	OpCreateCoinAnnouncement   Opcode = 60
	OpAssertCoinAnnouncement   Opcode = 61
	OpCreatePuzzleAnnouncement Opcode = 62
	OpAssertPuzzleAnnouncement Opcode = 63
	// OpNewMetadataCondition is the "magic" condition the DataLayer inner
	// puzzle recognizes to change a singleton's root. It is not a standard
	// CLVM condition opcode, hence the out-of-band negative value.
	OpNewMetadataCondition Opcode = -24
)

func (o Opcode) String() string {
	switch o {
	case OpRemark:
		return "REMARK"
	case OpAggSigMe:
		return "AGG_SIG_ME"
	case OpCreateCoin:
		return "CREATE_COIN"
	case OpCreateCoinAnnouncement:
		return "CREATE_COIN_ANNOUNCEMENT"
	case OpAssertCoinAnnouncement:
		return "ASSERT_COIN_ANNOUNCEMENT"
	case OpCreatePuzzleAnnouncement:
		return "CREATE_PUZZLE_ANNOUNCEMENT"
	case OpAssertPuzzleAnnouncement:
		return "ASSERT_PUZZLE_ANNOUNCEMENT"
	case OpNewMetadataCondition:
		return "NEW_METADATA_CONDITION"
	default:
		return fmt.Sprintf("OPCODE(%d)", int64(o))
	}
}

// Condition is a single parsed output of running a puzzle against a
// solution. Args holds the opcode's raw argument atoms in order; callers
// that need the singleton hint tuple read Args[2] and Args[3] directly,
// mirroring the original's condition[1]/condition[2]/condition[3] indexing.
type Condition struct {
	Opcode Opcode
	Args   [][]byte
}

// Announcement is a commitment a spend can create (CREATE_*_ANNOUNCEMENT)
// or assert (ASSERT_*_ANNOUNCEMENT) against another coin or puzzle in the
// same spend bundle.
type Announcement struct {
	OriginInfo Hash // coin name or puzzle hash the announcement is attached to
	Message    []byte
}

// Name returns the announcement ID asserted/consumed in a solution: the
// hash of OriginInfo concatenated with Message.
func (a Announcement) Name(hashFn func([]byte) Hash) Hash {
	buf := make([]byte, HashSize+len(a.Message))
	copy(buf, a.OriginInfo[:])
	copy(buf[HashSize:], a.Message)
	return hashFn(buf)
}

// SuccessorMemo is the 3-tuple hint a successor spend's CREATE_COIN carries
// so observers can recognize and follow the new singleton generation
// without re-deriving its puzzle.
type SuccessorMemo struct {
	LauncherID      LauncherID
	Root            Root
	InnerPuzzleHash Hash
}

// EncodeSuccessorMemo packs a SuccessorMemo into the fixed 96-byte form
// carried as the hint list on a singleton's CREATE_COIN condition.
func EncodeSuccessorMemo(m SuccessorMemo) []byte {
	buf := make([]byte, 3*HashSize)
	copy(buf[0:HashSize], m.LauncherID[:])
	copy(buf[HashSize:2*HashSize], m.Root[:])
	copy(buf[2*HashSize:3*HashSize], m.InnerPuzzleHash[:])
	return buf
}

// DecodeSuccessorMemo unpacks a memo previously built by EncodeSuccessorMemo.
// It returns an error (ErrMissingHint-class, left to the caller to wrap)
// when the hint isn't exactly the expected three hashes.
func DecodeSuccessorMemo(b []byte) (SuccessorMemo, error) {
	if len(b) != 3*HashSize {
		return SuccessorMemo{}, fmt.Errorf("successor memo must be %d bytes, got %d", 3*HashSize, len(b))
	}
	var m SuccessorMemo
	copy(m.LauncherID[:], b[0:HashSize])
	copy(m.Root[:], b[HashSize:2*HashSize])
	copy(m.InnerPuzzleHash[:], b[2*HashSize:3*HashSize])
	return m, nil
}

// EncodeUint64BE is a small helper used when building condition argument
// atoms that must match CLVM's big-endian integer encoding (amounts,
// output indices).
func EncodeUint64BE(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
