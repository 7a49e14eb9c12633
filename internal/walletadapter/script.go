// Package walletadapter wires the singleton package's external
// collaborator interfaces (StandardWallet, DerivationIndex, Signer,
// InterestRegistry, TransactionStore, ScriptEvaluator) to this module's own
// storage, HD-key, and signature primitives — the concrete half of the
// singleton package's otherwise-abstract network/scripting boundary.
package walletadapter

import (
	"context"
	"fmt"

	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/pkg/crypto"
	"github.com/dlsingleton/wallet/pkg/types"
)

// conditionArity fixes the argument count this driver always encodes for
// each opcode it can produce, resolving the ambiguity a variable-length
// encoding would otherwise have with no arg-count prefix. Mirrors exactly
// what singleton's encodeConditions/buildUpdateSolution emit.
var conditionArity = map[types.Opcode]int{
	types.OpRemark:                   4,
	types.OpCreateCoin:               3,
	types.OpAssertCoinAnnouncement:   2,
	types.OpAssertPuzzleAnnouncement: 2,
	types.OpNewMetadataCondition:     0,
}

// ScriptEvaluator is the stand-in "CLVM" layer: FullPuzzleHash mirrors the
// DataLayer singleton outer puzzle's curry-and-hash of its three arguments,
// and RunPuzzle decodes the condition wire format singleton's own
// encodeConditions produces, prefixed with SingletonPuzzlePrefix so
// MatchSingleton recognizes the reveal.
type ScriptEvaluator struct{}

// NewScriptEvaluator constructs the evaluator. It carries no state; every
// method is a pure function of its puzzle/solution bytes.
func NewScriptEvaluator() ScriptEvaluator { return ScriptEvaluator{} }

// FullPuzzleHash computes the outer singleton puzzle's hash by chaining
// launcherID, root, and innerPuzzleHash under the singleton mod-hash
// prefix — standing in for currying the singleton_top_layer puzzle with
// (SINGLETON_STRUCT, INNER_PUZZLE) the way a real CLVM driver would.
func (ScriptEvaluator) FullPuzzleHash(innerPuzzleHash, root, launcherID types.Hash) types.Hash {
	buf := make([]byte, 0, len(singleton.SingletonPuzzlePrefix)+3*types.HashSize)
	buf = append(buf, singleton.SingletonPuzzlePrefix...)
	buf = append(buf, launcherID[:]...)
	buf = append(buf, root[:]...)
	buf = append(buf, innerPuzzleHash[:]...)
	return crypto.Hash(buf)
}

// RunPuzzle decodes solution's conditions. Puzzle is only consulted to
// reject anything that doesn't carry the singleton prefix; a real driver
// would instead execute puzzle against solution in CLVM.
func (ScriptEvaluator) RunPuzzle(_ context.Context, puzzle, solution singleton.Program) ([]types.Condition, error) {
	if !singleton.MatchSingleton(puzzle) {
		return nil, fmt.Errorf("run puzzle: not a recognized singleton reveal")
	}
	return decodeConditions(solution)
}

// decodeConditions reverses singleton's encodeConditions wire format:
// opcode byte, then that opcode's fixed argument count each length-prefixed
// by a single byte, terminated by 0xff.
func decodeConditions(data []byte) ([]types.Condition, error) {
	var out []types.Condition
	i := 0
	for i < len(data) {
		opcode := types.Opcode(int8(data[i]))
		i++
		arity, ok := conditionArity[opcode]
		if !ok {
			return nil, fmt.Errorf("decode conditions: unrecognized opcode %s", opcode)
		}
		cond := types.Condition{Opcode: opcode}
		for a := 0; a < arity; a++ {
			if i >= len(data) {
				return nil, fmt.Errorf("decode conditions: truncated argument for %s", opcode)
			}
			n := int(data[i])
			i++
			if i+n > len(data) {
				return nil, fmt.Errorf("decode conditions: truncated argument bytes for %s", opcode)
			}
			cond.Args = append(cond.Args, append([]byte(nil), data[i:i+n]...))
			i += n
		}
		if i >= len(data) || data[i] != 0xff {
			return nil, fmt.Errorf("decode conditions: missing terminator after %s", opcode)
		}
		i++
		out = append(out, cond)
	}
	return out, nil
}
