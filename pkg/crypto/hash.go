// Package crypto provides the hashing and signing primitives the
// singleton wallet core treats as an external collaborator (ScriptEvaluator
// derives puzzle hashes through it, Signer implementations sign through it),
// plus the reference derivation used by coin-name computation.
package crypto

import (
	"github.com/dlsingleton/wallet/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// DoubleHash computes Hash(Hash(data)).
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// CoinName computes the deterministic coin ID of a coin from its parent's
// coin name, its puzzle hash, and its amount — the same inputs Chia's own
// Coin.name() hashes, in the same order.
func CoinName(parentCoinInfo types.Hash, puzzleHash types.Hash, amount uint64) types.CoinID {
	buf := make([]byte, types.HashSize*2+8)
	copy(buf[:types.HashSize], parentCoinInfo[:])
	copy(buf[types.HashSize:2*types.HashSize], puzzleHash[:])
	copy(buf[2*types.HashSize:], types.EncodeUint64BE(amount))
	return types.CoinID(Hash(buf))
}

// HashConcat hashes the concatenation of two hashes.
// Used for building merkle trees and for Chia's left/right tree-hash combinator.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}
