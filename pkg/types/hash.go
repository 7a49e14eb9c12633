// Package types defines the core primitive types shared across the
// singleton wallet: hashes, lineage proofs, and the small set of
// identifiers derived from them.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value.
type Hash [HashSize]byte

// LauncherID identifies a singleton lineage. It is the coin name of the
// launcher coin that created the lineage, and never changes across
// generations.
type LauncherID Hash

// CoinID identifies a single coin (a specific generation's child coin).
type CoinID Hash

// Root is an authenticated data root published by a singleton generation.
type Root Hash

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(decoded) != HashSize {
		return fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(decoded))
	}
	copy(h[:], decoded)
	return nil
}

// HexToHash converts a hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// IsZero returns true if the launcher ID is all zeros.
func (l LauncherID) IsZero() bool { return Hash(l).IsZero() }

// String returns the hex-encoded launcher ID.
func (l LauncherID) String() string { return Hash(l).String() }

// MarshalJSON encodes the launcher ID as a hex string.
func (l LauncherID) MarshalJSON() ([]byte, error) { return Hash(l).MarshalJSON() }

// UnmarshalJSON decodes a hex string into a launcher ID.
func (l *LauncherID) UnmarshalJSON(data []byte) error { return (*Hash)(l).UnmarshalJSON(data) }

// IsZero returns true if the coin ID is all zeros.
func (c CoinID) IsZero() bool { return Hash(c).IsZero() }

// String returns the hex-encoded coin ID.
func (c CoinID) String() string { return Hash(c).String() }

// MarshalJSON encodes the coin ID as a hex string.
func (c CoinID) MarshalJSON() ([]byte, error) { return Hash(c).MarshalJSON() }

// UnmarshalJSON decodes a hex string into a coin ID.
func (c *CoinID) UnmarshalJSON(data []byte) error { return (*Hash)(c).UnmarshalJSON(data) }

// IsZero returns true if the root is all zeros.
func (r Root) IsZero() bool { return Hash(r).IsZero() }

// String returns the hex-encoded root.
func (r Root) String() string { return Hash(r).String() }

// MarshalJSON encodes the root as a hex string.
func (r Root) MarshalJSON() ([]byte, error) { return Hash(r).MarshalJSON() }

// UnmarshalJSON decodes a hex string into a root.
func (r *Root) UnmarshalJSON(data []byte) error { return (*Hash)(r).UnmarshalJSON(data) }
