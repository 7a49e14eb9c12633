package singleton

import "errors"

// Sentinel errors returned (or logged and swallowed, depending on call
// path) by the singleton wallet's operations. See each operation's doc
// comment for which applies.
var (
	// ErrNotALauncher means a coin spend does not match the launcher
	// puzzle/solution shape.
	ErrNotALauncher = errors.New("singleton: spend does not match launcher puzzle shape")

	// ErrNotTracked means the referenced launcher or coin has no local
	// record.
	ErrNotTracked = errors.New("singleton: launcher or coin not tracked")

	// ErrAlreadyTracked means a launcher spend has already been processed.
	ErrAlreadyTracked = errors.New("singleton: launcher already tracked")

	// ErrPending means an operation required a confirmed record but the
	// latest record is still pending.
	ErrPending = errors.New("singleton: latest record is unconfirmed")

	// ErrInsufficientLineage means a lineage proof is missing its parent
	// inner puzzle hash or amount.
	ErrInsufficientLineage = errors.New("singleton: lineage proof is incomplete")

	// ErrNotOwned means the wallet has no derivation record recognizing
	// the singleton's current inner puzzle hash.
	ErrNotOwned = errors.New("singleton: not owned by this wallet")

	// ErrInvalidAmount means a derived or supplied amount is not odd, or
	// is zero.
	ErrInvalidAmount = errors.New("singleton: amount must be odd and non-zero")

	// ErrMelted means no successor CREATE_COIN was found in a spend's
	// conditions — the singleton was deliberately ended.
	ErrMelted = errors.New("singleton: melted, no successor coin created")

	// ErrMissingHint means a successor CREATE_COIN lacks the
	// (root, innerPuzzleHash) hint tuple.
	ErrMissingHint = errors.New("singleton: successor coin missing hint tuple")

	// ErrMissingProof means a graftroot dependency has no matching
	// merkle proof supplied.
	ErrMissingProof = errors.New("singleton: no merkle proof for dependency")

	// ErrInconsistentRoots means two proofs for one dependency disagree
	// on the claimed root.
	ErrInconsistentRoots = errors.New("singleton: inconsistent roots claimed for dependency")

	// ErrInvariantViolation means a data-model invariant (§3.3) would be
	// broken. Always fatal: logged at error level and returned, never
	// swallowed.
	ErrInvariantViolation = errors.New("singleton: invariant violation")
)
