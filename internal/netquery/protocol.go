// Package netquery implements the singleton package's ChainQuery and
// ActionQueue collaborators over a libp2p host: coin-state lookups, height
// timestamp lookups, and deferred puzzle-solution requests, plus gossipsub
// broadcast of locally-witnessed singleton spends so peer wallets learn of
// state changes without polling.
package netquery

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/protocol"
)

// GossipSub topic names.
const (
	TopicCoinSpends = "/dlwallet/coinspend/1.0.0"
)

// Stream protocol IDs.
const (
	// HandshakeProtocol is the stream protocol ID for the peer handshake. The
	// handler records the remote peer as queryable; no version is exchanged.
	HandshakeProtocol = protocol.ID("/dlwallet/handshake/1.0.0")

	// ProtocolVersion is the current protocol version. The handshake does not
	// send it.
	ProtocolVersion uint32 = 1

	// MinProtocolVersion is the minimum protocol version for peers. The
	// handshake does not check it.
	MinProtocolVersion uint32 = 1

	// CoinStateProtocol is the stream protocol ID for coin-state queries.
	CoinStateProtocol = protocol.ID("/dlwallet/coinstate/1.0.0")

	// TimestampProtocol is the stream protocol ID for block-height timestamp
	// queries.
	TimestampProtocol = protocol.ID("/dlwallet/timestamp/1.0.0")

	// PuzzleSolutionProtocol is the stream protocol ID for deferred
	// puzzle-solution requests.
	PuzzleSolutionProtocol = protocol.ID("/dlwallet/puzzlesolution/1.0.0")
)

// LauncherRootTopic returns the GossipSub topic carrying root-update
// notifications for one launcher, for peers that only care about a single
// singleton's lineage.
func LauncherRootTopic(launcherIDHex string) string {
	return fmt.Sprintf("/dlwallet/launcher/%s/root/1.0.0", launcherIDHex)
}
