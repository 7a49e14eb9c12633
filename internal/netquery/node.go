package netquery

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	"github.com/dlsingleton/wallet/config"
	"github.com/dlsingleton/wallet/internal/log"
)

// queryTimeout bounds every outbound request/response round trip.
const queryTimeout = 5 * time.Second

// peerConnectTimeout bounds a single outbound dial to a seed peer.
const peerConnectTimeout = 5 * time.Second

// Node wraps a libp2p host and exposes the ChainQuery/ActionQueue
// collaborators the singleton wallet needs to reach the network.
type Node struct {
	host host.Host
	ps   *pubsub.PubSub
	dht  *dht.IpfsDHT

	ctx    context.Context
	cancel context.CancelFunc

	peersMu sync.Mutex
	peers   []peer.ID

	pendingMu sync.Mutex
	pending   map[string]*pendingSolution
	handlers  *Handlers

	topicCoinSpends *pubsub.Topic
}

// New starts a libp2p host per cfg, persisting its identity under dataDir so
// the peer ID survives restarts, dials any configured seeds, and joins the
// coin-spend gossip topic.
func New(ctx context.Context, cfg config.P2PConfig, dataDir string) (*Node, error) {
	nodeCtx, cancel := context.WithCancel(ctx)

	addr := fmt.Sprintf("/ip4/%s/tcp/%d", cfg.ListenAddr, cfg.Port)
	opts := []libp2p.Option{libp2p.ListenAddrStrings(addr)}

	if dataDir != "" {
		priv, err := loadOrCreateIdentity(dataDir)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("load p2p identity: %w", err)
		}
		opts = append(opts, libp2p.Identity(priv))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create libp2p host: %w", err)
	}

	var kad *dht.IpfsDHT
	if !cfg.NoDiscover {
		kad, err = dht.New(nodeCtx, h, dht.Mode(dht.ModeClient))
		if err != nil {
			h.Close()
			cancel()
			return nil, fmt.Errorf("create dht: %w", err)
		}
		if err := kad.Bootstrap(nodeCtx); err != nil {
			kad.Close()
			h.Close()
			cancel()
			return nil, fmt.Errorf("bootstrap dht: %w", err)
		}
	}

	ps, err := pubsub.NewGossipSub(nodeCtx, h)
	if err != nil {
		if kad != nil {
			kad.Close()
		}
		h.Close()
		cancel()
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}

	n := &Node{
		host:    h,
		ps:      ps,
		dht:     kad,
		ctx:     nodeCtx,
		cancel:  cancel,
		pending: make(map[string]*pendingSolution),
	}

	n.host.SetStreamHandler(HandshakeProtocol, n.handleHandshake)

	topic, err := ps.Join(TopicCoinSpends)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("join coin-spend topic: %w", err)
	}
	n.topicCoinSpends = topic

	for _, seed := range cfg.Seeds {
		dialCtx, dialCancel := context.WithTimeout(nodeCtx, peerConnectTimeout)
		err := n.Connect(dialCtx, seed)
		dialCancel()
		if err != nil {
			log.Net.Warn().Str("seed", seed).Err(err).Msg("failed to connect to seed peer")
		}
	}

	return n, nil
}

// Connect dials a peer by multiaddr string and tracks it as queryable.
func (n *Node) Connect(ctx context.Context, addr string) error {
	maddr, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return fmt.Errorf("parse peer addr: %w", err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return fmt.Errorf("parse peer info: %w", err)
	}
	if err := n.host.Connect(ctx, *info); err != nil {
		return fmt.Errorf("connect to peer %s: %w", info.ID, err)
	}
	n.addPeer(info.ID)
	return nil
}

func (n *Node) addPeer(id peer.ID) {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	for _, p := range n.peers {
		if p == id {
			return
		}
	}
	n.peers = append(n.peers, id)
}

// Peers returns the currently known queryable peers.
func (n *Node) Peers() []peer.ID {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	out := make([]peer.ID, len(n.peers))
	copy(out, n.peers)
	return out
}

// anyPeer returns an arbitrary connected peer for a one-shot query,
// preferring the host's own active connections over the tracked seed list.
func (n *Node) anyPeer() (peer.ID, error) {
	for _, c := range n.host.Network().Conns() {
		return c.RemotePeer(), nil
	}
	peers := n.Peers()
	if len(peers) == 0 {
		return "", fmt.Errorf("no peers available")
	}
	return peers[0], nil
}

func (n *Node) handleHandshake(stream network.Stream) {
	defer stream.Close()
	n.addPeer(stream.Conn().RemotePeer())
}

// Close shuts the host down.
func (n *Node) Close() error {
	n.cancel()
	if n.dht != nil {
		_ = n.dht.Close()
	}
	return n.host.Close()
}

// loadOrCreateIdentity loads a persisted Ed25519 libp2p identity from
// dataDir, generating and saving one on first run.
func loadOrCreateIdentity(dataDir string) (libp2pcrypto.PrivKey, error) {
	keyPath := filepath.Join(dataDir, "node.key")

	if data, err := os.ReadFile(keyPath); err == nil {
		keyBytes, err := hex.DecodeString(string(data))
		if err != nil {
			return nil, fmt.Errorf("decode node key: %w", err)
		}
		return libp2pcrypto.UnmarshalEd25519PrivateKey(keyBytes)
	}

	priv, _, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	raw, err := priv.Raw()
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(raw)), 0600); err != nil {
		return nil, fmt.Errorf("save node key: %w", err)
	}
	return priv, nil
}
