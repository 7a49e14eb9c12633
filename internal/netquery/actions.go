package netquery

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/dlsingleton/wallet/internal/log"
	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/pkg/types"
)

// pendingSolutionTimeout bounds the context of a deferred puzzle-solution
// fetch. The round trip inside it is further capped at queryTimeout, so
// fetchPuzzleSolution gives up and logs after at most queryTimeout.
const pendingSolutionTimeout = 30 * time.Second

// SolutionHandler is invoked with a peer's reply to a deferred
// puzzle-solution request, looked up by the callback name the caller
// supplied to RequestPuzzleSolution.
type SolutionHandler func(ctx context.Context, resp singleton.PuzzleSolutionResponse, data []byte) error

type pendingSolution struct {
	callback string
	data     []byte
	created  time.Time
}

type puzzleSolutionRequestWire struct {
	CoinID types.Hash `json:"coin_id"`
	Height uint32     `json:"height"`
}

type puzzleSolutionResponseWire struct {
	CoinID   types.Hash `json:"coin_id"`
	Height   uint32     `json:"height"`
	Puzzle   []byte     `json:"puzzle"`
	Solution []byte     `json:"solution"`
	Found    bool       `json:"found"`
}

// Handlers registers the named callbacks RequestPuzzleSolution responses
// get dispatched to. Built after the node since it typically closes over
// the wallet being wired up, then bound via Node.BindHandlers.
type Handlers struct {
	handlers map[string]SolutionHandler
}

// NewHandlers returns an empty callback registry.
func NewHandlers() *Handlers {
	return &Handlers{handlers: make(map[string]SolutionHandler)}
}

// Register names a callback so RequestPuzzleSolution can address it.
func (h *Handlers) Register(name string, fn SolutionHandler) {
	h.handlers[name] = fn
}

// BindHandlers associates h with n so asynchronous replies get dispatched.
func (n *Node) BindHandlers(h *Handlers) {
	n.handlers = h
}

// RequestPuzzleSolution satisfies singleton.ActionQueue: it asks an
// arbitrary connected peer for the puzzle reveal and solution that spent
// coinID at height, and returns once the request is sent — the reply is
// delivered asynchronously to the named callback.
func (n *Node) RequestPuzzleSolution(ctx context.Context, coinID types.Hash, height uint32, callback string, data []byte) error {
	p, err := n.anyPeer()
	if err != nil {
		return err
	}

	key := coinID.String()
	n.pendingMu.Lock()
	n.pending[key] = &pendingSolution{callback: callback, data: data, created: time.Now()}
	n.pendingMu.Unlock()

	go n.fetchPuzzleSolution(p, coinID, height, key)
	return nil
}

// fetchPuzzleSolution runs in its own goroutine: it opens a stream to
// peerID, sends the request, and dispatches whatever comes back (or times
// out and drops the pending entry, logging rather than raising — the
// original request already returned successfully to its caller).
func (n *Node) fetchPuzzleSolution(peerID peer.ID, coinID types.Hash, height uint32, key string) {
	ctx, cancel := context.WithTimeout(n.ctx, pendingSolutionTimeout)
	defer cancel()

	var resp puzzleSolutionResponseWire
	req := puzzleSolutionRequestWire{CoinID: coinID, Height: height}
	if err := n.roundTrip(ctx, peerID, PuzzleSolutionProtocol, req, &resp); err != nil {
		log.Net.Warn().Str("coin_id", coinID.String()).Err(err).Msg("puzzle solution request failed")
		n.pendingMu.Lock()
		delete(n.pending, key)
		n.pendingMu.Unlock()
		return
	}
	n.dispatchSolution(ctx, resp)
}

func (n *Node) dispatchSolution(ctx context.Context, resp puzzleSolutionResponseWire) {
	key := resp.CoinID.String()
	n.pendingMu.Lock()
	pending, ok := n.pending[key]
	if ok {
		delete(n.pending, key)
	}
	n.pendingMu.Unlock()
	if !ok {
		log.Net.Debug().Str("coin_id", resp.CoinID.String()).Msg("puzzle solution reply for unknown/expired request")
		return
	}
	if n.handlers == nil {
		return
	}
	fn, ok := n.handlers.handlers[pending.callback]
	if !ok {
		log.Net.Warn().Str("callback", pending.callback).Msg("no handler registered for puzzle solution callback")
		return
	}
	if !resp.Found {
		return
	}
	out := singleton.PuzzleSolutionResponse{
		CoinID:   resp.CoinID,
		Height:   resp.Height,
		Puzzle:   resp.Puzzle,
		Solution: resp.Solution,
	}
	if err := fn(ctx, out, pending.data); err != nil {
		log.Net.Warn().Str("callback", pending.callback).Err(err).Msg("puzzle solution callback failed")
	}
}

// PuzzleSolutionStore answers what puzzle/solution spent a coin at a given
// height, backing this node's PuzzleSolutionProtocol stream handler.
type PuzzleSolutionStore interface {
	LookupSpend(coinID types.Hash, height uint32) (puzzle, solution []byte, found bool)
}

// ServePuzzleSolutions registers the PuzzleSolutionProtocol stream handler
// against store, so peers can ask this node what spent a coin it has
// witnessed. Call once during wiring.
func (n *Node) ServePuzzleSolutions(store PuzzleSolutionStore) {
	n.host.SetStreamHandler(PuzzleSolutionProtocol, func(stream network.Stream) {
		defer stream.Close()
		var req puzzleSolutionRequestWire
		if err := json.NewDecoder(io.LimitReader(stream, 4096)).Decode(&req); err != nil {
			return
		}
		puzzle, solution, found := store.LookupSpend(req.CoinID, req.Height)
		resp := puzzleSolutionResponseWire{CoinID: req.CoinID, Height: req.Height, Found: found}
		if found {
			resp.Puzzle = puzzle
			resp.Solution = solution
		}
		_ = stream.SetWriteDeadline(time.Now().Add(queryTimeout))
		_ = json.NewEncoder(stream).Encode(&resp)
	})
}
