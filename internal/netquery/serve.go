package netquery

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/network"

	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/pkg/types"
)

// CoinStateStore answers coin-state and height-timestamp queries from
// peers, backing this node's CoinStateProtocol/TimestampProtocol stream
// handlers. A node that only queries (never serves) other peers can leave
// these unregistered.
type CoinStateStore interface {
	CoinStates(coinIDs []types.Hash) []singleton.CoinState
	TimestampForHeight(height uint32) (uint64, bool)
}

// ServeChainQueries registers the CoinStateProtocol and TimestampProtocol
// stream handlers against store. Call once during wiring for any node
// willing to answer other wallets' queries.
func (n *Node) ServeChainQueries(store CoinStateStore) {
	n.host.SetStreamHandler(CoinStateProtocol, func(stream network.Stream) {
		defer stream.Close()
		var req coinStateRequest
		if err := json.NewDecoder(io.LimitReader(stream, 1<<20)).Decode(&req); err != nil {
			return
		}
		states := store.CoinStates(req.CoinIDs)
		resp := coinStateResponse{States: make([]wireCoinState, 0, len(states))}
		for _, s := range states {
			ws := wireCoinState{
				Coin: wireCoin{
					ParentCoinInfo: s.Coin.ParentCoinInfo,
					PuzzleHash:     s.Coin.PuzzleHash,
					Amount:         s.Coin.Amount,
				},
				SpentHeight:   s.SpentHeight,
				CreatedHeight: s.CreatedHeight,
			}
			if s.ParentSpend != nil {
				ws.ParentSpend = &wireCoinSpend{
					Coin: wireCoin{
						ParentCoinInfo: s.ParentSpend.Coin.ParentCoinInfo,
						PuzzleHash:     s.ParentSpend.Coin.PuzzleHash,
						Amount:         s.ParentSpend.Coin.Amount,
					},
					Puzzle:   s.ParentSpend.Puzzle,
					Solution: s.ParentSpend.Solution,
				}
			}
			resp.States = append(resp.States, ws)
		}
		_ = stream.SetWriteDeadline(time.Now().Add(queryTimeout))
		_ = json.NewEncoder(stream).Encode(&resp)
	})

	n.host.SetStreamHandler(TimestampProtocol, func(stream network.Stream) {
		defer stream.Close()
		var req timestampRequest
		if err := json.NewDecoder(io.LimitReader(stream, 256)).Decode(&req); err != nil {
			return
		}
		ts, _ := store.TimestampForHeight(req.Height)
		_ = stream.SetWriteDeadline(time.Now().Add(queryTimeout))
		_ = json.NewEncoder(stream).Encode(&timestampResponse{Timestamp: ts})
	})
}

// coinSpendNotice is gossiped whenever a peer witnesses a singleton coin
// being spent, so other wallets tracking the same launcher can react
// without polling CoinStateProtocol.
type coinSpendNotice struct {
	ParentSpend wireCoinSpend `json:"parent_spend"`
	Height      uint32        `json:"height"`
}

// BroadcastCoinSpend publishes a witnessed singleton spend to the
// coin-spend gossip topic.
func (n *Node) BroadcastCoinSpend(ctx context.Context, spend singleton.CoinSpend, height uint32) error {
	notice := coinSpendNotice{
		ParentSpend: wireCoinSpend{
			Coin: wireCoin{
				ParentCoinInfo: spend.Coin.ParentCoinInfo,
				PuzzleHash:     spend.Coin.PuzzleHash,
				Amount:         spend.Coin.Amount,
			},
			Puzzle:   spend.Puzzle,
			Solution: spend.Solution,
		},
		Height: height,
	}
	data, err := json.Marshal(&notice)
	if err != nil {
		return err
	}
	return n.topicCoinSpends.Publish(ctx, data)
}

// CoinSpendHandler processes a gossiped singleton-spend notice — normally
// singleton.Wallet.SingletonRemoved, invoked once per incoming message.
type CoinSpendHandler func(ctx context.Context, spend singleton.CoinSpend, height uint32) error

// SubscribeCoinSpends joins the read loop for the coin-spend gossip topic
// and invokes handler for every message until ctx is cancelled. Meant to be
// run in its own goroutine by the caller.
func (n *Node) SubscribeCoinSpends(ctx context.Context, handler CoinSpendHandler) error {
	sub, err := n.topicCoinSpends.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Cancel()

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return ctx.Err()
		}
		var notice coinSpendNotice
		if err := json.Unmarshal(msg.Data, &notice); err != nil {
			continue
		}
		spend := singleton.CoinSpend{
			Coin: singleton.Coin{
				ParentCoinInfo: notice.ParentSpend.Coin.ParentCoinInfo,
				PuzzleHash:     notice.ParentSpend.Coin.PuzzleHash,
				Amount:         notice.ParentSpend.Coin.Amount,
			},
			Puzzle:   notice.ParentSpend.Puzzle,
			Solution: notice.ParentSpend.Solution,
		}
		if err := handler(ctx, spend, notice.Height); err != nil {
			continue
		}
	}
}
