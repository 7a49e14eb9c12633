package netquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"

	"github.com/dlsingleton/wallet/internal/singleton"
	"github.com/dlsingleton/wallet/pkg/types"
)

// wireCoin and wireCoinSpend mirror singleton.Coin/CoinSpend for wire
// transport — kept distinct so the internal collaborator types never need
// json tags of their own.
type wireCoin struct {
	ParentCoinInfo types.Hash `json:"parent_coin_info"`
	PuzzleHash     types.Hash `json:"puzzle_hash"`
	Amount         uint64     `json:"amount"`
}

type wireCoinSpend struct {
	Coin     wireCoin `json:"coin"`
	Puzzle   []byte   `json:"puzzle"`
	Solution []byte   `json:"solution"`
}

type wireCoinState struct {
	Coin          wireCoin       `json:"coin"`
	SpentHeight   *uint32        `json:"spent_height,omitempty"`
	CreatedHeight *uint32        `json:"created_height,omitempty"`
	ParentSpend   *wireCoinSpend `json:"parent_spend,omitempty"`
}

type coinStateRequest struct {
	CoinIDs []types.Hash `json:"coin_ids"`
}

type coinStateResponse struct {
	States []wireCoinState `json:"states"`
}

type timestampRequest struct {
	Height uint32 `json:"height"`
}

type timestampResponse struct {
	Timestamp uint64 `json:"timestamp"`
}

// GetCoinState satisfies singleton.ChainQuery by querying a connected peer
// over CoinStateProtocol.
func (n *Node) GetCoinState(ctx context.Context, coinIDs []types.Hash) ([]singleton.CoinState, error) {
	p, err := n.anyPeer()
	if err != nil {
		return nil, err
	}

	var resp coinStateResponse
	req := coinStateRequest{CoinIDs: coinIDs}
	if err := n.roundTrip(ctx, p, CoinStateProtocol, req, &resp); err != nil {
		return nil, fmt.Errorf("get coin state: %w", err)
	}

	states := make([]singleton.CoinState, 0, len(resp.States))
	for _, s := range resp.States {
		cs := singleton.CoinState{
			Coin: singleton.Coin{
				ParentCoinInfo: s.Coin.ParentCoinInfo,
				PuzzleHash:     s.Coin.PuzzleHash,
				Amount:         s.Coin.Amount,
			},
			SpentHeight:   s.SpentHeight,
			CreatedHeight: s.CreatedHeight,
		}
		if s.ParentSpend != nil {
			cs.ParentSpend = &singleton.CoinSpend{
				Coin: singleton.Coin{
					ParentCoinInfo: s.ParentSpend.Coin.ParentCoinInfo,
					PuzzleHash:     s.ParentSpend.Coin.PuzzleHash,
					Amount:         s.ParentSpend.Coin.Amount,
				},
				Puzzle:   s.ParentSpend.Puzzle,
				Solution: s.ParentSpend.Solution,
			}
		}
		states = append(states, cs)
	}
	return states, nil
}

// GetTimestampForHeight satisfies singleton.ChainQuery by querying a
// connected peer over TimestampProtocol.
func (n *Node) GetTimestampForHeight(ctx context.Context, height uint32) (uint64, error) {
	p, err := n.anyPeer()
	if err != nil {
		return 0, err
	}
	var resp timestampResponse
	if err := n.roundTrip(ctx, p, TimestampProtocol, timestampRequest{Height: height}, &resp); err != nil {
		return 0, fmt.Errorf("get timestamp for height %d: %w", height, err)
	}
	return resp.Timestamp, nil
}

// roundTrip opens a stream to peerID, writes req as JSON, half-closes, and
// decodes resp from the reply.
func (n *Node) roundTrip(ctx context.Context, peerID peer.ID, proto protocol.ID, req, resp any) error {
	rtCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stream, err := n.host.NewStream(rtCtx, peerID, proto)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if deadline, ok := rtCtx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}

	if err := json.NewEncoder(stream).Encode(req); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	if err := stream.CloseWrite(); err != nil {
		return fmt.Errorf("close write side: %w", err)
	}

	if err := json.NewDecoder(io.LimitReader(stream, 4<<20)).Decode(resp); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return nil
}
