package rpc

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// LauncherParam is used by endpoints keyed on a single launcher ID.
type LauncherParam struct {
	LauncherID string `json:"launcher_id"`
}

// HistoryParam is used by singleton_getHistory.
type HistoryParam struct {
	LauncherID string `json:"launcher_id"`
	FromGen    uint32 `json:"from_generation,omitempty"`
	ToGen      int64  `json:"to_generation,omitempty"` // -1 = through latest
}

// RootParam is used by singleton_getByRoot.
type RootParam struct {
	Root string `json:"root"`
}

// LaunchParam is used by singleton_launch.
type LaunchParam struct {
	InitialRoot string `json:"initial_root"`
	Fee         uint64 `json:"fee,omitempty"`
}

// UpdateParam is used by singleton_update.
type UpdateParam struct {
	LauncherID    string `json:"launcher_id"`
	RootHash      string `json:"root_hash,omitempty"`
	NewPuzzleHash string `json:"new_puzzle_hash,omitempty"`
	NewAmount     uint64 `json:"new_amount,omitempty"`
	Fee           uint64 `json:"fee,omitempty"`
	AnnounceOnly  bool   `json:"announce_only,omitempty"`
}

// OfferDependencyParam names the merkle inclusions a peer launcher's root
// change depends on, mirroring singleton.OfferDependency on the wire.
type OfferDependencyParam struct {
	NewRoot string              `json:"new_root"`
	Proofs  map[string][]string `json:"proofs"` // peer launcher id (hex) -> hex-encoded values to prove
}

// MakeOfferParam is used by offer_make.
type MakeOfferParam struct {
	Offered      map[string]int64                `json:"offered"` // launcher id (hex) -> signed amount
	Dependencies map[string]OfferDependencyParam  `json:"dependencies"`
	Fee          uint64                           `json:"fee,omitempty"`
}

// MerkleProofParam is a single merkle inclusion proof on the wire.
type MerkleProofParam struct {
	Siblings []string `json:"siblings"` // hex-encoded hashes, lowest level first
	IsRight  []bool   `json:"is_right"`
}

// FinishGraftrootParam is used by offer_finishGraftroot.
type FinishGraftrootParam struct {
	Offer  OfferWire                   `json:"offer"`
	Proofs map[string]MerkleProofParam `json:"proofs"` // asserted root (hex) -> proof
}

// GetOfferSummaryParam is used by offer_getSummary.
type GetOfferSummaryParam struct {
	Offer OfferWire `json:"offer"`
}

// ── Result/wire types ───────────────────────────────────────────────────

// SingletonRecordResult is the RPC-facing rendering of singleton.SingletonRecord.
type SingletonRecordResult struct {
	CoinID          string `json:"coin_id"`
	LauncherID      string `json:"launcher_id"`
	Root            string `json:"root"`
	InnerPuzzleHash string `json:"inner_puzzle_hash"`
	Amount          uint64 `json:"amount"`
	Confirmed       bool   `json:"confirmed"`
	ConfirmedHeight uint32 `json:"confirmed_height"`
	Generation      uint32 `json:"generation"`
	Timestamp       uint64 `json:"timestamp"`
}

// SingletonHistoryResult is returned by singleton_getHistory.
type SingletonHistoryResult struct {
	Records []SingletonRecordResult `json:"records"`
}

// LaunchResult is returned by singleton_launch.
type LaunchResult struct {
	LauncherID string `json:"launcher_id"`
	CoinID     string `json:"coin_id"`
	TxName     string `json:"tx_name"`
}

// UpdateResult is returned by singleton_update.
type UpdateResult struct {
	NewCoinID string `json:"new_coin_id"`
	NewRoot   string `json:"new_root"`
	TxName    string `json:"tx_name"`
	FeeTxName string `json:"fee_tx_name,omitempty"`
}

// CoinWire is the wire rendering of singleton.Coin.
type CoinWire struct {
	ParentCoinInfo string `json:"parent_coin_info"`
	PuzzleHash     string `json:"puzzle_hash"`
	Amount         uint64 `json:"amount"`
}

// CoinSpendWire is the wire rendering of singleton.CoinSpend.
type CoinSpendWire struct {
	Coin     CoinWire `json:"coin"`
	Puzzle   string   `json:"puzzle"`
	Solution string   `json:"solution"`
}

// SpendBundleWire is the wire rendering of singleton.SpendBundle.
type SpendBundleWire struct {
	CoinSpends    []CoinSpendWire `json:"coin_spends"`
	AggregatedSig string          `json:"aggregated_signature"`
}

// OfferWire is the wire rendering of a singleton.Offer.
type OfferWire struct {
	RequestedPayments map[string]uint64 `json:"requested_payments"`
	Bundle            SpendBundleWire   `json:"bundle"`
}

// OfferDependencySummaryWire is the wire rendering of
// singleton.OfferDependencySummary.
type OfferDependencySummaryWire struct {
	LauncherID    string   `json:"launcher_id"`
	ValuesToProve []string `json:"values_to_prove"`
}

// SingletonOfferSummaryWire is the wire rendering of
// singleton.SingletonOfferSummary.
type SingletonOfferSummaryWire struct {
	LauncherID   string                       `json:"launcher_id"`
	NewRoot      string                       `json:"new_root"`
	Dependencies []OfferDependencySummaryWire `json:"dependencies"`
}

// OfferSummaryResult is returned by offer_getSummary.
type OfferSummaryResult struct {
	Offered []SingletonOfferSummaryWire `json:"offered"`
}

// PeerInfo describes a connected peer.
type PeerInfo struct {
	ID string `json:"id"`
}

// PeerInfoResult is returned by net_getPeerInfo.
type PeerInfoResult struct {
	Count int        `json:"count"`
	Peers []PeerInfo `json:"peers"`
}
