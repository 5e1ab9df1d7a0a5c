package domain

import "encoding/json"

// Realtime event types, server → client. Every frame is
// {type, seq, ...payload}; seq is assigned by the bus in commit order.
const (
	EventRoundCommit     = "round_commit"
	EventBettingOpen     = "betting_open"
	EventRunningStart    = "running_start"
	EventMultiplierTick  = "multiplier_tick"
	EventCrash           = "crash"
	EventBetAccepted     = "bet_accepted"
	EventBetRejected     = "bet_rejected"
	EventCashoutAccepted = "cashout_accepted"
	EventCashoutRejected = "cashout_rejected"
	EventStateSnapshot   = "state_snapshot"
)

// Client → server frame types.
const (
	FramePlaceBet  = "place_bet"
	FrameCashout   = "cashout"
	FrameSubscribe = "subscribe"
	FrameResume    = "resume"
)

// Event is a sequenced server→client frame.
type Event struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"-"`
}

// MarshalJSON flattens the payload into the frame object.
func (e Event) MarshalJSON() ([]byte, error) {
	head := map[string]interface{}{"type": e.Type, "seq": e.Seq}
	if len(e.Payload) > 0 {
		var body map[string]interface{}
		if err := json.Unmarshal(e.Payload, &body); err != nil {
			return nil, err
		}
		for k, v := range body {
			head[k] = v
		}
	}
	return json.Marshal(head)
}

// RoundCommitPayload announces the commit for the next round.
type RoundCommitPayload struct {
	RoundID       string `json:"round_id"`
	CommitHash    string `json:"commit_hash"`
	BettingEndsAt int64  `json:"betting_ends_at"`
}

// BettingOpenPayload carries absolute server timestamps for both endpoints of
// the betting window.
type BettingOpenPayload struct {
	RoundID          string `json:"round_id"`
	CommitHash       string `json:"commit_hash"`
	BettingStartedAt int64  `json:"betting_started_at"`
	BettingEndsAt    int64  `json:"betting_ends_at"`
}

// RunningStartPayload marks the start of the multiplier curve. Clients
// predict m(t) locally from the published formula.
type RunningStartPayload struct {
	RoundID          string `json:"round_id"`
	RunningStartedAt int64  `json:"running_started_at"`
}

// MultiplierTickPayload is a periodic correctness anchor, not the rendering
// source.
type MultiplierTickPayload struct {
	RoundID    string `json:"round_id"`
	MPPM       int64  `json:"m_ppm"`
	ServerTime int64  `json:"server_time"`
}

// CrashPayload is the reveal.
type CrashPayload struct {
	RoundID       string `json:"round_id"`
	CrashPPM      int64  `json:"crash_ppm"`
	ServerSeed    string `json:"server_seed"`
	ClientEntropy string `json:"client_entropy"`
}

// BetReplyPayload answers a place_bet frame on the player's own connection.
type BetReplyPayload struct {
	ClientID string `json:"client_id"`
	BetID    string `json:"bet_id,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CashoutReplyPayload answers a cashout frame.
type CashoutReplyPayload struct {
	ClientID      string `json:"client_id"`
	BetID         string `json:"bet_id,omitempty"`
	MultiplierPPM int64  `json:"multiplier_ppm,omitempty"`
	PayoutWei     string `json:"payout_wei,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// StateSnapshotPayload resyncs a client that cannot be served from the replay
// ring.
type StateSnapshotPayload struct {
	Phase            string          `json:"phase"`
	RoundID          string          `json:"round_id"`
	CommitHash       string          `json:"commit_hash,omitempty"`
	BettingEndsAt    int64           `json:"betting_ends_at,omitempty"`
	RunningStartedAt int64           `json:"running_started_at,omitempty"`
	MPPM             int64           `json:"m_ppm,omitempty"`
	Seq              uint64          `json:"snapshot_seq"`
	RecentEvents     json.RawMessage `json:"recent_events,omitempty"`
}

// ClientFrame is a client→server frame.
type ClientFrame struct {
	Type           string `json:"type"`
	ClientID       string `json:"client_id,omitempty"`
	Token          string `json:"token,omitempty"`
	Address        string `json:"address,omitempty"`
	AmountWei      string `json:"amount_wei,omitempty"`
	FundingType    string `json:"funding_type,omitempty"`
	TxHash         string `json:"tx_hash,omitempty"`
	AutoCashoutPPM int64  `json:"auto_cashout_ppm,omitempty"`
	LastSeq        uint64 `json:"last_seq,omitempty"`
}
