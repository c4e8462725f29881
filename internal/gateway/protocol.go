package gateway

import (
	"encoding/json"

	"github.com/jinhan04/bbungkabi-vercel/internal/card"
)

// 上行事件名
const (
	EventJoinRoom         = "join-room"
	EventStartGame        = "start-game"
	EventReadyNextRound   = "ready-next-round"
	EventRequestHand      = "request-hand"
	EventGetPlayerList    = "get-player-list"
	EventDrawCard         = "draw-card"
	EventSubmitCard       = "submit-card"
	EventSubmitBbung      = "submit-bbung"
	EventSubmitBbungExtra = "submit-bbung-extra"
	EventStop             = "stop"
	EventChatMessage      = "chat-message"
	EventDeclareBagaji    = "declare-bagaji"
	EventGetRoundResult   = "get-round-result"
	EventGetFinalScores   = "get-final-scores"
	EventHandEmpty        = "hand-empty"
	EventClaimRoundEnd    = "round-ended"
	EventLeaveRoom        = "leave-room"
	EventPing             = "ping"
)

// 仅由网关产生的下行事件
const (
	EventJoinError = "join-error"
	EventRejected  = "rejected"
	EventAck       = "ack"
	EventPong      = "pong"
)

// inboundFrame 上行帧 {"event","data","ack"}
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Ack   *uint64         `json:"ack,omitempty"`
}

// outboundFrame 下行帧，房间事件带 seq，应答带 ack
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Seq   uint64 `json:"seq,omitempty"`
	Ack   uint64 `json:"ack,omitempty"`
}

// ackReply 应答内容
type ackReply struct {
	OK     bool   `json:"ok"`
	Code   int    `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

type rejectedPayload struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

type roomRequest struct {
	RoomCode string `json:"roomCode"`
}

type joinRequest struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
}

type startRequest struct {
	RoomCode    string `json:"roomCode"`
	Nickname    string `json:"nickname"`
	MaxPlayers  int    `json:"maxPlayers"`
	DoubleFinal bool   `json:"doubleFinal"`
}

type cardRequest struct {
	RoomCode string    `json:"roomCode"`
	Card     card.Card `json:"card"`
}

type bbungRequest struct {
	RoomCode string      `json:"roomCode"`
	Cards    []card.Card `json:"cards"`
}

type stopRequest struct {
	RoomCode string      `json:"roomCode"`
	Stopper  string      `json:"stopper"`
	Hand     []card.Card `json:"hand"`
}

type chatRequest struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
}

type bagajiRequest struct {
	RoomCode string `json:"roomCode"`
	IsBagaji bool   `json:"isBagaji"`
}

type claimRequest struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

func encodeFrame(f outboundFrame) ([]byte, error) {
	return json.Marshal(f)
}
