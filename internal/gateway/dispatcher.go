package gateway

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/jinhan04/bbungkabi-vercel/internal/room"
	"github.com/jinhan04/bbungkabi-vercel/internal/score"
	apperrors "github.com/jinhan04/bbungkabi-vercel/pkg/errors"
)

type handlerFunc func(c *Connection, data json.RawMessage) (any, error)

// DispatcherOptions 分发器参数
type DispatcherOptions struct {
	// ReportRejections 为 true 时向发起者单播 rejected 事件，否则静默
	ReportRejections bool
}

// Dispatcher 把上行事件翻译为房间操作
//
// 身份取自连接绑定，载荷中的 nickname 只在 join-room 时使用。
type Dispatcher struct {
	rooms    *room.Manager
	hub      *Hub
	opts     DispatcherOptions
	handlers map[string]handlerFunc
	logger   *slog.Logger
}

// NewDispatcher 创建分发器
func NewDispatcher(rooms *room.Manager, hub *Hub, opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		rooms:  rooms,
		hub:    hub,
		opts:   opts,
		logger: slog.Default().With("component", "Dispatcher"),
	}
	d.handlers = map[string]handlerFunc{
		EventJoinRoom:         d.handleJoin,
		EventLeaveRoom:        d.handleLeave,
		EventStartGame:        d.handleStart,
		EventReadyNextRound:   d.handleReady,
		EventRequestHand:      d.handleRequestHand,
		EventGetPlayerList:    d.handlePlayerList,
		EventDrawCard:         d.handleDraw,
		EventSubmitCard:       d.handleSubmit,
		EventSubmitBbung:      d.handleBbung,
		EventSubmitBbungExtra: d.handleBbungExtra,
		EventStop:             d.handleStop,
		EventHandEmpty:        d.handleHandEmpty,
		EventClaimRoundEnd:    d.handleClaim,
		EventChatMessage:      d.handleChat,
		EventDeclareBagaji:    d.handleBagaji,
		EventGetRoundResult:   d.handleRoundResult,
		EventGetFinalScores:   d.handleFinalScores,
		EventPing:             d.handlePing,
	}
	return d
}

// Handle 处理一帧上行消息
func (d *Dispatcher) Handle(c *Connection, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
		d.logger.Debug("Malformed frame", "connId", c.ID(), "error", err)
		return
	}

	var (
		result any
		err    error
	)
	if !c.Allow() {
		err = apperrors.ErrTooManyRequest
	} else if h, ok := d.handlers[frame.Event]; ok {
		result, err = h(c, frame.Data)
	} else {
		err = apperrors.ErrUnknownEvent
	}

	if frame.Ack != nil {
		d.reply(c, *frame.Ack, result, err)
	}
	if err != nil {
		d.rejected(c, frame.Event, err, frame.Ack != nil)
	}
}

// Disconnect 连接断开按离开房间处理
func (d *Dispatcher) Disconnect(c *Connection) {
	code, nickname, ok := c.Binding()
	if !ok {
		return
	}
	d.leave(c, code, nickname)
	d.logger.Info("Player disconnected", "connId", c.ID(), "roomCode", code, "nickname", nickname)
}

func (d *Dispatcher) leave(c *Connection, code, nickname string) {
	if !c.unbind(code) {
		return
	}
	if err := d.rooms.Leave(code, nickname); err != nil {
		d.logger.Debug("Leave ignored", "roomCode", code, "nickname", nickname, "error", err)
	}
	d.hub.Release(code, nickname, c)
}

func (d *Dispatcher) reply(c *Connection, ack uint64, result any, err error) {
	payload := ackReply{OK: err == nil, Result: result}
	if err != nil {
		appErr := toAppError(err)
		payload.Code = appErr.Code
		payload.Error = appErr.Message
	}
	d.send(c, outboundFrame{Event: EventAck, Ack: ack, Data: payload})
}

// rejected 记录被拒绝的操作；查询类请求已通过 ack 返回错误，不再重复通知
func (d *Dispatcher) rejected(c *Connection, event string, err error, acked bool) {
	code, nickname, _ := c.Binding()
	d.logger.Debug("Action rejected",
		"connId", c.ID(),
		"roomCode", code,
		"nickname", nickname,
		"event", event,
		"error", err)

	if !d.opts.ReportRejections || acked {
		return
	}
	d.send(c, outboundFrame{Event: EventRejected, Data: rejectedPayload{Event: event, Reason: reasonOf(err)}})
}

func (d *Dispatcher) send(c *Connection, f outboundFrame) {
	data, err := encodeFrame(f)
	if err != nil {
		d.logger.Error("Failed to marshal frame", "event", f.Event, "error", err)
		return
	}
	if err := c.Send(data); err != nil {
		d.logger.Debug("Failed to send frame", "connId", c.ID(), "event", f.Event, "error", err)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return apperrors.ErrInvalidParams
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.ErrInvalidParams.Wrap(err)
	}
	return nil
}

// bound 返回连接绑定的房间；载荷里的房间号与绑定不一致时拒绝
func (d *Dispatcher) bound(c *Connection, roomCode string) (*room.Room, string, error) {
	code, nickname, ok := c.Binding()
	if !ok {
		return nil, "", apperrors.ErrNotJoined
	}
	if roomCode != "" && roomCode != code {
		return nil, "", room.ErrNotInRoom
	}
	r, err := d.rooms.Get(code)
	if err != nil {
		return nil, "", err
	}
	return r, nickname, nil
}

// boundRoom 解析只带 roomCode 的载荷并返回绑定房间
func (d *Dispatcher) boundRoom(c *Connection, data json.RawMessage) (*room.Room, string, error) {
	var req roomRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, "", apperrors.ErrInvalidParams.Wrap(err)
		}
	}
	return d.bound(c, req.RoomCode)
}

func (d *Dispatcher) handleJoin(c *Connection, data json.RawMessage) (any, error) {
	var req joinRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	err := d.join(c, req.RoomCode, req.Nickname)
	if err != nil {
		d.send(c, outboundFrame{Event: EventJoinError, Data: toAppError(err).Message})
		return nil, err
	}
	return nil, nil
}

// join 加入房间。已在其他房间时先占住新座位，成功后才离开旧房间，
// 加入失败则保留原有绑定；同一房间内换昵称按先离开再加入处理。
func (d *Dispatcher) join(c *Connection, code, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if !room.ValidRoomCode(code) {
		return room.ErrInvalidRoomCode
	}

	boundCode, boundNick, bound := c.Binding()
	if bound && boundCode == code {
		if boundNick == nickname {
			return nil
		}
		d.leave(c, boundCode, boundNick)
		bound = false
	}

	if !d.hub.Reserve(code, nickname, c) {
		return room.ErrNicknameTaken
	}
	if _, err := d.rooms.Join(code, nickname); err != nil {
		d.hub.Release(code, nickname, c)
		return err
	}
	if bound {
		d.leave(c, boundCode, boundNick)
	}
	c.bind(code, nickname)

	d.logger.Info("Player joined room", "connId", c.ID(), "roomCode", code, "nickname", nickname)
	return nil
}

func (d *Dispatcher) handleLeave(c *Connection, data json.RawMessage) (any, error) {
	if _, _, err := d.boundRoom(c, data); err != nil {
		return nil, err
	}
	code, nickname, _ := c.Binding()
	d.leave(c, code, nickname)
	return nil, nil
}

func (d *Dispatcher) handleStart(c *Connection, data json.RawMessage) (any, error) {
	var req startRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	r, nickname, err := d.bound(c, req.RoomCode)
	if err == nil {
		err = r.Start(nickname, req.MaxPlayers, req.DoubleFinal)
	}
	if err != nil {
		d.send(c, outboundFrame{Event: EventJoinError, Data: toAppError(err).Message})
	}
	return nil, err
}

func (d *Dispatcher) handleReady(c *Connection, data json.RawMessage) (any, error) {
	r, nickname, err := d.boundRoom(c, data)
	if err != nil {
		return nil, err
	}
	return nil, r.ReadyNextRound(nickname)
}

func (d *Dispatcher) handleRequestHand(c *Connection, data json.RawMessage) (any, error) {
	r, nickname, err := d.boundRoom(c, data)
	if err != nil {
		return nil, err
	}
	return nil, r.RequestHand(nickname)
}

// handlePlayerList 未知房间返回空列表
func (d *Dispatcher) handlePlayerList(c *Connection, data json.RawMessage) (any, error) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if req.RoomCode == "" {
		req.RoomCode, _, _ = c.Binding()
	}
	r, err := d.rooms.Get(req.RoomCode)
	if err != nil {
		return []string{}, nil
	}
	return r.Players(), nil
}

func (d *Dispatcher) handleDraw(c *Connection, data json.RawMessage) (any, error) {
	r, nickname, err := d.boundRoom(c, data)
	if err != nil {
		return nil, err
	}
	return nil, r.Draw(nickname)
}

func (d *Dispatcher) handleSubmit(c *Connection, data json.RawMessage) (any, error) {
	var req cardRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	r, nickname, err := d.bound(c, req.RoomCode)
	if err != nil {
		return nil, err
	}
	return nil, r.Submit(nickname, req.Card)
}

func (d *Dispatcher) handleBbung(c *Connection, data json.RawMessage) (any, error) {
	var req bbungRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	r, nickname, err := d.bound(c, req.RoomCode)
	if err != nil {
		return nil, err
	}
	return nil, r.Bbung(nickname, req.Cards)
}

func (d *Dispatcher) handleBbungExtra(c *Connection, data json.RawMessage) (any, error) {
	var req cardRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	r, nickname, err := d.bound(c, req.RoomCode)
	if err != nil {
		return nil, err
	}
	return nil, r.BbungExtra(nickname, req.Card)
}

// handleStop 载荷中的 stopper 仅作参考，以连接身份为准
func (d *Dispatcher) handleStop(c *Connection, data json.RawMessage) (any, error) {
	var req stopRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	r, nickname, err := d.bound(c, req.RoomCode)
	if err != nil {
		return nil, err
	}
	if req.Stopper != "" && req.Stopper != nickname {
		return nil, room.ErrNotYourTurn
	}
	return nil, r.Stop(nickname, req.Hand)
}

func (d *Dispatcher) handleHandEmpty(c *Connection, data json.RawMessage) (any, error) {
	r, nickname, err := d.boundRoom(c, data)
	if err != nil {
		return nil, err
	}
	return nil, r.ClaimEnd(nickname, score.ReasonHandEmpty)
}

// handleClaim 客户端宣告回合结束，stop 按喊停处理，其余原因由服务端校验手牌
func (d *Dispatcher) handleClaim(c *Connection, data json.RawMessage) (any, error) {
	var req claimRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	r, nickname, err := d.bound(c, req.RoomCode)
	if err != nil {
		return nil, err
	}
	reason := score.Reason(req.Reason)
	if reason == score.ReasonStop {
		return nil, r.Stop(nickname, nil)
	}
	return nil, r.ClaimEnd(nickname, reason)
}

func (d *Dispatcher) handleChat(c *Connection, data json.RawMessage) (any, error) {
	var req chatRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	r, nickname, err := d.bound(c, req.RoomCode)
	if err != nil {
		return nil, err
	}
	if !c.AllowChat() {
		return nil, apperrors.ErrTooManyRequest
	}
	return nil, r.Chat(nickname, req.Message)
}

func (d *Dispatcher) handleBagaji(c *Connection, data json.RawMessage) (any, error) {
	var req bagajiRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	r, nickname, err := d.bound(c, req.RoomCode)
	if err != nil {
		return nil, err
	}
	return nil, r.DeclareBagaji(nickname, req.IsBagaji)
}

// handleRoundResult 查询不要求已加入房间
func (d *Dispatcher) handleRoundResult(c *Connection, data json.RawMessage) (any, error) {
	r, err := d.lookup(c, data)
	if err != nil {
		return nil, err
	}
	result, err := r.RoundResult()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) handleFinalScores(c *Connection, data json.RawMessage) (any, error) {
	r, err := d.lookup(c, data)
	if err != nil {
		return nil, err
	}
	scores, err := r.FinalScores()
	if err != nil {
		return nil, err
	}
	return map[string]any{"scores": scores}, nil
}

func (d *Dispatcher) lookup(c *Connection, data json.RawMessage) (*room.Room, error) {
	var req roomRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, apperrors.ErrInvalidParams.Wrap(err)
		}
	}
	if req.RoomCode == "" {
		req.RoomCode, _, _ = c.Binding()
	}
	return d.rooms.Get(req.RoomCode)
}

func (d *Dispatcher) handlePing(c *Connection, data json.RawMessage) (any, error) {
	d.send(c, outboundFrame{Event: EventPong})
	return nil, nil
}
