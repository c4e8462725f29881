package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinhan04/bbungkabi-vercel/internal/card"
	"github.com/jinhan04/bbungkabi-vercel/internal/room"
	apperrors "github.com/jinhan04/bbungkabi-vercel/pkg/errors"
)

type receivedFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Seq   uint64          `json:"seq"`
	Ack   uint64          `json:"ack"`
}

// fakeTransport 记录写出的帧
type fakeTransport struct {
	mu     sync.Mutex
	frames []receivedFrame
	closed bool
	reason string
}

func (f *fakeTransport) WriteFrame(data []byte) error {
	var frame receivedFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeTransport) Close(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.reason = reason
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return "127.0.0.1:0" }
func (f *fakeTransport) Kind() string { return "fake" }

func (f *fakeTransport) find(event string) (receivedFrame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		if f.frames[i].Event == event {
			return f.frames[i], true
		}
	}
	return receivedFrame{}, false
}

func (f *fakeTransport) findAck(ack uint64) (receivedFrame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fr := range f.frames {
		if fr.Event == EventAck && fr.Ack == ack {
			return fr, true
		}
	}
	return receivedFrame{}, false
}

func (f *fakeTransport) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, fr := range f.frames {
		if fr.Event == event {
			n++
		}
	}
	return n
}

func waitFrame(t *testing.T, f *fakeTransport, event string) receivedFrame {
	t.Helper()
	var got receivedFrame
	require.Eventually(t, func() bool {
		var ok bool
		got, ok = f.find(event)
		return ok
	}, time.Second, 5*time.Millisecond, "未收到事件 %s", event)
	return got
}

func waitAck(t *testing.T, f *fakeTransport, ack uint64) ackReply {
	t.Helper()
	var got receivedFrame
	require.Eventually(t, func() bool {
		var ok bool
		got, ok = f.findAck(ack)
		return ok
	}, time.Second, 5*time.Millisecond, "未收到应答 %d", ack)

	var reply ackReply
	require.NoError(t, json.Unmarshal(got.Data, &reply))
	return reply
}

type testEnv struct {
	rooms      *room.Manager
	hub        *Hub
	dispatcher *Dispatcher
}

func newTestEnv(t *testing.T, report bool) *testEnv {
	t.Helper()
	hub := NewHub()
	rooms := room.NewManager(hub, room.ManagerOptions{Shuffler: card.NewSeededShuffler(7)})
	t.Cleanup(func() { rooms.Shutdown(context.Background()) })
	return &testEnv{
		rooms:      rooms,
		hub:        hub,
		dispatcher: NewDispatcher(rooms, hub, DispatcherOptions{ReportRejections: report}),
	}
}

func (e *testEnv) connect(t *testing.T) (*Connection, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	c := NewConnection(ft, ConnOptions{SendQueueSize: 64})
	t.Cleanup(func() { c.Close("test done") })
	return c, ft
}

func (e *testEnv) send(c *Connection, event string, data any) {
	payload, _ := json.Marshal(data)
	raw, _ := json.Marshal(map[string]any{"event": event, "data": json.RawMessage(payload)})
	e.dispatcher.Handle(c, raw)
}

func (e *testEnv) request(c *Connection, ack uint64, event string, data any) {
	payload, _ := json.Marshal(data)
	raw, _ := json.Marshal(map[string]any{"event": event, "data": json.RawMessage(payload), "ack": ack})
	e.dispatcher.Handle(c, raw)
}

func join(code, nickname string) map[string]string {
	return map[string]string{"roomCode": code, "nickname": nickname}
}

func TestDispatcherJoinBroadcastsRoster(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceT := env.connect(t)
	bob, bobT := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.send(bob, EventJoinRoom, join("abc", "bob"))

	require.Eventually(t, func() bool {
		fr, ok := aliceT.find(room.EventUpdatePlayers)
		return ok && string(fr.Data) == `["alice","bob"]`
	}, time.Second, 5*time.Millisecond)
	waitFrame(t, bobT, room.EventUpdatePlayers)

	code, nickname, ok := bob.Binding()
	assert.True(t, ok)
	assert.Equal(t, "abc", code)
	assert.Equal(t, "bob", nickname)
	assert.Same(t, bob, env.hub.lookup("abc", "bob"))
}

func TestDispatcherJoinErrors(t *testing.T) {
	env := newTestEnv(t, false)
	alice, _ := env.connect(t)
	imposter, impT := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.request(imposter, 1, EventJoinRoom, join("abc", "alice"))

	reply := waitAck(t, impT, 1)
	assert.False(t, reply.OK)
	assert.Equal(t, apperrors.CodeNicknameTaken, reply.Code)

	fr := waitFrame(t, impT, EventJoinError)
	var msg string
	require.NoError(t, json.Unmarshal(fr.Data, &msg))
	assert.Equal(t, apperrors.ErrNicknameTaken.Message, msg)

	_, _, ok := imposter.Binding()
	assert.False(t, ok, "加入失败不应绑定")
	assert.Same(t, alice, env.hub.lookup("abc", "alice"), "失败的加入不应覆盖原占位")

	env.request(imposter, 2, EventJoinRoom, join("bad code!", "carol"))
	assert.Equal(t, apperrors.CodeInvalidRoomCode, waitAck(t, impT, 2).Code)

	env.request(imposter, 3, EventJoinRoom, join("abc", "   "))
	assert.Equal(t, apperrors.CodeInvalidNickname, waitAck(t, impT, 3).Code)
	assert.Nil(t, env.hub.lookup("abc", ""))
}

func TestDispatcherRejoinIsIdempotent(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceT := env.connect(t)

	env.request(alice, 1, EventJoinRoom, join("abc", "alice"))
	env.request(alice, 2, EventJoinRoom, join("abc", "alice"))

	assert.True(t, waitAck(t, aliceT, 1).OK)
	assert.True(t, waitAck(t, aliceT, 2).OK)

	r, err := env.rooms.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, r.Players())
}

func TestDispatcherJoinOtherRoomLeavesOld(t *testing.T) {
	env := newTestEnv(t, false)
	alice, _ := env.connect(t)
	bob, _ := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.send(bob, EventJoinRoom, join("abc", "bob"))
	env.send(alice, EventJoinRoom, join("xyz", "alice"))

	r, err := env.rooms.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, r.Players())
	assert.Nil(t, env.hub.lookup("abc", "alice"))

	code, _, _ := alice.Binding()
	assert.Equal(t, "xyz", code)
}

func TestDispatcherJoinOtherRoomKeepsSeatOnFailure(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceT := env.connect(t)
	bob, _ := env.connect(t)
	carol, _ := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.send(bob, EventJoinRoom, join("abc", "bob"))
	env.send(carol, EventJoinRoom, join("xyz", "carol"))

	env.request(alice, 3, EventJoinRoom, join("xyz", "carol"))
	assert.Equal(t, apperrors.CodeNicknameTaken, waitAck(t, aliceT, 3).Code)
	env.request(alice, 4, EventJoinRoom, join("xyz", "   "))
	assert.Equal(t, apperrors.CodeInvalidNickname, waitAck(t, aliceT, 4).Code)

	r, err := env.rooms.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, r.Players())
	assert.Same(t, alice, env.hub.lookup("abc", "alice"))
	assert.Same(t, carol, env.hub.lookup("xyz", "carol"))

	code, nickname, ok := alice.Binding()
	require.True(t, ok)
	assert.Equal(t, "abc", code)
	assert.Equal(t, "alice", nickname)
}

func TestDispatcherAckAndRejected(t *testing.T) {
	env := newTestEnv(t, true)
	c, ft := env.connect(t)

	env.request(c, 5, EventDrawCard, map[string]string{"roomCode": "abc"})
	reply := waitAck(t, ft, 5)
	assert.False(t, reply.OK)
	assert.Equal(t, apperrors.CodeNotJoined, reply.Code)
	assert.Equal(t, 0, ft.count(EventRejected), "带 ack 的请求不应再收到 rejected")

	env.send(c, EventDrawCard, map[string]string{"roomCode": "abc"})
	fr := waitFrame(t, ft, EventRejected)
	var payload rejectedPayload
	require.NoError(t, json.Unmarshal(fr.Data, &payload))
	assert.Equal(t, EventDrawCard, payload.Event)
	assert.Equal(t, apperrors.ErrNotJoined.Message, payload.Reason)

	env.request(c, 6, "no-such-event", nil)
	assert.Equal(t, apperrors.CodeUnknownEvent, waitAck(t, ft, 6).Code)
}

func TestDispatcherSilentRejections(t *testing.T) {
	env := newTestEnv(t, false)
	c, ft := env.connect(t)

	env.send(c, EventDrawCard, map[string]string{"roomCode": "abc"})
	env.request(c, 1, EventPing, nil)
	waitFrame(t, ft, EventPong)
	waitAck(t, ft, 1)
	assert.Equal(t, 0, ft.count(EventRejected))
}

func TestDispatcherMalformedFrameIgnored(t *testing.T) {
	env := newTestEnv(t, true)
	c, ft := env.connect(t)

	env.dispatcher.Handle(c, []byte("not json"))
	env.dispatcher.Handle(c, []byte(`{"data":{}}`))
	env.request(c, 1, EventPing, nil)
	waitAck(t, ft, 1)
	assert.Equal(t, 0, ft.count(EventRejected))
}

func TestDispatcherStartAndPlay(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceT := env.connect(t)
	bob, bobT := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.send(bob, EventJoinRoom, join("abc", "bob"))
	env.request(alice, 1, EventStartGame, map[string]any{"roomCode": "abc", "maxPlayers": 6})
	require.True(t, waitAck(t, aliceT, 1).OK)

	waitFrame(t, aliceT, room.EventGameStarted)
	deal := waitFrame(t, bobT, room.EventDealCards)
	var dealt room.DealCards
	require.NoError(t, json.Unmarshal(deal.Data, &dealt))
	assert.Len(t, dealt.Hand, room.HandSize)

	r, err := env.rooms.Get("abc")
	require.NoError(t, err)
	current := r.Snapshot().CurrentPlayer
	player, playerT := alice, aliceT
	other, otherT := bob, bobT
	if current == "bob" {
		player, playerT, other, otherT = bob, bobT, alice, aliceT
	}

	env.request(other, 2, EventDrawCard, map[string]string{"roomCode": "abc"})
	reply := waitAck(t, otherT, 2)
	assert.False(t, reply.OK)
	assert.Equal(t, apperrors.CodeIllegalAction, reply.Code)

	env.request(player, 3, EventDrawCard, map[string]string{"roomCode": "abc"})
	require.True(t, waitAck(t, playerT, 3).OK)
	drawn := waitFrame(t, playerT, room.EventDrawnCard)
	var dc room.DrawnCard
	require.NoError(t, json.Unmarshal(drawn.Data, &dc))
	waitFrame(t, otherT, room.EventPlayerDrawn)

	env.request(player, 4, EventSubmitCard, map[string]any{"roomCode": "abc", "card": dc.Card})
	require.True(t, waitAck(t, playerT, 4).OK)

	require.Eventually(t, func() bool {
		fr, ok := otherT.find(room.EventTurnInfo)
		if !ok {
			return false
		}
		var ti room.TurnInfo
		return json.Unmarshal(fr.Data, &ti) == nil && ti.CurrentPlayer != current
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcherStartFailureSendsJoinError(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceT := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.send(alice, EventStartGame, map[string]any{"roomCode": "abc"})
	env.request(alice, 1, EventStartGame, map[string]any{"roomCode": "abc"})

	reply := waitAck(t, aliceT, 1)
	assert.Equal(t, apperrors.CodeGameInProgress, reply.Code)
	waitFrame(t, aliceT, EventJoinError)
}

func TestDispatcherStopWithForeignStopper(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceT := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.send(alice, EventStartGame, map[string]any{"roomCode": "abc"})
	env.request(alice, 1, EventStop, map[string]any{"roomCode": "abc", "stopper": "mallory"})

	reply := waitAck(t, aliceT, 1)
	assert.False(t, reply.OK)
	assert.Equal(t, apperrors.CodeIllegalAction, reply.Code)

	r, err := env.rooms.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, room.PhaseRoundActive.String(), r.Snapshot().Phase)

	env.request(alice, 2, EventStop, map[string]any{"roomCode": "abc", "stopper": "alice"})
	require.True(t, waitAck(t, aliceT, 2).OK)
	waitFrame(t, aliceT, room.EventRoundEnded)

	env.request(alice, 3, EventGetRoundResult, map[string]string{"roomCode": "abc"})
	res := waitAck(t, aliceT, 3)
	assert.True(t, res.OK)
	assert.NotNil(t, res.Result)
}

func TestDispatcherClaimRejected(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceT := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.send(alice, EventStartGame, map[string]any{"roomCode": "abc"})

	env.request(alice, 1, EventHandEmpty, map[string]string{"roomCode": "abc"})
	assert.Equal(t, apperrors.CodeClaimRejected, waitAck(t, aliceT, 1).Code)

	env.request(alice, 2, EventClaimRoundEnd, map[string]string{"roomCode": "abc", "reason": "bogus"})
	assert.Equal(t, apperrors.CodeClaimRejected, waitAck(t, aliceT, 2).Code)
}

func TestDispatcherQueries(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceT := env.connect(t)

	env.request(alice, 1, EventGetPlayerList, map[string]string{"roomCode": "nowhere"})
	reply := waitAck(t, aliceT, 1)
	assert.True(t, reply.OK)
	assert.Equal(t, []any{}, reply.Result)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.request(alice, 2, EventGetPlayerList, map[string]string{"roomCode": "abc"})
	assert.Equal(t, []any{"alice"}, waitAck(t, aliceT, 2).Result)

	env.request(alice, 3, EventGetFinalScores, map[string]string{"roomCode": "abc"})
	assert.Equal(t, apperrors.CodeNoScores, waitAck(t, aliceT, 3).Code)

	env.request(alice, 4, EventGetRoundResult, map[string]string{"roomCode": "nowhere"})
	assert.Equal(t, apperrors.CodeRoomNotFound, waitAck(t, aliceT, 4).Code)

	env.request(alice, 5, EventRequestHand, map[string]string{"roomCode": "abc"})
	assert.True(t, waitAck(t, aliceT, 5).OK)
	waitFrame(t, aliceT, room.EventDealCards)
}

func TestDispatcherChatCooldown(t *testing.T) {
	env := newTestEnv(t, false)
	ft := &fakeTransport{}
	alice := NewConnection(ft, ConnOptions{ChatCooldown: time.Hour})
	t.Cleanup(func() { alice.Close("test done") })

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.request(alice, 1, EventChatMessage, map[string]string{"roomCode": "abc", "message": "안녕"})
	env.request(alice, 2, EventChatMessage, map[string]string{"roomCode": "abc", "message": "again"})

	assert.True(t, waitAck(t, ft, 1).OK)
	assert.Equal(t, apperrors.CodeTooManyReqest, waitAck(t, ft, 2).Code)
	assert.Equal(t, 1, ft.count(room.EventChatMessage))
}

func TestDispatcherRateLimit(t *testing.T) {
	env := newTestEnv(t, false)
	ft := &fakeTransport{}
	c := NewConnection(ft, ConnOptions{EventsPerSecond: 0.001, Burst: 2})
	t.Cleanup(func() { c.Close("test done") })

	for i := uint64(1); i <= 3; i++ {
		env.request(c, i, EventPing, nil)
	}
	assert.True(t, waitAck(t, ft, 2).OK)
	assert.Equal(t, apperrors.CodeTooManyReqest, waitAck(t, ft, 3).Code)
}

func TestDispatcherDisconnectLeavesRoom(t *testing.T) {
	env := newTestEnv(t, false)
	alice, _ := env.connect(t)
	bob, bobT := env.connect(t)

	env.send(alice, EventJoinRoom, join("abc", "alice"))
	env.send(bob, EventJoinRoom, join("abc", "bob"))

	env.dispatcher.Disconnect(alice)
	require.Eventually(t, func() bool {
		fr, ok := bobT.find(room.EventUpdatePlayers)
		return ok && string(fr.Data) == `["bob"]`
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, env.hub.lookup("abc", "alice"))

	env.send(bob, EventLeaveRoom, map[string]string{"roomCode": "abc"})
	_, err := env.rooms.Get("abc")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.Zero(t, boundRooms(env.hub))

	// 断线后重复调用无副作用
	env.dispatcher.Disconnect(alice)
	env.dispatcher.Disconnect(bob)
}

func TestDispatcherConcurrentJoins(t *testing.T) {
	env := newTestEnv(t, false)

	var wg sync.WaitGroup
	for i := range 10 {
		c, _ := env.connect(t)
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.send(c, EventJoinRoom, join("abc", fmt.Sprintf("p%d", i)))
		}()
	}
	wg.Wait()

	r, err := env.rooms.Get("abc")
	require.NoError(t, err)
	assert.Len(t, r.Players(), room.DefaultMaxPlayers)
}
