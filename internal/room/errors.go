package room

import "errors"

// 房间错误定义
//
// 协调器的每个操作返回 nil 表示已生效，返回以下错误之一表示被拒绝，
// 被拒绝的操作不会修改任何状态。

var (
	ErrRoomNotFound     = errors.New("ROOM_NOT_FOUND")
	ErrInvalidRoomCode  = errors.New("INVALID_ROOM_CODE")
	ErrInvalidNickname  = errors.New("INVALID_NICKNAME")
	ErrNicknameTaken    = errors.New("NICKNAME_TAKEN")
	ErrRoomFull         = errors.New("ROOM_FULL")
	ErrNotInRoom        = errors.New("NOT_IN_ROOM")
	ErrGameInProgress   = errors.New("GAME_IN_PROGRESS")
	ErrGameNotStarted   = errors.New("GAME_NOT_STARTED")
	ErrGameOver         = errors.New("GAME_OVER")
	ErrPlayerCount      = errors.New("INVALID_PLAYER_COUNT")
	ErrRoundNotActive   = errors.New("ROUND_NOT_ACTIVE")
	ErrRoundInProgress  = errors.New("ROUND_IN_PROGRESS")
	ErrNotYourTurn      = errors.New("NOT_YOUR_TURN")
	ErrAlreadyDrawn     = errors.New("ALREADY_DRAWN")
	ErrMustDrawFirst    = errors.New("MUST_DRAW_FIRST")
	ErrDeckEmpty        = errors.New("DECK_EMPTY")
	ErrCardNotInHand    = errors.New("CARD_NOT_IN_HAND")
	ErrInvalidBbung     = errors.New("INVALID_BBUNG")
	ErrRankMismatch     = errors.New("RANK_MISMATCH")
	ErrNothingToSnap    = errors.New("NOTHING_TO_SNAP")
	ErrSelfSnap         = errors.New("SELF_SNAP")
	ErrBbungPending     = errors.New("BBUNG_PENDING")
	ErrNoPendingBbung   = errors.New("NO_PENDING_BBUNG")
	ErrNotBbunger       = errors.New("NOT_BBUNGER")
	ErrHandMismatch     = errors.New("HAND_MISMATCH")
	ErrInvalidClaim     = errors.New("INVALID_CLAIM")
	ErrClaimUnsatisfied = errors.New("CLAIM_NOT_SATISFIED")
	ErrEmptyMessage     = errors.New("EMPTY_MESSAGE")
	ErrMessageTooLong   = errors.New("MESSAGE_TOO_LONG")
	ErrNoRoundResult    = errors.New("NO_ROUND_RESULT")
	ErrNoScores         = errors.New("NO_SCORES")

	// errRoomClosed 房间已被销毁，Manager 会用新房间重试
	errRoomClosed = errors.New("ROOM_CLOSED")
)
