package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 请求相关 10000-10999
	CodeInvalidParams = 10001
	CodeUnknownEvent  = 10002
	CodeNotJoined     = 10003
	CodeTooManyReqest = 10004

	// 房间相关 20000-20999
	CodeRoomNotFound    = 20001
	CodeInvalidRoomCode = 20002
	CodeInvalidNickname = 20003
	CodeNicknameTaken   = 20004
	CodeRoomFull        = 20005
	CodeNotInRoom       = 20006
	CodeGameInProgress  = 20007
	CodeGameNotStarted  = 20008
	CodeGameOver        = 20009
	CodePlayerCount     = 20010

	// 出牌相关 21000-21999
	CodeIllegalAction  = 21001
	CodeClaimRejected  = 21002
	CodeInvalidMessage = 21003
	CodeNoRoundResult  = 21004
	CodeNoScores       = 21005

	// 系统错误 50000-50999
	CodeServerError = 50001
	CodeUnavailable = 50002
)

// ============== 预定义错误 ==============

// 请求相关
var (
	ErrInvalidParams  = NewError(CodeInvalidParams, "invalid payload")
	ErrUnknownEvent   = NewError(CodeUnknownEvent, "unknown event")
	ErrNotJoined      = NewError(CodeNotJoined, "connection has not joined a room")
	ErrTooManyRequest = NewError(CodeTooManyReqest, "too many requests")
)

// 房间相关
var (
	ErrRoomNotFound    = NewError(CodeRoomNotFound, "room not found")
	ErrInvalidRoomCode = NewError(CodeInvalidRoomCode, "invalid room code")
	ErrInvalidNickname = NewError(CodeInvalidNickname, "invalid nickname")
	ErrNicknameTaken   = NewError(CodeNicknameTaken, "nickname already in use")
	ErrRoomFull        = NewError(CodeRoomFull, "room is full")
	ErrNotInRoom       = NewError(CodeNotInRoom, "not in room")
	ErrGameInProgress  = NewError(CodeGameInProgress, "game in progress")
	ErrGameNotStarted  = NewError(CodeGameNotStarted, "game not started")
	ErrGameOver        = NewError(CodeGameOver, "game is over")
	ErrPlayerCount     = NewError(CodePlayerCount, "invalid player count")
)

// 出牌相关
var (
	ErrIllegalAction  = NewError(CodeIllegalAction, "illegal action")
	ErrClaimRejected  = NewError(CodeClaimRejected, "claim rejected")
	ErrInvalidMessage = NewError(CodeInvalidMessage, "invalid chat message")
	ErrNoRoundResult  = NewError(CodeNoRoundResult, "no round result")
	ErrNoScores       = NewError(CodeNoScores, "no scores yet")
)

// 系统相关
var (
	ErrServerError = NewError(CodeServerError, "internal server error")
	ErrUnavailable = NewError(CodeUnavailable, "service unavailable")
)
