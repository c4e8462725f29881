package gateway

import (
	"errors"

	"github.com/jinhan04/bbungkabi-vercel/internal/room"
	apperrors "github.com/jinhan04/bbungkabi-vercel/pkg/errors"
)

var roomErrors = []struct {
	err error
	app *apperrors.AppError
}{
	{room.ErrRoomNotFound, apperrors.ErrRoomNotFound},
	{room.ErrInvalidRoomCode, apperrors.ErrInvalidRoomCode},
	{room.ErrInvalidNickname, apperrors.ErrInvalidNickname},
	{room.ErrNicknameTaken, apperrors.ErrNicknameTaken},
	{room.ErrRoomFull, apperrors.ErrRoomFull},
	{room.ErrNotInRoom, apperrors.ErrNotInRoom},
	{room.ErrGameInProgress, apperrors.ErrGameInProgress},
	{room.ErrGameNotStarted, apperrors.ErrGameNotStarted},
	{room.ErrGameOver, apperrors.ErrGameOver},
	{room.ErrPlayerCount, apperrors.ErrPlayerCount},
	{room.ErrInvalidClaim, apperrors.ErrClaimRejected},
	{room.ErrClaimUnsatisfied, apperrors.ErrClaimRejected},
	{room.ErrEmptyMessage, apperrors.ErrInvalidMessage},
	{room.ErrMessageTooLong, apperrors.ErrInvalidMessage},
	{room.ErrNoRoundResult, apperrors.ErrNoRoundResult},
	{room.ErrNoScores, apperrors.ErrNoScores},
}

// toAppError 把房间错误转换为带错误码的 AppError，其余出牌类拒绝统一为 ErrIllegalAction
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, m := range roomErrors {
		if errors.Is(err, m.err) {
			return m.app.Wrap(err)
		}
	}
	if isRoomRejection(err) {
		return apperrors.ErrIllegalAction.Wrap(err)
	}
	return apperrors.ErrServerError.Wrap(err)
}

var illegalActions = []error{
	room.ErrRoundNotActive,
	room.ErrRoundInProgress,
	room.ErrNotYourTurn,
	room.ErrAlreadyDrawn,
	room.ErrMustDrawFirst,
	room.ErrDeckEmpty,
	room.ErrCardNotInHand,
	room.ErrInvalidBbung,
	room.ErrRankMismatch,
	room.ErrNothingToSnap,
	room.ErrSelfSnap,
	room.ErrBbungPending,
	room.ErrNoPendingBbung,
	room.ErrNotBbunger,
	room.ErrHandMismatch,
}

func isRoomRejection(err error) bool {
	for _, e := range illegalActions {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// reasonOf 拒绝原因：房间错误取其错误标识，AppError 取消息
func reasonOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			return appErr.Err.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
