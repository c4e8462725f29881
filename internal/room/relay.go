package room

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Chat 转发聊天消息
func (r *Room) Chat(nickname, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxChatLen {
		return ErrMessageTooLong
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seatOf(nickname) < 0 {
		return ErrNotInRoom
	}
	r.touch()
	r.broadcast(EventChatMessage, ChatMessage{
		Nickname: nickname,
		Message:  message,
		SentAt:   time.Now().UnixMilli(),
	})
	return nil
}

// DeclareBagaji 转发客户端计算的牌型宣告，不参与计分
func (r *Room) DeclareBagaji(nickname string, isBagaji bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seatOf(nickname) < 0 {
		return ErrNotInRoom
	}
	r.touch()
	r.broadcast(EventBagajiDeclared, BagajiDeclared{Nickname: nickname, IsBagaji: isBagaji})
	return nil
}
