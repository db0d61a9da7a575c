// Package tasks 定义了发送到 Kafka 的事件结构。
package tasks

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"launchgpt-go/internal/model"
	"launchgpt-go/pkg/payload"
)

// 事件类型
const (
	EventChatCreated    = "chat.created"
	EventHistoryCleared = "history.cleared"
)

// ChatEvent 描述聊天记录的变化。history.cleared 事件只携带 UserID。
type ChatEvent struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	ChatID     uint          `json:"chat_id,omitempty"`
	UserID     uint          `json:"user_id"`
	Prompt     string        `json:"prompt,omitempty"`
	RawOutput  string        `json:"raw_output,omitempty"`
	Structured bool          `json:"structured"`
	Response   payload.Value `json:"response"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Key 返回事件的分区键，同一用户的事件进入同一分区以保持顺序。
func (e ChatEvent) Key() string {
	return strconv.FormatUint(uint64(e.UserID), 10)
}

// NewChatCreated 根据已保存的记录构建 chat.created 事件。
func NewChatCreated(rec *model.ChatRecord) ChatEvent {
	return ChatEvent{
		ID:         uuid.NewString(),
		Type:       EventChatCreated,
		ChatID:     rec.ID,
		UserID:     rec.UserID,
		Prompt:     rec.Prompt,
		RawOutput:  rec.RawOutput,
		Structured: rec.Structured,
		Response:   rec.Response,
		CreatedAt:  rec.CreatedAt,
	}
}

// NewHistoryCleared 构建 history.cleared 事件。
func NewHistoryCleared(userID uint, at time.Time) ChatEvent {
	return ChatEvent{
		ID:        uuid.NewString(),
		Type:      EventHistoryCleared,
		UserID:    userID,
		CreatedAt: at,
	}
}
