package model

import (
	"time"

	"launchgpt-go/pkg/payload"
)

// ChatRecord 代表一次问答交互。Response 以 JSON 列保存；模型输出无法解析时
// Structured 为 false，Response 为原始文本字符串。
type ChatRecord struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	UserID     uint          `gorm:"index:idx_chat_user_created,priority:1;not null" json:"userId"`
	Prompt     string        `gorm:"type:text;not null" json:"prompt"`
	Response   payload.Value `gorm:"type:json;serializer:json" json:"response"`
	Structured bool          `gorm:"not null;default:false" json:"structured"`
	RawOutput  string        `gorm:"type:longtext" json:"rawOutput"`
	CreatedAt  time.Time     `gorm:"index:idx_chat_user_created,priority:2;autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatRecord) TableName() string {
	return "chat_records"
}

// ChatDocument 是存储在 Elasticsearch 中的聊天文档。
type ChatDocument struct {
	ChatID     uint      `json:"chat_id"`
	UserID     uint      `json:"user_id"`
	Prompt     string    `json:"prompt"`
	Content    string    `json:"content"`
	Structured bool      `json:"structured"`
	CreatedAt  time.Time `json:"created_at"`
}

// SearchHit 是返回给前端的搜索结果。
type SearchHit struct {
	ChatID    uint      `json:"chatId"`
	Prompt    string    `json:"prompt"`
	Snippet   string    `json:"snippet"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}
