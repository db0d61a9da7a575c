// Package pipeline 定义了聊天事件的后台处理流程。
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"launchgpt-go/internal/model"
	"launchgpt-go/pkg/log"
	"launchgpt-go/pkg/payload"
	"launchgpt-go/pkg/render"
	"launchgpt-go/pkg/tasks"
)

// TranscriptStore 保存原始对话记录，由 storage.TranscriptStore 实现。
type TranscriptStore interface {
	Put(ctx context.Context, userID, chatID uint, data []byte) error
	RemoveUser(ctx context.Context, userID uint) error
}

// ChatIndexer 维护检索索引，由 es.ChatIndex 实现。
type ChatIndexer interface {
	IndexChat(ctx context.Context, doc model.ChatDocument) error
	DeleteUserChats(ctx context.Context, userID uint) error
}

// Transcript 是归档到对象存储中的原始对话。
type Transcript struct {
	ChatID     uint          `json:"chat_id"`
	UserID     uint          `json:"user_id"`
	Prompt     string        `json:"prompt"`
	RawOutput  string        `json:"raw_output"`
	Structured bool          `json:"structured"`
	Response   payload.Value `json:"response"`
	CreatedAt  string        `json:"created_at"`
}

// Archiver 处理 chat.created 与 history.cleared 事件。
type Archiver struct {
	store   TranscriptStore
	indexer ChatIndexer
}

// NewArchiver 创建一个新的 Archiver 实例。
func NewArchiver(store TranscriptStore, indexer ChatIndexer) *Archiver {
	return &Archiver{store: store, indexer: indexer}
}

// Process 根据事件类型分发。未知类型直接忽略。
func (a *Archiver) Process(ctx context.Context, event tasks.ChatEvent) error {
	switch event.Type {
	case tasks.EventChatCreated:
		return a.archive(ctx, event)
	case tasks.EventHistoryCleared:
		return a.purge(ctx, event.UserID)
	default:
		log.Warnf("[Archiver] 忽略未知事件类型: %s", event.Type)
		return nil
	}
}

func (a *Archiver) archive(ctx context.Context, event tasks.ChatEvent) error {
	log.Infof("[Archiver] 归档聊天记录, ChatID: %d, UserID: %d", event.ChatID, event.UserID)

	// 1. 上传原始对话
	data, err := json.Marshal(Transcript{
		ChatID:     event.ChatID,
		UserID:     event.UserID,
		Prompt:     event.Prompt,
		RawOutput:  event.RawOutput,
		Structured: event.Structured,
		Response:   event.Response,
		CreatedAt:  event.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("序列化对话记录失败: %w", err)
	}
	if err := a.store.Put(ctx, event.UserID, event.ChatID, data); err != nil {
		return err
	}

	// 2. 写入检索索引，结构化内容使用渲染后的纯文本
	content := event.RawOutput
	if event.Structured {
		content = render.PlainText(render.Render(event.Response, nil))
	}
	doc := model.ChatDocument{
		ChatID:     event.ChatID,
		UserID:     event.UserID,
		Prompt:     event.Prompt,
		Content:    content,
		Structured: event.Structured,
		CreatedAt:  event.CreatedAt,
	}
	if err := a.indexer.IndexChat(ctx, doc); err != nil {
		return fmt.Errorf("索引聊天记录失败: %w", err)
	}
	return nil
}

// purge 同时清理索引与对象存储，两边的错误合并返回。
func (a *Archiver) purge(ctx context.Context, userID uint) error {
	log.Infof("[Archiver] 清理用户归档, UserID: %d", userID)
	return errors.Join(
		a.indexer.DeleteUserChats(ctx, userID),
		a.store.RemoveUser(ctx, userID),
	)
}
