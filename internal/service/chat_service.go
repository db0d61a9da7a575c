package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"launchgpt-go/internal/model"
	"launchgpt-go/internal/repository"
	"launchgpt-go/pkg/extract"
	"launchgpt-go/pkg/llm"
	"launchgpt-go/pkg/log"
	"launchgpt-go/pkg/render"
	"launchgpt-go/pkg/tasks"
)

// EventPublisher 发布聊天事件，由 Kafka 生产者实现。
type EventPublisher interface {
	Publish(ctx context.Context, event tasks.ChatEvent) error
}

// TranscriptLinker 为归档的原始对话生成下载链接，由 MinIO 存储实现。
type TranscriptLinker interface {
	PresignedURL(ctx context.Context, userID, chatID uint, expiry time.Duration) (string, error)
}

// SendResult 是一次发送的结果。Structured 为 false 时 Sections 为空，
// Record.RawOutput 保存模型原文。
type SendResult struct {
	Record     *model.ChatRecord
	Structured bool
	Strategy   string
	Sections   []render.Section
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	Send(ctx context.Context, userID uint, message string) (*SendResult, error)
	History(ctx context.Context, userID uint) ([]model.ChatRecord, error)
	Clear(ctx context.Context, userID uint) (int64, error)
	TranscriptURL(ctx context.Context, userID, chatID uint) (string, error)
}

// ChatOptions 是 ChatService 的可选依赖与参数。
type ChatOptions struct {
	Prompt        llm.Prompt
	HistoryLimit  int
	Cache         repository.HistoryCache
	Publisher     EventPublisher
	Transcripts   TranscriptLinker
	PresignExpiry time.Duration
	Now           func() time.Time
}

type chatService struct {
	llmClient llm.Client
	chatRepo  repository.ChatRepository
	opts      ChatOptions
}

// NewChatService 创建一个新的 ChatService 实例。Cache、Publisher、Transcripts 可以为 nil。
func NewChatService(llmClient llm.Client, chatRepo repository.ChatRepository, opts ChatOptions) ChatService {
	if opts.Prompt.System == "" || opts.Prompt.UserTemplate == "" {
		opts.Prompt = llm.NewPrompt(opts.Prompt.System, opts.Prompt.UserTemplate)
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &chatService{llmClient: llmClient, chatRepo: chatRepo, opts: opts}
}

// Send 调用模型、提取结构化内容并保存记录。模型调用失败时不保存任何记录。
func (s *chatService) Send(ctx context.Context, userID uint, message string) (*SendResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	// 1. 调用模型
	text, err := s.llmClient.Complete(ctx, s.opts.Prompt.Messages(message))
	if err != nil {
		log.Errorw("调用 AI 接口失败", "userId", userID, "error", err)
		return nil, &ProviderError{Err: err}
	}

	// 2. 提取结构化内容
	res := extract.Extract(text)
	if !res.IsStructured() {
		log.Warnw("模型输出无法解析为 JSON 对象", "userId", userID, "length", len(text))
	}

	// 3. 保存记录
	record := &model.ChatRecord{
		UserID:     userID,
		Prompt:     message,
		Response:   res.Payload,
		Structured: res.IsStructured(),
		RawOutput:  text,
		CreatedAt:  s.opts.Now(),
	}
	if err := s.chatRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("保存聊天记录失败: %w", err)
	}

	s.invalidate(ctx, userID)
	s.publish(ctx, tasks.NewChatCreated(record))

	out := &SendResult{Record: record, Structured: res.IsStructured(), Strategy: res.Strategy}
	if res.IsStructured() {
		out.Sections = render.Render(res.Payload, nil)
	}
	return out, nil
}

// History 返回最近的记录，按创建时间倒序。优先读缓存，缓存异常时回退到数据库。
// 代数在读库之前取得，并发的 Send/Clear 会使这次写入的缓存失效。
func (s *chatService) History(ctx context.Context, userID uint) ([]model.ChatRecord, error) {
	cached := false
	var gen int64
	if s.opts.Cache != nil {
		var err error
		gen, err = s.opts.Cache.Generation(ctx, userID)
		if err != nil {
			log.Warnw("读取历史缓存代数失败", "userId", userID, "error", err)
		} else {
			cached = true
			records, ok, err := s.opts.Cache.Get(ctx, userID, gen)
			if err != nil {
				log.Warnw("读取历史缓存失败", "userId", userID, "error", err)
			} else if ok {
				return records, nil
			}
		}
	}

	records, err := s.chatRepo.ListByUser(ctx, userID, s.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("查询聊天历史失败: %w", err)
	}
	if cached {
		if err := s.opts.Cache.Set(ctx, userID, gen, records); err != nil {
			log.Warnw("写入历史缓存失败", "userId", userID, "error", err)
		}
	}
	return records, nil
}

// Clear 删除用户自己的全部记录。
func (s *chatService) Clear(ctx context.Context, userID uint) (int64, error) {
	n, err := s.chatRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("清空聊天历史失败: %w", err)
	}
	s.invalidate(ctx, userID)
	s.publish(ctx, tasks.NewHistoryCleared(userID, s.opts.Now()))
	log.Infow("聊天历史已清空", "userId", userID, "deleted", n)
	return n, nil
}

// TranscriptURL 返回用户某条记录的原始对话下载链接。
func (s *chatService) TranscriptURL(ctx context.Context, userID, chatID uint) (string, error) {
	if _, err := s.chatRepo.FindByID(ctx, userID, chatID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrChatNotFound
		}
		return "", fmt.Errorf("查询聊天记录失败: %w", err)
	}
	if s.opts.Transcripts == nil {
		return "", errors.New("transcript storage is not configured")
	}
	return s.opts.Transcripts.PresignedURL(ctx, userID, chatID, s.opts.PresignExpiry)
}

func (s *chatService) invalidate(ctx context.Context, userID uint) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Invalidate(ctx, userID); err != nil {
		log.Warnw("清除历史缓存失败", "userId", userID, "error", err)
	}
}

// publish 发布失败只记录日志。使用脱离请求的上下文，客户端断开不影响事件投递。
func (s *chatService) publish(ctx context.Context, event tasks.ChatEvent) {
	if s.opts.Publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.opts.Publisher.Publish(pubCtx, event); err != nil {
		log.Errorw("发布聊天事件失败", "event", event.Type, "userId", event.UserID, "error", err)
	}
}
