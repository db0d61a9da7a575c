// Package llm 提供调用 OpenAI 兼容聊天补全接口的客户端。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"launchgpt-go/internal/config"
	"launchgpt-go/pkg/log"
)

// ErrNoContent 表示接口返回成功但没有任何内容。
var ErrNoContent = errors.New("no content returned from model")

// StatusError 表示接口返回了非 200 状态码。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat api returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable 报告该状态码是否值得重试（429 与 5xx）。
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client 定义了 LLM 客户端的接口。
type Client interface {
	// Complete 发送消息并返回模型的完整回复文本。
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIClient struct {
	cfg     config.LLMConfig
	client  *http.Client
	timeout time.Duration
	retries int
	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option 用于定制客户端。
type Option func(*openAIClient)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *openAIClient) { c.client = hc }
}

// NewClient 根据配置创建客户端。每次尝试的超时为 cfg.Timeout（默认 60s），
// 传输错误、429 与 5xx 最多重试 cfg.MaxRetries 次，退避时间从 cfg.Backoff 开始翻倍。
func NewClient(cfg config.LLMConfig, opts ...Option) Client {
	c := &openAIClient{
		cfg:     cfg,
		client:  &http.Client{},
		timeout: cfg.Timeout,
		retries: cfg.MaxRetries,
		backoff: cfg.Backoff,
		sleep:   sleepContext,
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.backoff <= 0 {
		c.backoff = 500 * time.Millisecond
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *openAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(c.buildRequest(messages))
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			log.Warnw("retrying chat completion", "attempt", attempt, "wait", wait.String(), "error", lastErr)
			if err := c.sleep(ctx, wait); err != nil {
				return "", err
			}
		}

		content, err := c.do(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			return "", err
		}
	}
	return "", lastErr
}

func (c *openAIClient) buildRequest(messages []Message) chatRequest {
	req := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
	}
	// 只注入非零的生成参数
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		req.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		req.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		req.MaxTokens = &m
	}
	return req
}

// do 执行一次请求，超时只作用于本次尝试。
func (c *openAIClient) do(ctx context.Context, body []byte) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrNoContent
	}
	return parsed.Choices[0].Message.Content, nil
}

// retryable 调用方取消时不重试；状态码错误按 Retryable 判断；其余传输错误重试。
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	if errors.Is(err, ErrNoContent) {
		return false
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
