package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"launchgpt-go/internal/middleware"
	"launchgpt-go/internal/model"
	"launchgpt-go/internal/service"
	"launchgpt-go/pkg/log"
	"launchgpt-go/pkg/render"
)

const unstructuredMessage = "Could not parse structured JSON response."

// ChatHandler 负责聊天相关的 HTTP 与 WebSocket 接口。
type ChatHandler struct {
	chatService service.ChatService
	upgrader    websocket.Upgrader
}

// NewChatHandler 创建一个新的 ChatHandler。origins 是允许建立 WebSocket 连接的来源。
func NewChatHandler(chatService service.ChatService, origins []string) *ChatHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &ChatHandler{
		chatService: chatService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 非浏览器客户端不带 Origin
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Ping 探测当前会话是否有效。
func (h *ChatHandler) Ping(c *gin.Context) {
	if _, ok := middleware.CurrentIdentity(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendRequest 定义了发送消息的请求体结构。
type SendRequest struct {
	Message string `json:"message"`
}

// Send 处理一次问答。
func (h *ChatHandler) Send(c *gin.Context) {
	id, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": service.ErrEmptyMessage.Error()})
		return
	}
	status, body := h.send(c.Request.Context(), id.UserID, req.Message)
	c.JSON(status, body)
}

// send 返回 /send 与 WebSocket 共用的响应。
func (h *ChatHandler) send(ctx context.Context, userID uint, message string) (int, gin.H) {
	res, err := h.chatService.Send(ctx, userID, message)
	if err != nil {
		var providerErr *service.ProviderError
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			return http.StatusBadRequest, gin.H{"success": false, "error": err.Error()}
		case errors.As(err, &providerErr):
			return http.StatusBadGateway, gin.H{"success": false, "error": "AI provider request failed"}
		default:
			log.Errorw("处理聊天请求失败", "userId", userID, "error", err)
			return http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to process chat"}
		}
	}

	chat := newChatView(*res.Record)
	if !res.Structured {
		return http.StatusOK, gin.H{
			"success":    false,
			"message":    unstructuredMessage,
			"raw_output": res.Record.RawOutput,
			"chat":       chat,
		}
	}
	return http.StatusOK, gin.H{
		"success":  true,
		"data":     res.Record.Response,
		"sections": res.Sections,
		"chat":     chat,
	}
}

// chatView 是返回给前端的聊天记录，结构化记录附带渲染好的章节。
type chatView struct {
	model.ChatRecord
	Sections []render.Section `json:"sections,omitempty"`
}

func newChatView(r model.ChatRecord) chatView {
	v := chatView{ChatRecord: r}
	if r.Structured {
		v.Sections = render.Render(r.Response, nil)
	}
	return v
}

// History 返回当前用户最近的聊天记录。
func (h *ChatHandler) History(c *gin.Context) {
	id, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}
	records, err := h.chatService.History(c.Request.Context(), id.UserID)
	if err != nil {
		log.Errorw("加载聊天历史失败", "userId", id.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load chat history"})
		return
	}
	chats := make([]chatView, 0, len(records))
	for _, r := range records {
		chats = append(chats, newChatView(r))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chats": chats})
}

// Clear 删除当前用户的全部聊天记录。
func (h *ChatHandler) Clear(c *gin.Context) {
	id, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}
	n, err := h.chatService.Clear(c.Request.Context(), id.UserID)
	if err != nil {
		log.Errorw("清空聊天历史失败", "userId", id.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to clear chat history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat history cleared", "deleted": n})
}

// Transcript 返回归档原文的临时下载链接。
func (h *ChatHandler) Transcript(c *gin.Context) {
	id, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}
	chatID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || chatID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid chat id"})
		return
	}
	url, err := h.chatService.TranscriptURL(c.Request.Context(), id.UserID, uint(chatID))
	if err != nil {
		if errors.Is(err, service.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
			return
		}
		log.Errorw("生成下载链接失败", "userId", id.UserID, "chatId", chatID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create transcript link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

// Handle 将请求升级为 WebSocket 连接。每个文本帧是一条消息，回复与 /send 的 JSON 相同。
func (h *ChatHandler) Handle(c *gin.Context) {
	id, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorw("升级 WebSocket 失败", "userId", id.UserID, "error", err)
		return
	}
	defer conn.Close()
	log.Infow("WebSocket 连接已建立", "userId", id.UserID)

	ctx := c.Request.Context()
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnw("读取 WebSocket 消息失败", "userId", id.UserID, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		_, body := h.send(ctx, id.UserID, string(message))
		if err := conn.WriteJSON(body); err != nil {
			log.Errorw("写入 WebSocket 消息失败", "userId", id.UserID, "error", err)
			return
		}
	}
}
