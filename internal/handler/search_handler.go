package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"launchgpt-go/internal/middleware"
	"launchgpt-go/internal/service"
	"launchgpt-go/pkg/log"
)

// SearchHandler 负责聊天记录的全文检索。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search 在当前用户的记录中检索 q，size 可选。
func (h *SearchHandler) Search(c *gin.Context) {
	id, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	hits, err := h.searchService.Search(c.Request.Context(), id.UserID, c.Query("q"), size)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		log.Errorw("检索聊天记录失败", "userId", id.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": hits})
}
