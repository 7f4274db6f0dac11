package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/chat"
	"go.uber.org/zap"
)

// ChatHandler serves the simulated group chat and the persona catalog.
type ChatHandler struct {
	chat   *chat.Service
	perms  action.Permissions
	logger *zap.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(svc *chat.Service, perms action.Permissions, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: svc, perms: perms, logger: logger}
}

// Personas returns every persona joined with its permissions.
// GET /api/personas
func (h *ChatHandler) Personas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"personas": chat.Summaries(h.chat.Catalog(), h.perms, h.logger)})
}

// Simulate asks the selected personas to answer one message.
// POST /api/chat/simulate
func (h *ChatHandler) Simulate(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.chat.Simulate(c.Request.Context(), req)
	switch {
	case errors.Is(err, chat.ErrUnknownRole), errors.Is(err, chat.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("chat simulate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chat unavailable"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns recent replies, oldest first.
// GET /api/chat/history?limit=
func (h *ChatHandler) History(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	replies, err := h.chat.History(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("chat history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}
