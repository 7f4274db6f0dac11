package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miniworld/server/audit"
	"github.com/kasuganosora/miniworld/server/game/chat"
	"github.com/kasuganosora/miniworld/server/game/world"
	"github.com/kasuganosora/miniworld/server/metrics"
	"github.com/kasuganosora/miniworld/server/scheduler"
	"github.com/kasuganosora/miniworld/server/store"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	store   *store.Store
	audit   *audit.Service
	chat    *chat.Service
	metrics *metrics.Metrics
	sched   *scheduler.Scheduler
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	st *store.Store,
	aud *audit.Service,
	chatSvc *chat.Service,
	m *metrics.Metrics,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{store: st, audit: aud, chat: chatSvc, metrics: m, sched: sched, logger: logger}
}

// Metrics serves the Prometheus registry.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// ListSchedulerTasks returns the status of every periodic task.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Tasks()})
}

// ExportAudit streams the audit log as a zstd-compressed JSONL download.
// GET /api/admin/audit/export
func (h *AdminHandler) ExportAudit(c *gin.Context) {
	name := "audit-" + time.Now().UTC().Format("20060102T150405Z") + ".jsonl.zst"
	c.Header("Content-Type", "application/zstd")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	n, err := h.audit.Export(c.Writer)
	if err != nil {
		h.logger.Error("audit export", zap.Int64("bytes", n), zap.Error(err))
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Disposition")
			c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "audit export failed"})
		}
		return
	}
	h.logger.Info("audit exported", zap.Int64("bytes", n))
}

// ReplaceWorldState overwrites the stored world state.
// PUT /api/admin/world/state
func (h *AdminHandler) ReplaceWorldState(c *gin.Context) {
	var ws world.State
	if err := c.ShouldBindJSON(&ws); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if ws.Version == "" {
		ws.Version = world.StateVersion
	}
	ws = ws.Clone()
	if err := ws.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.store.Lock()
	err := h.store.World.Save(ws)
	h.store.Unlock()
	if err != nil {
		h.logger.Error("save world state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot save world state"})
		return
	}
	h.logger.Info("world state replaced", zap.Int("year", ws.Year), zap.String("season", ws.Season))
	c.JSON(http.StatusOK, ws)
}

// ClearChatHistory drops the retained chat replies.
// DELETE /api/admin/chat/history
func (h *AdminHandler) ClearChatHistory(c *gin.Context) {
	if err := h.chat.ClearHistory(c.Request.Context()); err != nil {
		h.logger.Error("clear chat history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot clear history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
