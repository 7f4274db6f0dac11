package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/quest"
	"github.com/kasuganosora/miniworld/server/game/tick"
	"github.com/kasuganosora/miniworld/server/store"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// maxActionBody bounds the size of a submitted action.
const maxActionBody = 64 << 10

// WorldHandler serves the world state, chunks, quests, actions and ticks.
type WorldHandler struct {
	store     *store.Store
	processor *action.Processor
	quests    *quest.Service
	ticker    *tick.Runner
	schema    *jsonschema.Schema
	logger    *zap.Logger
}

// NewWorldHandler creates a WorldHandler.
func NewWorldHandler(st *store.Store, p *action.Processor, qs *quest.Service, tr *tick.Runner, logger *zap.Logger) (*WorldHandler, error) {
	schema, err := compileSchema("action.schema.json")
	if err != nil {
		return nil, err
	}
	return &WorldHandler{store: st, processor: p, quests: qs, ticker: tr, schema: schema, logger: logger}, nil
}

// State returns the current world state.
// GET /api/world/state
func (h *WorldHandler) State(c *gin.Context) {
	ws, err := h.store.World.Load()
	if err != nil {
		h.logger.Error("load world state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "world state unavailable"})
		return
	}
	c.JSON(http.StatusOK, ws)
}

// Chunk returns one chunk, creating the default grid if it was never saved.
// GET /api/world/chunk?cx=&cy=
func (h *WorldHandler) Chunk(c *gin.Context) {
	cx, cy, ok := chunkQuery(c)
	if !ok {
		return
	}
	chunk, err := h.store.Chunks.Load(cx, cy)
	if err != nil {
		h.logger.Error("load chunk", zap.Int("cx", cx), zap.Int("cy", cy), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chunk unavailable"})
		return
	}
	c.JSON(http.StatusOK, chunk)
}

// ChunkSummary counts the base tiles of one chunk.
// GET /api/world/chunk/summary?cx=&cy=
func (h *WorldHandler) ChunkSummary(c *gin.Context) {
	cx, cy, ok := chunkQuery(c)
	if !ok {
		return
	}
	chunk, err := h.store.Chunks.Load(cx, cy)
	if err != nil {
		h.logger.Error("load chunk", zap.Int("cx", cx), zap.Int("cy", cy), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chunk unavailable"})
		return
	}
	counts := make(map[string]int)
	for t, n := range chunk.Summary() {
		counts[t.String()] = n
	}
	c.JSON(http.StatusOK, gin.H{"cx": cx, "cy": cy, "size": chunk.Size, "base_counts": counts})
}

// Quests returns the stored quest list.
// GET /api/world/quests
func (h *WorldHandler) Quests(c *gin.Context) {
	quests, err := h.quests.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list quests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quests unavailable"})
		return
	}
	if quests == nil {
		quests = []quest.Quest{}
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

// Action validates the body and runs it through the processor.
// POST /api/world/action
func (h *WorldHandler) Action(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxActionBody+1))
	if err != nil {
		actionError(c, http.StatusBadRequest, action.CodeInvalidPayload, "cannot read body")
		return
	}
	if len(body) > maxActionBody {
		actionError(c, http.StatusRequestEntityTooLarge, action.CodeInvalidPayload, "body too large")
		return
	}
	if err := validateJSON(h.schema, body); err != nil {
		actionError(c, http.StatusBadRequest, action.CodeInvalidPayload, err.Error())
		return
	}
	var req action.Request
	if err := json.Unmarshal(body, &req); err != nil {
		actionError(c, http.StatusBadRequest, action.CodeInvalidPayload, err.Error())
		return
	}

	res, err := h.processor.Process(c.Request.Context(), req)
	if err != nil {
		var ae *action.Error
		if errors.As(err, &ae) && ae.Code != action.CodeInternal {
			actionError(c, ae.Status(), ae.Code, ae.Msg)
			return
		}
		actionError(c, http.StatusInternalServerError, action.CodeInternal, "internal error")
		return
	}
	c.JSON(http.StatusOK, res)
}

// Tick advances world time by one step.
// POST /api/world/tick
func (h *WorldHandler) Tick(c *gin.Context) {
	res, err := h.ticker.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("world tick", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tick failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func actionError(c *gin.Context, status int, code action.Code, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func chunkQuery(c *gin.Context) (int, int, bool) {
	cx, errX := strconv.Atoi(c.Query("cx"))
	cy, errY := strconv.Atoi(c.Query("cy"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cx and cy must be integers"})
		return 0, 0, false
	}
	return cx, cy, true
}
