package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/miniworld/server/api/rest"
	"github.com/kasuganosora/miniworld/server/api/sse"
	"github.com/kasuganosora/miniworld/server/api/ws"
	"github.com/kasuganosora/miniworld/server/audit"
	"github.com/kasuganosora/miniworld/server/cache"
	"github.com/kasuganosora/miniworld/server/config"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/chat"
	"github.com/kasuganosora/miniworld/server/game/quest"
	"github.com/kasuganosora/miniworld/server/game/tick"
	"github.com/kasuganosora/miniworld/server/metrics"
	mw "github.com/kasuganosora/miniworld/server/middleware"
	"github.com/kasuganosora/miniworld/server/scheduler"
	"github.com/kasuganosora/miniworld/server/store"
	"github.com/kasuganosora/miniworld/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// AdminKey is the admin key every test server accepts.
const AdminKey = "integration-admin"

// TestServer wraps a real HTTP server with every world subsystem wired together.
type TestServer struct {
	DB      *gorm.DB
	Store   *store.Store
	Audit   *audit.Service
	Quests  *quest.Service
	Ticker  *tick.Runner
	Sched   *scheduler.Scheduler
	WS      *ws.SessionManager
	Metrics *metrics.Metrics
	PubSub  cache.PubSub
	Server  *httptest.Server
	URL     string // http://127.0.0.1:<port>

	stopBackground context.CancelFunc
}

// NewTestServer creates a fully wired world server for integration testing.
// It mirrors the dependency wiring in main.go, with the audit mirror writing
// to an in-memory database.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	st := testutil.NewStore(t, 16)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
		AllowedOrigins: []string{}, // allow all origins
	}

	auditSvc, err := audit.New(st.AuditPath(), db, logger)
	require.NoError(t, err)

	roleDocs, err := config.LoadRoles("")
	require.NoError(t, err)
	perms, err := action.BuildPermissions(roleDocs)
	require.NoError(t, err)
	personaDocs, err := config.LoadPersonas("")
	require.NoError(t, err)
	catalog, err := chat.NewCatalog(personaDocs)
	require.NoError(t, err)

	// ---- Game Systems ----
	m := metrics.New()
	questSvc := quest.NewService(st, auditSvc, m, logger)
	processor := action.NewProcessor(st, perms, questSvc, auditSvc, m, logger)
	processor.SetPublisher(pubsub)
	ticker := tick.NewRunner(st, auditSvc, 2, m, logger)
	ticker.SetPublisher(pubsub)
	cfg, err := config.Load("")
	require.NoError(t, err)
	chatSvc := chat.NewService(st, questSvc, catalog, cfg.Chat.ReplyTemplates, c, cfg.Chat.HistorySize, logger)
	sched := scheduler.New(logger)

	worldState, err := st.World.Load()
	require.NoError(t, err)
	_, err = questSvc.EnsureSeedQuests(context.Background(), worldState)
	require.NoError(t, err)

	// Background goroutines stop in Close.
	bgCtx, stopBackground := context.WithCancel(context.Background())

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger), mw.Metrics(m))
	r.Use(mw.RateLimit(bgCtx, rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ---- REST API routes (mirrors main.go) ----
	worldH, err := apirest.NewWorldHandler(st, processor, questSvc, ticker, logger)
	require.NoError(t, err)
	chatH := apirest.NewChatHandler(chatSvc, perms, logger)
	adminH := apirest.NewAdminHandler(st, auditSvc, chatSvc, m, sched, logger)

	api := r.Group("/api")
	{
		worldG := api.Group("/world")
		worldG.GET("/state", worldH.State)
		worldG.GET("/chunk", worldH.Chunk)
		worldG.GET("/chunk/summary", worldH.ChunkSummary)
		worldG.GET("/quests", worldH.Quests)
		worldG.POST("/action", worldH.Action)
		worldG.POST("/tick", worldH.Tick)

		api.GET("/personas", chatH.Personas)

		chatG := api.Group("/chat")
		chatG.POST("/simulate", chatH.Simulate)
		chatG.GET("/history", chatH.History)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.GET("/audit/export", adminH.ExportAudit)
		adminG.PUT("/world/state", adminH.ReplaceWorldState)
		adminG.DELETE("/chat/history", adminH.ClearChatHistory)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, sec, logger)
	r.GET("/api/events", sseH.ServeSSE)

	// ---- WebSocket ----
	sm := ws.NewSessionManager(logger)
	wsRouter := ws.NewRouter(logger)
	ws.RegisterWorldHandlers(wsRouter, processor)
	wsH := ws.NewHandler(pubsub, sec, sm, wsRouter, logger)
	require.NoError(t, wsH.StartRelay(bgCtx))
	r.GET("/api/ws", wsH.ServeWS)

	// ---- Start server ----
	server := httptest.NewServer(r)

	ts := &TestServer{
		DB:      db,
		Store:   st,
		Audit:   auditSvc,
		Quests:  questSvc,
		Ticker:  ticker,
		Sched:   sched,
		WS:      sm,
		Metrics: m,
		PubSub:  pubsub,
		Server:  server,
		URL:     server.URL,

		stopBackground: stopBackground,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close stops the scheduler, the sessions, the HTTP server and the audit log.
func (ts *TestServer) Close() {
	ts.Sched.Stop()
	ts.stopBackground()
	ts.WS.CloseAll()
	ts.Server.Close()
	ts.Audit.Stop(context.Background())
}

// PostJSON sends body as JSON. Headers are given as name/value pairs.
func (ts *TestServer) PostJSON(t *testing.T, path string, body any, headers ...string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return ts.Do(t, http.MethodPost, path, bytes.NewReader(data), headers...)
}

// Get issues a GET request.
func (ts *TestServer) Get(t *testing.T, path string, headers ...string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodGet, path, nil, headers...)
}

// Do issues a request against the test server.
func (ts *TestServer) Do(t *testing.T, method, path string, body *bytes.Reader, headers ...string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, ts.URL+path, body)
	} else {
		req, err = http.NewRequest(method, ts.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON decodes and closes the response body.
func ReadJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// ActionBody builds a world action request body.
func ActionBody(actor string, typ action.Type, cx, cy, x, y int, tileName string, ts int64) map[string]any {
	body := map[string]any{
		"actor":     actor,
		"type":      string(typ),
		"chunk":     map[string]int{"cx": cx, "cy": cy},
		"pos":       map[string]int{"x": x, "y": y},
		"client_ts": ts,
	}
	if tileName != "" {
		body["payload"] = map[string]string{"tile": tileName}
	}
	return body
}
