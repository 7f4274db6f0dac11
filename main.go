package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/miniworld/server/api/rest"
	"github.com/kasuganosora/miniworld/server/api/sse"
	"github.com/kasuganosora/miniworld/server/api/ws"
	"github.com/kasuganosora/miniworld/server/audit"
	"github.com/kasuganosora/miniworld/server/cache"
	"github.com/kasuganosora/miniworld/server/config"
	dbadapter "github.com/kasuganosora/miniworld/server/db"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/chat"
	"github.com/kasuganosora/miniworld/server/game/quest"
	"github.com/kasuganosora/miniworld/server/game/tick"
	"github.com/kasuganosora/miniworld/server/metrics"
	mw "github.com/kasuganosora/miniworld/server/middleware"
	"github.com/kasuganosora/miniworld/server/scheduler"
	"github.com/kasuganosora/miniworld/server/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Store ----
	st, err := store.Open(cfg.Data.Root, store.Options{
		ChunkSize:    cfg.World.ChunkSize,
		DefaultWorld: cfg.World.DefaultWorld(),
	}, logger)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	// ---- Database (optional audit mirror) ----
	db, err := dbadapter.OpenAndMigrate(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if db != nil {
		logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))
	}

	// ---- Audit ----
	auditSvc, err := audit.New(st.AuditPath(), db, logger)
	if err != nil {
		log.Fatalf("audit: %v", err)
	}

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Roles and personas ----
	roleDocs, err := config.LoadRoles(cfg.RolesFile)
	if err != nil {
		log.Fatalf("roles: %v", err)
	}
	perms, err := action.BuildPermissions(roleDocs)
	if err != nil {
		log.Fatalf("roles: %v", err)
	}
	personaDocs, err := config.LoadPersonas(cfg.PersonasFile)
	if err != nil {
		log.Fatalf("personas: %v", err)
	}
	catalog, err := chat.NewCatalog(personaDocs)
	if err != nil {
		log.Fatalf("personas: %v", err)
	}

	// ---- Game Systems ----
	m := metrics.New()
	questSvc := quest.NewService(st, auditSvc, m, logger)
	processor := action.NewProcessor(st, perms, questSvc, auditSvc, m, logger)
	processor.SetPublisher(pubsub)
	ticker := tick.NewRunner(st, auditSvc, cfg.World.TickTreeGrowSteps, m, logger)
	ticker.SetPublisher(pubsub)
	chatSvc := chat.NewService(st, questSvc, catalog, cfg.Chat.ReplyTemplates, c, cfg.Chat.HistorySize, logger)

	worldState, err := st.World.Load()
	if err != nil {
		log.Fatalf("world: %v", err)
	}
	if _, err := questSvc.EnsureSeedQuests(context.Background(), worldState); err != nil {
		log.Fatalf("quests: %v", err)
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	if cfg.World.TickInterval > 0 {
		err := sched.AddTicker("world_tick", cfg.World.TickInterval, func(ctx context.Context) error {
			_, err := ticker.Run(ctx)
			return err
		})
		if err != nil {
			log.Fatalf("scheduler: %v", err)
		}
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Request contexts end when shutdown starts so open event streams return.
	baseCtx, cancelBase := context.WithCancel(context.Background())

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger), mw.Metrics(m))
	r.Use(mw.RateLimit(baseCtx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// ---- REST API routes ----
	worldH, err := apirest.NewWorldHandler(st, processor, questSvc, ticker, logger)
	if err != nil {
		log.Fatalf("rest: %v", err)
	}
	chatH := apirest.NewChatHandler(chatSvc, perms, logger)
	adminH := apirest.NewAdminHandler(st, auditSvc, chatSvc, m, sched, logger)
	adminIPs, err := mw.IPWhitelist(cfg.Security.AdminIPs)
	if err != nil {
		log.Fatalf("security.admin_ips: %v", err)
	}

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
		adminG.Use(adminIPs, apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.GET("/audit/export", adminH.ExportAudit)
		adminG.PUT("/world/state", adminH.ReplaceWorldState)
		adminG.DELETE("/chat/history", adminH.ClearChatHistory)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, cfg.Security, logger)
	r.GET("/api/events", sseH.ServeSSE)

	// ---- WebSocket ----
	sm := ws.NewSessionManager(logger)
	wsRouter := ws.NewRouter(logger)
	ws.RegisterWorldHandlers(wsRouter, processor)
	wsH := ws.NewHandler(pubsub, cfg.Security, sm, wsRouter, logger)
	if err := wsH.StartRelay(baseCtx); err != nil {
		log.Fatalf("ws relay: %v", err)
	}
	r.GET("/api/ws", wsH.ServeWS)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// Hijacked connections are not tracked by Shutdown.
	sm.CloseAll()
	sched.Stop()
	auditSvc.Stop(shutdownCtx)
}
