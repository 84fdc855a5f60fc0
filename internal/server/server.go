package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/luocen/notelens/internal/config"
	"github.com/luocen/notelens/internal/service"
	"github.com/luocen/notelens/internal/service/aihub"
	"github.com/luocen/notelens/internal/service/media"
	"github.com/luocen/notelens/internal/service/xiaohongshu"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Store        *service.Store
	Auth         *service.AuthService
	Discovery    *service.DiscoveryService
	Monitoring   *service.MonitoringService
	Scheduler    *service.Scheduler
	StatsUpdater *service.StatsUpdater
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	intervals, err := parseIntervals(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize services
	store := service.NewStore(db, logger)
	monitoring := service.NewMonitoringService(db, logger)
	auth := service.NewAuthService(logger, store, intervals.sessionTTL)

	gateway := xiaohongshu.NewClient(&cfg.Xiaohongshu, logger)
	resolver := xiaohongshu.NewResolver(gateway, logger)
	aiClient := aihub.NewClient(&cfg.AI, logger)
	mediaProcessor, err := media.NewProcessor(&cfg.Media, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media processor: %w", err)
	}

	discovery := service.NewDiscoveryService(store, store, gateway, monitoring, logger)

	clock := service.NewClock()
	collector := service.NewCollector(store, store, resolver, gateway, monitoring, clock, logger,
		service.CollectorOptions{
			BatchSize:              cfg.Scheduler.CollectionBatchSize,
			ItemDelay:              intervals.itemDelay,
			RetryDelay:             intervals.retryDelay,
			MaxDetailRetries:       cfg.Scheduler.MaxDetailRetries,
			SearchMaxPages:         cfg.Scheduler.SearchMaxPages,
			SearchPageSize:         cfg.Scheduler.SearchPageSize,
			FallbackSearchMaxPages: cfg.Scheduler.FallbackSearchMaxPages,
		})
	transcriber := service.NewTranscriber(store, mediaProcessor, aiClient, monitoring, clock, logger,
		service.TranscriberOptions{
			BatchSize:             cfg.Scheduler.TranscriptionBatchSize,
			ItemDelay:             intervals.itemDelay,
			RetryDelay:            intervals.retryDelay,
			MaxDownloadAttempts:   cfg.Scheduler.MaxDownloadAttempts,
			MaxTranscribeAttempts: cfg.Scheduler.MaxTranscribeAttempts,
			Models:                cfg.AI.TranscriptionModels,
		})
	analyzer := service.NewAnalyzer(store, aiClient, monitoring, clock, logger,
		service.AnalyzerOptions{
			BatchSize: cfg.Scheduler.AnalysisBatchSize,
			ItemDelay: intervals.itemDelay,
			Model:     cfg.AI.CompletionModel,
		})

	scheduler := service.NewScheduler(
		[]service.StageDriver{collector, transcriber, analyzer},
		clock, logger, monitoring,
		intervals.cycle, intervals.recovery)
	statsUpdater := service.NewStatsUpdater(monitoring, logger, intervals.stats)

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:       cfg,
		DB:           db,
		Router:       router,
		Logger:       logger,
		Store:        store,
		Auth:         auth,
		Discovery:    discovery,
		Monitoring:   monitoring,
		Scheduler:    scheduler,
		StatsUpdater: statsUpdater,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

type serverIntervals struct {
	cycle      time.Duration
	recovery   time.Duration
	itemDelay  time.Duration
	retryDelay time.Duration
	stats      time.Duration
	sessionTTL time.Duration
}

func parseIntervals(cfg *config.Config) (*serverIntervals, error) {
	out := &serverIntervals{}
	for _, f := range []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"scheduler.cycle_interval", cfg.Scheduler.CycleInterval, &out.cycle},
		{"scheduler.recovery_interval", cfg.Scheduler.RecoveryInterval, &out.recovery},
		{"scheduler.item_delay", cfg.Scheduler.ItemDelay, &out.itemDelay},
		{"scheduler.retry_delay", cfg.Scheduler.RetryDelay, &out.retryDelay},
		{"scheduler.stats_interval", cfg.Scheduler.StatsInterval, &out.stats},
		{"auth.session_ttl", cfg.Auth.SessionTTL, &out.sessionTTL},
	} {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.field = d
	}
	return out, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleRegister)
			auth.POST("/login", s.handleLogin)
			auth.POST("/logout", s.handleLogout)
		}

		protected := api.Group("")
		protected.Use(s.Auth.AuthMiddleware())
		{
			tasks := protected.Group("/tasks")
			{
				tasks.POST("", s.handleCreateTask)
				tasks.GET("", s.handleListTasks)
				tasks.GET("/:id", s.handleGetTask)
				tasks.DELETE("/:id", s.handleDeleteTask)
				tasks.GET("/:id/notes", s.handleListTaskNotes)
			}
			protected.GET("/notes/:id", s.handleGetNote)
			protected.GET("/monitoring/errors", s.handleRecentErrors)
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start background workers
	if s.Config.Scheduler.Enabled {
		s.Scheduler.Start(ctx)
	}
	s.StatsUpdater.Start(ctx)

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background workers first
	s.Scheduler.Stop()
	s.StatsUpdater.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
