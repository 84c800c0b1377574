package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchparty/config"
	"watchparty/internal/handler"
	"watchparty/internal/middleware"
	"watchparty/internal/redis"
	"watchparty/internal/services"
	"watchparty/internal/transport/httpdto"
	"watchparty/internal/websocket"
	"watchparty/pkg/database"
	"watchparty/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Room *handler.RoomHandler
	Chat *handler.ChatHandler
	WS   *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, verifier *services.TokenVerifier, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	auth := middleware.AuthMiddleware(verifier)

	rooms := s.engine.Group("/v1/rooms", auth)
	{
		rooms.POST("", handlers.Room.Create)
		rooms.GET("/:id", handlers.Room.Get)
		rooms.GET("/:id/members", handlers.Room.Members)
		rooms.POST("/:id/join", middleware.JoinRateLimitMiddleware(limiter), handlers.Room.Join)
		rooms.POST("/:id/leave", handlers.Room.Leave)
		rooms.POST("/:id/close", handlers.Room.Close)

		rooms.GET("/:id/messages", handlers.Chat.List)
		rooms.POST("/:id/messages", middleware.MessageRateLimitMiddleware(limiter), handlers.Chat.Post)
	}

	messages := s.engine.Group("/v1/messages", auth)
	{
		messages.PATCH("/:messageId", handlers.Chat.Edit)
		messages.DELETE("/:messageId", handlers.Chat.Delete)
		messages.POST("/:messageId/reactions", middleware.ReactionRateLimitMiddleware(limiter), handlers.Chat.React)
	}

	// WebSocket auth happens inside the handler via the token query param,
	// since browsers cannot set headers on upgrade requests.
	s.engine.GET("/v1/rooms/:id/ws", handlers.WS.Connect)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
