package main

import (
	"context"
	"log"
	"time"

	"watchparty/config"
	"watchparty/internal/events"
	"watchparty/internal/gateway"
	"watchparty/internal/handler"
	"watchparty/internal/proxy"
	appredis "watchparty/internal/redis"
	"watchparty/internal/repository"
	"watchparty/internal/server"
	"watchparty/internal/services"
	"watchparty/internal/storage"
	"watchparty/internal/websocket"
	"watchparty/pkg/database"
	"watchparty/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)

	database.Connect(cfg)
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	appredis.Initialize(appredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	redisClient := appredis.GetClient()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories and access control
	roomRepo := repository.NewRoomRepository(database.DB)
	chatRepo := repository.NewChatRepository(database.DB)
	access := proxy.NewAccessControl(roomRepo)

	// Upstream gateways, media lookups cached in Redis
	media := gateway.NewCachedMedia(gateway.NewHTTPMedia(cfg.MediaGatewayURL), redisClient, 5*time.Minute)
	identity := gateway.NewHTTPIdentity(cfg.IdentityGatewayURL)

	// Event plumbing
	publisher := events.NewRedisPublisher(redisClient)
	subscriber := events.NewRedisSubscriber(redisClient)

	// Services
	roomService := services.NewRoomService(roomRepo, media, identity, access, l)
	chatService := services.NewChatService(chatRepo, roomRepo, access, l)
	chatService.SetPublisher(publisher)
	chatService.SetLimits(cfg.MaxMessageLength, cfg.PageSizeDefault, cfg.PageSizeMax)

	roomService.SetPublisher(publisher)
	roomService.SetAnnouncer(chatService)
	roomService.SetCache(appredis.NewRoomCache(redisClient, appredis.DefaultCacheConfig()))

	if cfg.S3Bucket != "" {
		store, err := storage.NewClient(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			log.Fatalf("Failed to create storage client: %v", err)
		}
		roomService.SetArchiver(services.NewTranscriptArchiver(chatRepo, store, l))
	}

	// WebSocket fan-out
	verifier := services.NewTokenVerifier(cfg.JWTSecret)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	bridge := websocket.NewRedisBridge(subscriber, hub)
	go func() {
		if err := bridge.Run(ctx, []string{"room:*"}); err != nil && ctx.Err() == nil {
			l.Errorf("event bridge stopped: %s", err)
		}
	}()

	// Idle room sweeper
	sweeper := services.NewIdleSweeper(roomRepo, roomService, cfg.RoomIdleTimeout, cfg.SweepInterval, l)
	go sweeper.Run(ctx)

	// HTTP server
	limiter := appredis.NewRateLimiter(redisClient, appredis.DefaultRateLimitConfig())

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Room: handler.NewRoomHandler(roomService),
		Chat: handler.NewChatHandler(chatService),
		WS:   websocket.NewHandler(verifier, access, hub),
	}, verifier, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
