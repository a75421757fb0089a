package bootstrap

import (
	"context"
	"log"
	"time"

	"steel-copilot-be/internal/config"
	"steel-copilot-be/internal/controller"
	"steel-copilot-be/internal/handler"
	"steel-copilot-be/internal/pkg/logger"
	"steel-copilot-be/internal/pkg/serverutils"
	"steel-copilot-be/internal/realtime"
	"steel-copilot-be/internal/repository/contract"
	"steel-copilot-be/internal/repository/implementation"
	"steel-copilot-be/internal/repository/memory"
	"steel-copilot-be/internal/service"
	"steel-copilot-be/internal/session"
	"steel-copilot-be/internal/storage"
	"steel-copilot-be/internal/websocket"
	"steel-copilot-be/pkg/remote"

	pktEvents "steel-copilot-be/pkg/events"
	pktNats "steel-copilot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	ChatController controller.IChatController

	// Realtime infrastructure
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub
	Conn            *realtime.Conn

	// Exposed for server wiring and shutdown
	AuthService service.IAuthService
	ChatService service.IChatService
	Logger      logger.ILogger
	Config      *config.Config
}

// NewContainer wires every component. db may be nil, in which case chat
// history lives in process memory.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	rtLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)

	// Cross-context announcement bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	broadcaster := session.NewBroadcaster(pubSub, sysLogger)

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		// Audit trail: every session event lands in the service log so
		// operators can trace logins, evictions and expiries per user.
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else if err := natsSub.Subscribe("sessions.>", "session-audit", func(ctx context.Context, event pktEvents.Event) error {
			sysLogger.Info("SessionAudit", event.EventType(), event.Payload())
			return nil
		}); err != nil {
			log.Printf("[WARN] Failed to subscribe to session events: %v", err)
		}
	}

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
			rdb = nil
		}
	}

	// Client-visible session storage. Redis when available so multiple
	// instances observe the same token lifecycle, memory otherwise.
	var store storage.Store
	if rdb != nil {
		store = storage.NewRedisStore(rdb, "copilot", sysLogger)
	} else {
		store = storage.NewMemoryStore()
	}

	// Auth
	table := session.NewActiveTable()
	directory := service.NewUserDirectory()
	authService := service.NewAuthService(
		directory,
		store,
		table,
		broadcaster,
		natsPub,
		sysLogger,
		cfg.Auth.JwtSecret,
		cfg.Auth.SessionValidity,
		cfg.Auth.SweepInterval,
	)

	// Chat history
	var history contract.ChatHistoryRepository
	if db != nil {
		history = implementation.NewChatHistoryRepository(db)
	} else {
		history = memory.NewChatHistoryRepository()
	}

	// Remote copilot backend
	remoteClient := remote.NewClient(
		cfg.Remote.ChatBaseURL,
		cfg.Remote.SendTimeout,
		cfg.Remote.ProbeTimeout,
		func() (string, bool) { return store.Get(storage.KeyAuthToken) },
	)
	remoteClient.ProbeInterval = cfg.Remote.ProbeInterval

	// Realtime plumbing: one router shared by the simulated connection and
	// the websocket hub.
	router := realtime.NewRouter(rtLogger)
	scheduler := realtime.NewScheduler()
	responder := service.NewMockResponder()
	backend := realtime.NewSimBackend(scheduler, 500*time.Millisecond, time.Second, responder.ReplyFunc(), rtLogger)
	conn := realtime.NewConn(
		backend,
		backend,
		router,
		scheduler,
		cfg.Realtime.MaxReconnectAttempts,
		cfg.Realtime.ReconnectBaseDelay,
		rtLogger,
	)
	backend.Attach(conn)

	wsHub := websocket.NewHub(router, rdb, rtLogger)
	go wsHub.Run()

	chatService := service.NewChatService(history, responder, remoteClient, wsHub, store, sysLogger)
	chatService.AttachRealtime(conn)
	conn.Connect()

	rtHandler := handler.NewRealtimeHandler(wsHub, rtLogger, cfg.Auth.JwtSecret, authService.IsSessionActive)

	return &Container{
		AuthController:  controller.NewAuthController(authService),
		ChatController:  controller.NewChatController(chatService, authService),
		RealtimeHandler: rtHandler,
		WebSocketHub:    wsHub,
		Conn:            conn,
		AuthService:    authService,
		ChatService:    chatService,
		Logger:         sysLogger,
		Config:         cfg,
	}
}

// NewJwtMiddleware builds the auth middleware bound to this container's
// session table.
func (c *Container) NewJwtMiddleware() fiber.Handler {
	return serverutils.JwtMiddleware(c.Config.Auth.JwtSecret, c.AuthService.IsSessionActive)
}
