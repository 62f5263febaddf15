package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/thereayou/tourism-chat/internal/attachments"
	"github.com/thereayou/tourism-chat/internal/chat"
	"github.com/thereayou/tourism-chat/internal/config"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/handlers"
	"github.com/thereayou/tourism-chat/internal/listings"
	"github.com/thereayou/tourism-chat/internal/middleware"
	"github.com/thereayou/tourism-chat/internal/presence"
	ws "github.com/thereayou/tourism-chat/internal/websocket"
	"github.com/thereayou/tourism-chat/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	HTTP       *http.Server
	DB         *database.Database
	Redis      *redis.Client
	Hub        *ws.Hub
	JWTManager *auth.JWTManager

	limiter *middleware.RateLimiter
}

// NewServer подключается к Postgres и Redis и собирает все обработчики
func NewServer(cfg config.Config) (*Server, error) {
	dbConn, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	s, err := newServer(cfg, dbConn, auth.NewRedisBlacklist(rdb))
	if err != nil {
		return nil, err
	}
	s.Redis = rdb
	return s, nil
}

func newServer(cfg config.Config, dbConn *database.Database, blacklist auth.Blacklist) (*Server, error) {
	files, err := attachments.NewStore(cfg.UploadDir, cfg.MaxAttachmentBytes)
	if err != nil {
		return nil, err
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	hub := ws.NewHub()

	registry := chat.NewRegistry(dbConn)
	tracker := presence.NewTracker(dbConn)
	messages := chat.NewMessageStore(dbConn, files, hub, cfg.MaxMessageLength)
	chatList := chat.NewChatListProjector(dbConn)

	messageH := handlers.NewMessageHandler(dbConn, hub, registry, tracker, messages, chatList)
	registry.OnRelease(messageH.ReleaseRoom)
	h := endpoints{
		auth:     handlers.NewAuthHandler(dbConn, jwtMgr, blacklist),
		users:    handlers.NewUserHandler(dbConn),
		rooms:    handlers.NewRoomHandler(dbConn, registry, tracker, chatList),
		history:  handlers.NewHTTPMessageHandler(dbConn, registry),
		listings: handlers.NewListingHandler(dbConn, listings.NewService(dbConn, registry)),
		ws: handlers.NewWebSocketHandler(dbConn, hub, messageH, ws.ClientConfig{
			ActionTimeout:    cfg.WSActionTimeout,
			ActionsPerSecond: cfg.WSActionsPerSecond,
			ActionBurst:      cfg.WSActionBurst,
		}, cfg.Env, cfg.AllowedOrigins),
		healthz:     handlers.Healthz(dbConn),
		requireAuth: middleware.AuthMiddleware(jwtMgr, blacklist),
		wsAuth:      middleware.WSAuthMiddleware(jwtMgr, blacklist),
		uploadDir:   files.Dir(),
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.HTTPRateLimit), cfg.HTTPRateBurst, 2*time.Minute)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.Env, cfg.AllowedOrigins))
	APIEndpoints(router, h, limiter)

	return &Server{
		Router: router,
		HTTP: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		DB:         dbConn,
		Hub:        hub,
		JWTManager: jwtMgr,
		limiter:    limiter,
	}, nil
}

func (s *Server) Run() error {
	log.Info().Str("addr", s.HTTP.Addr).Msg("server starting")
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown закрывает WebSocket сессии (с очисткой присутствия), затем HTTP и хранилища
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.Hub.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop hub: %w", err))
	}
	if err := s.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	s.limiter.Stop()
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if err := s.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}
	return errors.Join(errs...)
}
