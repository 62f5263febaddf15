package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thereayou/tourism-chat/internal/handlers"
	"github.com/thereayou/tourism-chat/internal/metrics"
	"github.com/thereayou/tourism-chat/internal/middleware"
)

type endpoints struct {
	auth     *handlers.AuthHandler
	users    *handlers.UserHandler
	rooms    *handlers.RoomHandler
	history  *handlers.HTTPMessageHandler
	listings *handlers.ListingHandler
	ws       *handlers.WebSocketHandler

	healthz     gin.HandlerFunc
	requireAuth gin.HandlerFunc
	wsAuth      gin.HandlerFunc
	uploadDir   string
}

func APIEndpoints(r *gin.Engine, h endpoints, limiter *middleware.RateLimiter) {
	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/uploads", h.uploadDir)

	// WebSocket endpoints; ограничение частоты действий внутри соединения
	wsGroup := r.Group("/ws", h.wsAuth)
	{
		wsGroup.GET("/chat/", h.ws.HandleWebSocket)
		wsGroup.GET("/get_user_chat_list/", h.ws.HandleWebSocket)
	}

	limited := r.Group("", metrics.GinMiddleware(), limiter.Middleware())

	// Auth endpoints
	auth := limited.Group("/auth")
	{
		auth.POST("/register", h.auth.Register)
		auth.POST("/login", h.auth.Login)
		auth.POST("/logout", h.requireAuth, h.auth.Logout)
	}

	// API endpoints
	api := limited.Group("/api/v1", h.requireAuth)
	{
		api.GET("/users/me", h.users.GetMe)
		api.PATCH("/users/me", h.users.UpdateMe)
		api.GET("/users/:id", h.users.GetUser)

		api.POST("/rooms", h.rooms.CreateRoom)
		api.GET("/rooms/:id", h.rooms.GetRoom)
		api.DELETE("/rooms/:id", h.rooms.DeleteRoom)
		api.GET("/rooms/:id/messages", h.history.GetRoomMessages)
		api.GET("/chats", h.rooms.GetChatList)

		api.POST("/listings", h.listings.Create)
		api.GET("/listings/:id", h.listings.Get)
		api.DELETE("/listings/:id", h.listings.Delete)
		api.POST("/listings/:id/reviews", h.listings.AddReview)
	}
}
