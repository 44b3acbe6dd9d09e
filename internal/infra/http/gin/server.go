package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"shamsa/internal/infra/config"
	"shamsa/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	User           UserHTTP
	Feed           FeedHTTP
	Chat           ChatHTTP
	Shop           ShopHTTP
	Games          GamesHTTP
	Media          MediaHTTP
	AuthMiddleware gin.HandlerFunc
	MetricsHandler http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg),
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(h.MetricsHandler))
	}

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
		api.DELETE("/me", h.Auth.DeleteAccount)
	}
	if h.User != nil {
		api.GET("/users/search", h.User.Search)
		api.GET("/users/:id", h.User.Get)
		api.PATCH("/me", h.User.UpdateMe)
		api.POST("/users/:id/follow", h.User.Follow)
		api.DELETE("/users/:id/follow", h.User.Unfollow)
	}
	if h.Feed != nil {
		api.GET("/posts", h.Feed.Timeline)
		api.POST("/posts", h.Feed.Publish)
		api.POST("/posts/:id/like", h.Feed.ToggleLike)
		api.POST("/posts/:id/comments", h.Feed.Comment)
	}
	if h.Chat != nil {
		chats := api.Group("/chats")
		chats.GET("", h.Chat.ListConversations)
		chats.GET("/stream", h.Chat.StreamConversations)
		chats.POST("/direct", h.Chat.OpenDirect)
		chats.POST("/:id/select", h.Chat.SelectConversation)
		chats.GET("/:id/messages", h.Chat.ListMessages)
		chats.GET("/:id/messages/stream", h.Chat.StreamMessages)
		chats.POST("/:id/messages", h.Chat.SendMessage)
		chats.POST("/:id/reply", h.Chat.BeginReply)
		chats.DELETE("/:id/reply", h.Chat.DismissReply)
	}
	if h.Shop != nil {
		api.GET("/shop/emojis", h.Shop.Catalog)
		api.POST("/shop/purchase", h.Shop.Purchase)
	}
	if h.Games != nil {
		api.GET("/games/question", h.Games.Ask)
		api.POST("/games/answer", h.Games.Answer)
	}
	if h.Media != nil {
		api.POST("/media", h.Media.Upload)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func corsOrigins(cfg config.Config) []string {
	if len(cfg.CORSOrigins) > 0 {
		return cfg.CORSOrigins
	}
	return []string{"*"}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
