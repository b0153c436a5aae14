package routes

import (
	"net/http"
	"time"

	"realtime-service/docs"
	"realtime-service/internal/api/handlers"
	"realtime-service/internal/api/middleware"
	"realtime-service/internal/services"
	"realtime-service/internal/websocket"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the collaborators the router wires into handlers.
// RateLimiter and UnreadService are optional.
type Dependencies struct {
	Hub            *websocket.Hub
	UnreadService  *services.UnreadService
	RateLimiter    middleware.RateLimiter
	JWTSecret      string
	AllowedOrigins []string
	ConnectLimit   int
	ConnectWindow  time.Duration
}

type Router struct {
	engine              *gin.Engine
	deps                Dependencies
	wsHandler           *handlers.WSHandler
	broadcastHandler    *handlers.BroadcastHandler
	notificationHandler *handlers.NotificationHandler
	rateLimitMW         *middleware.RateLimitMiddleware
	authMW              *middleware.AuthMiddleware
}

func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi())

	r := &Router{
		engine:           engine,
		deps:             deps,
		wsHandler:        handlers.NewWSHandler(deps.Hub, deps.AllowedOrigins),
		broadcastHandler: handlers.NewBroadcastHandler(deps.Hub.Broadcaster()),
		authMW:           middleware.NewAuthMiddleware(deps.JWTSecret),
	}
	if deps.UnreadService != nil {
		r.notificationHandler = handlers.NewNotificationHandler(deps.UnreadService)
	}
	if deps.RateLimiter != nil {
		r.rateLimitMW = middleware.NewRateLimitMiddleware(deps.RateLimiter)
	}
	return r
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	docs.SwaggerInfo.BasePath = "/api/v1"
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	wsChain := []gin.HandlerFunc{}
	if r.rateLimitMW != nil && r.deps.ConnectLimit > 0 {
		wsChain = append(wsChain, r.rateLimitMW.WebSocketRateLimit(r.deps.ConnectLimit, r.deps.ConnectWindow))
	}
	wsChain = append(wsChain, r.authMW.WSAuth(), r.wsHandler.HandleWebSocket)
	api.GET("/ws", wsChain...)
	api.GET("/ws/stats", r.wsHandler.GetStats)

	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		auth.POST("/broadcast", middleware.RequireScope("broadcast"), r.broadcastHandler.Broadcast)

		if r.notificationHandler != nil {
			notifications := auth.Group("/notifications")
			if r.rateLimitMW != nil {
				notifications.Use(r.rateLimitMW.RateLimit(120, time.Minute))
			}
			{
				notifications.GET("/unread", r.notificationHandler.GetUnread)
				notifications.POST("/channels/:id/read", r.notificationHandler.MarkChannelRead)
			}
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
