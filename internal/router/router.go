package router

import (
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/circuitlink/backend/internal/handlers"
	"github.com/circuitlink/backend/internal/middleware"
	"github.com/circuitlink/backend/internal/search"
	"github.com/circuitlink/backend/internal/services"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/internal/ws"
	"github.com/circuitlink/backend/pkg/cache"
	"github.com/circuitlink/backend/pkg/logger"
)

// SetupMiddleware configures global Echo middleware.
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// SetupRoutes wires the services over the document store and registers every
// route. authClient may be nil to run without token verification; cacheClient,
// searchIndex and hub may be nil to run without their side channels.
func SetupRoutes(e *echo.Echo, st store.Store, authClient *auth.Client, cacheClient *cache.Cache, searchIndex *search.Index, hub *ws.Hub) {
	e.GET("/health", handlers.HealthCheck)

	api := e.Group("/api/v1")
	if authClient != nil {
		api.Use(middleware.FirebaseAuth(authClient))
		logger.S.Info("firebase auth middleware applied to /api/v1")
	} else {
		logger.S.Warn("auth disabled, requests are trusted as-is")
	}

	communitySvc := services.NewCommunityService(st, cacheClient)
	forumSvc := services.NewForumService(st, cacheClient)
	structureSvc := services.NewStructureService(st, cacheClient)
	cascadeSvc := services.NewCascadeService(st, searchIndex, cacheClient)
	voteSvc := services.NewVoteService(st)
	postSvc := services.NewPostService(st, searchIndex)
	replySvc := services.NewReplyService(st)
	userSvc := services.NewUserService(st)
	friendSvc := services.NewFriendService(st)
	notifSvc := services.NewNotificationService(st)
	messageSvc := services.NewMessageService(st, hub)

	handlers.NewCommunityHandler(communitySvc, structureSvc, cascadeSvc).RegisterCommunityRoutes(api)
	handlers.NewForumHandler(forumSvc, structureSvc, cascadeSvc).RegisterForumRoutes(api)
	handlers.NewPostHandler(postSvc, voteSvc, structureSvc, cascadeSvc).RegisterPostRoutes(api)
	handlers.NewReplyHandler(replySvc, voteSvc, cascadeSvc).RegisterReplyRoutes(api)
	handlers.NewUserHandler(userSvc, friendSvc, notifSvc).RegisterUserRoutes(api)
	handlers.NewNotificationHandler(notifSvc).RegisterNotificationRoutes(api)
	handlers.NewMessageHandler(messageSvc, hub).RegisterMessageRoutes(api)

	logger.S.Info("all routes configured")
}
