package app

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tmc-tutoring/match-api/internal/handler"
	"github.com/tmc-tutoring/match-api/internal/middleware"
	"github.com/tmc-tutoring/match-api/pkg/cache"
	"github.com/tmc-tutoring/match-api/pkg/logger"
	corsmiddleware "github.com/tmc-tutoring/match-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tmc-tutoring/match-api/pkg/middleware/requestid"
)

// Router builds the HTTP routes.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(a.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	checks := map[string]handler.Pinger{}
	if a.DB != nil {
		checks["postgres"] = a.DB
	}
	if a.Redis != nil {
		checks["redis"] = cache.Pinger{Client: a.Redis}
	}
	metricsHandler := handler.NewMetricsHandler(a.Metrics, checks)
	adminHandler := handler.NewAdminHandler(a.Admin)
	matchHandler := handler.NewMatchHandler(a.Generator, a.Matches, a.Exports)
	formsHandler := handler.NewFormsHandler(a.Participants)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if a.Config.EnableSwagger {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(a.Config.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	api := r.Group(prefix)

	forms := api.Group("/forms")
	forms.GET("/instruments", formsHandler.Instruments)
	forms.POST("/:role/commands", formsHandler.Command)
	forms.POST("/tutors", formsHandler.RegisterTutor)
	forms.POST("/parents", formsHandler.RegisterParent)

	api.POST("/admin/login", adminHandler.Login)

	admin := api.Group("/admin", middleware.AdminSession(a.Admin))
	admin.POST("/logout", adminHandler.Logout)
	admin.GET("/welcome", adminHandler.Welcome)
	admin.GET("/settings", adminHandler.GetSettings)
	admin.PUT("/settings", adminHandler.UpdateSettings)
	admin.POST("/form/open", adminHandler.OpenForm)
	admin.POST("/form/close", adminHandler.CloseForm)
	admin.POST("/reset", adminHandler.Reset)
	admin.GET("/metrics", metricsHandler.Snapshot)

	matches := admin.Group("/matches")
	matches.GET("", matchHandler.List)
	matches.POST("/generate", matchHandler.Generate)
	matches.GET("/summary", matchHandler.Summary)
	matches.GET("/status", matchHandler.Status)
	matches.GET("/export", matchHandler.Export)

	return r
}
