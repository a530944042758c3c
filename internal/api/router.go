package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/config"
	"github.com/floorpro/measure-backend-go/internal/handler"
	"github.com/floorpro/measure-backend-go/internal/middleware"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Devices    *handler.DeviceHandler
	Sessions   *handler.SessionHandler
	Geometries *handler.GeometryHandler
	Exports    *handler.ExportHandler
	Photos     *handler.PhotoHandler
	Boards     *handler.BoardHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, limiter *middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logger(logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.WorkspaceHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Measure Backend API is running",
		})
	})

	// exported plans and photos
	if strings.HasPrefix(cfg.Storage.BaseURL, "/") {
		r.Static(cfg.Storage.BaseURL, cfg.Storage.Dir)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	{
		devices := api.Group("/devices")
		{
			devices.POST("", h.Devices.Pair)
			devices.GET("", h.Devices.List)
			devices.DELETE("/:id", h.Devices.Disable)
			devices.POST("/scan", h.Devices.Scan)
			devices.POST("/:id/connect", h.Devices.Connect)
			devices.POST("/disconnect", h.Devices.Disconnect)
			devices.PUT("/unit", h.Devices.SetUnit)
			devices.GET("/status", h.Devices.Status)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.Sessions.Start)
			sessions.GET("", h.Sessions.List)
			sessions.GET("/:id", h.Sessions.Get)
			sessions.GET("/:id/readings", h.Sessions.Readings)
			sessions.POST("/:id/readings", h.Sessions.Capture)
			sessions.POST("/:id/continuous", h.Sessions.StartContinuous)
			sessions.DELETE("/:id/continuous", h.Sessions.StopContinuous)
			sessions.POST("/:id/end", h.Sessions.End)
			sessions.POST("/:id/discard", h.Sessions.Discard)
			sessions.GET("/:id/geometry", h.Sessions.Geometry)
		}

		geometries := api.Group("/geometries")
		{
			geometries.POST("", h.Geometries.Save)
			geometries.GET("", h.Geometries.List)
			geometries.POST("/preview", h.Geometries.Preview)
			geometries.POST("/from-session/:sessionId", h.Geometries.BuildFromSession)
			geometries.GET("/:id", h.Geometries.Get)
			geometries.POST("/:id/openings", h.Geometries.AddOpening)
			geometries.DELETE("/:id/openings/:openingId", h.Geometries.RemoveOpening)
			geometries.PATCH("/:id/points/:pointId", h.Geometries.UpdatePoint)
			geometries.POST("/:id/export", h.Exports.ExportPNG)
			geometries.GET("/:id/exports", h.Exports.List)
			geometries.GET("/:id/geojson", h.Exports.GeoJSON)
			geometries.GET("/:id/takeoff.xlsx", h.Exports.Takeoff)
		}

		photos := api.Group("/photos")
		{
			photos.POST("", h.Photos.Upload)
			photos.GET("", h.Photos.List)
		}

		boards := api.Group("/boards")
		{
			boards.POST("", h.Boards.Create)
			boards.GET("", h.Boards.List)
			boards.GET("/:id", h.Boards.Get)
			boards.POST("/:id/strokes", h.Boards.AddStroke)
			boards.POST("/:id/readings", h.Boards.AttachReading)
			boards.POST("/:id/shapes", h.Boards.PlaceShape)
			boards.PATCH("/:id/shapes/:shapeId", h.Boards.MoveShape)
			boards.DELETE("/:id/shapes/:shapeId", h.Boards.RemoveShape)
			boards.POST("/:id/undo", h.Boards.Undo)
			boards.POST("/:id/redo", h.Boards.Redo)
			boards.POST("/:id/clear", h.Boards.Clear)
			boards.PUT("/:id/view", h.Boards.SetView)
		}
	}

	return r
}
