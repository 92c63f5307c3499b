package handler

import (
	"github.com/dododo1295/notetree/middleware"
	"github.com/dododo1295/notetree/repository"
	"github.com/dododo1295/notetree/services"
	"github.com/dododo1295/notetree/usecase"
	"github.com/dododo1295/notetree/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Notes          *usecase.NotesService
	Store          repository.NoteStore
	Cache          Pinger
	Verifier       services.IdentityVerifier
	AllowedOrigins []string
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	utils.InitValidator()
	router := gin.New()

	router.Use(middleware.RequestTracingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	if cfg.MaxBodyBytes > 0 {
		router.Use(middleware.RequestSizeLimiter(cfg.MaxBodyBytes))
	}

	// Public routes (no authentication required)
	router.GET("/health", func(c *gin.Context) {
		HealthHandler(c, cfg.Store, cfg.Cache)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes (authentication required)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.Verifier))
	protected.Use(middleware.CacheControlMiddleware("no-store"))
	{
		auth := protected.Group("/auth")
		{
			auth.POST("/logout", func(c *gin.Context) {
				LogoutHandler(c, cfg.Verifier)
			})
		}

		notes := protected.Group("/notes")
		{
			notes.GET("", func(c *gin.Context) {
				GetUserNotesHandler(c, cfg.Notes)
			})
			notes.POST("", func(c *gin.Context) {
				CreateNoteHandler(c, cfg.Notes)
			})

			// Derived views
			notes.GET("/tree", func(c *gin.Context) {
				GetNoteTreeHandler(c, cfg.Notes)
			})
			notes.GET("/tags", func(c *gin.Context) {
				GetUserTagsHandler(c, cfg.Notes)
			})
			notes.GET("/search", func(c *gin.Context) {
				SearchNotesHandler(c, cfg.Notes)
			})

			notes.GET("/:id", func(c *gin.Context) {
				GetNoteHandler(c, cfg.Notes)
			})
			notes.PUT("/:id", func(c *gin.Context) {
				UpdateNoteHandler(c, cfg.Notes)
			})
			notes.DELETE("/:id", func(c *gin.Context) {
				DeleteNoteHandler(c, cfg.Notes)
			})
		}
	}

	return router
}
