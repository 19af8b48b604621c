package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"interview-scheduler/internal/app"
)

type RouterConfig struct {
	JWTSecret []byte
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
	// TracingService enables otelgin spans under this service name when non-empty.
	TracingService string
}

func NewRouter(a *app.App, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// OTel creates the span first so recovery and request logs carry its ids
	if cfg.TracingService != "" {
		router.Use(otelgin.Middleware(cfg.TracingService))
	}
	router.Use(Recovery())
	router.Use(Logger())

	SetupRoutes(router, a, cfg)
	return router
}

func SetupRoutes(router *gin.Engine, a *app.App, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}

	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.OAuth2CallbackHandler)

	authed := router.Group("/", app.AuthMiddleware(cfg.JWTSecret))
	recruiterOnly := app.RequireRole(app.RoleRecruiter)

	availability := authed.Group("/recruiter/availability")
	{
		availability.GET("", a.ListAvailabilityHandler)
		availability.GET("/slots", a.GetSlotsHandler)
		availability.POST("", recruiterOnly, a.CreateAvailabilityHandler)
		availability.DELETE("/:id", recruiterOnly, a.DeleteAvailabilityHandler)
	}

	interviews := authed.Group("/interviews")
	{
		interviews.POST("/create-invitation", recruiterOnly, a.CreateInvitationHandler)
		interviews.GET("/invitations/:id", a.GetInvitationHandler)
		interviews.POST("/invitations/:id/confirm", app.RequireRole(app.RoleCandidate), a.ConfirmInvitationHandler)
		interviews.POST("/invitations/:id/expire", recruiterOnly, a.ExpireInvitationHandler)
	}

	authed.GET("/calendar/auth", recruiterOnly, a.CalendarAuthHandler)
}
