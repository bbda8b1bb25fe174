package v1

import (
	"net/http"

	"github.com/carelinkhq/carelink/internal/config"
	"github.com/carelinkhq/carelink/internal/handler/middleware"
	"github.com/carelinkhq/carelink/pkg/auth"
	"github.com/carelinkhq/carelink/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth     *AuthHandler
	Patients *PatientHandler
	Scans    *ScanHandler
}

// NewRouter wires middleware and routes. Register/login/refresh, health,
// and metrics are the only unauthenticated paths.
func NewRouter(cfg *config.Config, log *zap.Logger, col *metrics.Collector, jwtManager *auth.JWTManager, h Handlers) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Observe(log, col))

	// Multipart bodies are bounded a little above the scan cap; the
	// pipeline enforces the precise limit.
	r.MaxMultipartMemory = cfg.Ingest.MaxScanBytes + 1<<20

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.Auth(jwtManager))
	{
		protected.POST("/patients", h.Patients.Create)
		protected.GET("/patients/linked", h.Patients.Linked)
		protected.GET("/patients/:id", h.Patients.Get)
		protected.POST("/patients/:id/link", h.Patients.RetryLink)

		protected.POST("/patients/:id/scans", h.Scans.Upload)
		protected.GET("/patients/:id/scans", h.Scans.List)
	}

	return r
}
