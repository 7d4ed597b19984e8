package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/cataloger/api/handler"
	"github.com/use-agent/cataloger/api/middleware"
	"github.com/use-agent/cataloger/cache"
	"github.com/use-agent/cataloger/config"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Runner    handler.Runner
	Pool      handler.PoolReporter
	Sinks     []string
	Cache     *cache.Cache
	Gatherer  prometheus.Gatherer
	Config    *config.Config
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(d.Pool, d.Sinks, d.StartTime))

	protected := v1.Group("")
	if d.Config.Auth.Enabled {
		protected.Use(middleware.Auth(d.Config.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(d.Config.RateLimit))

	protected.POST("/harvest", handler.Harvest(d.Runner, d.Config.Harvest, d.Sinks, d.Config.Sink.Dir, d.Cache))
	protected.POST("/extract", handler.Extract(d.Runner))

	return r
}
