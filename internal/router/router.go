package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-records/internal/handler"
	"github.com/jwalitptl/patient-records/internal/handler/patient"
	"github.com/jwalitptl/patient-records/internal/handler/prometheus"
	"github.com/jwalitptl/patient-records/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	// BasePath is where the patient collection is mounted, e.g. /patients
	BasePath    string
	CORSOrigins []string
	RateLimit   rate.Limit
	RateBurst   int
}

// Router wires the development patient store
type Router struct {
	engine  *gin.Engine
	patient Handler
	h       *handler.Handler
	metrics *prometheus.Handler
	config  RouterConfig
	log     zerolog.Logger
}

func NewRouter(patientH *patient.Handler, h *handler.Handler, metrics *prometheus.Handler, config RouterConfig, log zerolog.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)

	if config.BasePath == "" {
		config.BasePath = "/patients"
	}
	if !strings.HasPrefix(config.BasePath, "/") {
		config.BasePath = "/" + config.BasePath
	}

	r := &Router{
		engine:  gin.New(),
		patient: patientH,
		h:       h,
		metrics: metrics,
		config:  config,
		log:     log,
	}

	r.engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		metrics.Middleware(),
	)

	origins := config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.HeaderXRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderXRequestID},
		MaxAge:        12 * time.Hour,
	}))

	if config.RateLimit > 0 {
		r.engine.Use(rateLimit(rate.NewLimiter(config.RateLimit, max(config.RateBurst, 1))))
	}

	return r
}

func (r *Router) Setup() {
	health := r.engine.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
	}
	r.engine.GET("/metrics", r.metrics.Handler())

	r.patient.RegisterRoutes(r.engine.Group(r.config.BasePath))
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			handler.Abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
