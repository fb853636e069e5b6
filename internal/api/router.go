package api

import (
	"time"

	"sentinel-panel/internal/activity"
	"sentinel-panel/internal/auth"
	"sentinel-panel/internal/command"
	"sentinel-panel/internal/stats"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Config struct {
	BasePath          string
	DashboardURL      string
	AllowedOrigins    []string
	RequestsPerMinute int
	CookieName        string
	CookieMaxAge      time.Duration
	// SecureCookie forces the Secure attribute; TLS requests always get it.
	SecureCookie bool
}

type Deps struct {
	Auth     *auth.Service
	Gate     *auth.Gate
	Stats    *stats.Service
	Registry *command.Registry
	Activity *activity.Logger
	Logger   *zap.Logger
}

type handlers struct {
	cfg      Config
	auth     *auth.Service
	gate     *auth.Gate
	stats    *stats.Service
	registry *command.Registry
	activity *activity.Logger
	logger   *zap.Logger
}

func NewRouter(cfg Config, deps Deps) *gin.Engine {
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.CookieMaxAge <= 0 {
		cfg.CookieMaxAge = 7 * 24 * time.Hour
	}
	h := &handlers{
		cfg:      cfg,
		auth:     deps.Auth,
		gate:     deps.Gate,
		stats:    deps.Stats,
		registry: deps.Registry,
		activity: deps.Activity,
		logger:   deps.Logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(deps.Logger))
	router.Use(CORS(cfg.AllowedOrigins))
	router.Use(NewRateLimiter(cfg.RequestsPerMinute).Handler())

	base := router.Group(cfg.BasePath)
	base.GET("/health", h.health)

	authGroup := base.Group("/auth")
	authGroup.GET("/login", h.login)
	authGroup.GET("/callback", h.callback)
	authGroup.GET("/me", h.me)
	authGroup.POST("/logout", h.logout)

	protected := base.Group("")
	protected.Use(h.RequireSession)
	protected.GET("/stats", h.botStats)
	protected.GET("/guilds", h.guilds)
	protected.GET("/commands", h.commands)
	protected.GET("/activity", h.recentActivity)

	return router
}
