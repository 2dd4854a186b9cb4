// Package v1 assembles the /api/v1 surface: auth, reports and schedule
// handlers behind the shared middleware chain.
package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"manutencao-predial/portal-backend/internal/auth"
	"manutencao-predial/portal-backend/internal/config"
	"manutencao-predial/portal-backend/internal/cronograma"
	"manutencao-predial/portal-backend/internal/middleware"
	"manutencao-predial/portal-backend/internal/reports"
	"manutencao-predial/portal-backend/internal/reports/assets"
	"manutencao-predial/portal-backend/internal/reports/composer"
	"manutencao-predial/portal-backend/internal/reports/merge"
	"manutencao-predial/portal-backend/pkg/security"
	"manutencao-predial/portal-backend/pkg/storage"
)

// headers the browser client reads from document responses
var exposedHeaders = []string{
	"Content-Disposition", "X-Report-Pages", "X-Report-Warnings", "X-Archive-Key", "X-Skipped-Inputs",
}

// Dependencies are the process-wide collaborators built by main
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	// S3 is nil when archiving is disabled
	S3       storage.S3Client
	Schedule cronograma.Store
}

// API holds the handlers of every route group
type API struct {
	Auth     *auth.Handler
	Reports  *reports.Handler
	Schedule *cronograma.Handler

	config  *config.Config
	logger  *zap.Logger
	limiter *rate.Limiter
}

// Setup wires services and handlers from configuration
func Setup(deps Dependencies) (*API, error) {
	cfg, logger := deps.Config, deps.Logger

	skins, err := composer.LoadSkins(cfg.Reports.SkinsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load skins: %w", err)
	}
	loader := assets.NewLoader(cfg.Reports.AssetsDir, logger)
	comp := composer.NewComposer(skins, loader, security.NewPasswordSource(), composer.Options{
		CompanyName:     cfg.Reports.CompanyName,
		CompanyContacts: cfg.Reports.CompanyContacts,
		Website:         cfg.Reports.Website,
		ProtectOutput:   cfg.Reports.ProtectOutput,
	}, logger)

	var archive *reports.Archive
	if deps.S3 != nil {
		archive = reports.NewArchive(deps.S3, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
	}
	reportService := reports.NewService(comp, merge.NewMerger(logger), archive, logger)

	renderer := cronograma.NewRenderer(cronograma.RendererOptions{
		CompanyName:     cfg.Reports.CompanyName,
		CompanyContacts: cfg.Reports.CompanyContacts,
		Brand:           cfg.Reports.Website,
	}, loader, logger)
	scheduleService := cronograma.NewService(deps.Schedule, renderer, logger)

	authService := auth.NewService(auth.Options{
		Secret:       []byte(cfg.Security.JWTSecret),
		TTL:          cfg.Security.TokenTTL,
		Username:     cfg.Security.AdminUser,
		PasswordHash: []byte(cfg.Security.AdminPasswordHash),
	}, logger)

	dev := cfg.Server.DevMode
	return &API{
		Auth:     auth.NewHandler(authService, dev),
		Reports:  reports.NewHandler(reportService, logger, cfg.Reports.MaxUploadBytes(), dev),
		Schedule: cronograma.NewHandler(scheduleService, logger, dev),
		config:   cfg,
		logger:   logger,
		limiter:  middleware.NewLimiter(cfg.Reports.RateLimitPerMinute),
	}, nil
}

// Router builds the gin engine
func (a *API) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(cors.New(a.corsConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, a.Auth)

	protected := api.Group("", a.Auth.RequireAuth())
	render := middleware.RateLimit(a.limiter)
	a.Reports.RegisterRoutes(protected, render)
	a.Schedule.RegisterRoutes(protected, render)

	return r
}

func (a *API) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: exposedHeaders,
		MaxAge:        12 * time.Hour,
	}
	origins := a.config.CORS.AllowedOrigins
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
