// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/docspace-portals/backend/internal/logging"
	"github.com/docspace-portals/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store         storage.Store
	StorageDriver string
	Resolver      AssignmentResolver
	Platform      FormsPlatform
	Exporter      ScriptExporter
	Logger        *zap.Logger
	Version       string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Patients  PatientHandler
	FillSign  FillSignHandler
	Templates TemplateHandler
	Export    ExportHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.StorageDriver),
		Patients:  NewPatientHandler(deps.Store),
		FillSign:  NewFillSignHandler(deps.Store, deps.Resolver, deps.Platform, deps.Logger),
		Templates: NewTemplateHandler(deps.Platform),
		Export:    NewExportHandler(deps.Exporter),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Patient directory
	apiGroup.GET("/patients", handlers.Patients.HandleListPatients)
	apiGroup.POST("/patients", handlers.Patients.HandleCreatePatient)
	apiGroup.GET("/patients/:patientId", handlers.Patients.HandleGetPatient)

	// Fill & sign assignments
	fillSign := apiGroup.Group("/patients/:patientId/fill-sign")
	fillSign.GET("", handlers.FillSign.HandleListAssignments)
	fillSign.POST("", handlers.FillSign.HandleCreateAssignment)
	fillSign.DELETE("/:assignmentId", handlers.FillSign.HandleDeleteAssignment)

	// Form templates
	apiGroup.GET("/templates", handlers.Templates.HandleListTemplates)

	// Spreadsheet export plugin
	apiGroup.POST("/export/script", handlers.Export.HandleBuildScript)
}

// RegisterMetricsRoute exposes Prometheus metrics at /metrics
func RegisterMetricsRoute(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// MiddlewareConfig configures SetupMiddleware
type MiddlewareConfig struct {
	Logger         *zap.Logger
	RequestLogging bool
	EnableCORS     bool
	AllowOrigins   string
	BodyLimit      string
	ExposeErrors   bool

	// RequestTimeout bounds the request context seen by handlers; zero disables it.
	RequestTimeout time.Duration

	EnableCompression bool
	CompressionLevel  int
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = NewErrorHandler(cfg.ExposeErrors)

	if cfg.RequestLogging && cfg.Logger != nil {
		e.Use(logging.RequestLogger(cfg.Logger))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.RequestTimeout,
			// Deadline errors reach HTTPErrorHandler, which renders them as 504.
			ErrorHandler: func(err error, c echo.Context) error {
				return err
			},
		}))
	}

	if cfg.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/metrics"
			},
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		origins := strings.Split(cfg.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
}
