// Package http exposes the expense-report services over a JSON API.
// It is a thin adapter translating HTTP requests into application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gsblab/gsb-frais/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector instruments the router and serves the scrape endpoint
type MetricsCollector interface {
	Middleware() gin.HandlerFunc
	Handler() http.Handler
}

// HealthFunc reports overall health and a status line per component
type HealthFunc func() (healthy bool, components map[string]string)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
	MetricsPath    string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxUploadBytes: 10 << 20,
		MetricsPath:    "/metrics",
	}
}

// Services groups the application services the API serves
type Services struct {
	Auth           service.AuthService
	Reports        service.ReportService
	Expenses       service.ExpenseService
	Directory      service.DirectoryService
	Justifications service.JustificationService
	Export         service.ExportService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	metrics    MetricsCollector
	health     HealthFunc
	logger     Logger
}

// Option configures optional server features
type Option func(*Server)

// WithHealth backs GET /health with component checks
func WithHealth(fn HealthFunc) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// NewServer creates a new HTTP server with the given services.
// metrics may be nil, in which case no /metrics route is registered.
func NewServer(config ServerConfig, services Services, metrics MetricsCollector, logger Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware())
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config.MaxUploadBytes, s.logger)
	h.health = s.health

	s.router.GET("/health", h.HealthCheck)
	if s.metrics != nil {
		path := s.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	api.POST("/auth/login", h.Login)

	visitor := api.Group("/visitor", s.authMiddleware(), requireRole(visitorRole))
	{
		visitor.GET("/months", h.VisitorMonths)
		visitor.GET("/reports/:month", h.VisitorReport)
		visitor.POST("/reports/:month", h.VisitorEnsureReport)
		visitor.PUT("/reports/:month/flat-rate", h.VisitorUpdateFlatRate)
		visitor.POST("/reports/:month/itemized", h.VisitorCreateItemized)
		visitor.DELETE("/reports/:month/itemized/:lineID", h.VisitorDeleteItemized)
		visitor.POST("/reports/:month/justifications", h.VisitorUploadJustification)
	}

	accountant := api.Group("/accountant", s.authMiddleware(), requireRole(accountantRole))
	{
		accountant.GET("/visitors", h.ListVisitors)
		accountant.GET("/visitors/:id", h.GetVisitor)
		accountant.GET("/visitors/:id/months", h.VisitorMonthsForReview)

		reference := accountant.Group("/reference")
		reference.GET("/flat-rates", h.FlatRateTypes)
		reference.GET("/vehicles", h.VehicleRates)
		reference.GET("/states", h.States)

		report := accountant.Group("/visitors/:id/reports/:month")
		report.GET("", h.ReviewReport)
		report.PUT("/flat-rate", h.ReviewUpdateFlatRate)
		report.PUT("/itemized", h.ReviewUpdateItemized)
		report.POST("/itemized/:lineID/reject", h.RejectItemized)
		report.POST("/itemized/:lineID/defer", h.DeferItemized)
		report.DELETE("/itemized/:lineID", h.ReviewDeleteItemized)
		report.PUT("/justifications", h.UpdateJustificationCount)
		report.POST("/validate", h.ValidateReport)
		report.POST("/pay", h.PayReport)
		report.GET("/export", h.ExportReport)

		accountant.GET("/payments/:month", h.PaymentBatch)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or serving fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
