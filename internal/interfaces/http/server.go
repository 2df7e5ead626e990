// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application
// service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/facturio/facturio/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config           ServerConfig
	httpServer       *http.Server
	router           *gin.Engine
	clientService    service.ClientService
	invoiceService   service.InvoiceService
	ledgerService    service.LedgerService
	schedulerService service.SchedulerService
	notifierService  service.NotifierService
	logger           Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	clientService service.ClientService,
	invoiceService service.InvoiceService,
	ledgerService service.LedgerService,
	schedulerService service.SchedulerService,
	notifierService service.NotifierService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:           config,
		router:           gin.New(),
		clientService:    clientService,
		invoiceService:   invoiceService,
		ledgerService:    ledgerService,
		schedulerService: schedulerService,
		notifierService:  notifierService,
		logger:           logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(
		s.clientService,
		s.invoiceService,
		s.ledgerService,
		s.schedulerService,
		s.notifierService,
		s.logger,
	)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/clients", handlers.CreateClient)
		api.GET("/clients", handlers.ListClients)
		api.GET("/clients/:id", handlers.GetClient)
		api.PUT("/clients/:id", handlers.UpdateClient)

		api.POST("/invoices", handlers.CreateInvoice)
		api.GET("/invoices", handlers.ListInvoices)
		api.GET("/invoices/:id", handlers.GetInvoice)
		api.PATCH("/invoices/:id/status", handlers.UpdateInvoiceStatus)

		api.POST("/invoices/:id/payments", handlers.AddPayment)
		api.DELETE("/invoices/:id/payments/:paymentId", handlers.RemovePayment)

		api.POST("/templates", handlers.CreateTemplate)
		api.GET("/templates", handlers.ListTemplates)
		api.GET("/templates/:id", handlers.GetTemplate)
		api.PATCH("/templates/:id/active", handlers.SetTemplateActive)
		api.POST("/templates/:id/generate", handlers.GenerateFromTemplate)
		api.POST("/scheduler/run", handlers.RunScheduler)

		api.POST("/notifications/scan", handlers.ScanNotifications)
		api.GET("/notifications", handlers.ListNotifications)
		api.PATCH("/notifications/:id/read", handlers.MarkNotificationRead)
		api.DELETE("/notifications/:id", handlers.DeleteNotification)
	}
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

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
