package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/api/websocket"
	"github.com/KevinKickass/OpenPowerCore/internal/auth"
	"github.com/KevinKickass/OpenPowerCore/internal/config"
	"github.com/KevinKickass/OpenPowerCore/internal/interfaces"
	"github.com/KevinKickass/OpenPowerCore/internal/power"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router      *gin.Engine
	lm          interfaces.LifecycleManager
	power       *power.Service
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.AuthService
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, authService *auth.AuthService) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:      gin.New(),
		lm:          lm,
		power:       lm.PowerService(),
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
	}

	s.setupRoutes()

	// Wake pulses block for their length, so writes get generous headroom.
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH (PUBLIC) ====================
		authPublic := v1.Group("/auth")
		{
			authPublic.POST("/login", s.login)
		}

		authProtected := v1.Group("/auth")
		authProtected.Use(s.authService.AuthMiddleware())
		{
			authProtected.GET("/me", s.getCurrentUser)
		}

		// ==================== INTERFACES ====================
		ifaces := v1.Group("/interfaces")
		ifaces.Use(s.authService.AuthMiddleware())
		{
			// Read: viewer+
			ifaces.GET("", auth.RequirePermission(auth.PermRead), s.listInterfaces)
			ifaces.GET("/:name/state", auth.RequirePermission(auth.PermRead), s.getInterfaceState)

			// Control: operator+
			ifaces.POST("/:name/power", auth.RequirePermission(auth.PermControl), s.setPower)
			ifaces.POST("/:name/wakeout", auth.RequirePermission(auth.PermControl), s.sendWakeout)
		}

		// ==================== WAKEOUT LENGTH ====================
		wake := v1.Group("/wakeout")
		wake.Use(s.authService.AuthMiddleware())
		{
			wake.GET("/length", auth.RequirePermission(auth.PermRead), s.getWakeoutLength)
			wake.PUT("/length", auth.RequirePermission(auth.PermConfigure), s.setWakeoutLength)
		}

		// ==================== PORTS ====================
		ports := v1.Group("/ports")
		ports.Use(s.authService.AuthMiddleware())
		ports.Use(auth.RequirePermission(auth.PermRead))
		{
			ports.GET("/:port", s.lookupPort)
		}

		// ==================== EVENT JOURNAL ====================
		events := v1.Group("/events")
		events.Use(s.authService.AuthMiddleware())
		events.Use(auth.RequirePermission(auth.PermRead))
		{
			events.GET("", s.listEvents)
		}

		// ==================== SYSTEM ====================
		system := v1.Group("/system")
		system.Use(s.authService.AuthMiddleware())
		{
			system.GET("/status", auth.RequirePermission(auth.PermRead), s.getSystemStatus)
			system.POST("/shutdown", auth.RequirePermission(auth.PermConfigure), s.shutdown)
		}

		// ==================== WEBSOCKET (auth via first message) ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.authService.AuthMiddleware(), auth.RequirePermission(auth.PermRead), s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
