package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nrin31266/stomphub/internal/adapter/metrics"
	"github.com/nrin31266/stomphub/internal/broker"
	"github.com/nrin31266/stomphub/internal/domain"
	"github.com/nrin31266/stomphub/internal/platform/config"
)

// brokerHub is the slice of the message broker the HTTP layer needs:
// attaching upgraded WebSocket connections, feeding them frames, and
// inspecting or publishing to the live session state.
type brokerHub interface {
	domain.Publisher

	Attach(wsConn *websocket.Conn, username string) *broker.Conn
	HandleFrame(c *broker.Conn, raw string)
	HandleClose(c *broker.Conn)
	ActiveSessions() []domain.SessionInfo
	TopicSubscriptions() map[string][]string
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	users domain.UserRepository
	hub   brokerHub

	upgrader  websocket.Upgrader
	wsLimiter *GlobalConnectionLimiter

	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, users domain.UserRepository, hub brokerHub, metricsHandler http.Handler, httpMetrics *metrics.HTTPMetrics, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		users:          users,
		hub:            hub,
		wsLimiter:      NewGlobalConnectionLimiter(cfg.MaxWebSocketConnections),
		metricsHandler: metricsHandler,
		httpMetrics:    httpMetrics,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     newOriginChecker(cfg.Origins()),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
