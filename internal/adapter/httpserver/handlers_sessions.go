package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) registerSessionRoutes(rateLimit echo.MiddlewareFunc) {
	s.echo.GET("/ss-users", s.handleActiveSessions, rateLimit)
	s.echo.GET("/ss-topics", s.handleTopicSubscriptions, rateLimit)
}

func (s *Server) handleActiveSessions(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.hub.ActiveSessions()); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleTopicSubscriptions(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.hub.TopicSubscriptions()); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
