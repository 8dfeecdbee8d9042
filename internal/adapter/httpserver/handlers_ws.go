package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nrin31266/stomphub/internal/broker"
)

// handleWebSocket upgrades the request and runs the read pump. The
// username travels as a query parameter on the handshake; frame handling
// and all writes belong to the broker.
func (s *Server) handleWebSocket(c echo.Context) error {
	if !s.wsLimiter.Acquire() {
		slog.Warn("WebSocket connection rejected, at capacity",
			"current", s.wsLimiter.Current(), "max", s.wsLimiter.Max())
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "connection limit reached",
		})
	}

	wsConn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.wsLimiter.Release()
		// Upgrade already wrote the handshake failure response.
		slog.Warn("WebSocket upgrade failed", "remote_addr", c.Request().RemoteAddr, "error", err)
		return nil
	}

	username := c.QueryParam("username")
	conn := s.hub.Attach(wsConn, username)

	go s.readPump(wsConn, conn)

	return nil
}

func (s *Server) readPump(wsConn *websocket.Conn, conn *broker.Conn) {
	defer s.wsLimiter.Release()

	for {
		msgType, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read failed", "session_id", conn.ID(), "error", err)
			}
			s.hub.HandleClose(conn)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.hub.HandleFrame(conn, string(data))
	}
}
