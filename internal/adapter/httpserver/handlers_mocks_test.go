package httpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nrin31266/stomphub/internal/broker"
	"github.com/nrin31266/stomphub/internal/domain"
	"github.com/nrin31266/stomphub/internal/platform/config"
)

// --- Mock implementations ---

type mockUserRepo struct {
	listFn   func(ctx context.Context) ([]domain.User, error)
	getFn    func(ctx context.Context, id int32) (*domain.User, error)
	createFn func(ctx context.Context, name, phone string) (*domain.User, error)
	updateFn func(ctx context.Context, id int32, name, phone string) (*domain.User, error)
	deleteFn func(ctx context.Context, id int32) error
}

func (m *mockUserRepo) List(ctx context.Context) ([]domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []domain.User{}, nil
}

func (m *mockUserRepo) Get(ctx context.Context, id int32) (*domain.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, name, phone string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, phone)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepo) Update(ctx context.Context, id int32, name, phone string) (*domain.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, name, phone)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepo) Delete(ctx context.Context, id int32) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

type publishedEvent struct {
	topic   string
	payload any
}

type mockHub struct {
	published []publishedEvent
	sessions  []domain.SessionInfo
	topics    map[string][]string
}

func (m *mockHub) Attach(wsConn *websocket.Conn, username string) *broker.Conn { return nil }
func (m *mockHub) HandleFrame(c *broker.Conn, raw string)                      {}
func (m *mockHub) HandleClose(c *broker.Conn)                                  {}

func (m *mockHub) ActiveSessions() []domain.SessionInfo {
	if m.sessions == nil {
		return []domain.SessionInfo{}
	}
	return m.sessions
}

func (m *mockHub) TopicSubscriptions() map[string][]string {
	if m.topics == nil {
		return map[string][]string{}
	}
	return m.topics
}

func (m *mockHub) Publish(topic string, payload any) {
	m.published = append(m.published, publishedEvent{topic: topic, payload: payload})
}

func (m *mockHub) SendToUser(username string, payload any) {
	m.Publish("/user/"+username, payload)
}

// --- Test server setup ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "test",
		Port:                    "0",
		AllowedOrigins:          "http://localhost:3000,http://localhost:5173",
		HeartbeatInterval:       30 * time.Second,
		CleanupInterval:         5 * time.Minute,
		MaxWebSocketConnections: 100,
		RateLimitPerSecond:      1000,
		RateLimitBurst:          1000,
	}
}

func newTestServer(t *testing.T, users domain.UserRepository, hub brokerHub, opts ...func(*Server)) *Server {
	t.Helper()

	cfg := testConfig()

	e := echo.New()
	srv := &Server{
		echo:      e,
		config:    cfg,
		users:     users,
		hub:       hub,
		wsLimiter: NewGlobalConnectionLimiter(cfg.MaxWebSocketConnections),
		startTime: time.Now(),
	}
	srv.upgrader = websocket.Upgrader{CheckOrigin: newOriginChecker(cfg.Origins())}

	for _, opt := range opts {
		opt(srv)
	}

	// Register routes so endpoints are available for testing
	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withWSLimit(max int64) func(*Server) {
	return func(s *Server) {
		s.wsLimiter = NewGlobalConnectionLimiter(max)
	}
}
