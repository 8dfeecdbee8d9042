package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultCleanupInterval   = 5 * time.Minute
)

// Supervisor runs the broker's two periodic liveness tasks: heartbeat
// pings to every open connection, and a sweep that prunes sessions whose
// transport has died. Both operate on the broker's shared state under the
// same locking discipline as the connection handlers.
type Supervisor struct {
	broker            *Broker
	clock             clockwork.Clock
	heartbeatInterval time.Duration
	cleanupInterval   time.Duration
}

// NewSupervisor creates a supervisor. Zero intervals fall back to the
// defaults (30s heartbeat, 5m sweep).
func NewSupervisor(b *Broker, clock clockwork.Clock, heartbeatInterval, cleanupInterval time.Duration) *Supervisor {
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	return &Supervisor{
		broker:            b,
		clock:             clock,
		heartbeatInterval: heartbeatInterval,
		cleanupInterval:   cleanupInterval,
	}
}

// Run starts both periodic tasks and blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	heartbeat := s.clock.NewTicker(s.heartbeatInterval)
	defer heartbeat.Stop()

	cleanup := s.clock.NewTicker(s.cleanupInterval)
	defer cleanup.Stop()

	slog.Info("Liveness supervisor started",
		"heartbeat_interval", s.heartbeatInterval,
		"cleanup_interval", s.cleanupInterval,
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.Chan():
			s.broker.heartbeat()
		case <-cleanup.Chan():
			s.broker.sweep()
		}
	}
}
