package broker

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/nrin31266/stomphub/internal/adapter/metrics"
	"github.com/nrin31266/stomphub/internal/domain"
	"github.com/nrin31266/stomphub/internal/stomp"
)

type connState int

const (
	statePending connState = iota
	stateEstablished
	stateClosed
)

// Conn is the broker-side handle for one WebSocket connection. The
// username is captured from the handshake query parameter at upgrade
// time; the CONNECT frame itself carries no username header.
type Conn struct {
	id       string
	ip       string
	port     int
	username string
	writer   *connWriter

	state connState // guarded by the broker mutex
}

// ID returns the opaque connection id, stable for the connection's lifetime.
func (c *Conn) ID() string { return c.id }

type subKey struct {
	sessionID string
	subID     string
}

// Broker owns all shared pub/sub state. A single RW mutex guards the
// session registry, the subscription index (both directions) and the
// connection table; every read and write is individually atomic.
// Cross-structure atomicity is not required: transient inconsistency
// during a cleanup is acceptable as long as it is resolved before the
// cleanup returns.
type Broker struct {
	clock   clockwork.Clock
	metrics *metrics.BrokerMetrics // nil-safe

	mu       sync.RWMutex
	sessions map[string]*session
	conns    map[string]*Conn
	topics   map[string]map[string]struct{} // topic -> set of session ids
	subs     map[subKey]string              // (session, subscription id) -> topic
}

// New constructs a broker. There are no hidden globals: the one instance
// built at startup is handed to the transport layer and to collaborators.
func New(clock clockwork.Clock, m *metrics.BrokerMetrics) *Broker {
	return &Broker{
		clock:    clock,
		metrics:  m,
		sessions: make(map[string]*session),
		conns:    make(map[string]*Conn),
		topics:   make(map[string]map[string]struct{}),
		subs:     make(map[subKey]string),
	}
}

// Attach wraps a freshly upgraded WebSocket connection. The connection is
// not tracked until its CONNECT frame is accepted.
func (b *Broker) Attach(wsConn *websocket.Conn, username string) *Conn {
	ip, port := splitRemoteAddr(wsConn.RemoteAddr().String())
	return &Conn{
		id:       uuid.NewString(),
		ip:       ip,
		port:     port,
		username: username,
		writer:   newConnWriter(wsConn),
	}
}

func splitRemoteAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Publish serializes the payload and fans it out to every subscriber of
// the topic, tagging each MESSAGE frame with that recipient's own
// subscription id. A topic without subscribers is a complete no-op. A
// failed delivery to one recipient is logged and skipped; it never aborts
// delivery to the rest.
func (b *Broker) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal publish payload", "topic", topic, "error", err)
		return
	}

	type recipient struct {
		conn  *Conn
		subID string
	}

	b.mu.RLock()
	subscribers := b.topics[topic]
	recipients := make([]recipient, 0, len(subscribers))
	for sessionID := range subscribers {
		conn, ok := b.conns[sessionID]
		if !ok {
			continue
		}
		recipients = append(recipients, recipient{conn: conn, subID: b.resolveSubscriptionID(sessionID, topic)})
	}
	b.mu.RUnlock()

	for _, r := range recipients {
		if !r.conn.writer.open() {
			continue
		}
		frame := stomp.Message(topic, uuid.NewString(), r.subID, data)
		if err := r.conn.writer.send(frame); err != nil {
			slog.Warn("Failed to deliver message", "topic", topic, "session_id", r.conn.id, "error", err)
			if b.metrics != nil {
				b.metrics.DeliveryFailures.Inc()
			}
			continue
		}
		if b.metrics != nil {
			b.metrics.MessagesDelivered.Inc()
		}
	}
}

// SendToUser publishes to the user's private topic.
func (b *Broker) SendToUser(username string, payload any) {
	b.Publish("/user/"+username, payload)
}

// resolveSubscriptionID reverse-scans the (session, subscription id) index
// for a pair matching this session and topic. Subscriptions can race with
// unsubscribe, so a missing pair falls back to a deterministic id derived
// from the topic name's hash. Callers must hold at least a read lock.
func (b *Broker) resolveSubscriptionID(sessionID, topic string) string {
	for key, t := range b.subs {
		if key.sessionID == sessionID && t == topic {
			return key.subID
		}
	}
	h := fnv.New32a()
	h.Write([]byte(topic))
	return fmt.Sprintf("sub-%d", h.Sum32()%1000)
}

// ActiveSessions returns a read-only snapshot of every established session.
func (b *Broker) ActiveSessions() []domain.SessionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	infos := make([]domain.SessionInfo, 0, len(b.sessions))
	for _, s := range b.sessions {
		infos = append(infos, s.snapshot())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].SessionID < infos[j].SessionID })
	return infos
}

// TopicSubscriptions returns a snapshot of every topic and its subscriber ids.
func (b *Broker) TopicSubscriptions() map[string][]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string][]string, len(b.topics))
	for topic, subscribers := range b.topics {
		ids := make([]string, 0, len(subscribers))
		for id := range subscribers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[topic] = ids
	}
	return out
}

// heartbeat sends a transport-level ping to every tracked connection.
// Ping failures are logged and otherwise swallowed; the dead connection is
// reclaimed by the next sweep instead of failing the heartbeat loop.
func (b *Broker) heartbeat() {
	b.mu.RLock()
	conns := make([]*Conn, 0, len(b.conns))
	for _, c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.RUnlock()

	for _, c := range conns {
		if err := c.writer.ping(); err != nil {
			slog.Debug("Heartbeat ping failed", "session_id", c.id, "error", err)
		}
	}
}

// sweep reclaims every tracked connection whose transport reports closed:
// the same cleanup as an explicit disconnect, run out-of-band from any
// connection's handler.
func (b *Broker) sweep() {
	b.mu.RLock()
	var dead []*Conn
	for _, c := range b.conns {
		if !c.writer.open() {
			dead = append(dead, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range dead {
		slog.Info("Cleaning up inactive connection", "session_id", c.id, "username", c.username)
		c.writer.stop()
		b.cleanup(c)
		if b.metrics != nil {
			b.metrics.SweepRemovals.Inc()
		}
	}
}

// cleanup removes the connection's session from every topic it holds,
// drops its subscription id mappings, removes it from the registry and the
// connection table, and marks the connection closed. Idempotent.
func (b *Broker) cleanup(c *Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanupLocked(c)
}

func (b *Broker) cleanupLocked(c *Conn) {
	c.state = stateClosed

	s, ok := b.sessions[c.id]
	if ok {
		for topic := range s.topics {
			b.removeSubscriberLocked(topic, c.id)
		}
	}
	for key := range b.subs {
		if key.sessionID == c.id {
			delete(b.subs, key)
		}
	}
	delete(b.sessions, c.id)
	delete(b.conns, c.id)

	if ok && b.metrics != nil {
		b.metrics.ActiveSessions.Dec()
	}
}

// removeSubscriberLocked drops a session from a topic's subscriber set,
// pruning the topic once the set becomes empty.
func (b *Broker) removeSubscriberLocked(topic, sessionID string) {
	subscribers, ok := b.topics[topic]
	if !ok {
		return
	}
	delete(subscribers, sessionID)
	if len(subscribers) == 0 {
		delete(b.topics, topic)
	}
}

// Shutdown closes every tracked connection and clears all shared state.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	conns := make([]*Conn, 0, len(b.conns))
	for _, c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.writer.stop()
		b.cleanup(c)
	}
}
