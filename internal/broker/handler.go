package broker

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nrin31266/stomphub/internal/domain"
	"github.com/nrin31266/stomphub/internal/stomp"
)

// HandleFrame processes one inbound text message from a connection.
// Unrecognized input is answered with an ERROR frame and the connection
// stays open; a panic during handling is reported the same way instead of
// crashing the read loop.
func (b *Broker) HandleFrame(c *Conn, raw string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while handling frame", "session_id", c.id, "panic", r)
			if err := c.writer.send(stomp.Error("Internal server error")); err != nil {
				slog.Debug("Failed to send error frame", "session_id", c.id, "error", err)
			}
		}
	}()

	b.mu.RLock()
	closed := c.state == stateClosed
	b.mu.RUnlock()
	if closed {
		return
	}

	frame, err := stomp.Parse(raw)
	if err != nil {
		b.sendError(c, "Invalid STOMP frame")
		return
	}

	switch frame.Command {
	case stomp.CommandConnect, stomp.CommandStomp:
		b.handleConnect(c)
	case stomp.CommandSubscribe:
		b.handleSubscribe(c, frame)
	case stomp.CommandUnsubscribe:
		b.handleUnsubscribe(c, frame)
	case stomp.CommandSend:
		b.handleSend(c, frame)
	case stomp.CommandDisconnect:
		b.handleDisconnect(c, frame)
	}
}

// HandleClose runs the disconnect cleanup for a transport-level close
// where no DISCONNECT frame was received. Safe to call more than once.
func (b *Broker) HandleClose(c *Conn) {
	b.mu.RLock()
	s, hadSession := b.sessions[c.id]
	b.mu.RUnlock()
	if hadSession {
		slog.Info("Disconnected", "username", s.username, "session_id", c.id)
	}

	b.cleanup(c)
	c.writer.stop()
}

func (b *Broker) sendError(c *Conn, message string) {
	if err := c.writer.send(stomp.Error(message)); err != nil {
		slog.Debug("Failed to send error frame", "session_id", c.id, "error", err)
	}
}

// handleConnect accepts the handshake. The username was supplied as a
// query parameter when the connection was established; a missing or blank
// username is fatal to the connection and no session is created.
func (b *Broker) handleConnect(c *Conn) {
	if strings.TrimSpace(c.username) == "" {
		b.sendError(c, "Username is required")
		b.mu.Lock()
		c.state = stateClosed
		b.mu.Unlock()
		c.writer.stop()
		return
	}

	b.mu.Lock()
	_, existed := b.sessions[c.id]
	b.sessions[c.id] = newSession(c.id, c.ip, c.port, c.username)
	b.conns[c.id] = c
	c.state = stateEstablished
	b.mu.Unlock()

	if !existed && b.metrics != nil {
		b.metrics.ActiveSessions.Inc()
	}

	if err := c.writer.send(stomp.Connected(c.username)); err != nil {
		slog.Warn("Failed to send CONNECTED frame", "session_id", c.id, "error", err)
		return
	}
	slog.Info("STOMP connected", "username", c.username, "ip", c.ip)
}

// handleSubscribe registers the session for a topic. The destination may
// contain the {username} placeholder, substituted with the session's
// username, so two sessions subscribing to the same templated string end
// up under different concrete topics unless usernames match. A frame
// missing either required header is silently ignored.
func (b *Broker) handleSubscribe(c *Conn, frame *stomp.Frame) {
	destination, hasDest := frame.Header(stomp.HeaderDestination)
	subID, hasID := frame.Header(stomp.HeaderID)
	if !hasDest || !hasID {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[c.id]
	if !ok {
		return
	}

	topic := strings.ReplaceAll(destination, "{username}", s.username)
	s.topics[topic] = struct{}{}

	subscribers, ok := b.topics[topic]
	if !ok {
		subscribers = make(map[string]struct{})
		b.topics[topic] = subscribers
	}
	subscribers[c.id] = struct{}{}
	b.subs[subKey{sessionID: c.id, subID: subID}] = topic

	slog.Info("Subscribed", "username", s.username, "topic", topic, "subscription_id", subID)
}

// handleUnsubscribe resolves the topic through the (session, id) mapping
// and removes exactly that membership. The session stays in the topic's
// subscriber set while another of its subscription ids still maps there.
// An unknown id is a no-op.
func (b *Broker) handleUnsubscribe(c *Conn, frame *stomp.Frame) {
	subID, ok := frame.Header(stomp.HeaderID)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := subKey{sessionID: c.id, subID: subID}
	topic, ok := b.subs[key]
	if !ok {
		return
	}
	delete(b.subs, key)

	for other, t := range b.subs {
		if other.sessionID == c.id && t == topic {
			return // another subscription of this session still covers the topic
		}
	}

	b.removeSubscriberLocked(topic, c.id)
	if s, ok := b.sessions[c.id]; ok {
		delete(s.topics, topic)
		slog.Info("Unsubscribed", "username", s.username, "topic", topic, "subscription_id", subID)
	}
}

// handleSend wraps the body in a {from, timestamp, content} envelope and
// publishes it to the destination. A body that claims application/json but
// fails to parse is carried as raw text rather than failing the send.
func (b *Broker) handleSend(c *Conn, frame *stomp.Frame) {
	destination, hasDest := frame.Header(stomp.HeaderDestination)
	if !hasDest || frame.Body == "" {
		return
	}

	username := "unknown"
	b.mu.RLock()
	if s, ok := b.sessions[c.id]; ok {
		username = s.username
	}
	b.mu.RUnlock()

	var content any = frame.Body
	if contentType, _ := frame.Header(stomp.HeaderContentType); contentType == stomp.ContentTypeJSON {
		if json.Valid([]byte(frame.Body)) {
			content = json.RawMessage(frame.Body)
		}
	}

	envelope := domain.Envelope{
		From:      username,
		Timestamp: b.clock.Now().UnixMilli(),
		Content:   content,
	}
	b.Publish(destination, envelope)

	slog.Info("Message sent to topic", "username", username, "topic", destination)
}

// handleDisconnect acknowledges an optional receipt, then runs the full
// cleanup and closes the transport.
func (b *Broker) handleDisconnect(c *Conn, frame *stomp.Frame) {
	b.mu.RLock()
	s, ok := b.sessions[c.id]
	b.mu.RUnlock()
	if !ok {
		return
	}
	slog.Info("STOMP disconnect", "username", s.username)

	if receiptID, ok := frame.Header(stomp.HeaderReceipt); ok {
		if err := c.writer.send(stomp.Receipt(receiptID)); err != nil {
			slog.Debug("Failed to send receipt", "session_id", c.id, "error", err)
		}
	}

	b.cleanup(c)
	c.writer.stop()
}
