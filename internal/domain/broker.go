package domain

// SessionInfo is a read-only snapshot of one authenticated connection.
type SessionInfo struct {
	SessionID        string   `json:"sessionId"`
	IP               string   `json:"ip"`
	Port             int      `json:"port"`
	Username         string   `json:"username"`
	Active           bool     `json:"active"`
	SubscribedTopics []string `json:"subscribedTopics"`
}

// Envelope wraps every published payload before delivery. Content carries
// parsed JSON when the sender declared application/json and the body parsed,
// otherwise the raw body text. Timestamp is milliseconds since epoch.
type Envelope struct {
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
	Content   any    `json:"content"`
}

// Publisher is the broker API consumed by collaborators (the HTTP layer)
// to notify subscribers after domain mutations. Both calls are
// fire-and-forget: a topic without subscribers is a no-op.
type Publisher interface {
	Publish(topic string, payload any)
	SendToUser(username string, payload any)
}
