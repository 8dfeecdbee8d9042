package broker

import (
	"sort"

	"github.com/nrin31266/stomphub/internal/domain"
)

// session is the broker-side record of one authenticated connection.
// Owned exclusively by the Broker; everything outside the registry refers
// to it by id and sees read-only snapshots.
type session struct {
	id       string
	ip       string
	port     int
	username string
	active   bool
	topics   map[string]struct{}
}

func newSession(id, ip string, port int, username string) *session {
	return &session{
		id:       id,
		ip:       ip,
		port:     port,
		username: username,
		active:   true,
		topics:   make(map[string]struct{}),
	}
}

func (s *session) snapshot() domain.SessionInfo {
	topics := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	return domain.SessionInfo{
		SessionID:        s.id,
		IP:               s.ip,
		Port:             s.port,
		Username:         s.username,
		Active:           s.active,
		SubscribedTopics: topics,
	}
}
