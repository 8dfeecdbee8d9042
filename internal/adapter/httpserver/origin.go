package httpserver

import (
	"log/slog"
	"net/http"
)

// newOriginChecker returns a CheckOrigin function for the WebSocket
// upgrader. Empty origins (same-origin and non-browser clients) are
// always allowed; anything else must match the configured allow list.
func newOriginChecker(allowed []string) func(r *http.Request) bool {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" {
			return true
		}

		if _, ok := allowedSet[origin]; ok {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}
