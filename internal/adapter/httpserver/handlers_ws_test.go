package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrin31266/stomphub/internal/broker"
)

func newWSTestServer(t *testing.T, opts ...func(*Server)) (*httptest.Server, *Server) {
	t.Helper()

	b := broker.New(clockwork.NewRealClock(), nil)
	srv := newTestServer(t, &mockUserRepo{}, b, opts...)

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(func() {
		b.Shutdown()
		ts.Close()
	})
	return ts, srv
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
}

func TestWebSocket_ConnectRoundTrip(t *testing.T) {
	ts, _ := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?username=alice"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("CONNECT\naccept-version:1.2\n\n\x00")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	frame := string(data)
	assert.True(t, strings.HasPrefix(frame, "CONNECTED\n"))
	assert.Contains(t, frame, "user-name:alice\n")
}

func TestWebSocket_AtCapacity(t *testing.T) {
	ts, _ := newWSTestServer(t, withWSLimit(0))

	resp, err := http.Get(ts.URL + "/ws?username=alice")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebSocket_OriginRejected(t *testing.T) {
	ts, srv := newWSTestServer(t)

	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "?username=alice"), header)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The failed upgrade must not leak a connection slot.
	assert.Eventually(t, func() bool {
		return srv.wsLimiter.Current() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestWebSocket_AllowedOriginAccepted(t *testing.T) {
	ts, _ := newWSTestServer(t)

	header := http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?username=alice"), header)
	require.NoError(t, err)
	conn.Close()
}

func TestWebSocket_SlotReleasedOnClose(t *testing.T) {
	ts, srv := newWSTestServer(t, withWSLimit(1))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?username=alice"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), srv.wsLimiter.Current())

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return srv.wsLimiter.Current() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
