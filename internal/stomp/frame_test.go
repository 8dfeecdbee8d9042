package stomp

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscribe(t *testing.T) {
	frame, err := Parse("SUBSCRIBE\nid:sub-0\ndestination:/topic/manager/users\n\n\x00")
	require.NoError(t, err)

	assert.Equal(t, CommandSubscribe, frame.Command)

	id, ok := frame.Header(HeaderID)
	require.True(t, ok)
	assert.Equal(t, "sub-0", id)

	dest, ok := frame.Header(HeaderDestination)
	require.True(t, ok)
	assert.Equal(t, "/topic/manager/users", dest)

	assert.Empty(t, frame.Body)
}

func TestParseSendWithBody(t *testing.T) {
	frame, err := Parse("SEND\ndestination:/topic/chat\ncontent-type:application/json\n\n{\"text\":\"hi\"}\x00")
	require.NoError(t, err)

	assert.Equal(t, CommandSend, frame.Command)
	assert.Equal(t, `{"text":"hi"}`, frame.Body)

	ct, ok := frame.Header(HeaderContentType)
	require.True(t, ok)
	assert.Equal(t, ContentTypeJSON, ct)
}

func TestParseKeepsOnlyFirstBodyLine(t *testing.T) {
	frame, err := Parse("SEND\ndestination:/topic/chat\n\nline one\nline two\x00")
	require.NoError(t, err)
	assert.Equal(t, "line one", frame.Body)
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	cases := []string{
		"PING\n\n\x00",
		"hello world",
		"",
		"CONNECTED\nversion:1.2\n\n\x00", // server command, not valid inbound
		"SENDING\ndestination:/x\n\n\x00",
	}
	for _, raw := range cases {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrNotAFrame, "input %q", raw)
	}
}

func TestParseCommandMustBeExactFirstLine(t *testing.T) {
	// A command keyword with trailing garbage on the first line is not
	// treated as a malformed variant of the known command.
	_, err := Parse("CONNECT extra\n\n\x00")
	assert.ErrorIs(t, err, ErrNotAFrame)
}

func TestHeaderFirstMatchWins(t *testing.T) {
	frame, err := Parse("SUBSCRIBE\nid:first\nid:second\ndestination:/t\n\n\x00")
	require.NoError(t, err)

	id, ok := frame.Header(HeaderID)
	require.True(t, ok)
	assert.Equal(t, "first", id)
}

func TestHeaderValueIsTrimmed(t *testing.T) {
	frame, err := Parse("SUBSCRIBE\ndestination: /topic/x \nid:s1\n\n\x00")
	require.NoError(t, err)

	dest, _ := frame.Header(HeaderDestination)
	assert.Equal(t, "/topic/x", dest)
}

func TestHeaderMissing(t *testing.T) {
	frame, err := Parse("UNSUBSCRIBE\nid:s1\n\n\x00")
	require.NoError(t, err)

	_, ok := frame.Header(HeaderDestination)
	assert.False(t, ok)
}

func TestHeaderValueMayContainColon(t *testing.T) {
	frame, err := Parse("SEND\ndestination:/queue/a:b\n\nx\x00")
	require.NoError(t, err)

	dest, _ := frame.Header(HeaderDestination)
	assert.Equal(t, "/queue/a:b", dest)
}

func TestConnectedFrame(t *testing.T) {
	got := Connected("alice")
	want := "CONNECTED\nversion:1.2\nheart-beat:0,0\nuser-name:alice\n\n\x00"
	assert.Equal(t, want, got)
}

func TestMessageFrame(t *testing.T) {
	payload := []byte(`{"from":"alice","timestamp":1,"content":"hi"}`)
	got := Message("/topic/chat", "msg-1", "sub-0", payload)

	require.True(t, strings.HasSuffix(got, "\n\x00"))
	assert.Contains(t, got, "MESSAGE\n")
	assert.Contains(t, got, "destination:/topic/chat\n")
	assert.Contains(t, got, "content-type:application/json\n")
	assert.Contains(t, got, "message-id:msg-1\n")
	assert.Contains(t, got, "subscription:sub-0\n")
	assert.Contains(t, got, fmt.Sprintf("content-length:%d\n", len(payload)))
	assert.Contains(t, got, "\n\n"+string(payload))
}

func TestReceiptFrame(t *testing.T) {
	assert.Equal(t, "RECEIPT\nreceipt-id:r42\n\n\x00", Receipt("r42"))
}

func TestErrorFrame(t *testing.T) {
	assert.Equal(t, "ERROR\nmessage:Invalid STOMP frame\n\n\x00", Error("Invalid STOMP frame"))
}

func TestMessageFrameRoundTripThroughParseIsRejected(t *testing.T) {
	// Server frames never come back inbound; the parser must not accept them.
	_, err := Parse(Message("/t", "m", "s", []byte("{}")))
	assert.ErrorIs(t, err, ErrNotAFrame)
}
