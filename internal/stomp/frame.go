// Package stomp implements the text frame codec spoken over each
// WebSocket connection: parsing of inbound client frames and rendering
// of outbound server frames. Frames are newline-separated header blocks
// terminated by a single null byte.
package stomp

import (
	"errors"
	"fmt"
	"strings"
)

// Command is the first line of a frame.
type Command string

const (
	// Client commands.
	CommandConnect     Command = "CONNECT"
	CommandStomp       Command = "STOMP"
	CommandSubscribe   Command = "SUBSCRIBE"
	CommandUnsubscribe Command = "UNSUBSCRIBE"
	CommandSend        Command = "SEND"
	CommandDisconnect  Command = "DISCONNECT"

	// Server commands.
	CommandConnected Command = "CONNECTED"
	CommandMessage   Command = "MESSAGE"
	CommandReceipt   Command = "RECEIPT"
	CommandError     Command = "ERROR"
)

// Standard header names.
const (
	HeaderDestination   = "destination"
	HeaderID            = "id"
	HeaderContentType   = "content-type"
	HeaderContentLength = "content-length"
	HeaderReceipt       = "receipt"
	HeaderReceiptID     = "receipt-id"
	HeaderSubscription  = "subscription"
	HeaderMessageID     = "message-id"
	HeaderMessage       = "message"
)

// ContentTypeJSON marks SEND bodies that should be parsed as JSON.
const ContentTypeJSON = "application/json"

const terminator = "\x00"

var clientCommands = map[Command]bool{
	CommandConnect:     true,
	CommandStomp:       true,
	CommandSubscribe:   true,
	CommandUnsubscribe: true,
	CommandSend:        true,
	CommandDisconnect:  true,
}

// ErrNotAFrame reports input whose first line is not a known client command.
var ErrNotAFrame = errors.New("not a STOMP frame")

type header struct {
	name  string
	value string
}

// Frame is one decoded protocol message.
type Frame struct {
	Command Command
	headers []header
	Body    string
}

// Parse decodes a raw inbound frame. The input is recognised as protocol
// traffic only if its first line is exactly one of the client commands;
// anything else returns ErrNotAFrame. Headers are the `key:value` lines up
// to the first blank line. The body is the single line following that
// blank line: multi-line bodies are not supported by this line-based
// extraction and only the first body line is kept.
func Parse(raw string) (*Frame, error) {
	raw = strings.TrimRight(raw, terminator)
	lines := strings.Split(raw, "\n")

	command := Command(lines[0])
	if !clientCommands[command] {
		return nil, fmt.Errorf("%w: %q", ErrNotAFrame, lines[0])
	}

	frame := &Frame{Command: command}
	for i := 1; i < len(lines); i++ {
		if lines[i] == "" {
			if i+1 < len(lines) {
				frame.Body = lines[i+1]
			}
			break
		}
		name, value, ok := strings.Cut(lines[i], ":")
		if !ok {
			continue
		}
		frame.headers = append(frame.headers, header{name: name, value: strings.TrimSpace(value)})
	}

	return frame, nil
}

// Header returns the value of the first header with the given name,
// scanning top to bottom. Names are case-sensitive.
func (f *Frame) Header(name string) (string, bool) {
	for _, h := range f.headers {
		if h.name == name {
			return h.value, true
		}
	}
	return "", false
}

// Connected renders the handshake acknowledgement frame.
func Connected(username string) string {
	return "CONNECTED\n" +
		"version:1.2\n" +
		"heart-beat:0,0\n" +
		"user-name:" + username + "\n" +
		"\n" + terminator
}

// Message renders a delivery frame. The content-length header counts the
// bytes of the payload itself, not the trailing newline.
func Message(destination, messageID, subscriptionID string, payload []byte) string {
	var b strings.Builder
	b.Grow(len(payload) + 128)
	b.WriteString("MESSAGE\n")
	b.WriteString("destination:" + destination + "\n")
	b.WriteString("content-type:" + ContentTypeJSON + "\n")
	b.WriteString("message-id:" + messageID + "\n")
	b.WriteString("subscription:" + subscriptionID + "\n")
	fmt.Fprintf(&b, "content-length:%d\n", len(payload))
	b.WriteString("\n")
	b.Write(payload)
	b.WriteString("\n" + terminator)
	return b.String()
}

// Receipt renders the acknowledgement for a DISCONNECT carrying a receipt header.
func Receipt(receiptID string) string {
	return "RECEIPT\nreceipt-id:" + receiptID + "\n\n" + terminator
}

// Error renders an error frame. The connection stays open after an ERROR
// except during the handshake; closing is the caller's decision.
func Error(message string) string {
	return "ERROR\nmessage:" + message + "\n\n" + terminator
}
