package broker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 5 * time.Second
	sendQueueSize = 16
)

// connWriter owns all writes to one WebSocket connection. Frames are
// queued on a buffered channel and written by a single goroutine; a full
// queue or a failed write marks the transport dead instead of blocking
// the caller.
type connWriter struct {
	conn     *websocket.Conn
	sendCh   chan string
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	alive    atomic.Bool
}

func newConnWriter(conn *websocket.Conn) *connWriter {
	w := &connWriter{
		conn:   conn,
		sendCh: make(chan string, sendQueueSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	w.alive.Store(true)
	go w.run()
	return w
}

func (w *connWriter) run() {
	defer close(w.exited)
	for {
		select {
		case frame := <-w.sendCh:
			if !w.write(frame) {
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *connWriter) write(frame string) bool {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		w.alive.Store(false)
		return false
	}
	return true
}

// send queues a frame for delivery. It returns an error instead of
// blocking when the transport is dead or the queue is full.
func (w *connWriter) send(frame string) error {
	if !w.alive.Load() {
		return fmt.Errorf("connection closed")
	}
	select {
	case w.sendCh <- frame:
		return nil
	default:
		return fmt.Errorf("send queue full")
	}
}

// ping issues a transport-level ping control frame. WriteControl is safe
// to call concurrently with the writer goroutine.
func (w *connWriter) ping() error {
	if !w.alive.Load() {
		return fmt.Errorf("connection closed")
	}
	if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		w.alive.Store(false)
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// open reports whether the transport is still usable.
func (w *connWriter) open() bool {
	return w.alive.Load()
}

// stop shuts the writer down and closes the transport. Frames still
// queued when stop is called are flushed first: a rejected handshake's
// ERROR frame and a disconnect's RECEIPT must reach the peer before the
// socket closes.
func (w *connWriter) stop() {
	w.stopOnce.Do(func() {
		w.alive.Store(false)
		close(w.done)
		<-w.exited
		w.flush()
		w.conn.Close()
	})
}

// flush writes whatever the run loop left behind on its way out. Only
// called from stop, after the run goroutine has exited.
func (w *connWriter) flush() {
	for {
		select {
		case frame := <-w.sendCh:
			if !w.write(frame) {
				return
			}
		default:
			return
		}
	}
}
