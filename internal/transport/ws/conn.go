package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errSlowConsumer = errors.New("ws: outbound queue full")

const (
	writeWait = 5 * time.Second
	sendQueue = 64
)

// wsConn queues outbound messages; a single writer goroutine owns the socket writes.
type wsConn struct {
	conn          *websocket.Conn
	roomCode      string
	participantID string

	out       chan Message
	closed    chan struct{}
	closeOnce sync.Once
	drained   chan struct{}
}

func newWsConn(c *websocket.Conn, roomCode, participantID string) *wsConn {
	return &wsConn{
		conn:          c,
		roomCode:      roomCode,
		participantID: participantID,
		out:           make(chan Message, sendQueue),
		closed:        make(chan struct{}),
		drained:       make(chan struct{}),
	}
}

// Send never blocks; a client that cannot keep up is disconnected.
func (c *wsConn) Send(msg Message) error {
	select {
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.out <- msg:
		return nil
	default:
		_ = c.Close()
		return errSlowConsumer
	}
}

// Close stops the writer after it flushes what is queued.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *wsConn) ParticipantID() string { return c.participantID }
func (c *wsConn) RoomCode() string      { return c.roomCode }

// writeLoop sends queued messages and pings until closed, then closes the socket.
func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = c.conn.Close()
		close(c.drained)
	}()

	write := func(msg Message) bool {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteJSON(msg) == nil
	}

	for {
		select {
		case msg := <-c.out:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.closed:
			for {
				select {
				case msg := <-c.out:
					if !write(msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}
