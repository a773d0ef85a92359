package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"duet_backend/internal/logger"
	"duet_backend/internal/realtime"

	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 30 * time.Second
	pingPeriod  = 25 * time.Second
	sendTimeout = 2 * time.Second
	readLimit   = 4096
)

var errClientGone = errors.New("client gone")

// Client wraps one websocket connection into a realtime.Connection. Deliver
// queues onto the write pump; a full queue that does not drain within
// sendTimeout counts as an unreachable peer.
type Client struct {
	PlayerID int64

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(playerID int64, conn *websocket.Conn) *Client {
	return &Client{
		PlayerID: playerID,
		conn:     conn,
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// Deliver implements realtime.Connection.
func (c *Client) Deliver(ev realtime.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return errClientGone
	case <-time.After(sendTimeout):
		return errors.New("send queue stalled")
	}
}

// Abort implements realtime.Connection. Safe to call more than once.
func (c *Client) Abort() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Run starts the write pump and blocks reading frames until the socket dies.
// Every inbound text frame is handed to onFrame on the read goroutine.
func (c *Client) Run(onFrame func(msg []byte)) {
	go c.writePump()
	c.readPump(onFrame)
}

func (c *Client) readPump(onFrame func(msg []byte)) {
	defer c.Abort()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("ws: read error", "player", c.PlayerID, "error", err)
			}
			return
		}
		onFrame(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Abort()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
