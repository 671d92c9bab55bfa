package websocket

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 32
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	readLimit      = 4096
)

// Client is one connected screen. Messages only name what changed, so a
// screen that missed some must reload everything; missed counts them until
// the next resync notice goes out.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan []byte
	remote string

	missed atomic.Int64
	sent   int64
	total  int64
}

func NewClient(hub *Hub, conn *ws.Conn, remote string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		remote: remote,
	}
}

// Run registers the client and pumps messages until the connection closes.
func (c *Client) Run(ctx context.Context) {
	started := time.Now()
	c.hub.Register(c)
	defer func() {
		c.hub.Unregister(c)
		c.hub.logger.Info("screen disconnected",
			"remote", c.remote,
			"connected_for", time.Since(started).Round(time.Second),
			"sent", c.sent,
			"missed", c.total+c.missed.Load(),
		)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump(ctx)
	}()
	c.readPump(ctx)
	cancel()
	<-done
}

// readPump discards anything the client sends; screens never write through
// the socket. It returns when the connection closes.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// outgoing returns the frames to write for msg: the message itself, followed
// by a resync notice when deliveries were missed since the last one.
func (c *Client) outgoing(msg []byte) [][]byte {
	frames := [][]byte{msg}
	n := c.missed.Swap(0)
	if n == 0 {
		return frames
	}
	c.total += n
	data, err := json.Marshal(NewMessage("shopping", "resync", 0, map[string]any{"missed": n}))
	if err != nil {
		return frames
	}
	return append(frames, data)
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(ws.StatusNormalClosure, "")
				return
			}
			for _, frame := range c.outgoing(msg) {
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := c.conn.Write(wctx, ws.MessageText, frame)
				cancel()
				if err != nil {
					return
				}
				c.sent++
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
