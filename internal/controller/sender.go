package controller

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// connWriteLock serializes writes per connection: broadcasts for one room
// originate from many read loops, and gorilla connections allow only one
// concurrent writer.
func (c *controller) connWriteLock(conn *websocket.Conn) *sync.Mutex {
	lock, _ := c.writeLocks.LoadOrStore(conn, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (c *controller) releaseWriteLock(conn *websocket.Conn) {
	c.writeLocks.Delete(conn)
}

// broadcast pushes a message to every connection of a room. A failed write
// is logged and skipped; the dead connection's own read loop handles its
// cleanup.
func (c *controller) broadcast(ctx context.Context, conns []*websocket.Conn, out *Output) {
	for _, conn := range conns {
		_ = c.writeToConn(ctx, conn, out)
	}
}

// writeToConn is the only place the server writes to a websocket connection.
// Broadcasts and wsrouter replies all funnel through the same per-connection
// lock.
func (c *controller) writeToConn(ctx context.Context, conn *websocket.Conn, v any) error {
	lock := c.connWriteLock(conn)
	lock.Lock()
	err := conn.WriteJSON(v)
	lock.Unlock()

	if err != nil {
		c.logger.DebugContext(ctx, "failed to write to conn", "error", err)
		return err
	}

	return nil
}
