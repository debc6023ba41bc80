package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc processes one inbound message. A returned error is reported to
// the sending connection only; it never tears the connection down.
type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

// WriteFunc delivers a reply to a connection. The router never writes to a
// connection directly: replies must go through the same serialized writer the
// rest of the server uses, or they interleave with broadcasts issued from
// other read loops.
type WriteFunc func(ctx context.Context, conn *websocket.Conn, v any) error

type WSRouter struct {
	routes map[string]HandlerFunc
	write  WriteFunc
}

func New(write WriteFunc) *WSRouter {
	return &WSRouter{
		routes: make(map[string]HandlerFunc),
		write:  write,
	}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// ServeConn reads messages until the connection errors out. The read error
// (normal close included) is returned so the caller can run disconnect
// cleanup.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			r.write(ctx, conn, map[string]string{"error": "unknown message type"})
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			r.write(msgCtx, conn, map[string]string{"error": err.Error()})
		}
	}
}
