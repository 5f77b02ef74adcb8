package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type WSRouter struct {
	routes map[string]HandlerFunc

	// OnError is called for handler failures and unknown message types.
	// Writing a reply to the client is the callback's responsibility; the
	// router itself never writes to the connection.
	OnError func(ctx context.Context, conn *websocket.Conn, err error)
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// ServeConn reads messages from the connection and dispatches them until the
// connection fails or ctx is canceled. Handler errors are reported through
// OnError and do not terminate the connection.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		handler, exists := r.routes[msg.Type]
		if !exists {
			r.reportError(msgCtx, conn, errors.New("unknown message type: "+msg.Type))
			continue
		}

		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			r.reportError(msgCtx, conn, err)
		}
	}
}

func (r *WSRouter) reportError(ctx context.Context, conn *websocket.Conn, err error) {
	if r.OnError != nil {
		r.OnError(ctx, conn, err)
	}
}
