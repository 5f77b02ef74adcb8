package controller

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/playbind/server/internal/binding"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// wsSender serializes writes to a connection so the snapshot pump and the
// message handlers never interleave frames.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) send(out Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(out)
}

func (c controller) Player(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	sender := &wsSender{conn: conn}

	snapshots, unsubscribe := c.playerHost.Subscribe()
	defer unsubscribe()
	go c.writePump(ctx, sender, snapshots)

	// initial state so a late-joining client renders immediately
	if err := sender.send(Output{Type: "player_state", Payload: c.playerHost.Snapshot()}); err != nil {
		c.logger.WarnContext(ctx, "failed to send initial state", "error", err)
		return
	}

	if err := c.getWSRouter(sender).ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

func (c controller) writePump(ctx context.Context, sender *wsSender, snapshots <-chan binding.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := sender.send(Output{Type: "player_state", Payload: snap}); err != nil {
				return
			}
		}
	}
}
