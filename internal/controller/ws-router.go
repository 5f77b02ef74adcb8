package controller

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/playbind/server/pkg/wsrouter"
)

func (c controller) getWSRouter(sender *wsSender) *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Handle("ALIVE", c.handleAlive)

	// source
	mux.Handle("UPDATE_SOURCE", c.handleUpdateSource)

	// playback
	mux.Handle("UPDATE_PLAYBACK", c.handleUpdatePlayback)
	mux.Handle("UPDATE_MUTE", c.handleUpdateMute)
	mux.Handle("UPDATE_LOOP", c.handleUpdateLoop)

	// seeks
	mux.Handle("SEEK_BACK", c.handleSeekBack)
	mux.Handle("SEEK_FORWARD", c.handleSeekForward)
	mux.Handle("START_AT", c.handleStartAt)

	// presentation
	mux.Handle("UPDATE_RESIZE_MODE", c.handleUpdateResizeMode)
	mux.Handle("UPDATE_CONTROLS", c.handleUpdateControls)
	mux.Handle("UPDATE_PIP", c.handleUpdatePip)

	mux.OnError = func(ctx context.Context, _ *websocket.Conn, err error) {
		c.logger.WarnContext(ctx, "failed to handle message",
			"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
			"error", err,
		)
		sender.send(Output{Type: "error", Payload: map[string]string{"message": err.Error()}})
	}

	return mux
}
