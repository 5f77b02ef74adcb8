package controller

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/playbind/server/internal/binding"
	"github.com/playbind/server/internal/player"
	"github.com/playbind/server/pkg/validator"
)

type iPlayerHost interface {
	SetSource(url string)
	SetPlaying(playing bool)
	SetMuted(muted bool)
	SetLoop(loop bool)
	SeekBack(seconds float64)
	SeekForward(seconds float64)
	SetStartAt(seconds float64)
	SetResizeMode(mode player.ResizeMode)
	SetControlsVisible(visible bool)
	SetPictureInPictureAllowed(allowed bool)
	Snapshot() binding.Snapshot
	Subscribe() (<-chan binding.Snapshot, func())
}

type controller struct {
	playerHost iPlayerHost
	upgrader   websocket.Upgrader
	validate   *validator.Validator
	logger     *slog.Logger
}

func NewController(playerHost iPlayerHost, logger *slog.Logger) *controller {
	return &controller{
		playerHost: playerHost,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
}
