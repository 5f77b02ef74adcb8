package player

import (
	"context"
	"errors"
)

var ErrNoMediaLoaded = errors.New("no media loaded")

type ResizeMode string

const (
	ResizeAspectFit  ResizeMode = "aspect-fit"
	ResizeStretch    ResizeMode = "stretch"
	ResizeAspectFill ResizeMode = "aspect-fill"
)

func ParseResizeMode(s string) (ResizeMode, error) {
	switch ResizeMode(s) {
	case ResizeAspectFit, ResizeStretch, ResizeAspectFill:
		return ResizeMode(s), nil
	}
	return "", errors.New("unknown resize mode: " + s)
}

// Adapter is the playback capability the binding core commands and observes.
// Command methods take a context and return an error; readable attributes
// report the adapter's last known state and never block.
//
// Attach registers the sink that receives playback events. The adapter must
// not deliver any event after Detach returns.
type Adapter interface {
	Load(ctx context.Context, url string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	// Seek moves playback to an exact position in seconds, without snapping.
	Seek(ctx context.Context, seconds float64) error

	CurrentURL() string
	Position() float64
	Duration() float64
	// Rate is 0 when paused and the playback speed when playing.
	Rate() float64
	Muted() bool
	Volume() int

	SetMuted(ctx context.Context, muted bool) error
	SetVolume(ctx context.Context, volume int) error
	SetResizeMode(ctx context.Context, mode ResizeMode) error
	SetControlsVisible(ctx context.Context, visible bool) error
	SetPictureInPictureAllowed(ctx context.Context, allowed bool) error

	Attach(sink EventSink)
	Detach()

	Close(ctx context.Context) error
}

type EventSink func(Event)
