package binding

import "github.com/playbind/server/internal/player"

// Options configures a new Binding. The With* methods return a modified
// copy, so a prepared Options value can be shared and specialized.
type Options struct {
	URL              string
	StartAtSeconds   float64
	Playing          bool
	Muted            bool
	Loop             bool
	ResizeMode       player.ResizeMode
	ShowControls     bool
	PictureInPicture bool
}

func NewOptions(url string) Options {
	return Options{
		URL:          url,
		Playing:      true,
		ResizeMode:   player.ResizeAspectFit,
		ShowControls: true,
	}
}

func (o Options) WithStartAt(seconds float64) Options {
	o.StartAtSeconds = seconds
	return o
}

func (o Options) WithPlaying(playing bool) Options {
	o.Playing = playing
	return o
}

func (o Options) WithMuted(muted bool) Options {
	o.Muted = muted
	return o
}

func (o Options) WithLoop(loop bool) Options {
	o.Loop = loop
	return o
}

func (o Options) WithResizeMode(mode player.ResizeMode) Options {
	o.ResizeMode = mode
	return o
}

func (o Options) WithControls(visible bool) Options {
	o.ShowControls = visible
	return o
}

func (o Options) WithPictureInPicture(allowed bool) Options {
	o.PictureInPicture = allowed
	return o
}
