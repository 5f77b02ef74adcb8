package mpv

import (
	"context"
	"fmt"
	"time"

	"github.com/playbind/server/internal/player"
)

// poll drives the adapter's observation side: every tick it reads the
// playback properties over IPC, refreshes the cached attributes and emits
// the events the binding core consumes. Mute changes and end-of-media are
// reported as edge transitions so each is delivered once.
func (p *Player) poll(ctx context.Context) {
	defer close(p.pollDone)

	ticker := time.NewTicker(timeTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.stateMu.RLock()
		loaded := p.currentURL != ""
		p.stateMu.RUnlock()
		if !loaded {
			continue
		}

		props, err := p.readProperties()
		if err != nil {
			continue
		}

		p.stateMu.Lock()
		muteChanged := props.hasMute && props.muted != p.muted
		endReached := props.hasEOF && props.eofReached && !p.eofReached

		// a failed load never surfaces through the loadfile response: mpv
		// reports it asynchronously by dropping back to idle without the
		// source ever producing a position or duration
		if props.hasPos || props.hasDur {
			p.mediaObserved = true
		}
		loadFailed := props.hasIdle && props.idleActive && !p.mediaObserved && !p.loadFailed
		if loadFailed {
			p.loadFailed = true
		}
		failedURL := p.currentURL

		if props.hasPos {
			p.position = props.position
		}
		if props.hasDur {
			p.duration = props.duration
		}
		if props.hasSpeed {
			p.speed = props.speed
		}
		if props.hasPause {
			p.paused = props.paused
		}
		if props.hasMute {
			p.muted = props.muted
		}
		if props.hasVolume {
			p.volume = props.volume
		}
		if props.hasEOF {
			p.eofReached = props.eofReached
		}

		position := p.position
		rate := p.speed
		if p.paused {
			rate = 0
		}
		muted := p.muted
		p.stateMu.Unlock()

		p.emit(player.TimeTick{Position: position, Rate: rate})
		if muteChanged {
			p.emit(player.MuteChanged{Muted: muted})
		}
		if endReached {
			p.emit(player.ReachedEnd{})
		}
		if loadFailed {
			p.emit(player.LoadFailed{Err: fmt.Errorf("mpv could not open %q", failedURL)})
		}
	}
}

type properties struct {
	position   float64
	duration   float64
	speed      float64
	paused     bool
	muted      bool
	volume     int
	eofReached bool
	idleActive bool

	hasPos    bool
	hasDur    bool
	hasSpeed  bool
	hasPause  bool
	hasMute   bool
	hasVolume bool
	hasEOF    bool
	hasIdle   bool
}

func (p *Player) readProperties() (properties, error) {
	responses, err := p.sendCommands(
		Command{Command: []any{"get_property", "pause"}, RequestID: reqIDPause},
		Command{Command: []any{"get_property", "time-pos"}, RequestID: reqIDPos},
		Command{Command: []any{"get_property", "duration"}, RequestID: reqIDDur},
		Command{Command: []any{"get_property", "speed"}, RequestID: reqIDSpeed},
		Command{Command: []any{"get_property", "mute"}, RequestID: reqIDMute},
		Command{Command: []any{"get_property", "volume"}, RequestID: reqIDVolume},
		Command{Command: []any{"get_property", "eof-reached"}, RequestID: reqIDEOF},
		Command{Command: []any{"get_property", "idle-active"}, RequestID: reqIDIdle},
	)
	if err != nil {
		return properties{}, err
	}

	var props properties
	for _, resp := range responses {
		if resp.Error != "success" {
			continue
		}
		switch resp.RequestID {
		case reqIDPause:
			if paused, ok := resp.Data.(bool); ok {
				props.paused = paused
				props.hasPause = true
			}
		case reqIDPos:
			if pos, ok := resp.Data.(float64); ok {
				props.position = pos
				props.hasPos = true
			}
		case reqIDDur:
			if dur, ok := resp.Data.(float64); ok {
				props.duration = dur
				props.hasDur = true
			}
		case reqIDSpeed:
			if speed, ok := resp.Data.(float64); ok {
				props.speed = speed
				props.hasSpeed = true
			}
		case reqIDMute:
			if muted, ok := resp.Data.(bool); ok {
				props.muted = muted
				props.hasMute = true
			}
		case reqIDVolume:
			if volume, ok := resp.Data.(float64); ok {
				props.volume = int(volume)
				props.hasVolume = true
			}
		case reqIDEOF:
			if eof, ok := resp.Data.(bool); ok {
				props.eofReached = eof
				props.hasEOF = true
			}
		case reqIDIdle:
			if idle, ok := resp.Data.(bool); ok {
				props.idleActive = idle
				props.hasIdle = true
			}
		}
	}

	return props, nil
}
