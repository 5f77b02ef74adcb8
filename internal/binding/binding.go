package binding

import (
	"context"
	"fmt"
	"math"

	"github.com/playbind/server/internal/player"
)

type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

type oneShot int

const (
	oneShotNone oneShot = iota
	oneShotSeekBack
	oneShotSeekForward
	oneShotStartAt
)

// Binding holds the bound playback properties and reconciles them against a
// player adapter. The exported fields are the two-way-bound surface: the
// host writes intents into them and reads observed state back out.
//
// A Binding is confined to a single goroutine. Reconcile and HandleEvent
// must never run concurrently for the same instance; the host is responsible
// for marshaling adapter events onto its own goroutine before calling
// HandleEvent.
type Binding struct {
	SourceURL              string
	IsPlaying              bool
	IsMuted                bool
	LoopEnabled            bool
	ResizeMode             player.ResizeMode
	ShowControls           bool
	AllowsPictureInPicture bool

	// One-shot seek intents. A nonzero value requests a seek on the next
	// pass and is reset to zero once the request has been consumed.
	StartAtSeconds     float64
	SeekBackSeconds    float64
	SeekForwardSeconds float64

	// LastObservedPositionSeconds is output-only, updated from player
	// events for downstream consumers such as resume persistence.
	LastObservedPositionSeconds float64

	state   State
	loadErr error

	mutedApplied     bool
	lastAppliedMuted bool
}

func New(opts Options) *Binding {
	resizeMode := opts.ResizeMode
	if resizeMode == "" {
		resizeMode = player.ResizeAspectFit
	}

	return &Binding{
		SourceURL:              opts.URL,
		IsPlaying:              opts.Playing,
		IsMuted:                opts.Muted,
		LoopEnabled:            opts.Loop,
		ResizeMode:             resizeMode,
		ShowControls:           opts.ShowControls,
		AllowsPictureInPicture: opts.PictureInPicture,
		StartAtSeconds:         opts.StartAtSeconds,
		state:                  StateUnloaded,
	}
}

func (b *Binding) State() State { return b.state }

// LoadErr reports why the binding entered StateFailed. It is cleared when
// SourceURL changes.
func (b *Binding) LoadErr() error { return b.loadErr }

// Reconcile runs one synchronization pass: it pushes the bound intents onto
// the adapter and consumes at most one pending one-shot seek.
//
// A pass that changes the loaded source issues only the load; play and seek
// commands wait for the following pass so they never race a player that is
// not ready yet.
func (b *Binding) Reconcile(ctx context.Context, adapter player.Adapter) error {
	if adapter.CurrentURL() != b.SourceURL {
		b.state = StateLoading
		b.loadErr = nil
		if err := adapter.Load(ctx, b.SourceURL); err != nil {
			b.state = StateFailed
			b.loadErr = err
			return fmt.Errorf("failed to load source: %w", err)
		}
		return nil
	}

	if b.state == StateUnloaded || b.state == StateLoading {
		b.state = StateReady
	}

	if err := b.applyAttributes(ctx, adapter); err != nil {
		return err
	}

	pos := adapter.Position()
	dur := adapter.Duration()

	// Select at most one pending seek per pass: seek-back wins over
	// seek-forward, and the initial offset is only considered when no
	// back/forward request is pending, so two requests never produce
	// conflicting target times. Requests that lose stay pending for the
	// following pass.
	executed := oneShotNone
	var target float64
	haveTarget := false
	switch {
	case b.SeekBackSeconds != 0:
		executed = oneShotSeekBack
		target = math.Max(0, pos-b.SeekBackSeconds)
		haveTarget = true
	case b.SeekForwardSeconds != 0:
		executed = oneShotSeekForward
		// Forward seeks landing within one offset of the end are
		// suppressed instead of clamped; the request is still consumed.
		if t := pos + b.SeekForwardSeconds; t < dur-b.SeekForwardSeconds {
			target = t
			haveTarget = true
		}
	case b.StartAtSeconds != 0:
		executed = oneShotStartAt
		target = b.StartAtSeconds
		haveTarget = true
	}

	// The consumed field resets on the same pass as its seek command,
	// after it: a reader racing this pass sees either the pre-command
	// value or zero, never zero before the seek was issued.
	defer b.resetOneShot(executed)

	if b.IsPlaying && !haveTarget && dur > 0 && pos == dur {
		// asked to play while at the end: replay from the start
		if err := adapter.Seek(ctx, 0); err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
	}

	// seek before play/pause so playback resumes from the requested
	// offset rather than the pre-seek position
	if haveTarget {
		if err := adapter.Seek(ctx, target); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
	}

	switch {
	case b.IsPlaying && adapter.Rate() == 0:
		if err := adapter.Play(ctx); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
	case !b.IsPlaying && adapter.Rate() > 0:
		if err := adapter.Pause(ctx); err != nil {
			return fmt.Errorf("failed to pause playback: %w", err)
		}
	}

	return nil
}

func (b *Binding) applyAttributes(ctx context.Context, adapter player.Adapter) error {
	if err := adapter.SetControlsVisible(ctx, b.ShowControls); err != nil {
		return fmt.Errorf("failed to apply controls visibility: %w", err)
	}
	if err := adapter.SetPictureInPictureAllowed(ctx, b.AllowsPictureInPicture); err != nil {
		return fmt.Errorf("failed to apply picture-in-picture: %w", err)
	}
	if err := adapter.SetResizeMode(ctx, b.ResizeMode); err != nil {
		return fmt.Errorf("failed to apply resize mode: %w", err)
	}

	if err := adapter.SetMuted(ctx, b.IsMuted); err != nil {
		return fmt.Errorf("failed to apply mute: %w", err)
	}
	b.mutedApplied = true
	b.lastAppliedMuted = b.IsMuted

	return nil
}

func (b *Binding) resetOneShot(executed oneShot) {
	switch executed {
	case oneShotSeekBack:
		b.SeekBackSeconds = 0
	case oneShotSeekForward:
		b.SeekForwardSeconds = 0
	case oneShotStartAt:
		b.StartAtSeconds = 0
	}
}

// HandleEvent folds a player-driven notification back into the bound
// properties. The host must call it on the same goroutine as Reconcile.
func (b *Binding) HandleEvent(ctx context.Context, adapter player.Adapter, ev player.Event) error {
	switch e := ev.(type) {
	case player.TimeTick:
		b.LastObservedPositionSeconds = e.Position
		b.IsPlaying = e.Rate > 0
		if b.state == StateLoading {
			b.state = StateReady
		}

	case player.MuteChanged:
		// ignore the echo of this binding's own most recent mute write
		if !b.mutedApplied || b.lastAppliedMuted != e.Muted {
			b.IsMuted = e.Muted
			b.mutedApplied = true
			b.lastAppliedMuted = e.Muted
		}

	case player.ReachedEnd:
		if b.LoopEnabled {
			if err := adapter.Seek(ctx, 0); err != nil {
				return fmt.Errorf("failed to rewind for loop: %w", err)
			}
			if err := adapter.Play(ctx); err != nil {
				return fmt.Errorf("failed to restart playback: %w", err)
			}
			b.IsPlaying = true
			b.LastObservedPositionSeconds = 0
		} else {
			b.IsPlaying = false
			b.StartAtSeconds = 0
		}

	case player.LoadFailed:
		b.state = StateFailed
		b.loadErr = e.Err
		b.IsPlaying = false
	}

	return nil
}
