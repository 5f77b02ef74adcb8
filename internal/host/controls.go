package host

import (
	"github.com/playbind/server/internal/binding"
	"github.com/playbind/server/internal/player"
)

// The control methods below are the write side of the bound surface. Each
// enqueues a mutation onto the host goroutine; the following reconciliation
// pass applies it to the player.

// Control writes arriving after shutdown are discarded instead of blocking
// the caller on a channel nothing drains anymore.
func (h *Host) do(mutate func(*binding.Binding)) {
	select {
	case h.commands <- mutate:
	case <-h.done:
	}
}

func (h *Host) SetSource(url string) {
	h.do(func(b *binding.Binding) { b.SourceURL = url })
}

func (h *Host) SetPlaying(playing bool) {
	h.do(func(b *binding.Binding) { b.IsPlaying = playing })
}

func (h *Host) SetMuted(muted bool) {
	h.do(func(b *binding.Binding) { b.IsMuted = muted })
}

func (h *Host) SetLoop(loop bool) {
	h.do(func(b *binding.Binding) { b.LoopEnabled = loop })
}

func (h *Host) SeekBack(seconds float64) {
	h.do(func(b *binding.Binding) { b.SeekBackSeconds = seconds })
}

func (h *Host) SeekForward(seconds float64) {
	h.do(func(b *binding.Binding) { b.SeekForwardSeconds = seconds })
}

func (h *Host) SetStartAt(seconds float64) {
	h.do(func(b *binding.Binding) { b.StartAtSeconds = seconds })
}

func (h *Host) SetResizeMode(mode player.ResizeMode) {
	h.do(func(b *binding.Binding) { b.ResizeMode = mode })
}

func (h *Host) SetControlsVisible(visible bool) {
	h.do(func(b *binding.Binding) { b.ShowControls = visible })
}

func (h *Host) SetPictureInPictureAllowed(allowed bool) {
	h.do(func(b *binding.Binding) { b.AllowsPictureInPicture = allowed })
}

// Snapshot returns the bound state as of the last completed pass.
func (h *Host) Snapshot() binding.Snapshot {
	h.snapMu.RLock()
	defer h.snapMu.RUnlock()
	return h.lastSnap
}

// Subscribe registers a snapshot receiver. The returned cancel func must be
// called when the receiver goes away. Slow receivers miss snapshots instead
// of blocking the host.
func (h *Host) Subscribe() (<-chan binding.Snapshot, func()) {
	ch := make(chan binding.Snapshot, 8)

	h.subsMu.Lock()
	h.subs[ch] = struct{}{}
	h.subsMu.Unlock()

	cancel := func() {
		h.subsMu.Lock()
		delete(h.subs, ch)
		h.subsMu.Unlock()
	}

	return ch, cancel
}
