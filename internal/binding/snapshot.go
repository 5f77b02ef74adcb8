package binding

import "github.com/playbind/server/internal/player"

// Snapshot is the read side of the bound surface, safe to hand to other
// goroutines and to serialize for control clients.
type Snapshot struct {
	State                  State             `json:"state"`
	SourceURL              string            `json:"source_url"`
	IsPlaying              bool              `json:"is_playing"`
	IsMuted                bool              `json:"is_muted"`
	LoopEnabled            bool              `json:"loop_enabled"`
	ResizeMode             player.ResizeMode `json:"resize_mode"`
	ShowControls           bool              `json:"show_controls"`
	AllowsPictureInPicture bool              `json:"allows_pip"`
	PositionSeconds        float64           `json:"position_seconds"`
	LoadError              string            `json:"load_error,omitempty"`
}

func (b *Binding) Snapshot() Snapshot {
	s := Snapshot{
		State:                  b.state,
		SourceURL:              b.SourceURL,
		IsPlaying:              b.IsPlaying,
		IsMuted:                b.IsMuted,
		LoopEnabled:            b.LoopEnabled,
		ResizeMode:             b.ResizeMode,
		ShowControls:           b.ShowControls,
		AllowsPictureInPicture: b.AllowsPictureInPicture,
		PositionSeconds:        b.LastObservedPositionSeconds,
	}
	if b.loadErr != nil {
		s.LoadError = b.loadErr.Error()
	}

	return s
}
