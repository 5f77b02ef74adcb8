package player

// Event is a player-driven notification delivered to the attached sink from
// the adapter's own goroutine.
type Event interface {
	event()
}

// TimeTick is emitted roughly four times per second while media is loaded.
type TimeTick struct {
	Position float64
	Rate     float64
}

// MuteChanged is emitted when the player's mute state changes, including
// changes applied through the player's own controls.
type MuteChanged struct {
	Muted bool
}

// ReachedEnd is emitted once when playback reaches the end of the media.
type ReachedEnd struct{}

// LoadFailed is emitted when the player gives up on the current source.
type LoadFailed struct {
	Err error
}

func (TimeTick) event()    {}
func (MuteChanged) event() {}
func (ReachedEnd) event()  {}
func (LoadFailed) event()  {}
