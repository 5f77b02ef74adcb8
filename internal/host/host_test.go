package host

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbind/server/internal/binding"
	"github.com/playbind/server/internal/player"
	"github.com/playbind/server/internal/repository/position"
	"github.com/playbind/server/internal/repository/position/inmemory"
)

type fakeAdapter struct {
	mu       sync.Mutex
	url      string
	position float64
	duration float64
	rate     float64
	muted    bool
	volume   int
	sink     player.EventSink
	commands []string
	closed   bool
}

func (f *fakeAdapter) Load(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "load "+url)
	f.url = url
	f.position = 0
	f.rate = 0
	return nil
}

func (f *fakeAdapter) Play(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "play")
	f.rate = 1
	return nil
}

func (f *fakeAdapter) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "pause")
	f.rate = 0
	return nil
}

func (f *fakeAdapter) Seek(_ context.Context, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, fmt.Sprintf("seek %g", seconds))
	f.position = seconds
	return nil
}

func (f *fakeAdapter) CurrentURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *fakeAdapter) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeAdapter) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeAdapter) Rate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

func (f *fakeAdapter) Muted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

func (f *fakeAdapter) Volume() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeAdapter) SetMuted(_ context.Context, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
	return nil
}

func (f *fakeAdapter) SetVolume(_ context.Context, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	return nil
}

func (f *fakeAdapter) SetResizeMode(context.Context, player.ResizeMode) error { return nil }
func (f *fakeAdapter) SetControlsVisible(context.Context, bool) error         { return nil }
func (f *fakeAdapter) SetPictureInPictureAllowed(context.Context, bool) error { return nil }

func (f *fakeAdapter) Attach(sink player.EventSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = sink
}

func (f *fakeAdapter) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = nil
}

func (f *fakeAdapter) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAdapter) emit(ev player.Event) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (f *fakeAdapter) setProgress(pos, dur float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = pos
	f.duration = dur
}

func (f *fakeAdapter) commandList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.commands)
}

func (f *fakeAdapter) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeAdapter
}

func (ff *fakeFactory) new() (player.Adapter, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	f := &fakeAdapter{}
	ff.created = append(ff.created, f)
	return f, nil
}

func (ff *fakeFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.created)
}

func (ff *fakeFactory) adapter(i int) *fakeAdapter {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.created[i]
}

func startHost(t *testing.T, opts binding.Options, ff *fakeFactory, repo iPositionRepo, cfg Config) *Host {
	t.Helper()

	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = 5 * time.Millisecond
	}
	if cfg.SaveInterval == 0 {
		cfg.SaveInterval = 10 * time.Millisecond
	}

	h, err := New(opts, ff.new, repo, cfg, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return h
}

func TestHostLoadsAndPlays(t *testing.T) {
	ff := &fakeFactory{}
	startHost(t, binding.NewOptions("a"), ff, inmemory.NewRepo(), Config{})

	require.Eventually(t, func() bool {
		return slices.Contains(ff.adapter(0).commandList(), "play")
	}, time.Second, 5*time.Millisecond)

	cmds := ff.adapter(0).commandList()
	assert.Equal(t, "load a", cmds[0], "load must come before any playback command")
}

func TestHostReplacesAdapterOnSourceChange(t *testing.T) {
	ff := &fakeFactory{}
	h := startHost(t, binding.NewOptions("a"), ff, inmemory.NewRepo(), Config{})

	require.Eventually(t, func() bool {
		return slices.Contains(ff.adapter(0).commandList(), "play")
	}, time.Second, 5*time.Millisecond)

	h.SetSource("b")

	require.Eventually(t, func() bool {
		return ff.count() == 2 && slices.Contains(ff.adapter(1).commandList(), "load b")
	}, time.Second, 5*time.Millisecond)

	old := ff.adapter(0)
	assert.True(t, old.isClosed(), "the replaced instance must be closed")

	// events from the replaced instance are dropped
	next := ff.adapter(1)
	next.emit(player.TimeTick{Position: 7, Rate: 1})
	require.Eventually(t, func() bool {
		return h.Snapshot().PositionSeconds == 7
	}, time.Second, 5*time.Millisecond)

	old.emit(player.TimeTick{Position: 99, Rate: 1})
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 7.0, h.Snapshot().PositionSeconds, "stale-instance events must never apply")
}

func TestHostPendingSeekNeverHitsOldInstance(t *testing.T) {
	ff := &fakeFactory{}
	h := startHost(t, binding.NewOptions("a").WithPlaying(false), ff, inmemory.NewRepo(), Config{})

	require.Eventually(t, func() bool {
		return slices.Contains(ff.adapter(0).commandList(), "load a")
	}, time.Second, 5*time.Millisecond)
	ff.adapter(0).setProgress(50, 100)

	// a seek requested together with a source change defers to the new
	// instance
	h.do(func(b *binding.Binding) {
		b.SeekBackSeconds = 10
		b.SourceURL = "b"
	})

	require.Eventually(t, func() bool {
		return ff.count() == 2 && slices.Contains(ff.adapter(1).commandList(), "seek 0")
	}, time.Second, 5*time.Millisecond)

	for _, cmd := range ff.adapter(0).commandList() {
		assert.NotContains(t, cmd, "seek", "old instance must not receive the deferred seek")
	}
}

func TestHostResumesSavedPosition(t *testing.T) {
	ff := &fakeFactory{}
	repo := inmemory.NewRepo()
	require.NoError(t, repo.SetPosition(context.Background(), &position.SetPositionParams{
		SourceURL: "a",
		Seconds:   33,
	}))

	startHost(t, binding.NewOptions("a"), ff, repo, Config{Resume: true})

	require.Eventually(t, func() bool {
		return slices.Contains(ff.adapter(0).commandList(), "seek 33")
	}, time.Second, 5*time.Millisecond)
}

func TestHostSavesObservedPosition(t *testing.T) {
	ff := &fakeFactory{}
	repo := inmemory.NewRepo()
	startHost(t, binding.NewOptions("a"), ff, repo, Config{Resume: true})

	require.Eventually(t, func() bool {
		return slices.Contains(ff.adapter(0).commandList(), "play")
	}, time.Second, 5*time.Millisecond)

	ff.adapter(0).setProgress(55, 100)
	ff.adapter(0).emit(player.TimeTick{Position: 55, Rate: 1})

	require.Eventually(t, func() bool {
		seconds, err := repo.GetPosition(context.Background(), "a")
		return err == nil && seconds == 55
	}, time.Second, 5*time.Millisecond)
}

func TestHostDiscardsControlsAfterShutdown(t *testing.T) {
	ff := &fakeFactory{}
	cfg := Config{UpdateInterval: 5 * time.Millisecond, SaveInterval: 10 * time.Millisecond}
	h, err := New(binding.NewOptions("a"), ff.new, inmemory.NewRepo(), cfg, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		h.Run(ctx)
	}()
	cancel()
	<-runDone

	// more writes than the command buffer holds must not block the caller
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 32; i++ {
			h.SetMuted(true)
		}
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("control writes blocked after shutdown")
	}
}

func TestHostPublishesSnapshots(t *testing.T) {
	ff := &fakeFactory{}
	h := startHost(t, binding.NewOptions("a"), ff, inmemory.NewRepo(), Config{})

	snapshots, unsubscribe := h.Subscribe()
	defer unsubscribe()

	h.SetMuted(true)

	require.Eventually(t, func() bool {
		select {
		case snap := <-snapshots:
			return snap.IsMuted
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
