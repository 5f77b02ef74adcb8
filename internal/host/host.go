package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playbind/server/internal/binding"
	"github.com/playbind/server/internal/player"
	"github.com/playbind/server/internal/repository/position"
)

type iPositionRepo interface {
	SetPosition(context.Context, *position.SetPositionParams) error
	GetPosition(context.Context, string) (float64, error)
}

// AdapterFactory creates a fresh player instance. The host destroys and
// recreates the adapter whenever the bound source URL changes.
type AdapterFactory func() (player.Adapter, error)

type Config struct {
	UpdateInterval time.Duration
	SaveInterval   time.Duration
	Resume         bool
}

type taggedEvent struct {
	adapter player.Adapter
	ev      player.Event
}

// Host owns one Binding and its current player adapter. All binding
// mutations and reconciliation passes execute on the goroutine running Run;
// control-surface writes and adapter events are marshaled onto it through
// channels. This confinement is what makes the binding safe without locks.
type Host struct {
	cfg          Config
	newAdapter   AdapterFactory
	positionRepo iPositionRepo
	logger       *slog.Logger

	b       *binding.Binding
	adapter player.Adapter

	commands chan func(*binding.Binding)
	events   chan taggedEvent
	done     chan struct{}

	subsMu sync.Mutex
	subs   map[chan binding.Snapshot]struct{}

	snapMu   sync.RWMutex
	lastSnap binding.Snapshot
	hasSnap  bool
}

func New(opts binding.Options, newAdapter AdapterFactory, positionRepo iPositionRepo, cfg Config, logger *slog.Logger) (*Host, error) {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 250 * time.Millisecond
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = 5 * time.Second
	}

	adapter, err := newAdapter()
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	h := &Host{
		cfg:          cfg,
		newAdapter:   newAdapter,
		positionRepo: positionRepo,
		logger:       logger,
		b:            binding.New(opts),
		adapter:      adapter,
		commands:     make(chan func(*binding.Binding), 16),
		events:       make(chan taggedEvent, 64),
		done:         make(chan struct{}),
		subs:         make(map[chan binding.Snapshot]struct{}),
	}
	h.attach(adapter)

	return h, nil
}

// Run drives the update cycle until ctx is canceled. It must be called
// exactly once.
func (h *Host) Run(ctx context.Context) error {
	defer close(h.done)

	h.maybeResume(ctx)

	ticker := time.NewTicker(h.cfg.UpdateInterval)
	defer ticker.Stop()
	saveTicker := time.NewTicker(h.cfg.SaveInterval)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.teardown(context.WithoutCancel(ctx))
			return nil

		case mutate := <-h.commands:
			mutate(h.b)
			h.reconcile(ctx)

		case tev := <-h.events:
			// events raced the detachment of a replaced adapter
			// instance are dropped, never applied
			if tev.adapter != h.adapter {
				continue
			}
			if err := h.b.HandleEvent(ctx, h.adapter, tev.ev); err != nil {
				h.logger.WarnContext(ctx, "failed to handle player event", "error", err)
			}

		case <-ticker.C:
			h.reconcile(ctx)

		case <-saveTicker.C:
			h.savePosition(ctx)
		}

		h.publish(ctx)
	}
}

func (h *Host) reconcile(ctx context.Context) {
	// a changed source tears the old player down and starts over with a
	// fresh instance; the binding then loads it on this pass
	if cur := h.adapter.CurrentURL(); cur != "" && cur != h.b.SourceURL {
		if err := h.replaceAdapter(ctx); err != nil {
			h.logger.ErrorContext(ctx, "failed to replace player", "error", err)
			return
		}
		h.maybeResume(ctx)
	}

	if err := h.b.Reconcile(ctx, h.adapter); err != nil {
		h.logger.WarnContext(ctx, "reconcile failed", "error", err)
	}
}

func (h *Host) replaceAdapter(ctx context.Context) error {
	h.savePosition(ctx)

	// detach synchronously before teardown so no in-flight event from the
	// old instance is delivered once replacement has begun
	h.adapter.Detach()
	if err := h.adapter.Close(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to close player", "error", err)
	}

	next, err := h.newAdapter()
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	h.adapter = next
	h.attach(next)

	return nil
}

func (h *Host) attach(a player.Adapter) {
	a.Attach(func(ev player.Event) {
		select {
		case h.events <- taggedEvent{adapter: a, ev: ev}:
		default:
			// the loop is behind; losing a tick is harmless, the next
			// one carries fresher state
		}
	})
}

func (h *Host) maybeResume(ctx context.Context) {
	if !h.cfg.Resume || h.positionRepo == nil || h.b.StartAtSeconds != 0 {
		return
	}

	seconds, err := h.positionRepo.GetPosition(ctx, h.b.SourceURL)
	if err != nil {
		if !errors.Is(err, position.ErrPositionNotFound) {
			h.logger.WarnContext(ctx, "failed to get saved position", "error", err)
		}
		return
	}

	if seconds > 0 {
		h.b.StartAtSeconds = seconds
	}
}

func (h *Host) savePosition(ctx context.Context) {
	if !h.cfg.Resume || h.positionRepo == nil {
		return
	}

	// key by the URL the observed position belongs to, which during a
	// source change is still the old adapter's URL
	sourceURL := h.adapter.CurrentURL()
	if sourceURL == "" || h.b.State() != binding.StateReady {
		return
	}

	if err := h.positionRepo.SetPosition(ctx, &position.SetPositionParams{
		SourceURL: sourceURL,
		Seconds:   h.b.LastObservedPositionSeconds,
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		h.logger.WarnContext(ctx, "failed to save position", "error", err)
	}
}

func (h *Host) publish(ctx context.Context) {
	snap := h.b.Snapshot()

	h.snapMu.Lock()
	unchanged := h.hasSnap && snap == h.lastSnap
	pausedNow := h.hasSnap && h.lastSnap.IsPlaying && !snap.IsPlaying
	h.lastSnap = snap
	h.hasSnap = true
	h.snapMu.Unlock()

	if unchanged {
		return
	}
	if pausedNow {
		h.savePosition(ctx)
	}

	h.subsMu.Lock()
	for sub := range h.subs {
		select {
		case sub <- snap:
		default:
		}
	}
	h.subsMu.Unlock()
}

func (h *Host) teardown(ctx context.Context) {
	h.savePosition(ctx)
	h.adapter.Detach()
	if err := h.adapter.Close(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to close player", "error", err)
	}
}
