package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playbind/server/internal/player"
)

// https://mpv.io/manual/stable/#json-ipc

const (
	socketCheckRetries  = 20
	socketCheckInterval = 100 * time.Millisecond
	socketReadDeadline  = 500 * time.Millisecond
	timeTickInterval    = 250 * time.Millisecond
)

const (
	reqIDPause = iota + 1
	reqIDPos
	reqIDDur
	reqIDSpeed
	reqIDMute
	reqIDVolume
	reqIDEOF
	reqIDIdle
)

type Command struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id,omitempty"`
}

type Response struct {
	Error     string `json:"error"`
	Data      any    `json:"data"`
	RequestID int    `json:"request_id"`
	Event     string `json:"event"`
}

type Config struct {
	BinaryPath string
	SocketDir  string
}

// Player drives a local mpv process over its JSON IPC socket. The process is
// spawned on the first Load and reused for subsequent sources.
type Player struct {
	cfg      Config
	sockPath string

	mu  sync.Mutex
	cmd *exec.Cmd

	stateMu    sync.RWMutex
	currentURL string
	position   float64
	duration   float64
	speed      float64
	paused     bool
	muted      bool
	volume     int
	eofReached bool

	// mediaObserved flips once the current source has ever reported a
	// position or duration; a return to idle before that means the load
	// failed. loadFailed keeps the failure from being emitted twice.
	mediaObserved bool
	loadFailed    bool

	sinkMu sync.Mutex
	sink   player.EventSink

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

func New(cfg Config) *Player {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "mpv"
	}
	if cfg.SocketDir == "" {
		cfg.SocketDir = os.TempDir()
	}

	return &Player{
		cfg:      cfg,
		sockPath: cfg.SocketDir + "/playbind_mpv-ipc-sock_" + uuid.NewString(),
		speed:    1,
		volume:   100,
	}
}

func (p *Player) isProcessRunning() bool {
	return p.cmd != nil && p.cmd.Process != nil
}

func (p *Player) startProcess(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isProcessRunning() {
		if p.cmd.ProcessState != nil && p.cmd.ProcessState.Exited() {
			p.cmd = nil
		} else {
			return nil
		}
	}

	cmd := exec.Command(p.cfg.BinaryPath,
		"--idle",
		"--input-ipc-server="+p.sockPath,
		"--keep-open=yes",
		"--no-config",
		"--osc",
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start mpv process: %w", err)
	}

	for i := 0; i < socketCheckRetries; i++ {
		if _, err := os.Stat(p.sockPath); err == nil {
			p.cmd = cmd

			pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			p.pollCancel = cancel
			p.pollDone = make(chan struct{})
			go p.poll(pollCtx)

			return nil
		}
		time.Sleep(socketCheckInterval)
	}

	cmd.Process.Kill()
	return fmt.Errorf("mpv started but socket did not appear at %s", p.sockPath)
}

func (p *Player) sendCommands(cmds ...Command) ([]Response, error) {
	conn, err := net.Dial("unix", p.sockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv socket: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(socketReadDeadline))

	encoder := json.NewEncoder(conn)
	for _, cmd := range cmds {
		if err := encoder.Encode(cmd); err != nil {
			return nil, fmt.Errorf("failed to send mpv command: %w", err)
		}
	}

	var responses []Response
	scanner := bufio.NewScanner(conn)
	for len(responses) < len(cmds) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return responses, fmt.Errorf("failed to read from mpv socket: %w", err)
			}
			break
		}

		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}

		// interleaved event lines are not responses
		if resp.Event == "" {
			responses = append(responses, resp)
		}
	}

	return responses, nil
}

func (p *Player) setProperty(name string, value any) error {
	if !p.isProcessRunning() {
		return nil
	}

	resps, err := p.sendCommands(Command{Command: []any{"set_property", name, value}})
	if err != nil {
		return err
	}
	for _, resp := range resps {
		if resp.Error != "success" {
			return fmt.Errorf("mpv rejected set_property %s: %s", name, resp.Error)
		}
	}

	return nil
}

func (p *Player) Load(ctx context.Context, url string) error {
	if err := p.startProcess(ctx); err != nil {
		return err
	}

	// pause before loading: mpv's pause property survives loadfile, so
	// without this a new file autoplays while the cache reports paused
	resps, err := p.sendCommands(
		Command{Command: []any{"set_property", "pause", true}},
		Command{Command: []any{"loadfile", url, "replace"}},
	)
	if err != nil {
		return fmt.Errorf("failed to load %q: %w", url, err)
	}
	for _, resp := range resps {
		if resp.Error != "success" {
			return fmt.Errorf("mpv rejected loadfile %q: %s", url, resp.Error)
		}
	}

	p.stateMu.Lock()
	p.currentURL = url
	p.position = 0
	p.duration = 0
	p.paused = true
	p.eofReached = false
	p.mediaObserved = false
	p.loadFailed = false
	p.stateMu.Unlock()

	return nil
}

func (p *Player) Play(ctx context.Context) error {
	if err := p.setProperty("pause", false); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	p.stateMu.Lock()
	p.paused = false
	p.stateMu.Unlock()

	return nil
}

func (p *Player) Pause(ctx context.Context) error {
	if err := p.setProperty("pause", true); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	p.stateMu.Lock()
	p.paused = true
	p.stateMu.Unlock()

	return nil
}

func (p *Player) Seek(ctx context.Context, seconds float64) error {
	if !p.isProcessRunning() {
		return player.ErrNoMediaLoaded
	}

	resps, err := p.sendCommands(Command{Command: []any{"seek", seconds, "absolute+exact"}})
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	for _, resp := range resps {
		if resp.Error != "success" {
			return fmt.Errorf("mpv rejected seek: %s", resp.Error)
		}
	}

	p.stateMu.Lock()
	p.position = seconds
	p.eofReached = false
	p.stateMu.Unlock()

	return nil
}

func (p *Player) CurrentURL() string {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.currentURL
}

func (p *Player) Position() float64 {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.position
}

func (p *Player) Duration() float64 {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.duration
}

func (p *Player) Rate() float64 {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	if p.paused {
		return 0
	}
	return p.speed
}

func (p *Player) Muted() bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.muted
}

func (p *Player) Volume() int {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.volume
}

func (p *Player) SetMuted(ctx context.Context, muted bool) error {
	if err := p.setProperty("mute", muted); err != nil {
		return fmt.Errorf("failed to set mute: %w", err)
	}

	p.stateMu.Lock()
	p.muted = muted
	p.stateMu.Unlock()

	return nil
}

func (p *Player) SetVolume(ctx context.Context, volume int) error {
	if err := p.setProperty("volume", volume); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	p.stateMu.Lock()
	p.volume = volume
	p.stateMu.Unlock()

	return nil
}

// SetResizeMode maps the presentation modes onto mpv's scaling properties:
// aspect-fit keeps the aspect ratio inside the window, aspect-fill crops via
// panscan, stretch disables aspect correction entirely.
func (p *Player) SetResizeMode(ctx context.Context, mode player.ResizeMode) error {
	var cmds []Command
	switch mode {
	case player.ResizeStretch:
		cmds = []Command{
			{Command: []any{"set_property", "keepaspect", false}},
		}
	case player.ResizeAspectFill:
		cmds = []Command{
			{Command: []any{"set_property", "keepaspect", true}},
			{Command: []any{"set_property", "panscan", 1.0}},
		}
	default:
		cmds = []Command{
			{Command: []any{"set_property", "keepaspect", true}},
			{Command: []any{"set_property", "panscan", 0.0}},
		}
	}

	if !p.isProcessRunning() {
		return nil
	}
	if _, err := p.sendCommands(cmds...); err != nil {
		return fmt.Errorf("failed to set resize mode: %w", err)
	}

	return nil
}

func (p *Player) SetControlsVisible(ctx context.Context, visible bool) error {
	if !p.isProcessRunning() {
		return nil
	}

	visibility := "never"
	if visible {
		visibility = "auto"
	}
	if _, err := p.sendCommands(Command{Command: []any{"script-message", "osc-visibility", visibility}}); err != nil {
		return fmt.Errorf("failed to set controls visibility: %w", err)
	}

	return nil
}

func (p *Player) SetPictureInPictureAllowed(ctx context.Context, allowed bool) error {
	if err := p.setProperty("ontop", allowed); err != nil {
		return fmt.Errorf("failed to set ontop: %w", err)
	}

	return nil
}

func (p *Player) Attach(sink player.EventSink) {
	p.sinkMu.Lock()
	p.sink = sink
	p.sinkMu.Unlock()
}

// Detach blocks until any in-flight delivery completes; no event is
// delivered after it returns.
func (p *Player) Detach() {
	p.sinkMu.Lock()
	p.sink = nil
	p.sinkMu.Unlock()
}

func (p *Player) emit(ev player.Event) {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	if p.sink != nil {
		p.sink(ev)
	}
}

func (p *Player) Close(ctx context.Context) error {
	if p.pollCancel != nil {
		p.pollCancel()
		<-p.pollDone
		p.pollCancel = nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isProcessRunning() {
		if err := p.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill mpv process: %w", err)
		}
		p.cmd = nil
	}
	os.Remove(p.sockPath)

	return nil
}
