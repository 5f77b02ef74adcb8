package controller

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbind/server/internal/binding"
	"github.com/playbind/server/internal/player"
)

type fakePlayerHost struct {
	mu        sync.Mutex
	calls     []string
	snap      binding.Snapshot
	snapshots chan binding.Snapshot
}

func newFakePlayerHost() *fakePlayerHost {
	return &fakePlayerHost{snapshots: make(chan binding.Snapshot, 8)}
}

func (f *fakePlayerHost) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakePlayerHost) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlayerHost) SetSource(url string)        { f.record("SetSource " + url) }
func (f *fakePlayerHost) SetPlaying(playing bool)     { f.record(fmt.Sprintf("SetPlaying %t", playing)) }
func (f *fakePlayerHost) SetMuted(muted bool)         { f.record(fmt.Sprintf("SetMuted %t", muted)) }
func (f *fakePlayerHost) SetLoop(loop bool)           { f.record(fmt.Sprintf("SetLoop %t", loop)) }
func (f *fakePlayerHost) SeekBack(seconds float64)    { f.record(fmt.Sprintf("SeekBack %g", seconds)) }
func (f *fakePlayerHost) SeekForward(seconds float64) { f.record(fmt.Sprintf("SeekForward %g", seconds)) }
func (f *fakePlayerHost) SetStartAt(seconds float64)  { f.record(fmt.Sprintf("SetStartAt %g", seconds)) }

func (f *fakePlayerHost) SetResizeMode(mode player.ResizeMode) {
	f.record("SetResizeMode " + string(mode))
}

func (f *fakePlayerHost) SetControlsVisible(visible bool) {
	f.record(fmt.Sprintf("SetControlsVisible %t", visible))
}

func (f *fakePlayerHost) SetPictureInPictureAllowed(allowed bool) {
	f.record(fmt.Sprintf("SetPictureInPictureAllowed %t", allowed))
}

func (f *fakePlayerHost) Snapshot() binding.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakePlayerHost) Subscribe() (<-chan binding.Snapshot, func()) {
	return f.snapshots, func() {}
}

func newTestServer(t *testing.T, fake *fakePlayerHost) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(NewController(fake, slog.Default()).Mux())
	t.Cleanup(srv.Close)

	return srv
}

func dialPlayer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/player"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

type outputMsg struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readOutput(t *testing.T, conn *websocket.Conn) outputMsg {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var out outputMsg
	require.NoError(t, conn.ReadJSON(&out))

	return out
}

func sendMessage(t *testing.T, conn *websocket.Conn, messageType string, payload any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    messageType,
		"payload": payload,
	}))
}

func TestPlayerSendsInitialState(t *testing.T) {
	fake := newFakePlayerHost()
	fake.snap = binding.Snapshot{
		State:     binding.StateReady,
		SourceURL: "https://example.com/a.mp4",
		IsPlaying: true,
	}
	conn := dialPlayer(t, newTestServer(t, fake))

	out := readOutput(t, conn)
	assert.Equal(t, "player_state", out.Type)

	var snap binding.Snapshot
	require.NoError(t, json.Unmarshal(out.Payload, &snap))
	assert.Equal(t, fake.snap, snap)
}

func TestPlayerForwardsSnapshots(t *testing.T) {
	fake := newFakePlayerHost()
	conn := dialPlayer(t, newTestServer(t, fake))
	readOutput(t, conn) // initial state

	fake.snapshots <- binding.Snapshot{State: binding.StateReady, IsMuted: true}

	out := readOutput(t, conn)
	assert.Equal(t, "player_state", out.Type)

	var snap binding.Snapshot
	require.NoError(t, json.Unmarshal(out.Payload, &snap))
	assert.True(t, snap.IsMuted)
}

func TestPlayerDispatchesMessages(t *testing.T) {
	tests := []struct {
		messageType string
		payload     any
		wantCall    string
	}{
		{"UPDATE_SOURCE", map[string]any{"url": "https://example.com/b.mp4"}, "SetSource https://example.com/b.mp4"},
		{"UPDATE_PLAYBACK", map[string]any{"is_playing": true}, "SetPlaying true"},
		{"UPDATE_MUTE", map[string]any{"is_muted": true}, "SetMuted true"},
		{"UPDATE_LOOP", map[string]any{"loop_enabled": true}, "SetLoop true"},
		{"SEEK_BACK", map[string]any{"seconds": 10}, "SeekBack 10"},
		{"SEEK_FORWARD", map[string]any{"seconds": 30}, "SeekForward 30"},
		{"START_AT", map[string]any{"seconds": 120.5}, "SetStartAt 120.5"},
		{"UPDATE_RESIZE_MODE", map[string]any{"mode": "stretch"}, "SetResizeMode stretch"},
		{"UPDATE_CONTROLS", map[string]any{"show_controls": false}, "SetControlsVisible false"},
		{"UPDATE_PIP", map[string]any{"allowed": true}, "SetPictureInPictureAllowed true"},
	}

	for _, tt := range tests {
		t.Run(tt.messageType, func(t *testing.T) {
			fake := newFakePlayerHost()
			conn := dialPlayer(t, newTestServer(t, fake))
			readOutput(t, conn) // initial state

			sendMessage(t, conn, tt.messageType, tt.payload)

			require.Eventually(t, func() bool {
				calls := fake.callList()
				return len(calls) == 1 && calls[0] == tt.wantCall
			}, time.Second, 5*time.Millisecond)
		})
	}
}

func TestPlayerRejectsInvalidPayload(t *testing.T) {
	tests := []struct {
		name        string
		messageType string
		payload     any
	}{
		{"missing source url", "UPDATE_SOURCE", map[string]any{}},
		{"negative seek", "SEEK_BACK", map[string]any{"seconds": -5}},
		{"zero seek", "SEEK_FORWARD", map[string]any{"seconds": 0}},
		{"negative start at", "START_AT", map[string]any{"seconds": -1}},
		{"unknown resize mode", "UPDATE_RESIZE_MODE", map[string]any{"mode": "zoomed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakePlayerHost()
			conn := dialPlayer(t, newTestServer(t, fake))
			readOutput(t, conn) // initial state

			sendMessage(t, conn, tt.messageType, tt.payload)

			out := readOutput(t, conn)
			assert.Equal(t, "error", out.Type)
			assert.Empty(t, fake.callList(), "rejected messages must not reach the player host")
		})
	}
}

func TestPlayerReportsUnknownMessageType(t *testing.T) {
	fake := newFakePlayerHost()
	conn := dialPlayer(t, newTestServer(t, fake))
	readOutput(t, conn) // initial state

	sendMessage(t, conn, "NO_SUCH_TYPE", nil)

	out := readOutput(t, conn)
	assert.Equal(t, "error", out.Type)
}

func TestGetState(t *testing.T) {
	fake := newFakePlayerHost()
	fake.snap = binding.Snapshot{
		State:           binding.StateReady,
		SourceURL:       "https://example.com/a.mp4",
		PositionSeconds: 42,
	}
	srv := newTestServer(t, fake)

	resp, err := http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap binding.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, fake.snap, snap)
}
