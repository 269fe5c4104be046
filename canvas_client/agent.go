package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pixelrelay/types"
)

var ErrNotConnected = errors.New("not connected")
var ErrConnectionLost = errors.New("connection lost after maximum reconnect attempts")

// RejectedError is a server-side rejection of a place request: cooldown or
// invalid coordinates. CooldownEnd is the server's authoritative end time
// when the reason is a cooldown.
type RejectedError struct {
	Reason      string
	CooldownEnd time.Time
}

func (e *RejectedError) Error() string {
	return "rejected by server: " + e.Reason
}

type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	defaultReconnectBase = time.Second
	defaultReconnectCap  = 10 * time.Second
	defaultMaxReconnects = 5
)

type AgentConfig struct {
	URL      string
	Size     int
	UserID   string
	Username string

	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
	MaxReconnectAttempts int

	// Optional observers. Called from the agent's internal goroutines.
	OnEvent func(types.WSMessage)
	OnState func(ConnState)
	OnError func(error)
}

type placeResult struct {
	pixel types.Pixel
	err   error
}

// SyncAgent keeps a locally-consistent view of one canvas namespace under
// unreliable connectivity. Local state mutation is synchronous under one
// mutex; only transport operations run on their own goroutines.
type SyncAgent struct {
	cfg AgentConfig

	mu          sync.Mutex
	state       ConnState
	stale       bool
	view        *localView
	stats       types.Stats
	recent      []types.Pixel
	online      int
	cooldownEnd time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex

	policy         *reconnectPolicy
	attempts       int
	reconnectTimer *time.Timer
	manual         bool
	terminalErr    error

	pendingMu sync.Mutex
	pending   []chan placeResult
}

func NewSyncAgent(cfg AgentConfig) *SyncAgent {
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}
	if cfg.ReconnectCap <= 0 {
		cfg.ReconnectCap = defaultReconnectCap
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnects
	}
	if !types.IsValidSize(cfg.Size) {
		cfg.Size = 64
	}
	return &SyncAgent{
		cfg:    cfg,
		state:  StateDisconnected,
		stale:  true,
		view:   newLocalView(cfg.Size),
		policy: newReconnectPolicy(cfg.ReconnectBase, cfg.ReconnectCap),
	}
}

// Connect starts the connection lifecycle. An explicit call also clears a
// terminal "connection lost" state and resumes automatic retry.
func (a *SyncAgent) Connect() error {
	a.mu.Lock()
	if a.state != StateDisconnected {
		a.mu.Unlock()
		return nil
	}
	a.manual = false
	a.terminalErr = nil
	a.attempts = 0
	a.policy.Reset()
	if a.reconnectTimer != nil {
		a.reconnectTimer.Stop()
		a.reconnectTimer = nil
	}
	a.mu.Unlock()
	return a.connect()
}

// connect performs one dial attempt. Only the Disconnected state may enter
// it; a reconnect timer that fires after another path already connected, or
// after a manual disconnect, finds the guard closed and does nothing.
func (a *SyncAgent) connect() error {
	a.mu.Lock()
	if a.manual || a.state != StateDisconnected {
		a.mu.Unlock()
		return nil
	}
	a.state = StateConnecting
	if a.reconnectTimer != nil {
		a.reconnectTimer.Stop()
		a.reconnectTimer = nil
	}
	a.mu.Unlock()
	a.notifyState(StateConnecting)

	conn, _, err := websocket.DefaultDialer.Dial(a.cfg.URL, nil)
	if err != nil {
		log.Printf("connect to %s failed: %v", a.cfg.URL, err)
		a.setState(StateDisconnected)
		a.scheduleReconnect()
		return err
	}

	a.mu.Lock()
	if a.manual {
		// Disconnect won the race while the dial was in flight.
		a.mu.Unlock()
		conn.Close()
		return nil
	}
	displaced := a.conn
	a.conn = conn
	a.state = StateConnected
	a.stale = true
	a.attempts = 0
	a.policy.Reset()
	a.mu.Unlock()
	if displaced != nil {
		displaced.Close()
	}
	a.notifyState(StateConnected)

	go a.readLoop(conn)

	// The local grid is not authoritative until this snapshot lands.
	return a.requestSnapshot()
}

// Disconnect is a user-initiated close: it cancels any pending reconnect
// timer and never triggers automatic retry.
func (a *SyncAgent) Disconnect() {
	a.mu.Lock()
	a.manual = true
	if a.reconnectTimer != nil {
		a.reconnectTimer.Stop()
		a.reconnectTimer = nil
	}
	conn := a.conn
	a.conn = nil
	changed := a.state != StateDisconnected
	a.state = StateDisconnected
	a.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"), deadline)
		conn.Close()
	}
	a.failPending(ErrNotConnected)
	if changed {
		a.notifyState(StateDisconnected)
	}
}

// RequestPlace applies the edit optimistically, sends the mutation, and
// waits for the server's verdict. The error distinguishes not-connected,
// rejected-by-server and network failure; on anything but success the
// optimistic edit is rolled back by re-fetching authoritative state.
func (a *SyncAgent) RequestPlace(ctx context.Context, x, y int, color string) (types.Pixel, error) {
	a.mu.Lock()
	if x < 0 || x >= a.cfg.Size || y < 0 || y >= a.cfg.Size {
		a.mu.Unlock()
		return types.Pixel{}, &RejectedError{Reason: "invalid pixel coordinates"}
	}

	prev := a.view.apply(x, y, color)

	if a.state != StateConnected || a.conn == nil {
		a.view.apply(x, y, prev)
		a.stale = true
		a.mu.Unlock()
		return types.Pixel{}, ErrNotConnected
	}
	a.mu.Unlock()

	wait := make(chan placeResult, 1)
	err := a.sendPlace(types.WSMessage{
		Type: "place_pixel",
		Data: types.PlacePixelRequest{
			X:        x,
			Y:        y,
			Color:    color,
			UserID:   a.cfg.UserID,
			Username: a.cfg.Username,
			Size:     a.cfg.Size,
		},
	}, wait)
	if err != nil {
		a.resync()
		return types.Pixel{}, fmt.Errorf("network error: %w", err)
	}

	select {
	case res := <-wait:
		return res.pixel, res.err
	case <-ctx.Done():
		// The frame is already on the wire, so the slot must stay in the
		// queue to keep later verdicts lined up. The buffered channel
		// absorbs the abandoned verdict.
		return types.Pixel{}, ctx.Err()
	}
}

// sendPlace enqueues the verdict slot and writes the frame under the write
// lock, so queue order always matches wire order even with concurrent
// callers.
func (a *SyncAgent) sendPlace(msg types.WSMessage, wait chan placeResult) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.pendingMu.Lock()
	a.pending = append(a.pending, wait)
	a.pendingMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		a.removePending(wait)
		return err
	}
	return nil
}

// UpdateUsername changes the display name used for future writes.
func (a *SyncAgent) UpdateUsername(username string) error {
	a.mu.Lock()
	a.cfg.Username = username
	connected := a.state == StateConnected && a.conn != nil
	a.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	return a.send(types.WSMessage{
		Type: "update_username",
		Data: types.UpdateUsernameRequest{UserID: a.cfg.UserID, Username: username},
	})
}

func (a *SyncAgent) requestSnapshot() error {
	return a.send(types.WSMessage{
		Type: "get_canvas",
		Data: types.GetCanvasRequest{Size: a.cfg.Size},
	})
}

// resync discards any optimistic divergence by re-fetching the
// authoritative snapshot.
func (a *SyncAgent) resync() {
	a.mu.Lock()
	a.stale = true
	connected := a.state == StateConnected && a.conn != nil
	a.mu.Unlock()
	if connected {
		_ = a.requestSnapshot()
	}
}

func (a *SyncAgent) send(msg types.WSMessage) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (a *SyncAgent) readLoop(conn *websocket.Conn) {
	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}
		// Keep-alive frames carry no payload.
		if len(bytes.TrimSpace(msgBytes)) == 0 {
			continue
		}
		var wsMsg types.WSMessage
		if err := json.Unmarshal(msgBytes, &wsMsg); err != nil {
			log.Println("Invalid message format:", err)
			continue
		}
		a.handleMessage(wsMsg)
	}
	a.handleDrop(conn)
}

// handleDrop runs when a connection's read loop exits for any reason.
func (a *SyncAgent) handleDrop(conn *websocket.Conn) {
	a.mu.Lock()
	if a.conn != conn {
		// A newer connection already took over; this loop belonged to a
		// connection that was closed deliberately.
		a.mu.Unlock()
		return
	}
	a.conn = nil
	a.state = StateDisconnected
	a.stale = true
	manual := a.manual
	a.mu.Unlock()

	conn.Close()
	a.failPending(ErrNotConnected)
	a.notifyState(StateDisconnected)
	if !manual {
		a.scheduleReconnect()
	}
}

// scheduleReconnect arms the backoff timer for the next automatic attempt,
// or surfaces a terminal error once the attempt budget is spent.
func (a *SyncAgent) scheduleReconnect() {
	a.mu.Lock()
	if a.manual || a.state != StateDisconnected {
		a.mu.Unlock()
		return
	}
	if a.attempts >= a.cfg.MaxReconnectAttempts {
		a.terminalErr = ErrConnectionLost
		a.mu.Unlock()
		log.Println("Max reconnection attempts reached. Giving up.")
		if a.cfg.OnError != nil {
			a.cfg.OnError(ErrConnectionLost)
		}
		return
	}
	a.attempts++
	attempt := a.attempts
	delay := a.policy.Next()
	a.reconnectTimer = time.AfterFunc(delay, func() {
		_ = a.connect()
	})
	a.mu.Unlock()
	log.Printf("Reconnecting in %s (attempt %d/%d)", delay, attempt, a.cfg.MaxReconnectAttempts)
}

func (a *SyncAgent) setState(state ConnState) {
	a.mu.Lock()
	changed := a.state != state
	a.state = state
	a.mu.Unlock()
	if changed {
		a.notifyState(state)
	}
}

func (a *SyncAgent) notifyState(state ConnState) {
	if a.cfg.OnState != nil {
		a.cfg.OnState(state)
	}
}

func (a *SyncAgent) resolvePending(res placeResult) bool {
	a.pendingMu.Lock()
	if len(a.pending) == 0 {
		a.pendingMu.Unlock()
		return false
	}
	wait := a.pending[0]
	a.pending = a.pending[1:]
	a.pendingMu.Unlock()
	wait <- res
	return true
}

func (a *SyncAgent) failPending(err error) {
	a.pendingMu.Lock()
	pending := a.pending
	a.pending = nil
	a.pendingMu.Unlock()
	for _, wait := range pending {
		wait <- placeResult{err: err}
	}
}

func (a *SyncAgent) removePending(wait chan placeResult) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	for i, w := range a.pending {
		if w == wait {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
	}
}

// Read-side accessors. Each takes the mutex, so readers never observe a
// half-applied update.

func (a *SyncAgent) State() ConnState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Stale reports whether the local grid is still waiting for an
// authoritative snapshot and must not be trusted.
func (a *SyncAgent) Stale() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stale
}

func (a *SyncAgent) Grid() [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.snapshot()
}

func (a *SyncAgent) PixelAt(x, y int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.at(x, y)
}

func (a *SyncAgent) Stats() types.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

func (a *SyncAgent) RecentChanges() []types.Pixel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.Pixel(nil), a.recent...)
}

func (a *SyncAgent) OnlineCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.online
}

func (a *SyncAgent) CooldownEnd() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cooldownEnd
}

// TerminalErr reports the terminal connection-lost error, if automatic
// retry has given up.
func (a *SyncAgent) TerminalErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.terminalErr
}
