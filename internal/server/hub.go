// Package server hosts the browser-facing surfaces: the websocket hub the
// UI connects to and the HTTP health/metrics endpoints.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
	"github.com/sahayak-ai/sahayak/internal/monitor/notice"
)

// Message is the JSON envelope exchanged with the browser UI.
type Message struct {
	Kind    string               `json:"kind"`
	Event   string               `json:"event,omitempty"`
	ID      string               `json:"id,omitempty"`
	Text    string               `json:"text,omitempty"`
	Frame   []byte               `json:"frame,omitempty"`
	Notices []notice.Notice      `json:"notices,omitempty"`
	Status  *domain.SystemStatus `json:"status,omitempty"`
}

// Message kinds.
const (
	KindEnv     = "env"     // browser → daemon: environment transition
	KindFrame   = "frame"   // browser → daemon: webcam frame
	KindDismiss = "dismiss" // browser → daemon: dismiss a notice
	KindNotices = "notices" // daemon → browser: active notice set
	KindStatus  = "status"  // daemon → browser: system status snapshot
)

// Environment events carried by KindEnv messages.
const (
	EventOnline     = "online"
	EventOffline    = "offline"
	EventForeground = "visible"
	EventBackground = "hidden"
)

// EnvHandler reacts to environment transitions reported by the browser.
type EnvHandler interface {
	OnOnline()
	OnOffline()
	OnForeground()
	OnBackground()
}

// Hub manages browser websocket connections.
type Hub struct {
	env      EnvHandler
	frames   *FrameBuffer
	dismiss  func(id string)
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates a hub. dismiss is invoked for notice dismissals from the UI.
func NewHub(env EnvHandler, frames *FrameBuffer, dismiss func(id string), log *slog.Logger) *Hub {
	return &Hub{
		env:     env,
		frames:  frames,
		dismiss: dismiss,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:   log,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// HandleWS upgrades an HTTP request and serves the connection until it closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.log.Info("browser connected", "remote", conn.RemoteAddr())

	h.readLoop(conn)

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
	h.log.Info("browser disconnected", "remote", conn.RemoteAddr())
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug("ignoring malformed hub message", "error", err)
			continue
		}

		switch msg.Kind {
		case KindEnv:
			h.handleEnv(msg.Event)
		case KindFrame:
			if h.frames != nil && len(msg.Frame) > 0 {
				h.frames.Push(msg.Frame)
			}
		case KindDismiss:
			if h.dismiss != nil && msg.ID != "" {
				h.dismiss(msg.ID)
			}
		default:
			h.log.Debug("ignoring unknown hub message", "kind", msg.Kind)
		}
	}
}

func (h *Hub) handleEnv(event string) {
	if h.env == nil {
		return
	}
	switch event {
	case EventOnline:
		h.env.OnOnline()
	case EventOffline:
		h.env.OnOffline()
	case EventForeground:
		h.env.OnForeground()
	case EventBackground:
		h.env.OnBackground()
	}
}

// Broadcast sends a message to every connected browser.
func (h *Hub) Broadcast(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("failed to marshal hub message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("dropping broken connection", "error", err)
			_ = conn.Close()
			delete(h.conns, conn)
		}
	}
}

// BroadcastNotices pushes the active notice set to the UI.
func (h *Hub) BroadcastNotices(ns []notice.Notice) {
	h.Broadcast(&Message{Kind: KindNotices, Notices: ns})
}

// BroadcastStatus pushes a system status snapshot to the UI.
func (h *Hub) BroadcastStatus(status domain.SystemStatus) {
	h.Broadcast(&Message{Kind: KindStatus, Status: &status})
}

// Close disconnects all browsers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, conn)
	}
}
