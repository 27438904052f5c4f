// Package collab keeps lightweight live sessions over proposals: who is
// editing, and short section notes pushed between collaborators. State is
// in-process only; nothing here is persisted.
package collab

import (
	"net/http"
	"sync"
	"time"

	"github.com/caredraft/internal/jsonx"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message kinds exchanged over a session.
const (
	KindPresence    = "presence"
	KindSectionNote = "section_note"
)

// Message is the wire format for session traffic.
type Message struct {
	Kind       string    `json:"kind"`
	ProposalID string    `json:"proposal_id"`
	UserID     string    `json:"user_id"`
	ClientID   string    `json:"client_id"`
	Section    string    `json:"section,omitempty"`
	Note       string    `json:"note,omitempty"`
	Present    []string  `json:"present,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

type client struct {
	id         string
	userID     string
	proposalID string
	conn       *websocket.Conn
	send       chan []byte
}

// Hub tracks sessions per proposal.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub. checkOrigin decides which Origin headers may
// upgrade; nil allows same-host only (the websocket default).
func NewHub(logger *zap.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.Named("collab"),
	}
}

// Serve upgrades the request and joins the caller to the proposal's session.
// It blocks until the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, proposalID, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:         uuid.NewString(),
		userID:     userID,
		proposalID: proposalID,
		conn:       conn,
		send:       make(chan []byte, 32),
	}

	h.join(c)
	defer h.leave(c)

	go c.writeLoop()
	h.readLoop(c)
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	room, ok := h.rooms[c.proposalID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.proposalID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	h.broadcastPresence(c.proposalID)
	h.logger.Debug("client joined",
		zap.String("proposal_id", c.proposalID),
		zap.String("user_id", c.userID))
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.proposalID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.proposalID)
		}
	}
	h.mu.Unlock()

	close(c.send)
	c.conn.Close()
	h.broadcastPresence(c.proposalID)
}

// broadcastPresence sends the current participant list to everyone in the
// proposal's session.
func (h *Hub) broadcastPresence(proposalID string) {
	msg := Message{
		Kind:       KindPresence,
		ProposalID: proposalID,
		Present:    h.Present(proposalID),
		SentAt:     time.Now().UTC(),
	}
	data, err := jsonx.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(proposalID, data)
}

func (h *Hub) broadcast(proposalID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[proposalID] {
		select {
		case c.send <- data:
		default:
			// Slow consumer; presence will catch it up on the next event.
		}
	}
}

// Present returns the distinct user ids in the proposal's session.
func (h *Hub) Present(proposalID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	users := make([]string, 0, len(h.rooms[proposalID]))
	for c := range h.rooms[proposalID] {
		if _, ok := seen[c.userID]; ok {
			continue
		}
		seen[c.userID] = struct{}{}
		users = append(users, c.userID)
	}
	return users
}

func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(16 << 10)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := jsonx.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Kind != KindSectionNote {
			continue
		}

		// Identity comes from the session, never from the payload.
		msg.ProposalID = c.proposalID
		msg.UserID = c.userID
		msg.ClientID = c.id
		msg.SentAt = time.Now().UTC()

		out, err := jsonx.Marshal(msg)
		if err != nil {
			continue
		}
		h.broadcast(c.proposalID, out)
	}
}

func (c *client) writeLoop() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
