// Package hub owns every live WebSocket connection, dispatches inbound chat
// events, tracks room subscriptions, and fans out message and presence
// broadcasts to exactly the subscribed connections.
package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"chathub/internal/metrics"
	"chathub/internal/presence"
	"chathub/internal/room"
	"chathub/pkg/domain"
	"chathub/pkg/store"
)

const defaultMaxMessageSize = 64 << 10

// Config wires the hub's collaborators.
type Config struct {
	Presence *presence.Registry
	Messages store.MessageStore
	Metrics  *metrics.Set
	Logger   *slog.Logger
	// AllowedOrigins restricts WebSocket upgrades. Empty allows any origin.
	AllowedOrigins []string
	MaxMessageSize int64
}

// Hub is the single owner of all connections. A connection's events are
// handled serially on its own read loop; connections run concurrently and
// share only the presence registry and the message store.
type Hub struct {
	log      *slog.Logger
	presence *presence.Registry
	messages store.MessageStore
	metrics  *metrics.Set
	upgrader websocket.Upgrader

	maxMessageSize int64

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	// sendMu serializes persist+fan-out for message events so delivery order
	// within a room always equals persistence order, even with concurrent
	// senders. Identify/join on other connections never take it.
	sendMu sync.Mutex
}

// New constructs a hub ready to accept connections.
func New(cfg Config) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSize := cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}
	h := &Hub{
		log:            logger,
		presence:       cfg.Presence,
		messages:       cfg.Messages,
		metrics:        cfg.Metrics,
		maxMessageSize: maxSize,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWS upgrades the request and runs the connection until it closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
		return
	}
	c := newClient(h, conn, r.RemoteAddr)
	h.register(c)
	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.metrics.ConnOpened()
	h.log.Info("connection opened", "addr", c.addr, "connections", total)
}

// unregister tears the connection down: drops it from every room, releases
// its presence ownership, and tells everyone left.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for roomID := range c.rooms {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	c.closed = true
	total := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	h.metrics.ConnClosed()
	h.log.Info("connection closed", "addr", c.addr, "connections", total)

	c.state = stateClosed
	if c.userID == "" {
		return
	}
	released, err := h.presence.ReleaseConnection(c.userID, c)
	if err != nil {
		h.log.Error("release presence", "user", c.userID, "err", err)
	}
	if released {
		h.broadcastPresence()
	}
}

// dispatch routes one inbound frame. Events that are invalid for the
// connection's state, or that fail downstream, are logged and dropped; the
// origin connection gets no error frame.
func (h *Hub) dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.log.Warn("invalid event frame", "addr", c.addr, "err", err)
		return
	}
	switch env.Event {
	case EventIdentify:
		var p IdentifyPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.log.Warn("invalid identify payload", "addr", c.addr, "err", err)
			return
		}
		h.handleIdentify(c, p)
	case EventJoinRoom:
		var p JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.log.Warn("invalid joinRoom payload", "addr", c.addr, "err", err)
			return
		}
		h.handleJoinRoom(c, p)
	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.log.Warn("invalid sendMessage payload", "addr", c.addr, "err", err)
			return
		}
		h.handleSendMessage(c, p)
	case EventDeleteMessage:
		var p DeleteMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.log.Warn("invalid deleteMessage payload", "addr", c.addr, "err", err)
			return
		}
		h.handleDeleteMessage(c, p)
	default:
		h.log.Warn("unknown event", "addr", c.addr, "event", env.Event)
	}
}

// handleIdentify binds the connection to a user, marks them online, and
// pushes a fresh presence snapshot to every connection, this one included.
func (h *Hub) handleIdentify(c *Client, p IdentifyPayload) {
	if c.state == stateClosed {
		return
	}
	if p.UserID == "" {
		h.log.Warn("identify without user id", "addr", c.addr)
		return
	}
	if err := h.presence.MarkOnline(p.UserID, c); err != nil {
		if errors.Is(err, presence.ErrUserNotFound) {
			h.log.Warn("identify for unknown user", "addr", c.addr, "user", p.UserID)
		} else {
			h.log.Error("mark online", "addr", c.addr, "user", p.UserID, "err", err)
		}
		return
	}
	// Re-identifying as a different user hands presence ownership over; if
	// this connection still owned the previous user, release them so the
	// online flag keeps matching an open connection.
	if c.userID != "" && c.userID != p.UserID {
		if _, err := h.presence.ReleaseConnection(c.userID, c); err != nil {
			h.log.Error("release previous user", "user", c.userID, "err", err)
		}
	}
	c.userID = p.UserID
	c.state = stateIdentified
	h.log.Info("user identified", "addr", c.addr, "user", p.UserID)
	h.broadcastPresence()
}

// handleJoinRoom subscribes the connection to the pair room and replays the
// room's full history to this connection only.
func (h *Hub) handleJoinRoom(c *Client, p JoinRoomPayload) {
	if c.state != stateIdentified {
		h.log.Warn("joinRoom before identify", "addr", c.addr)
		return
	}
	roomID := room.ID(p.SelfID, p.OtherID)
	h.mu.Lock()
	c.rooms[roomID] = struct{}{}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()

	history, err := h.messages.RoomHistory(roomID)
	if err != nil {
		// Non-fatal: the client still joins, with an empty history.
		h.log.Error("load room history", "room", roomID, "err", err)
		history = nil
	}
	if history == nil {
		history = []domain.Message{}
	}
	payload, err := encodeEvent(EventRoomHistory, history)
	if err != nil {
		h.log.Error("encode room history", "room", roomID, "err", err)
		return
	}
	h.send(c, payload)
	h.log.Info("room joined", "addr", c.addr, "user", c.userID, "room", roomID, "history", len(history))
}

// handleSendMessage persists the message and broadcasts it to every
// connection subscribed to the room, the sender included, so every client
// updates from the same event. On persistence failure nothing is broadcast
// and the sender is not told.
func (h *Hub) handleSendMessage(c *Client, p SendMessagePayload) {
	if c.state != stateIdentified {
		h.log.Warn("sendMessage before identify", "addr", c.addr)
		return
	}
	kind := domain.MessageKind(p.Kind)
	if kind != domain.KindImage {
		kind = domain.KindText
	}
	roomID := room.ID(p.SenderID, p.ReceiverID)
	msg := domain.Message{
		RoomID:     roomID,
		SenderID:   p.SenderID,
		SenderName: p.SenderName,
		ReceiverID: p.ReceiverID,
		Body:       p.Body,
		Kind:       kind,
		MediaRef:   p.MediaRef,
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	saved, err := h.messages.AppendMessage(msg)
	if err != nil {
		h.log.Error("persist message", "room", roomID, "sender", p.SenderID, "err", err)
		return
	}
	payload, err := encodeEvent(EventMessageReceived, saved)
	if err != nil {
		h.log.Error("encode message", "room", roomID, "err", err)
		return
	}
	h.broadcastRoom(roomID, payload)
	h.metrics.MessageSent()
	h.log.Info("message sent", "room", roomID, "sender", p.SenderID, "kind", kind, "id", saved.ID)
}

// handleDeleteMessage hard-deletes by id and tells the room's subscribers.
// Deletion is unconditional on id match: the hub does not verify the caller
// is the original sender, matching the trust model of a two-party room.
// Deleting an id that does not exist broadcasts nothing.
func (h *Hub) handleDeleteMessage(c *Client, p DeleteMessagePayload) {
	if c.state != stateIdentified {
		h.log.Warn("deleteMessage before identify", "addr", c.addr)
		return
	}
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	removed, err := h.messages.DeleteMessage(p.MessageID)
	if err != nil {
		h.log.Error("delete message", "id", p.MessageID, "err", err)
		return
	}
	if !removed {
		return
	}
	roomID := room.ID(p.SenderID, p.ReceiverID)
	payload, err := encodeEvent(EventMessageDeleted, p.MessageID)
	if err != nil {
		h.log.Error("encode delete", "id", p.MessageID, "err", err)
		return
	}
	h.broadcastRoom(roomID, payload)
	h.metrics.MessageDeleted()
	h.log.Info("message deleted", "room", roomID, "id", p.MessageID)
}

// broadcastPresence pushes the full presence snapshot to every open
// connection regardless of identification or subscriptions. Snapshots are
// not versioned; last broadcast wins.
func (h *Hub) broadcastPresence() {
	snapshot, err := h.presence.Snapshot()
	if err != nil {
		h.log.Error("presence snapshot", "err", err)
		return
	}
	online := 0
	for _, u := range snapshot {
		if u.Online {
			online++
		}
	}
	h.metrics.SetUsersOnline(online)
	payload, err := encodeEvent(EventPresenceSnapshot, snapshot)
	if err != nil {
		h.log.Error("encode presence snapshot", "err", err)
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.send(c, payload)
	}
}

// broadcastRoom delivers the payload to every connection currently
// subscribed to the room.
func (h *Hub) broadcastRoom(roomID string, payload []byte) {
	h.mu.RLock()
	members := h.rooms[roomID]
	targets := make([]*Client, 0, len(members))
	for c := range members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.send(c, payload)
	}
}

// send enqueues a payload for one connection without blocking. A closed
// connection is skipped; a full buffer drops the frame, the client resyncs
// from history on its next join.
func (h *Hub) send(c *Client, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.log.Warn("send buffer full, dropping frame", "addr", c.addr)
	}
}
