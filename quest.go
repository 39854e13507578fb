// Quest social-deduction lobby
//
// A host creates a room over HTTP and shares its 4-letter code; everyone
// else joins over a websocket. The server keeps one authoritative roster
// per room and pushes each participant a filtered view of it: before a
// game everyone sees everything, mid-game each player sees only their own
// card plus whatever their role's secret sight discloses.
//
// Features:
// - Rooms keyed by crypto-random 4-letter codes with collision check
// - Stable identity per browser via cookie, so reconnect == rejoin
// - Host controls: kick, reorder, spectator toggle, deck, start/stop
// - Per-role secret disclosure (evil sight, Cleric, Arthur, ...)
// - Full-state roomStateUpdate pushes, never diffs
// - Room-wide colored log messages
// - In-browser QR button to share the room link, backed by go-qrcode
// - Rooms auto-reaped after configurable idle timeout

package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients. One flat envelope; fields are read
// depending on type.
type ClientMessage struct {
	Type      string   `json:"type"`                // "join", "changeName", "leaveRequest", ...
	Code      string   `json:"code,omitempty"`      // every command names its room
	Name      string   `json:"name,omitempty"`      // join
	NewName   string   `json:"newName,omitempty"`   // changeName
	PlayerID  string   `json:"playerId,omitempty"`  // kickPlayer / toggleSpectator
	PlayerIDs []string `json:"playerIds,omitempty"` // reorderPlayers
	Deck      *Deck    `json:"deck,omitempty"`      // changeDeck
}

// roomStateMessage replaces the recipient's whole view of the room.
type roomStateMessage struct {
	Type string `json:"type"` // "roomStateUpdate"
	ClientView
}

// logMessage is a room-wide human-readable event line.
type logMessage struct {
	Type  string `json:"type"` // "logMessage"
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// errorMessage is a non-fatal, unicast, UI-displayable failure.
type errorMessage struct {
	Type string `json:"type"` // "error"
	Text string `json:"text"`
}

// disconnectMessage tells the recipient to drop the connection and
// return to the landing page (kicked, left, or room gone).
type disconnectMessage struct {
	Type string `json:"type"` // "disconnect_request"
	Text string `json:"text"`
}

func errorEvent(text string) errorMessage {
	return errorMessage{Type: "error", Text: text}
}

func disconnectEvent(text string) disconnectMessage {
	return disconnectMessage{Type: "disconnect_request", Text: text}
}

type Client struct {
	conn    *websocket.Conn
	send    chan any
	session string

	// set while joined to a room; only the readPump goroutine writes these
	room          *Room
	participantID string

	mu     sync.Mutex
	closed bool
}

// trySend queues a message without ever blocking. Returns false if the
// buffer is full or the connection is already closed.
func (c *Client) trySend(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump(cfg *Config, reg *RoomRegistry) {
	defer func() {
		if c.room != nil {
			c.room.mu.Lock()
			c.room.unregisterClientLocked(c)
			c.room.mu.Unlock()
		}
		c.closeSend()
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		handleMessage(cfg, reg, c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const sessionCookieName = "quest_session"

// getOrSetSessionID returns the browser's session credential, minting a
// crypto-random one into a cookie on first contact. This is the identity
// the resolver maps to a per-room participant id.
func getOrSetSessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func serveWS(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		session := getOrSetSessionID(w, r)
		if session == "" {
			http.Error(w, "unable to assign session id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:    conn,
			send:    make(chan any, 8),
			session: session,
		}

		go client.writePump()
		client.readPump(cfg, reg)
	}
}

// createRoomHandler implements POST /api/create-room: generate a code,
// seat the caller as host with the default deck, hand back the code.
func createRoomHandler(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		session := getOrSetSessionID(w, r)
		if session == "" {
			http.Error(w, "unable to assign session id", http.StatusInternalServerError)
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		// body is optional; an anonymous host is fine
		_ = json.NewDecoder(r.Body).Decode(&req)

		name := req.Name
		if name != "" && !validName(name) {
			name = ""
		}

		room, clientID := reg.createRoom(session, name)

		room.mu.RLock()
		code := room.state.Code
		room.mu.RUnlock()

		logf(cfg, "GAMES: Created room %s for %s", code, realIP(r))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)
		_ = json.NewEncoder(w).Encode(struct {
			Code     string `json:"code"`
			ClientID string `json:"clientId"`
		}{Code: code, ClientID: clientID})
	}
}

// qrHandler generates a PNG QR code for the room's join URL.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /room/:code/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// registerQuestGame sets up routes so that:
//   - /                       → landing page (create or join)
//   - /api/create-room        → POST, returns {code, clientId}
//   - /room/:code             → HTML client
//   - /room/:code/qr          → PNG QR code for that room URL
//   - /ws                     → websocket carrying all room commands
func registerQuestGame(cfg *Config, mux *httprouter.Router, errs chan<- error) {
	reg := newRoomRegistry(cfg.sessionTimeout)

	mux.POST(cfg.prefix+"/api/create-room", createRoomHandler(cfg, reg))

	mux.GET(cfg.prefix+"/room/:code", serveRoomPage(cfg, errs))

	mux.GET(cfg.prefix+"/room/:code/qr", qrHandler)

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, reg))
}
