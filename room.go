package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Player is one seat in the authoritative roster. Copies of it appear in
// client views, where role/allegiance may be replaced by Unknown.
type Player struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Role       Role       `json:"role"`
	Allegiance Allegiance `json:"allegiance"`
}

type RoomSettings struct {
	OmnipotentSpectators bool `json:"omnipotentSpectators"`
	Deck                 Deck `json:"deck"`
}

// ServerRoomState is the authoritative room state. It is never sent to a
// client; every outbound state update goes through viewFor.
type ServerRoomState struct {
	Code           string
	HostID         string
	Players        []*Player
	FirstLeaderID  string
	GameInProgress bool
	Settings       RoomSettings

	// sessionToID maps a browser session credential to this room's stable
	// participant id. Entries are never removed, so a player who left can
	// rejoin as the same identity.
	sessionToID map[string]string
}

// ClientView is one participant's filtered projection of the room,
// replaced wholesale on every broadcast (full-state, not a diff).
type ClientView struct {
	ClientID       string       `json:"clientId"`
	Code           string       `json:"code"`
	HostID         string       `json:"hostId"`
	FirstLeaderID  string       `json:"firstLeaderId,omitempty"`
	GameInProgress bool         `json:"gameInProgress"`
	Settings       RoomSettings `json:"settings"`
	Players        []Player     `json:"players"`
}

var (
	errAlreadyInProgress = errors.New("Game already in progress.")
	errNotInProgress     = errors.New("No game in progress.")
)

// Room pairs the authoritative state with the connections currently
// watching it. All mutation happens under mu, one command at a time.
type Room struct {
	mu      sync.RWMutex
	state   ServerRoomState
	clients map[*Client]bool

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(code string) *Room {
	now := time.Now()
	return &Room{
		state: ServerRoomState{
			Code:        code,
			Settings:    RoomSettings{Deck: defaultDeck()},
			sessionToID: make(map[string]string),
		},
		clients:    make(map[*Client]bool),
		createdAt:  now,
		lastActive: now,
	}
}

func (s *ServerRoomState) findByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *ServerRoomState) findByRole(role Role) *Player {
	for _, p := range s.Players {
		if p.Role == role {
			return p
		}
	}
	return nil
}

func (s *ServerRoomState) seatedPlayers() []*Player {
	seated := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Role != RoleSpectator {
			seated = append(seated, p)
		}
	}
	return seated
}

func displayName(name string) string {
	if name == "" {
		return "Anonymous"
	}
	return name
}

// resolveIdentityLocked maps a session credential to a participant id,
// minting one on first contact. Never fails, never forgets.
func (r *Room) resolveIdentityLocked(session string) string {
	if id, ok := r.state.sessionToID[session]; ok {
		return id
	}
	id := uuid.NewString()
	r.state.sessionToID[session] = id
	return id
}

// lookupSessionLocked returns the participant id for a session, or "" if
// the session has never joined this room.
func (r *Room) lookupSessionLocked(session string) string {
	return r.state.sessionToID[session]
}

func (r *Room) touchLocked() {
	r.lastActive = time.Now()
}

// addPlayerLocked seats a new participant. Mid-game arrivals become
// spectators; in the lobby everyone starts unseated.
func (r *Room) addPlayerLocked(id, name string) {
	role := RoleNone
	if r.state.GameInProgress {
		role = RoleSpectator
	}
	r.state.Players = append(r.state.Players, &Player{
		ID:         id,
		Name:       name,
		Role:       role,
		Allegiance: role.allegiance(),
	})
}

func (r *Room) removePlayerLocked(id string) (string, bool) {
	for i, p := range r.state.Players {
		if p.ID == id {
			r.state.Players = append(r.state.Players[:i], r.state.Players[i+1:]...)
			return p.Name, true
		}
	}
	return "", false
}

func (r *Room) renameLocked(id, name string) (string, bool) {
	p := r.state.findByID(id)
	if p == nil {
		return "", false
	}
	prev := p.Name
	p.Name = name
	return prev, true
}

func (r *Room) nameCollisionLocked(name, selfID string) bool {
	if name == "" {
		return false
	}
	for _, p := range r.state.Players {
		if p.ID != selfID && p.Name == name {
			return true
		}
	}
	return false
}

// reorderLocked rearranges the roster to match ids, which must be a
// permutation of the current roster.
func (r *Room) reorderLocked(ids []string) error {
	if len(ids) != len(r.state.Players) {
		return fmt.Errorf("reorder must include every player: got %d ids for %d players",
			len(ids), len(r.state.Players))
	}

	seen := make(map[string]bool, len(ids))
	reordered := make([]*Player, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("duplicate player id %q in reorder", id)
		}
		seen[id] = true

		p := r.state.findByID(id)
		if p == nil {
			return fmt.Errorf("player with id %q not found in room", id)
		}
		reordered = append(reordered, p)
	}
	r.state.Players = reordered

	return nil
}

// toggleSpectatorLocked flips a player between Spectator and No Role.
func (r *Room) toggleSpectatorLocked(id string) (bool, error) {
	p := r.state.findByID(id)
	if p == nil {
		return false, fmt.Errorf("player with id %q not found in room", id)
	}

	if p.Role == RoleSpectator {
		p.Role = RoleNone
	} else {
		p.Role = RoleSpectator
	}
	p.Allegiance = p.Role.allegiance()

	return p.Role == RoleSpectator, nil
}

// becomeSpectatorLocked gives up a seat voluntarily. No-op for players
// already spectating.
func (r *Room) becomeSpectatorLocked(id string) (bool, error) {
	p := r.state.findByID(id)
	if p == nil {
		return false, fmt.Errorf("player with id %q not found in room", id)
	}
	if p.Role == RoleSpectator {
		return false, nil
	}

	p.Role = RoleSpectator
	p.Allegiance = RoleSpectator.allegiance()

	return true, nil
}

func (r *Room) setDeckLocked(deck Deck) {
	r.state.Settings.Deck = copyDeck(deck)
}

func (r *Room) toggleOmnipotentSpectatorsLocked() bool {
	r.state.Settings.OmnipotentSpectators = !r.state.Settings.OmnipotentSpectators
	return r.state.Settings.OmnipotentSpectators
}

// startGameLocked deals roles to the seated players in roster order,
// picks a random first leader among them, and enters the in-progress
// phase. Spectators keep their seats untouched.
func (r *Room) startGameLocked() error {
	s := &r.state
	if s.GameInProgress {
		return errAlreadyInProgress
	}

	seated := s.seatedPlayers()
	need := numberOfPlayersForDeck(s.Settings.Deck)
	if need != len(seated) {
		return fmt.Errorf(
			"Player count required by deck (%d) must match the current player count (%d) before starting a game.",
			need, len(seated))
	}
	for _, p := range seated {
		if p.Name == "" {
			return errors.New("Every player needs a name before the game can start.")
		}
	}

	roles, err := drawRoles(s.Settings.Deck)
	if err != nil {
		return err
	}

	for i, p := range seated {
		p.Role = roles[i]
		p.Allegiance = roles[i].allegiance()
	}
	s.FirstLeaderID = seated[randIndex(len(seated))].ID
	s.GameInProgress = true

	return nil
}

// stopGameLocked returns the room to the lobby. Roles stay on the roster,
// and since lobby views are unredacted this is the post-game reveal.
func (r *Room) stopGameLocked() error {
	if !r.state.GameInProgress {
		return errNotInProgress
	}
	r.state.GameInProgress = false
	return nil
}

// viewForLocked materializes one participant's filtered view, by value:
// nothing in the result aliases the authoritative roster.
//
// Pre-game and post-game everyone sees everything, as do omnipotent
// spectators mid-game. Everyone else gets a fully redacted roster, their
// own true entry, plus whatever their role's secret provider discloses.
func (r *Room) viewForLocked(id string) (ClientView, bool) {
	s := &r.state
	viewer := s.findByID(id)
	if viewer == nil {
		return ClientView{}, false
	}

	unredacted := !s.GameInProgress ||
		(viewer.Role == RoleSpectator && s.Settings.OmnipotentSpectators)

	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		entry := *p
		if !unredacted && p.ID != viewer.ID {
			if p.Role == RoleSpectator {
				entry.Role = RoleSpectator
				entry.Allegiance = AllegianceNone
			} else {
				entry.Role = RoleUnknown
				entry.Allegiance = AllegianceUnknown
			}
		}
		players[i] = entry
	}

	if !unredacted {
		overrides := providerForRole(viewer.Role)(s, viewer)
		for pid, override := range overrides {
			if pid == viewer.ID {
				// The viewer's own entry is already fully known; an
				// override must never downgrade it.
				continue
			}
			for i := range players {
				if players[i].ID != pid {
					continue
				}
				if override.role != "" {
					players[i].Role = override.role
				}
				if override.allegiance != "" {
					players[i].Allegiance = override.allegiance
				}
			}
		}
	}

	return ClientView{
		ClientID:       viewer.ID,
		Code:           s.Code,
		HostID:         s.HostID,
		FirstLeaderID:  s.FirstLeaderID,
		GameInProgress: s.GameInProgress,
		Settings: RoomSettings{
			OmnipotentSpectators: s.Settings.OmnipotentSpectators,
			Deck:                 copyDeck(s.Settings.Deck),
		},
		Players: players,
	}, true
}

// materializeViewsLocked rebuilds every participant's view from scratch.
func (r *Room) materializeViewsLocked() map[string]ClientView {
	views := make(map[string]ClientView, len(r.state.Players))
	for _, p := range r.state.Players {
		if view, ok := r.viewForLocked(p.ID); ok {
			views[p.ID] = view
		}
	}
	return views
}

func (r *Room) registerClientLocked(c *Client) {
	r.clients[c] = true
}

func (r *Room) unregisterClientLocked(c *Client) {
	delete(r.clients, c)
}

// sendLocked queues a message for one connection. A client that can't
// keep up is dropped rather than allowed to stall the room.
func (r *Room) sendLocked(c *Client, msg any) {
	if !c.trySend(msg) {
		delete(r.clients, c)
		c.closeSend()
	}
}

// broadcastViewsLocked pushes each participant's freshly materialized
// view to every connection they hold. Fire-and-forget: a slow or dead
// connection never blocks the rest.
func (r *Room) broadcastViewsLocked() {
	views := r.materializeViewsLocked()
	for c := range r.clients {
		view, ok := views[c.participantID]
		if !ok {
			continue
		}
		r.sendLocked(c, roomStateMessage{Type: "roomStateUpdate", ClientView: view})
	}
}

// sendViewLocked unicasts the current view to a single connection.
func (r *Room) sendViewLocked(c *Client) {
	view, ok := r.viewForLocked(c.participantID)
	if !ok {
		return
	}
	r.sendLocked(c, roomStateMessage{Type: "roomStateUpdate", ClientView: view})
}

// broadcastLogLocked sends a human-readable log line to the whole room.
func (r *Room) broadcastLogLocked(text, color string) {
	msg := logMessage{Type: "logMessage", Text: text, Color: color}
	for c := range r.clients {
		r.sendLocked(c, msg)
	}
}

// sendToParticipantLocked unicasts to every connection a participant
// holds (multiple tabs share one identity).
func (r *Room) sendToParticipantLocked(id string, msg any) {
	for c := range r.clients {
		if c.participantID == id {
			r.sendLocked(c, msg)
		}
	}
}

// closeAll disconnects every client of this room (used by the reaper).
func (r *Room) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.clients {
		c.closeSend()
		_ = c.conn.Close()
		delete(r.clients, c)
	}
}
