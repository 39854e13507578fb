package main

import (
	"fmt"
	"regexp"
	"strings"
)

// Command handlers. Each one looks up the room named by the command,
// takes the room lock for the duration (commands against one room are
// strictly serialized), validates the caller, mutates the authoritative
// state, and re-broadcasts views. Failures go back to the caller only.

func handleMessage(cfg *Config, reg *RoomRegistry, c *Client, msg ClientMessage) {
	switch msg.Type {
	case "join":
		handleJoin(cfg, reg, c, msg)
	case "changeName":
		handleChangeName(reg, c, msg)
	case "leaveRequest":
		handleLeaveRequest(cfg, reg, c, msg)
	case "kickPlayer":
		handleKickPlayer(cfg, reg, c, msg)
	case "toggleSpectator":
		handleToggleSpectator(reg, c, msg)
	case "becomeSpectator":
		handleBecomeSpectator(reg, c, msg)
	case "reorderPlayers":
		handleReorderPlayers(reg, c, msg)
	case "changeDeck":
		handleChangeDeck(reg, c, msg)
	case "toggleOmnipotentSpectators":
		handleToggleOmnipotentSpectators(reg, c, msg)
	case "startGame":
		handleStartGame(cfg, reg, c, msg)
	case "stopGame":
		handleStopGame(cfg, reg, c, msg)
	default:
		// ignore unknown types
	}
}

var nameCharset = regexp.MustCompile(`^[A-Za-z0-9._ ]{1,20}$`)

// validName allows 1-20 letters, digits, dots, underscores and single
// spaces between words.
func validName(name string) bool {
	if !nameCharset.MatchString(name) {
		return false
	}
	if strings.HasPrefix(name, " ") || strings.HasSuffix(name, " ") {
		return false
	}
	return !strings.Contains(name, "  ")
}

const invalidNameText = "Invalid name: use 1-20 characters (letters, digits, dots, underscores), single spaces only between words, no leading/trailing space."

const nameCollisionText = "Player Names must be unique: someone else in this lobby already has this name."

// validateClientLocked resolves the calling connection to a participant
// id, or "" after reporting the failure. A session with no mapping never
// joined this room, which is fatal for the connection.
func validateClientLocked(room *Room, c *Client) string {
	clientID := room.lookupSessionLocked(c.session)
	if clientID == "" {
		c.trySend(disconnectEvent("Internal Server Error: clientId is not found in room."))
		return ""
	}
	return clientID
}

func validateHostLocked(room *Room, c *Client) string {
	clientID := validateClientLocked(room, c)
	if clientID == "" {
		return ""
	}
	if clientID != room.state.HostID {
		c.trySend(errorEvent(fmt.Sprintf("You are not the host of %s.", room.state.Code)))
		return ""
	}
	return clientID
}

// roomForCommand is the shared prologue of every command but join: a
// missing room is fatal for the connection, so the client can return to
// the landing page instead of retrying.
func roomForCommand(reg *RoomRegistry, c *Client, code string) *Room {
	room := reg.getRoom(code)
	if room == nil {
		c.trySend(disconnectEvent("Code not associated with room"))
		return nil
	}
	return room
}

func handleJoin(cfg *Config, reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := reg.getRoom(msg.Code)
	if room == nil {
		c.trySend(disconnectEvent("Room does not exist"))
		return
	}

	// Joining a different room implicitly leaves the old connection
	// registration behind. Lock ordering: old room strictly before new.
	if c.room != nil && c.room != room {
		c.room.mu.Lock()
		c.room.unregisterClientLocked(c)
		c.room.mu.Unlock()
		c.room = nil
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	clientID := room.resolveIdentityLocked(c.session)
	c.room = room
	c.participantID = clientID
	room.registerClientLocked(c)

	// A bad or taken name never blocks a join; the caller is told and
	// joins unnamed instead.
	name := msg.Name
	if name != "" && !validName(name) {
		c.trySend(errorEvent(invalidNameText))
		name = ""
	}
	if room.nameCollisionLocked(name, clientID) {
		c.trySend(errorEvent(nameCollisionText))
		name = ""
	}

	if existing := room.state.findByID(clientID); existing != nil {
		// reconnect as the same identity
		if name != "" && existing.Name != name {
			prev, _ := room.renameLocked(clientID, name)
			room.broadcastLogLocked(fmt.Sprintf("%s changed their name to %s.", displayName(prev), name), "gray")
			room.broadcastViewsLocked()
		} else {
			room.sendViewLocked(c)
		}
		c.trySend(logMessage{Type: "logMessage", Text: fmt.Sprintf("reconnected to room %s", msg.Code), Color: "gray"})
		return
	}

	room.addPlayerLocked(clientID, name)
	room.broadcastViewsLocked()
	room.broadcastLogLocked(fmt.Sprintf("%s joined the room.", displayName(name)), "green")
	logf(cfg, "GAMES: Player %q joined %s", displayName(name), msg.Code)
}

func handleLeaveRequest(cfg *Config, reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	clientID := validateClientLocked(room, c)
	if clientID == "" {
		return
	}
	if room.state.findByID(clientID) == nil {
		c.trySend(errorEvent("You are not in this room."))
		return
	}

	name, _ := room.removePlayerLocked(clientID)
	room.unregisterClientLocked(c)
	c.room = nil

	room.broadcastLogLocked(fmt.Sprintf("%s left the room.", displayName(name)), "red")
	room.broadcastViewsLocked()
	c.trySend(disconnectEvent(fmt.Sprintf("You successfully left room %s", msg.Code)))
	logf(cfg, "GAMES: Player %q left %s", displayName(name), msg.Code)
}

func handleKickPlayer(cfg *Config, reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	if validateHostLocked(room, c) == "" {
		return
	}

	target := room.state.findByID(msg.PlayerID)
	if target == nil {
		c.trySend(errorEvent("That player is not in this room."))
		return
	}
	if room.state.GameInProgress && target.Role != RoleSpectator {
		c.trySend(errorEvent("You cannot kick someone who is currently playing!"))
		return
	}

	name, _ := room.removePlayerLocked(msg.PlayerID)
	room.broadcastLogLocked(fmt.Sprintf("%s was kicked.", displayName(name)), "red")
	room.broadcastViewsLocked()
	room.sendToParticipantLocked(msg.PlayerID, disconnectEvent(fmt.Sprintf("You were kicked from %s", msg.Code)))
	logf(cfg, "GAMES: Player %q kicked from %s", displayName(name), msg.Code)
}

func handleChangeName(reg *RoomRegistry, c *Client, msg ClientMessage) {
	if !validName(msg.NewName) {
		c.trySend(errorEvent(invalidNameText))
		return
	}

	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	clientID := validateClientLocked(room, c)
	if clientID == "" {
		return
	}

	player := room.state.findByID(clientID)
	if player == nil {
		c.trySend(errorEvent("Client is not a player in this room. (Maybe they left?)"))
		return
	}
	if room.state.GameInProgress && player.Role != RoleSpectator {
		c.trySend(errorEvent("Game in progress! Wouldn't want to confuse people now would we?"))
		return
	}
	if room.nameCollisionLocked(msg.NewName, clientID) {
		c.trySend(errorEvent(nameCollisionText))
		return
	}
	if player.Name == msg.NewName {
		return
	}

	prev, _ := room.renameLocked(clientID, msg.NewName)
	room.broadcastLogLocked(fmt.Sprintf("%s changed their name to %s.", displayName(prev), msg.NewName), "gray")
	room.broadcastViewsLocked()
}

func handleToggleSpectator(reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	if validateHostLocked(room, c) == "" {
		return
	}
	if room.state.GameInProgress {
		c.trySend(errorEvent("You can't become a spectator mid game silly!"))
		return
	}

	target := room.state.findByID(msg.PlayerID)
	if target == nil {
		c.trySend(errorEvent("That player is not in this room."))
		return
	}

	nowSpectator, err := room.toggleSpectatorLocked(msg.PlayerID)
	if err != nil {
		c.trySend(errorEvent(err.Error()))
		return
	}

	if nowSpectator {
		room.broadcastLogLocked(fmt.Sprintf("%s is now a spectator.", displayName(target.Name)), "gray")
	} else {
		room.broadcastLogLocked(fmt.Sprintf("%s is no longer a spectator.", displayName(target.Name)), "gray")
	}
	room.broadcastViewsLocked()
}

func handleBecomeSpectator(reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	clientID := validateClientLocked(room, c)
	if clientID == "" {
		return
	}

	player := room.state.findByID(clientID)
	if player == nil {
		c.trySend(errorEvent("You are not in this room."))
		return
	}

	changed, err := room.becomeSpectatorLocked(clientID)
	if err != nil {
		c.trySend(errorEvent(err.Error()))
		return
	}
	if !changed {
		return
	}

	room.broadcastLogLocked(fmt.Sprintf("%s is now a spectator.", displayName(player.Name)), "gray")
	room.broadcastViewsLocked()
}

func handleReorderPlayers(reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	if validateHostLocked(room, c) == "" {
		return
	}
	if room.state.GameInProgress {
		c.trySend(errorEvent("You cannot reorder people during a game!"))
		return
	}

	if err := room.reorderLocked(msg.PlayerIDs); err != nil {
		c.trySend(errorEvent(err.Error()))
		return
	}

	room.broadcastLogLocked("Players reordered.", "gray")
	room.broadcastViewsLocked()
}

func handleChangeDeck(reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	if validateHostLocked(room, c) == "" {
		return
	}
	if msg.Deck == nil {
		c.trySend(errorEvent("changeDeck requires a deck."))
		return
	}
	if err := validateDeck(*msg.Deck); err != nil {
		c.trySend(errorEvent(err.Error()))
		return
	}

	room.setDeckLocked(*msg.Deck)
	room.broadcastLogLocked("Host updated Deck.", "")
	room.broadcastViewsLocked()
}

func handleToggleOmnipotentSpectators(reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	if validateHostLocked(room, c) == "" {
		return
	}

	if room.toggleOmnipotentSpectatorsLocked() {
		room.broadcastLogLocked("Spectators are now omnipotent.", "gray")
	} else {
		room.broadcastLogLocked("Spectators are no longer omnipotent.", "gray")
	}
	room.broadcastViewsLocked()
}

func handleStartGame(cfg *Config, reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	if validateHostLocked(room, c) == "" {
		return
	}

	if err := room.startGameLocked(); err != nil {
		c.trySend(errorEvent(err.Error()))
		return
	}

	room.broadcastLogLocked("Game started.", "green")
	room.broadcastViewsLocked()
	logf(cfg, "GAMES: Game started in %s", msg.Code)
}

func handleStopGame(cfg *Config, reg *RoomRegistry, c *Client, msg ClientMessage) {
	room := roomForCommand(reg, c, msg.Code)
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	room.touchLocked()

	if validateHostLocked(room, c) == "" {
		return
	}

	if err := room.stopGameLocked(); err != nil {
		c.trySend(errorEvent(err.Error()))
		return
	}

	room.broadcastLogLocked("Game stopped. Roles are revealed.", "red")
	room.broadcastViewsLocked()
	logf(cfg, "GAMES: Game stopped in %s", msg.Code)
}
