package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Handler tests drive the full command path through handleMessage with
// fake connections: a Client with a buffered send channel and no
// websocket behind it, since handlers only ever touch the channel.

func fakeClient(session string) *Client {
	return &Client{
		send:    make(chan any, 32),
		session: session,
	}
}

// drain empties a client's outbound buffer.
func drain(c *Client) []any {
	var out []any
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func errorTexts(msgs []any) []string {
	var out []string
	for _, m := range msgs {
		if e, ok := m.(errorMessage); ok {
			out = append(out, e.Text)
		}
	}
	return out
}

func lastView(t *testing.T, msgs []any) ClientView {
	t.Helper()
	var view *ClientView
	for _, m := range msgs {
		if s, ok := m.(roomStateMessage); ok {
			v := s.ClientView
			view = &v
		}
	}
	require.NotNil(t, view, "expected a roomStateUpdate, got %v", msgs)
	return *view
}

// testLobby stands up a registry with one room, the host joined over a
// fake connection, plus n-1 named guests.
func testLobby(t *testing.T, n int) (*Config, *RoomRegistry, *Room, []*Client) {
	t.Helper()

	cfg := &Config{}
	reg := newRoomRegistry(0)

	host := fakeClient("session-host")
	room, _ := reg.createRoom("session-host", "host")
	handleMessage(cfg, reg, host, ClientMessage{Type: "join", Code: room.state.Code, Name: "host"})
	drain(host)

	clients := []*Client{host}
	for i := 1; i < n; i++ {
		c := fakeClient(sessionName(i))
		handleMessage(cfg, reg, c, ClientMessage{Type: "join", Code: room.state.Code, Name: guestName(i)})
		clients = append(clients, c)
	}
	for _, c := range clients {
		drain(c)
	}
	require.Len(t, room.state.Players, n)

	return cfg, reg, room, clients
}

func sessionName(i int) string { return "session-guest" + string(rune('0'+i)) }
func guestName(i int) string   { return "guest" + string(rune('0'+i)) }

func TestValidName(t *testing.T) {
	for _, name := range []string{"alice", "Bob_7", "a.b c", "x", "twenty.characters.xx"} {
		assert.True(t, validName(name), "%q should be accepted", name)
	}
	for _, name := range []string{"", " alice", "alice ", "a  b", "naïve", "a!b", "this name is far too long to accept"} {
		assert.False(t, validName(name), "%q should be rejected", name)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	cfg := &Config{}
	reg := newRoomRegistry(0)
	c := fakeClient("session-x")

	handleMessage(cfg, reg, c, ClientMessage{Type: "join", Code: "ZZZZ", Name: "alice"})

	msgs := drain(c)
	require.Len(t, msgs, 1)
	d, ok := msgs[0].(disconnectMessage)
	require.True(t, ok, "a missing room is fatal for the connection")
	assert.Equal(t, "disconnect_request", d.Type)
	assert.Nil(t, c.room)
	assert.Empty(t, reg.rooms, "no room or player may be created as a side effect")
}

func TestJoinCreatesPlayerAndBroadcasts(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 1)
	host := clients[0]

	guest := fakeClient("session-g")
	handleMessage(cfg, reg, guest, ClientMessage{Type: "join", Code: room.state.Code, Name: "alice"})

	require.Len(t, room.state.Players, 2)
	assert.Equal(t, "alice", room.state.Players[1].Name)
	assert.Equal(t, RoleNone, room.state.Players[1].Role)

	view := lastView(t, drain(guest))
	assert.Len(t, view.Players, 2)
	assert.Equal(t, room.state.Players[1].ID, view.ClientID)

	// the host hears about it too
	hostView := lastView(t, drain(host))
	assert.Len(t, hostView.Players, 2)
}

func TestJoinWithBadNameStillJoins(t *testing.T) {
	cfg, reg, room, _ := testLobby(t, 1)

	guest := fakeClient("session-g")
	handleMessage(cfg, reg, guest, ClientMessage{Type: "join", Code: room.state.Code, Name: "  no!good  "})

	require.Len(t, room.state.Players, 2)
	assert.Empty(t, room.state.Players[1].Name, "bad names are dropped, not fatal")
	assert.Contains(t, errorTexts(drain(guest)), invalidNameText)
}

func TestJoinNameCollision(t *testing.T) {
	cfg, reg, room, _ := testLobby(t, 1)

	guest := fakeClient("session-g")
	handleMessage(cfg, reg, guest, ClientMessage{Type: "join", Code: room.state.Code, Name: "host"})

	require.Len(t, room.state.Players, 2)
	assert.Empty(t, room.state.Players[1].Name)
	assert.Contains(t, errorTexts(drain(guest)), nameCollisionText)
}

func TestJoinReconnectKeepsIdentity(t *testing.T) {
	cfg, reg, room, _ := testLobby(t, 2)
	id := room.state.Players[1].ID

	// same session, fresh connection: same seat, no new player
	again := fakeClient("session-guest1")
	handleMessage(cfg, reg, again, ClientMessage{Type: "join", Code: room.state.Code, Name: "guest1"})

	require.Len(t, room.state.Players, 2)
	assert.Equal(t, id, room.state.Players[1].ID)

	view := lastView(t, drain(again))
	assert.Equal(t, id, view.ClientID)
}

func TestLeaveRequest(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 2)
	guest := clients[1]

	handleMessage(cfg, reg, guest, ClientMessage{Type: "leaveRequest", Code: room.state.Code})

	require.Len(t, room.state.Players, 1)
	assert.Nil(t, guest.room)

	var sawDisconnect bool
	for _, m := range drain(guest) {
		if _, ok := m.(disconnectMessage); ok {
			sawDisconnect = true
		}
	}
	assert.True(t, sawDisconnect)

	// identity survives the departure
	room.mu.Lock()
	assert.NotEmpty(t, room.lookupSessionLocked("session-guest1"))
	room.mu.Unlock()
}

func TestKickPlayer(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 3)
	host, guest := clients[0], clients[1]
	targetID := room.state.Players[1].ID

	t.Run("guests cannot kick", func(t *testing.T) {
		handleMessage(cfg, reg, clients[2], ClientMessage{Type: "kickPlayer", Code: room.state.Code, PlayerID: targetID})
		assert.Len(t, room.state.Players, 3)
		assert.NotEmpty(t, errorTexts(drain(clients[2])))
	})

	t.Run("unknown target", func(t *testing.T) {
		handleMessage(cfg, reg, host, ClientMessage{Type: "kickPlayer", Code: room.state.Code, PlayerID: "ghost"})
		assert.Len(t, room.state.Players, 3)
		assert.Contains(t, errorTexts(drain(host)), "That player is not in this room.")
	})

	t.Run("host kicks, target is told", func(t *testing.T) {
		handleMessage(cfg, reg, host, ClientMessage{Type: "kickPlayer", Code: room.state.Code, PlayerID: targetID})
		assert.Len(t, room.state.Players, 2)

		var sawDisconnect bool
		for _, m := range drain(guest) {
			if _, ok := m.(disconnectMessage); ok {
				sawDisconnect = true
			}
		}
		assert.True(t, sawDisconnect)
	})
}

func TestKickSeatedPlayerMidGame(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 4)
	host := clients[0]

	handleMessage(cfg, reg, host, ClientMessage{Type: "startGame", Code: room.state.Code})
	drain(host)
	require.True(t, room.state.GameInProgress)

	targetID := room.state.Players[1].ID
	handleMessage(cfg, reg, host, ClientMessage{Type: "kickPlayer", Code: room.state.Code, PlayerID: targetID})

	assert.Len(t, room.state.Players, 4)
	assert.Contains(t, errorTexts(drain(host)), "You cannot kick someone who is currently playing!")
}

func TestChangeName(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 2)
	guest := clients[1]

	handleMessage(cfg, reg, guest, ClientMessage{Type: "changeName", Code: room.state.Code, NewName: "renamed"})
	assert.Equal(t, "renamed", room.state.Players[1].Name)
	assert.Empty(t, errorTexts(drain(guest)))

	t.Run("collision rejected", func(t *testing.T) {
		handleMessage(cfg, reg, guest, ClientMessage{Type: "changeName", Code: room.state.Code, NewName: "host"})
		assert.Equal(t, "renamed", room.state.Players[1].Name)
		assert.Contains(t, errorTexts(drain(guest)), nameCollisionText)
	})

	t.Run("invalid rejected", func(t *testing.T) {
		handleMessage(cfg, reg, guest, ClientMessage{Type: "changeName", Code: room.state.Code, NewName: " bad "})
		assert.Equal(t, "renamed", room.state.Players[1].Name)
		assert.Contains(t, errorTexts(drain(guest)), invalidNameText)
	})
}

func TestChangeNameMidGame(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 4)
	host := clients[0]

	handleMessage(cfg, reg, host, ClientMessage{Type: "startGame", Code: room.state.Code})
	drain(host)
	require.True(t, room.state.GameInProgress)

	handleMessage(cfg, reg, clients[1], ClientMessage{Type: "changeName", Code: room.state.Code, NewName: "sneaky"})
	assert.Equal(t, "guest1", room.state.Players[1].Name)
	assert.NotEmpty(t, errorTexts(drain(clients[1])))
}

func TestChangeDeck(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 2)
	host, guest := clients[0], clients[1]
	before := copyDeck(room.state.Settings.Deck)

	t.Run("requires host", func(t *testing.T) {
		deck := canonicalDecks["base-6"]
		handleMessage(cfg, reg, guest, ClientMessage{Type: "changeDeck", Code: room.state.Code, Deck: &deck})
		assert.Equal(t, before, room.state.Settings.Deck)
		assert.NotEmpty(t, errorTexts(drain(guest)))
	})

	t.Run("invalid deck leaves the old one in place", func(t *testing.T) {
		bad := Deck{Items: []DeckItem{
			pool(3, RoleCleric, RoleDuke),
		}}
		handleMessage(cfg, reg, host, ClientMessage{Type: "changeDeck", Code: room.state.Code, Deck: &bad})
		assert.Equal(t, before, room.state.Settings.Deck)
		assert.NotEmpty(t, errorTexts(drain(host)))
	})

	t.Run("valid deck is installed and broadcast", func(t *testing.T) {
		deck := canonicalDecks["directors-cut-6"]
		handleMessage(cfg, reg, host, ClientMessage{Type: "changeDeck", Code: room.state.Code, Deck: &deck})
		assert.Equal(t, deck, room.state.Settings.Deck)

		view := lastView(t, drain(guest))
		assert.Equal(t, deck, view.Settings.Deck)
	})
}

func TestToggleSpectatorHandler(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 2)
	host, guest := clients[0], clients[1]
	guestID := room.state.Players[1].ID

	t.Run("requires host", func(t *testing.T) {
		handleMessage(cfg, reg, guest, ClientMessage{Type: "toggleSpectator", Code: room.state.Code, PlayerID: guestID})
		assert.Equal(t, RoleNone, room.state.Players[1].Role)
		assert.NotEmpty(t, errorTexts(drain(guest)))
	})

	t.Run("host toggles", func(t *testing.T) {
		handleMessage(cfg, reg, host, ClientMessage{Type: "toggleSpectator", Code: room.state.Code, PlayerID: guestID})
		assert.Equal(t, RoleSpectator, room.state.Players[1].Role)
		drain(host)
	})
}

func TestBecomeSpectatorHandler(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 5)
	deck := canonicalDecks["base-5"]
	handleMessage(cfg, reg, clients[0], ClientMessage{Type: "changeDeck", Code: room.state.Code, Deck: &deck})

	// even mid-game, giving up your own seat is allowed
	handleMessage(cfg, reg, clients[0], ClientMessage{Type: "startGame", Code: room.state.Code})
	require.True(t, room.state.GameInProgress)

	handleMessage(cfg, reg, clients[2], ClientMessage{Type: "becomeSpectator", Code: room.state.Code})
	assert.Equal(t, RoleSpectator, room.state.Players[2].Role)
}

func TestReorderPlayersHandler(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 3)
	host := clients[0]

	ids := []string{room.state.Players[2].ID, room.state.Players[0].ID, room.state.Players[1].ID}
	handleMessage(cfg, reg, host, ClientMessage{Type: "reorderPlayers", Code: room.state.Code, PlayerIDs: ids})

	for i, p := range room.state.Players {
		assert.Equal(t, ids[i], p.ID)
	}
}

func TestToggleOmnipotentSpectatorsHandler(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 2)
	host := clients[0]

	handleMessage(cfg, reg, host, ClientMessage{Type: "toggleOmnipotentSpectators", Code: room.state.Code})
	assert.True(t, room.state.Settings.OmnipotentSpectators)

	view := lastView(t, drain(clients[1]))
	assert.True(t, view.Settings.OmnipotentSpectators, "the setting is visible to everyone")
}

func TestStartAndStopGameFlow(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 4)
	host := clients[0]

	t.Run("guests cannot start", func(t *testing.T) {
		handleMessage(cfg, reg, clients[1], ClientMessage{Type: "startGame", Code: room.state.Code})
		assert.False(t, room.state.GameInProgress)
		drain(clients[1])
	})

	t.Run("wrong seat count reported to host only", func(t *testing.T) {
		deck := canonicalDecks["base-6"]
		handleMessage(cfg, reg, host, ClientMessage{Type: "changeDeck", Code: room.state.Code, Deck: &deck})
		drain(host)
		handleMessage(cfg, reg, host, ClientMessage{Type: "startGame", Code: room.state.Code})
		assert.False(t, room.state.GameInProgress)
		require.NotEmpty(t, errorTexts(drain(host)))
		assert.Empty(t, errorTexts(drain(clients[1])))

		deck = canonicalDecks["base-4"]
		handleMessage(cfg, reg, host, ClientMessage{Type: "changeDeck", Code: room.state.Code, Deck: &deck})
		drain(host)
	})

	t.Run("start deals and redacts", func(t *testing.T) {
		handleMessage(cfg, reg, host, ClientMessage{Type: "startGame", Code: room.state.Code})
		require.True(t, room.state.GameInProgress)

		view := lastView(t, drain(clients[1]))
		assert.True(t, view.GameInProgress)
		for _, entry := range view.Players {
			if entry.ID == view.ClientID {
				assert.True(t, entry.Role.drawable())
			}
		}
	})

	t.Run("stop reveals", func(t *testing.T) {
		handleMessage(cfg, reg, host, ClientMessage{Type: "stopGame", Code: room.state.Code})
		require.False(t, room.state.GameInProgress)

		view := lastView(t, drain(clients[1]))
		for i, entry := range view.Players {
			assert.Equal(t, room.state.Players[i].Role, entry.Role)
		}
	})
}

func TestUnknownCommandIgnored(t *testing.T) {
	cfg, reg, room, clients := testLobby(t, 1)

	handleMessage(cfg, reg, clients[0], ClientMessage{Type: "fireball", Code: room.state.Code})
	assert.Empty(t, drain(clients[0]))
	assert.Len(t, room.state.Players, 1)
}
