package main

import (
	"crypto/rand"
	"sync"
	"time"
)

// RoomRegistry holds every live room for the lifetime of the process,
// keyed by join code. Rooms are independent of one another; the registry
// lock only guards the map itself.
type RoomRegistry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
}

func newRoomRegistry(idleTimeout time.Duration) *RoomRegistry {
	reg := &RoomRegistry{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go reg.reaperLoop()
	}
	return reg
}

const codeLength = 4

// newRoomCode generates a crypto-random 4-letter join code, rejection
// sampling until it doesn't collide with a live room.
func (reg *RoomRegistry) newRoomCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for {
		buf := make([]byte, codeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, codeLength)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		code := string(out)

		reg.mu.Lock()
		_, exists := reg.rooms[code]
		reg.mu.Unlock()

		if !exists {
			return code
		}
	}
}

// createRoom makes a room under a fresh code and seats its creator as
// host. Returns the room and the creator's participant id.
func (reg *RoomRegistry) createRoom(session, name string) (*Room, string) {
	code := reg.newRoomCode()
	room := newRoom(code)

	room.mu.Lock()
	hostID := room.resolveIdentityLocked(session)
	room.state.HostID = hostID
	room.addPlayerLocked(hostID, name)
	room.mu.Unlock()

	reg.mu.Lock()
	reg.rooms[code] = room
	reg.mu.Unlock()

	return room, hostID
}

// getRoom returns the live room for a code, or nil.
func (reg *RoomRegistry) getRoom(code string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.rooms[code]
}

// reaperLoop periodically drops rooms idle longer than idleTimeout.
func (reg *RoomRegistry) reaperLoop() {
	ticker := time.NewTicker(reg.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-reg.idleTimeout)

		reg.mu.Lock()
		for code, room := range reg.rooms {
			room.mu.RLock()
			last := room.lastActive
			room.mu.RUnlock()

			if last.Before(cutoff) {
				delete(reg.rooms, code)
				go room.closeAll()
			}
		}
		reg.mu.Unlock()
	}
}
