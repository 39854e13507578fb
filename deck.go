package main

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// A Deck describes which roles enter a game. Items are either a single
// fixed role, or a pool from which `draw` roles are dealt at random.
type Deck struct {
	DirectorsCut bool       `json:"directorsCut"`
	Items        []DeckItem `json:"items"`
}

type RolePool struct {
	Draw  int    `json:"draw"`
	Roles []Role `json:"roles"`
}

// DeckItem is one entry of a deck: exactly one of Role or Pool is set.
// On the wire an item is either a bare role string or a pool object,
// matching the deck format the web client sends.
type DeckItem struct {
	Role Role
	Pool *RolePool
}

func (d DeckItem) MarshalJSON() ([]byte, error) {
	if d.Pool != nil {
		return json.Marshal(d.Pool)
	}
	return json.Marshal(d.Role)
}

func (d *DeckItem) UnmarshalJSON(data []byte) error {
	var role Role
	if err := json.Unmarshal(data, &role); err == nil {
		d.Role = role
		d.Pool = nil
		return nil
	}

	var pool RolePool
	if err := json.Unmarshal(data, &pool); err != nil {
		return fmt.Errorf("deck item must be a role or a role pool: %w", err)
	}
	d.Role = ""
	d.Pool = &pool

	return nil
}

var errInvalidDeck = errors.New("invalid deck")

// numberOfPlayersForDeck returns how many seated players the deck expects:
// one per fixed role, plus each pool's draw count.
func numberOfPlayersForDeck(deck Deck) int {
	count := 0
	for _, item := range deck.Items {
		if item.Pool != nil {
			count += item.Pool.Draw
		} else {
			count++
		}
	}

	return count
}

// validateDeck rejects decks whose pools over-draw or whose roles are not
// real parts. Checked at deck-edit time, and again by drawRoles.
func validateDeck(deck Deck) error {
	for _, item := range deck.Items {
		if item.Pool == nil {
			if !item.Role.drawable() {
				return fmt.Errorf("%w: %q is not a playable role", errInvalidDeck, item.Role)
			}
			continue
		}

		if item.Pool.Draw < 1 {
			return fmt.Errorf("%w: pool draw count (%d) must be at least 1", errInvalidDeck, item.Pool.Draw)
		}
		if item.Pool.Draw > len(item.Pool.Roles) {
			return fmt.Errorf("%w: draw count (%d) exceeds available roles (%d)",
				errInvalidDeck, item.Pool.Draw, len(item.Pool.Roles))
		}
		for _, role := range item.Pool.Roles {
			if !role.drawable() {
				return fmt.Errorf("%w: %q is not a playable role", errInvalidDeck, role)
			}
		}
	}

	return nil
}

// drawRoles expands a deck into the roles for one game: fixed roles as-is,
// each pool contributing `draw` distinct roles chosen at random, then one
// final shuffle so seat assignment is independent of deck authoring order.
func drawRoles(deck Deck) ([]Role, error) {
	roles := make([]Role, 0, numberOfPlayersForDeck(deck))

	for _, item := range deck.Items {
		if item.Pool == nil {
			roles = append(roles, item.Role)
			continue
		}

		if item.Pool.Draw > len(item.Pool.Roles) {
			return nil, fmt.Errorf("%w: draw count (%d) exceeds available roles (%d)",
				errInvalidDeck, item.Pool.Draw, len(item.Pool.Roles))
		}

		pool := make([]Role, len(item.Pool.Roles))
		copy(pool, item.Pool.Roles)
		shuffleRoles(pool)
		roles = append(roles, pool[:item.Pool.Draw]...)
	}

	shuffleRoles(roles)

	return roles, nil
}

// shuffleRoles is a Fisher-Yates shuffle backed by crypto/rand, so role
// distribution can't be predicted from a seed.
func shuffleRoles(roles []Role) {
	for i := len(roles) - 1; i > 0; i-- {
		j := int(randUint32() % uint32(i+1))
		roles[i], roles[j] = roles[j], roles[i]
	}
}

func randUint32() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return binary.BigEndian.Uint32(buf[:])
}

// randIndex picks a uniformly random index below n.
func randIndex(n int) int {
	return int(randUint32() % uint32(n))
}
