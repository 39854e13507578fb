package main

// The secret disclosure engine. Each role that starts the game knowing
// something about other players gets a secretProvider; everyone else
// falls through to the default (no reveals). Providers read the
// authoritative roster but only ever return overrides, which the view
// materializer applies on top of a fully redacted copy — they never
// mutate the roster itself.

type revealOverride struct {
	role       Role       // "" = role stays hidden
	allegiance Allegiance // "" = allegiance stays hidden
}

type revealOverrides map[string]revealOverride

type secretProvider func(state *ServerRoomState, viewer *Player) revealOverrides

func defaultSecretProvider(*ServerRoomState, *Player) revealOverrides {
	return revealOverrides{}
}

// concealedFromEvil lists the evil roles hidden even from their own side.
func concealedFromEvil(r Role) bool {
	switch r {
	case RoleBlindHunter, RoleChangeling, RoleScion:
		return true
	}
	return false
}

// seeVisibleEvil discloses the allegiance (not the role) of every other
// evil player, except concealed ones. In small non-director's-cut games
// (five or fewer drawn roles) the Blind Hunter is fully visible to evil
// vision anyway, and Morgan Le Fay always learns the Scion outright.
func seeVisibleEvil(state *ServerRoomState, viewer *Player) revealOverrides {
	overrides := revealOverrides{}

	if !state.Settings.Deck.DirectorsCut && numberOfPlayersForDeck(state.Settings.Deck) <= 5 {
		if hunter := state.findByRole(RoleBlindHunter); hunter != nil {
			overrides[hunter.ID] = revealOverride{role: hunter.Role, allegiance: hunter.Allegiance}
		}
	}

	if viewer.Role == RoleMorganLeFay {
		if scion := state.findByRole(RoleScion); scion != nil {
			overrides[scion.ID] = revealOverride{role: scion.Role, allegiance: scion.Allegiance}
		}
	}

	for _, p := range state.Players {
		if p.ID == viewer.ID || p.Allegiance != AllegianceEvil || concealedFromEvil(p.Role) {
			continue
		}
		overrides[p.ID] = revealOverride{allegiance: p.Allegiance}
	}

	return overrides
}

// clericSight discloses the first leader's allegiance, except that a
// Troublemaker in the leader seat reads as Evil. Deliberate misdirection,
// not a bug.
func clericSight(state *ServerRoomState, viewer *Player) revealOverrides {
	if state.FirstLeaderID == "" || state.FirstLeaderID == viewer.ID {
		return revealOverrides{}
	}
	leader := state.findByID(state.FirstLeaderID)
	if leader == nil {
		return revealOverrides{}
	}

	seen := leader.Allegiance
	if leader.Role == RoleTroublemaker {
		seen = AllegianceEvil
	}

	return revealOverrides{leader.ID: {allegiance: seen}}
}

// arthurSight discloses Morgan Le Fay's role, not just her allegiance.
func arthurSight(state *ServerRoomState, viewer *Player) revealOverrides {
	morgan := state.findByRole(RoleMorganLeFay)
	if morgan == nil || morgan.ID == viewer.ID {
		return revealOverrides{}
	}

	return revealOverrides{morgan.ID: {role: morgan.Role}}
}

// secretProviders maps roles with starting knowledge to their provider.
// Unlisted roles (Blind Hunter, Changeling, Scion, Mutineer, the good
// roles without sight) learn nothing beyond their own card.
var secretProviders = map[Role]secretProvider{
	RoleMorganLeFay: seeVisibleEvil,
	RoleMinion:      seeVisibleEvil,
	RoleRevealer:    seeVisibleEvil,
	RoleTrickster:   seeVisibleEvil,
	RoleLunatic:     seeVisibleEvil,
	RoleBrute:       seeVisibleEvil,
	RoleCleric:      clericSight,
	RoleArthur:      arthurSight,
}

func providerForRole(r Role) secretProvider {
	if provider, ok := secretProviders[r]; ok {
		return provider
	}
	return defaultSecretProvider
}
