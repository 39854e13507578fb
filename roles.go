package main

// Role is the closed set of parts a player can hold. "Unknown" only ever
// appears in a client view, never in the authoritative roster.
type Role string

const (
	RoleSpectator    Role = "Spectator"
	RoleNone         Role = "No Role"
	RoleUnknown      Role = "Unknown"
	RoleMorganLeFay  Role = "Morgan Le Fay"
	RoleMinion       Role = "Minion of Mordred"
	RoleBlindHunter  Role = "Blind Hunter"
	RoleChangeling   Role = "Changeling"
	RoleScion        Role = "Scion"
	RoleRevealer     Role = "Revealer"
	RoleTrickster    Role = "Trickster"
	RoleLunatic      Role = "Lunatic"
	RoleBrute        Role = "Brute"
	RoleMutineer     Role = "Mutineer"
	RoleLoyalServant Role = "Loyal Servant of Arthur"
	RoleDuke         Role = "Duke"
	RoleArchduke     Role = "Archduke"
	RoleApprentice   Role = "Apprentice"
	RoleTroublemaker Role = "Troublemaker"
	RoleYouth        Role = "Youth"
	RoleCleric       Role = "Cleric"
	RoleArthur       Role = "Arthur"
)

type Allegiance string

const (
	AllegianceNone    Allegiance = "No Allegiance"
	AllegianceUnknown Allegiance = "Unknown"
	AllegianceGood    Allegiance = "Good"
	AllegianceEvil    Allegiance = "Evil"
)

// roleAllegiances is the static role → allegiance table. Every role has
// exactly one entry; disclosure may lie about it in a view, but the
// authoritative roster always matches this table.
var roleAllegiances = map[Role]Allegiance{
	RoleSpectator:    AllegianceNone,
	RoleNone:         AllegianceNone,
	RoleUnknown:      AllegianceUnknown,
	RoleMorganLeFay:  AllegianceEvil,
	RoleMinion:       AllegianceEvil,
	RoleBlindHunter:  AllegianceEvil,
	RoleChangeling:   AllegianceEvil,
	RoleScion:        AllegianceEvil,
	RoleRevealer:     AllegianceEvil,
	RoleTrickster:    AllegianceEvil,
	RoleLunatic:      AllegianceEvil,
	RoleBrute:        AllegianceEvil,
	RoleMutineer:     AllegianceEvil,
	RoleLoyalServant: AllegianceGood,
	RoleDuke:         AllegianceGood,
	RoleArchduke:     AllegianceGood,
	RoleApprentice:   AllegianceGood,
	RoleTroublemaker: AllegianceGood,
	RoleYouth:        AllegianceGood,
	RoleCleric:       AllegianceGood,
	RoleArthur:       AllegianceGood,
}

func (r Role) allegiance() Allegiance {
	if a, ok := roleAllegiances[r]; ok {
		return a
	}
	return AllegianceUnknown
}

func (r Role) valid() bool {
	_, ok := roleAllegiances[r]
	return ok
}

// drawable reports whether a role may appear in a deck. Spectator, No Role
// and Unknown are bookkeeping values, not parts to hand out.
func (r Role) drawable() bool {
	switch r {
	case RoleSpectator, RoleNone, RoleUnknown:
		return false
	}
	return r.valid()
}
