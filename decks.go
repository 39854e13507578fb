package main

// Canonical decks for 4-10 players, in the base and director's-cut
// variants. New rooms start on the 4-player base deck; hosts pick any
// other deck (or build their own) via changeDeck.

func role(r Role) DeckItem {
	return DeckItem{Role: r}
}

func pool(draw int, roles ...Role) DeckItem {
	return DeckItem{Pool: &RolePool{Draw: draw, Roles: roles}}
}

var canonicalDecks = map[string]Deck{
	"base-4": {
		Items: []DeckItem{
			role(RoleLoyalServant),
			role(RoleLoyalServant),
			role(RoleMorganLeFay),
			role(RoleScion),
		},
	},
	"base-5": {
		Items: []DeckItem{
			role(RoleLoyalServant),
			role(RoleLoyalServant),
			role(RoleLoyalServant),
			role(RoleMorganLeFay),
			role(RoleScion),
		},
	},
	"base-6": {
		Items: []DeckItem{
			role(RoleCleric),
			role(RoleDuke),
			role(RoleYouth),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"base-7": {
		Items: []DeckItem{
			role(RoleCleric),
			role(RoleDuke),
			role(RoleYouth),
			role(RoleTroublemaker),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"base-8": {
		Items: []DeckItem{
			role(RoleLoyalServant),
			role(RoleCleric),
			role(RoleDuke),
			role(RoleYouth),
			role(RoleTroublemaker),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"base-9": {
		Items: []DeckItem{
			role(RoleLoyalServant),
			role(RoleCleric),
			role(RoleDuke),
			role(RoleYouth),
			role(RoleTroublemaker),
			role(RoleArchduke),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"base-10": {
		Items: []DeckItem{
			role(RoleLoyalServant),
			role(RoleCleric),
			role(RoleDuke),
			role(RoleYouth),
			role(RoleTroublemaker),
			role(RoleArchduke),
			role(RoleMinion),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"directors-cut-4": {
		DirectorsCut: true,
		Items: []DeckItem{
			pool(2, RoleLoyalServant, RoleCleric, RoleYouth),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"directors-cut-5": {
		DirectorsCut: true,
		Items: []DeckItem{
			pool(2, RoleLoyalServant, RoleCleric, RoleYouth),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
			role(RoleMinion),
		},
	},
	"directors-cut-6": {
		DirectorsCut: true,
		Items: []DeckItem{
			role(RoleCleric),
			pool(1, RoleTroublemaker, RoleYouth),
			role(RoleDuke),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"directors-cut-7": {
		DirectorsCut: true,
		Items: []DeckItem{
			role(RoleCleric),
			pool(1, RoleTroublemaker, RoleYouth),
			role(RoleDuke),
			role(RoleMinion),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"directors-cut-8": {
		DirectorsCut: true,
		Items: []DeckItem{
			role(RoleCleric),
			pool(2, RoleLoyalServant, RoleTroublemaker, RoleYouth),
			role(RoleDuke),
			role(RoleMinion),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"directors-cut-9": {
		DirectorsCut: true,
		Items: []DeckItem{
			role(RoleCleric),
			pool(2, RoleLoyalServant, RoleTroublemaker, RoleYouth),
			role(RoleArchduke),
			role(RoleMinion),
			role(RoleMinion),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
	"directors-cut-10": {
		DirectorsCut: true,
		Items: []DeckItem{
			role(RoleCleric),
			pool(2, RoleLoyalServant, RoleTroublemaker, RoleYouth),
			role(RoleDuke),
			role(RoleArchduke),
			role(RoleMinion),
			role(RoleMinion),
			role(RoleMinion),
			role(RoleMorganLeFay),
			role(RoleBlindHunter),
		},
	},
}

// defaultDeck returns a copy of the deck new rooms start with.
func defaultDeck() Deck {
	return copyDeck(canonicalDecks["base-4"])
}

// copyDeck deep-copies a deck so room settings never alias shared deck data.
func copyDeck(deck Deck) Deck {
	out := Deck{
		DirectorsCut: deck.DirectorsCut,
		Items:        make([]DeckItem, len(deck.Items)),
	}
	for i, item := range deck.Items {
		if item.Pool == nil {
			out.Items[i] = item
			continue
		}
		roles := make([]Role, len(item.Pool.Roles))
		copy(roles, item.Pool.Roles)
		out.Items[i] = DeckItem{Pool: &RolePool{Draw: item.Pool.Draw, Roles: roles}}
	}

	return out
}
