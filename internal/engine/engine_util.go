package engine

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/DoyleJ11/tabletop/internal/cards"
)

func NewGameState(maxPlayers int) *GameState {
	return &GameState{
		DrawPile:   cards.NewPokerDeck(false),
		Round:      0,
		MaxPlayers: maxPlayers,
		Status:     StatusWaiting,
		Players:    []*Player{},
		Public:     []string{FieldRound, FieldMaxPlayers, FieldCurrentPlayer, FieldStatus, FieldPlayers},
		Vars:       map[string]any{},
	}
}

// AddPlayer registers a new player at the end of the join order.
func (g *GameState) AddPlayer(name string) *Player {
	if name == "" {
		name = NameGen()
	}
	p := &Player{
		ID:     uuid.NewString(),
		Name:   name,
		Hand:   []cards.Card{},
		Public: []string{FieldName},
		Vars:   map[string]any{},
		game:   g,
	}
	g.Players = append(g.Players, p)
	return p
}

func (g *GameState) Full() bool { return len(g.Players) >= g.MaxPlayers }

func (g *GameState) Set(name string, v any) { g.Vars[name] = v }

func (p *Player) Set(name string, v any) { p.Vars[name] = v }

// Int reads an integer var, zero when unset or not an int.
func (p *Player) Int(name string) int {
	v, _ := p.Vars[name].(int)
	return v
}

// Cards reads a card-slice var from the game, nil when unset.
func (g *GameState) Cards(name string) []cards.Card {
	v, _ := g.Vars[name].([]cards.Card)
	return v
}

var namePrefixes = []string{"Sa", "Cho", "Gabba", "Ee", "Su", "Y"}
var nameSuffixes = []string{"n", "mmy", "die", "goid", "xi", "g"}

// NameGen makes up a display name for players who did not pick one.
func NameGen() string {
	return namePrefixes[rand.IntN(len(namePrefixes))] + nameSuffixes[rand.IntN(len(nameSuffixes))]
}
