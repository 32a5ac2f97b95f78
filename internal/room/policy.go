package room

import (
	"fmt"

	"github.com/DoyleJ11/tabletop/internal/engine"
)

// DisconnectPolicy decides what happens to a seated player whose connection
// left the room. The result runs through the normal pipeline.
type DisconnectPolicy interface {
	OnDisconnect(g *engine.GameState, p *engine.Player) engine.Result
}

type DisconnectFunc func(g *engine.GameState, p *engine.Player) engine.Result

func (f DisconnectFunc) OnDisconnect(g *engine.GameState, p *engine.Player) engine.Result {
	return f(g, p)
}

// Wait leaves the player seated; the game waits for them.
var Wait DisconnectPolicy = DisconnectFunc(func(*engine.GameState, *engine.Player) engine.Result {
	return engine.None
})

// SkipTurn ends the player's turn if it was theirs.
var SkipTurn DisconnectPolicy = DisconnectFunc(func(g *engine.GameState, p *engine.Player) engine.Result {
	if g.Status == engine.StatusActive && g.Current() == p {
		return engine.EndTurn
	}
	return engine.None
})

func PolicyByName(name string) (DisconnectPolicy, error) {
	switch name {
	case "", "wait":
		return Wait, nil
	case "skip":
		return SkipTurn, nil
	default:
		return nil, fmt.Errorf("unknown disconnect policy %q", name)
	}
}
