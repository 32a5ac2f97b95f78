package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Module supplies the rules of one game. The engine owns turn order and
// status; a module only decorates state and reacts to the hooks below.
type Module interface {
	Name() string
	// NewGame returns a fresh waiting state.
	NewGame() *GameState
	// InitPlayer registers a new player in g and returns it.
	InitPlayer(g *GameState, name string) *Player
	// StartGame runs once when the game goes active, before the first turn.
	StartGame(g *GameState)
	// InitRound settles the round that just ended and sets up the next.
	InitRound(g *GameState, p *Player)
	// InitTurn prepares p's turn. It may return a follow-up.
	InitTurn(g *GameState, p *Player) Result
	Actions() map[string]Action
}

// TurnBased provides default hooks for modules to embed.
type TurnBased struct{}

func (TurnBased) NewGame() *GameState { return NewGameState(4) }

func (TurnBased) InitPlayer(g *GameState, name string) *Player { return g.AddPlayer(name) }

func (TurnBased) StartGame(*GameState) {}

func (TurnBased) InitRound(*GameState, *Player) {}

func (TurnBased) InitTurn(*GameState, *Player) Result { return None }

// Catalog maps game type names to modules.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func NewCatalog(mods ...Module) *Catalog {
	c := &Catalog{modules: make(map[string]Module)}
	for _, m := range mods {
		c.Register(m)
	}
	return c
}

func (c *Catalog) Register(m Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[m.Name()] = m
}

func (c *Catalog) Lookup(name string) (Module, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, name)
	}
	return m, nil
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.modules))
	for n := range c.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
