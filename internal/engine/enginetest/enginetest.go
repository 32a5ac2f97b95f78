// Package enginetest provides a small game module and a recording connection
// for tests of the packages built on the engine.
package enginetest

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/pkg/types"
)

const GameName = "duel"

// Duel is a minimal turn-based game. Each player has a private stake, the
// game has a public banner and records the last settled round.
type Duel struct {
	engine.TurnBased
	Seats int
}

func NewDuel(seats int) *Duel { return &Duel{Seats: seats} }

func (d *Duel) Name() string { return GameName }

func (d *Duel) NewGame() *engine.GameState {
	g := engine.NewGameState(d.Seats)
	g.Set("banner", "")
	g.Set("settled", 0)
	g.Declare("banner", "settled")
	return g
}

func (d *Duel) InitPlayer(g *engine.GameState, name string) *engine.Player {
	p := g.AddPlayer(name)
	p.Set("stake", 0)
	return p
}

func (d *Duel) InitRound(g *engine.GameState, _ *engine.Player) {
	g.Set("settled", g.Round-1)
}

func (d *Duel) Actions() map[string]engine.Action {
	return map[string]engine.Action{
		"stake": {Params: []string{"amount"}, Handler: engine.OnTurn(engine.HandlerFunc(
			func(_ *engine.GameState, p *engine.Player, args engine.Args) (engine.Result, error) {
				amount, err := args.Int("amount")
				if err != nil {
					return engine.None, err
				}
				if amount < 0 {
					return engine.None, engine.ErrInvalid
				}
				p.Set("stake", amount)
				return engine.Continue, nil
			}))},
		"pass": {Handler: engine.OnTurn(engine.HandlerFunc(
			func(*engine.GameState, *engine.Player, engine.Args) (engine.Result, error) {
				return engine.EndTurn, nil
			}))},
		"announce": {Params: []string{"text"}, Handler: engine.HandlerFunc(
			func(g *engine.GameState, _ *engine.Player, args engine.Args) (engine.Result, error) {
				text, err := args.String("text")
				if err != nil {
					return engine.None, err
				}
				g.Set("banner", text)
				return engine.None, nil
			})},
		"noop": {Handler: engine.HandlerFunc(
			func(*engine.GameState, *engine.Player, engine.Args) (engine.Result, error) {
				return engine.None, nil
			})},
		"loop": {Handler: engine.HandlerFunc(
			func(*engine.GameState, *engine.Player, engine.Args) (engine.Result, error) {
				return engine.Chain("loop", nil, nil), nil
			})},
		"boom": {Handler: engine.HandlerFunc(
			func(*engine.GameState, *engine.Player, engine.Args) (engine.Result, error) {
				panic("boom")
			})},
	}
}

// Conn records every frame sent to it.
type Conn struct {
	id string

	mu     sync.Mutex
	msgs   []string
	full   bool
	closed bool
}

func NewConn(id string) *Conn { return &Conn{id: id} }

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.msgs = append(c.msgs, msg)
	return true
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// SetFull makes Send fail as a slow consumer's would.
func (c *Conn) SetFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

// Take returns the recorded frames and forgets them.
func (c *Conn) Take() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.msgs
	c.msgs = nil
	return out
}

// WithPrefix keeps the frames of one kind, payload only.
func WithPrefix(msgs []string, prefix string) []string {
	var out []string
	for _, m := range msgs {
		if body, ok := strings.CutPrefix(m, prefix+","); ok {
			out = append(out, body)
		}
	}
	return out
}

// Updates decodes the update frames among msgs.
func Updates(msgs []string) []types.Update {
	var out []types.Update
	for _, body := range WithPrefix(msgs, types.PrefixUpdate) {
		var u types.Update
		if err := json.Unmarshal([]byte(body), &u); err == nil {
			out = append(out, u)
		}
	}
	return out
}

// Errors decodes the error frames among msgs.
func Errors(msgs []string) []types.Error {
	var out []types.Error
	for _, body := range WithPrefix(msgs, types.PrefixError) {
		var e types.Error
		if err := json.Unmarshal([]byte(body), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the first update for key, and whether there was one.
func Find(updates []types.Update, varType types.VarType, key string) (types.Update, bool) {
	for _, u := range updates {
		if u.VarType == varType && u.Key == key {
			return u, true
		}
	}
	return types.Update{}, false
}
