package engine

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/DoyleJ11/tabletop/internal/cards"
)

var ErrUnknownGame = errors.New("unknown game type")
var ErrGameMismatch = errors.New("room plays a different game")
var ErrUnknownAction = errors.New("unknown action")
var ErrArity = errors.New("wrong arguments")
var ErrBadValue = errors.New("bad argument value")
var ErrNotYourTurn = errors.New("not your turn")
var ErrNotStarted = errors.New("game not started yet")
var ErrAlreadyStarted = errors.New("game already started")
var ErrNoPlayers = errors.New("no players to start with")
var ErrRoomFull = errors.New("room is full")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrSpectator = errors.New("spectators cannot act")
var ErrNotJoined = errors.New("join a game first")
var ErrAlreadyJoined = errors.New("already in a room")
var ErrMalformed = errors.New("malformed message")
var ErrChainDepth = errors.New("chain depth exceeded")
var ErrHandlerPanic = errors.New("handler failed")
var ErrInvalid = errors.New("invalid action")

// Rejection is the uniform failure sent back to the connection that caused it.
type Rejection struct {
	Action string
	Err    error
}

func Reject(action string, err error) *Rejection {
	return &Rejection{Action: action, Err: err}
}

func (r *Rejection) Error() string {
	if r.Action == "" {
		return r.Err.Error()
	}
	return fmt.Sprintf("%s: %v", r.Action, r.Err)
}

func (r *Rejection) Unwrap() error { return r.Err }

// Code is the short machine-readable reason put on the wire.
func (r *Rejection) Code() string {
	switch {
	case errors.Is(r.Err, ErrUnknownGame), errors.Is(r.Err, ErrGameMismatch):
		return "configuration"
	case errors.Is(r.Err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(r.Err, ErrRoomFull):
		return "full"
	case errors.Is(r.Err, ErrChainDepth), errors.Is(r.Err, ErrHandlerPanic):
		return "aborted"
	case errors.Is(r.Err, ErrNotJoined):
		return "not_joined"
	default:
		return "invalid"
	}
}

// Message is the human-readable detail. Aborted chains hide their internals.
func (r *Rejection) Message() string {
	if errors.Is(r.Err, ErrChainDepth) || errors.Is(r.Err, ErrHandlerPanic) {
		return "action aborted"
	}
	return r.Err.Error()
}

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
)

// Built-in field names.
const (
	FieldDrawPile      = "draw_pile"
	FieldRound         = "round"
	FieldMaxPlayers    = "max_players"
	FieldCurrentPlayer = "current_player"
	FieldStatus        = "status"
	FieldPlayers       = "players"
	FieldName          = "name"
	FieldHand          = "hand"
)

// GameState is the authoritative state of one room. It is only touched from
// the room goroutine that owns it.
type GameState struct {
	DrawPile   []cards.Card
	Round      int
	MaxPlayers int
	Status     Status
	Players    []*Player
	Public     []string
	Vars       map[string]any

	current *Player
	anchor  *Player
}

type Player struct {
	ID     string
	Name   string
	Hand   []cards.Card
	Public []string
	Vars   map[string]any

	game *GameState
}

// Game is the state this player belongs to.
func (p *Player) Game() *GameState { return p.game }

// Current is the player whose turn it is, nil until the game starts.
func (g *GameState) Current() *Player { return g.current }

// Anchor is the player the turn cycle started from.
func (g *GameState) Anchor() *Player { return g.anchor }

func (g *GameState) Player(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Field returns the value of a named game field. Undeclared names read as nil.
func (g *GameState) Field(name string) any {
	switch name {
	case FieldDrawPile:
		return g.DrawPile
	case FieldRound:
		return g.Round
	case FieldMaxPlayers:
		return g.MaxPlayers
	case FieldStatus:
		return g.Status
	case FieldCurrentPlayer:
		if g.current == nil {
			return nil
		}
		return g.current.ID
	case FieldPlayers:
		ids := make([]string, 0, len(g.Players))
		for _, p := range g.Players {
			ids = append(ids, p.ID)
		}
		return ids
	}
	return g.Vars[name]
}

func (g *GameState) IsPublic(name string) bool { return slices.Contains(g.Public, name) }

// Declare marks game fields as public.
func (g *GameState) Declare(names ...string) {
	for _, n := range names {
		if !g.IsPublic(n) {
			g.Public = append(g.Public, n)
		}
	}
}

func (p *Player) Field(name string) any {
	switch name {
	case FieldName:
		return p.Name
	case FieldHand:
		return p.Hand
	}
	return p.Vars[name]
}

func (p *Player) IsPublic(name string) bool { return slices.Contains(p.Public, name) }

func (p *Player) Declare(names ...string) {
	for _, n := range names {
		if !p.IsPublic(n) {
			p.Public = append(p.Public, n)
		}
	}
}

// PrivateFields lists every field of the player that is not public, sorted.
func (p *Player) PrivateFields() []string {
	var names []string
	for _, n := range []string{FieldName, FieldHand} {
		if !p.IsPublic(n) {
			names = append(names, n)
		}
	}
	for n := range p.Vars {
		if !p.IsPublic(n) && n != FieldName && n != FieldHand {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}
