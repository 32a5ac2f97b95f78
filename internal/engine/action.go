package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeContinue
	OutcomeEndTurn
	OutcomeChain
)

// Result is what a handler hands back to the engine.
type Result struct {
	Outcome Outcome
	Next    *ChainRequest
}

// ChainRequest asks the engine to run another action after the current one,
// through the same validation and broadcast pipeline. A nil Target means the
// acting player.
type ChainRequest struct {
	Action string
	Target *Player
	Args   Args
}

var (
	None     = Result{Outcome: OutcomeNone}
	Continue = Result{Outcome: OutcomeContinue}
	EndTurn  = Result{Outcome: OutcomeEndTurn}
)

func Chain(action string, target *Player, args Args) Result {
	return Result{Outcome: OutcomeChain, Next: &ChainRequest{Action: action, Target: target, Args: args}}
}

// Args are the bound, still-serialized arguments of an action.
type Args map[string]json.RawMessage

func (a Args) Decode(name string, v any) error {
	raw, ok := a[name]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrArity, name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadValue, name, err)
	}
	return nil
}

func (a Args) Int(name string) (int, error) {
	var v int
	err := a.Decode(name, &v)
	return v, err
}

func (a Args) String(name string) (string, error) {
	var v string
	err := a.Decode(name, &v)
	return v, err
}

type Handler interface {
	Invoke(g *GameState, p *Player, args Args) (Result, error)
}

type HandlerFunc func(g *GameState, p *Player, args Args) (Result, error)

func (f HandlerFunc) Invoke(g *GameState, p *Player, args Args) (Result, error) {
	return f(g, p, args)
}

// Action is a named entry in a module's action table.
type Action struct {
	Params  []string
	Handler Handler

	internal bool
}

// Internal reports whether the action is an engine step clients cannot call.
func (a Action) Internal() bool { return a.internal }

// Bind maps a raw payload onto the action's parameters. The payload shape
// picks the convention: an object binds by name, an array by position, a
// scalar binds to the only parameter, and no payload to no parameters.
func (a Action) Bind(payload json.RawMessage) (Args, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		if len(a.Params) != 0 {
			return nil, fmt.Errorf("%w: want %d, got none", ErrArity, len(a.Params))
		}
		return Args{}, nil
	}

	switch payload[0] {
	case '{':
		var named map[string]json.RawMessage
		if err := json.Unmarshal(payload, &named); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		for k := range named {
			if !slices.Contains(a.Params, k) {
				return nil, fmt.Errorf("%w: unexpected %q", ErrArity, k)
			}
		}
		for _, p := range a.Params {
			if _, ok := named[p]; !ok {
				return nil, fmt.Errorf("%w: missing %q", ErrArity, p)
			}
		}
		return Args(named), nil

	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(payload, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(list) != len(a.Params) {
			return nil, fmt.Errorf("%w: want %d, got %d", ErrArity, len(a.Params), len(list))
		}
		args := make(Args, len(list))
		for i, p := range a.Params {
			args[p] = list[i]
		}
		return args, nil

	default:
		if !json.Valid(payload) {
			return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
		}
		if len(a.Params) != 1 {
			return nil, fmt.Errorf("%w: want %d, got 1", ErrArity, len(a.Params))
		}
		return Args{a.Params[0]: payload}, nil
	}
}
