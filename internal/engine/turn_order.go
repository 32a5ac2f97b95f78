package engine

// Client-callable built-ins.
const (
	ActionStart   = "start"
	ActionQuit    = "quit"
	ActionInspect = "inspect"
)

// Engine steps, only reachable through chain requests.
const (
	StepBeginTurn = "begin_turn"
	StepEndRound  = "end_round"
	StepOpenTurn  = "open_turn"
)

// NextPlayer is the player after the current one in join order, wrapping
// around to the first.
func (g *GameState) NextPlayer() *Player {
	if len(g.Players) == 0 {
		return nil
	}
	for i, p := range g.Players {
		if p == g.current {
			return g.Players[(i+1)%len(g.Players)]
		}
	}
	return g.Players[0]
}

// Start moves g from waiting to active and opens the first turn.
func Start(m Module, g *GameState) (Result, error) {
	if g.Status == StatusActive {
		return None, ErrAlreadyStarted
	}
	if len(g.Players) == 0 {
		return None, ErrNoPlayers
	}

	g.Status = StatusActive
	g.Round = 1
	g.anchor = g.Players[0]
	g.current = g.anchor

	m.StartGame(g)
	return m.InitTurn(g, g.current), nil
}

// Follow turns a handler result into the next step to run, or nil when the
// chain is done.
func Follow(g *GameState, actor *Player, res Result) *ChainRequest {
	switch res.Outcome {
	case OutcomeEndTurn:
		if g.Status != StatusActive {
			return nil
		}
		return &ChainRequest{Action: StepBeginTurn, Target: g.NextPlayer()}
	case OutcomeChain:
		if res.Next == nil {
			return nil
		}
		next := *res.Next
		if next.Target == nil {
			next.Target = actor
		}
		return &next
	default:
		return nil
	}
}

// OnTurn guards h so only the current player may invoke it.
func OnTurn(h Handler) Handler {
	return HandlerFunc(func(g *GameState, p *Player, args Args) (Result, error) {
		if g.Status != StatusActive {
			return None, ErrNotStarted
		}
		if p != g.current {
			return None, ErrNotYourTurn
		}
		return h.Invoke(g, p, args)
	})
}

// Builtins are the engine-owned actions every room resolves alongside the
// module's own table.
func Builtins(m Module) map[string]Action {
	return map[string]Action{
		ActionStart: {Handler: HandlerFunc(func(g *GameState, _ *Player, _ Args) (Result, error) {
			return Start(m, g)
		})},
		StepBeginTurn: {internal: true, Handler: HandlerFunc(func(g *GameState, p *Player, _ Args) (Result, error) {
			g.current = p
			if p == g.anchor {
				return Chain(StepEndRound, p, nil), nil
			}
			return m.InitTurn(g, p), nil
		})},
		StepEndRound: {internal: true, Handler: HandlerFunc(func(g *GameState, p *Player, _ Args) (Result, error) {
			g.Round++
			m.InitRound(g, p)
			return Chain(StepOpenTurn, p, nil), nil
		})},
		StepOpenTurn: {internal: true, Handler: HandlerFunc(func(g *GameState, p *Player, _ Args) (Result, error) {
			return m.InitTurn(g, p), nil
		})},
	}
}

// ActionTable merges the module's actions with the built-ins. Built-ins win
// on name clashes.
func ActionTable(m Module) map[string]Action {
	table := make(map[string]Action)
	for name, a := range m.Actions() {
		table[name] = a
	}
	for name, a := range Builtins(m) {
		table[name] = a
	}
	return table
}
