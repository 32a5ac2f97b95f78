// Package blackjack is a table of up to eight players against a house
// dealer. Bets settle when the turn cycle comes back around.
package blackjack

import (
	"strconv"

	"github.com/DoyleJ11/tabletop/internal/cards"
	"github.com/DoyleJ11/tabletop/internal/engine"
)

const Name = "blackjack"

const (
	Seats        = 8
	StartCoins   = 50
	DefaultBet   = 5
	DealerStands = 16
)

// Field names.
const (
	FieldDealerHand  = "dealer_hand"
	FieldDealerFinal = "dealer_final" // the dealer hand that settled the last round
	FieldCoins       = "coins"
	FieldBet         = "bet"
	FieldHandValue   = "hand_value"
)

type Module struct {
	engine.TurnBased
}

func New() *Module { return &Module{} }

func (*Module) Name() string { return Name }

func (*Module) NewGame() *engine.GameState {
	g := engine.NewGameState(Seats)
	g.Set("name", Name)
	g.Set(FieldDealerHand, []cards.Card{})
	g.Set(FieldDealerFinal, []cards.Card{})
	g.Declare(FieldDealerHand, FieldDealerFinal, "name")
	return g
}

func (*Module) InitPlayer(g *engine.GameState, name string) *engine.Player {
	p := g.AddPlayer(name)
	p.Set(FieldHandValue, 0)
	p.Set(FieldCoins, StartCoins)
	p.Set(FieldBet, DefaultBet)
	p.Declare(FieldCoins, FieldBet)
	return p
}

func (*Module) StartGame(g *engine.GameState) {
	dealRound(g)
}

// InitRound plays the dealer's hand, settles every bet and deals again.
func (*Module) InitRound(g *engine.GameState, _ *engine.Player) {
	dealer := g.Cards(FieldDealerHand)
	for HandValue(dealer) < DealerStands {
		if !cards.Draw(&g.DrawPile, &dealer) {
			break
		}
	}
	dv := HandValue(dealer)

	final := make([]cards.Card, len(dealer))
	for i, c := range dealer {
		c.Facing = cards.FaceUp
		final[i] = c
	}
	g.Set(FieldDealerFinal, final)

	for _, p := range g.Players {
		pv := HandValue(p.Hand)
		if pv > 21 || (pv < dv && dv <= 21) {
			p.Set(FieldCoins, p.Int(FieldCoins)-p.Int(FieldBet))
		} else {
			p.Set(FieldCoins, p.Int(FieldCoins)+p.Int(FieldBet))
		}
		g.DrawPile = append(g.DrawPile, p.Hand...)
		p.Hand = []cards.Card{}
		p.Set(FieldHandValue, 0)
	}
	g.DrawPile = append(g.DrawPile, dealer...)
	g.Set(FieldDealerHand, []cards.Card{})

	dealRound(g)
}

func (*Module) InitTurn(_ *engine.GameState, p *engine.Player) engine.Result {
	p.Set(FieldHandValue, HandValue(p.Hand))
	return engine.None
}

func (*Module) Actions() map[string]engine.Action {
	return map[string]engine.Action{
		"bet":  {Params: []string{"amount"}, Handler: engine.OnTurn(engine.HandlerFunc(bet))},
		"hit":  {Handler: engine.OnTurn(engine.HandlerFunc(hit))},
		"stay": {Handler: engine.OnTurn(engine.HandlerFunc(stay))},
	}
}

func bet(_ *engine.GameState, p *engine.Player, args engine.Args) (engine.Result, error) {
	amount, err := args.Int("amount")
	if err != nil {
		return engine.None, err
	}
	if amount <= 0 || amount > p.Int(FieldCoins) {
		return engine.None, engine.ErrInvalid
	}
	p.Set(FieldBet, amount)
	return engine.Continue, nil
}

func hit(g *engine.GameState, p *engine.Player, _ engine.Args) (engine.Result, error) {
	cards.Draw(&g.DrawPile, &p.Hand)
	v := HandValue(p.Hand)
	p.Set(FieldHandValue, v)
	if v >= 21 {
		return engine.EndTurn, nil
	}
	return engine.Continue, nil
}

func stay(*engine.GameState, *engine.Player, engine.Args) (engine.Result, error) {
	return engine.EndTurn, nil
}

func dealRound(g *engine.GameState) {
	cards.Shuffle(g.DrawPile)
	hands := make([]*[]cards.Card, 0, len(g.Players))
	for _, p := range g.Players {
		hands = append(hands, &p.Hand)
	}
	cards.Deal(&g.DrawPile, hands, 2)

	dealer := g.Cards(FieldDealerHand)
	if cards.Draw(&g.DrawPile, &dealer) {
		dealer[len(dealer)-1].Facing = cards.FaceUp
	}
	g.Set(FieldDealerHand, dealer)
}

// HandValue scores a hand. An ace counts eleven when that does not bust.
func HandValue(hand []cards.Card) int {
	value, ace := 0, false
	for _, c := range hand {
		switch c.Value {
		case "J", "Q", "K":
			value += 10
		case "A":
			value++
			ace = true
		default:
			n, _ := strconv.Atoi(c.Value)
			value += n
		}
	}
	if ace && value <= 11 {
		value += 10
	}
	return value
}
