package blackjack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/tabletop/internal/cards"
	"github.com/DoyleJ11/tabletop/internal/engine"
)

func hand(values ...string) []cards.Card {
	out := make([]cards.Card, 0, len(values))
	for _, v := range values {
		out = append(out, cards.Card{Value: v, Suit: "spades", Facing: cards.FaceDown})
	}
	return out
}

func TestHandValue(t *testing.T) {
	cases := []struct {
		name string
		hand []cards.Card
		want int
	}{
		{"empty", nil, 0},
		{"numbers", hand("2", "9"), 11},
		{"faces", hand("K", "Q"), 20},
		{"blackjack", hand("A", "K"), 21},
		{"soft", hand("A", "6"), 17},
		{"ace forced low", hand("A", "9", "5"), 15},
		{"two aces", hand("A", "A"), 12},
		{"bust", hand("K", "Q", "5"), 25},
		{"ten", hand("10", "A"), 21},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HandValue(tc.hand))
		})
	}
}

// table builds a started game with n players.
func table(t *testing.T, n int) (*Module, *engine.GameState) {
	t.Helper()
	m := New()
	g := m.NewGame()
	for i := 0; i < n; i++ {
		m.InitPlayer(g, "")
	}
	_, err := engine.Start(m, g)
	require.NoError(t, err)
	return m, g
}

func totalCards(g *engine.GameState) int {
	n := len(g.DrawPile) + len(g.Cards(FieldDealerHand))
	for _, p := range g.Players {
		n += len(p.Hand)
	}
	return n
}

func invoke(t *testing.T, m *Module, g *engine.GameState, p *engine.Player, action, payload string) (engine.Result, error) {
	t.Helper()
	a, ok := engine.ActionTable(m)[action]
	require.True(t, ok, action)
	args, err := a.Bind(json.RawMessage(payload))
	require.NoError(t, err)
	return a.Handler.Invoke(g, p, args)
}

func TestNewGame(t *testing.T) {
	m := New()
	g := m.NewGame()
	p := m.InitPlayer(g, "ada")

	assert.Equal(t, Seats, g.MaxPlayers)
	assert.True(t, g.IsPublic(FieldDealerHand))
	assert.True(t, g.IsPublic(FieldDealerFinal))
	assert.Empty(t, g.Cards(FieldDealerFinal))
	assert.Equal(t, Name, g.Field("name"))
	assert.Equal(t, StartCoins, p.Int(FieldCoins))
	assert.Equal(t, DefaultBet, p.Int(FieldBet))
	assert.True(t, p.IsPublic(FieldCoins))
	assert.True(t, p.IsPublic(FieldBet))
	assert.Equal(t, []string{engine.FieldHand, FieldHandValue}, p.PrivateFields())
}

func TestStartDeals(t *testing.T) {
	_, g := table(t, 3)

	for _, p := range g.Players {
		assert.Len(t, p.Hand, 2)
	}
	dealer := g.Cards(FieldDealerHand)
	require.Len(t, dealer, 1)
	assert.Equal(t, cards.FaceUp, dealer[0].Facing)
	assert.Equal(t, 52, totalCards(g))

	first := g.Current()
	assert.Equal(t, HandValue(first.Hand), first.Int(FieldHandValue))
}

func TestBet(t *testing.T) {
	m, g := table(t, 2)
	cur := g.Current()
	other := g.NextPlayer()

	cases := []struct {
		name    string
		p       *engine.Player
		payload string
		wantErr error
	}{
		{"not your turn", other, "10", engine.ErrNotYourTurn},
		{"zero", cur, "0", engine.ErrInvalid},
		{"more than coins", cur, "51", engine.ErrInvalid},
		{"not a number", cur, `"lots"`, engine.ErrBadValue},
		{"ok", cur, `{"amount":20}`, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := invoke(t, m, g, tc.p, "bet", tc.payload)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, engine.Continue, res)
		})
	}
	assert.Equal(t, 20, cur.Int(FieldBet))
	assert.Equal(t, DefaultBet, other.Int(FieldBet))
}

func TestHitAndStay(t *testing.T) {
	m, g := table(t, 2)
	p := g.Current()

	p.Hand = hand("2", "3")
	g.DrawPile = append(g.DrawPile, hand("4")...)
	res, err := invoke(t, m, g, p, "hit", "")
	require.NoError(t, err)
	assert.Equal(t, engine.Continue, res)
	assert.Equal(t, 9, p.Int(FieldHandValue))

	g.DrawPile = append(g.DrawPile, hand("Q")...)
	g.DrawPile = append(g.DrawPile, hand("2")...)
	res, err = invoke(t, m, g, p, "hit", "")
	require.NoError(t, err)
	assert.Equal(t, engine.Continue, res, "11 keeps the turn")

	res, err = invoke(t, m, g, p, "hit", "")
	require.NoError(t, err)
	assert.Equal(t, engine.EndTurn, res, "21 ends the turn")

	res, err = invoke(t, m, g, p, "stay", "")
	require.NoError(t, err)
	assert.Equal(t, engine.EndTurn, res)
}

func TestInitRoundSettles(t *testing.T) {
	m, g := table(t, 3)
	win, lose, bust := g.Players[0], g.Players[1], g.Players[2]

	// Put the dealt cards back so the deck still adds up.
	for _, p := range g.Players {
		g.DrawPile = append(g.DrawPile, p.Hand...)
	}
	g.DrawPile = append(g.DrawPile, g.Cards(FieldDealerHand)...)
	g.DrawPile = removeValues(g.DrawPile, "K", "7", "K", "Q", "K", "5", "K", "Q", "5")

	g.Set(FieldDealerHand, hand("K", "7"))
	win.Hand = hand("K", "Q")
	lose.Hand = hand("K", "5")
	bust.Hand = hand("K", "Q", "5")
	lose.Set(FieldBet, 10)
	require.Equal(t, 52, totalCards(g))

	m.InitRound(g, g.Anchor())

	assert.Equal(t, StartCoins+DefaultBet, win.Int(FieldCoins))
	assert.Equal(t, StartCoins-10, lose.Int(FieldCoins))
	assert.Equal(t, StartCoins-DefaultBet, bust.Int(FieldCoins))

	for _, p := range g.Players {
		assert.Len(t, p.Hand, 2, "re-dealt")
		assert.Equal(t, 0, p.Int(FieldHandValue))
	}
	assert.Len(t, g.Cards(FieldDealerHand), 1)
	assert.Equal(t, 52, totalCards(g))

	final := g.Cards(FieldDealerFinal)
	require.Len(t, final, 2, "17 stands")
	assert.Equal(t, []string{"K", "7"}, []string{final[0].Value, final[1].Value})
	for _, c := range final {
		assert.Equal(t, cards.FaceUp, c.Facing)
	}
}

func TestDealerDrawsBelowSixteen(t *testing.T) {
	m, g := table(t, 1)
	p := g.Players[0]
	g.DrawPile = append(g.DrawPile, p.Hand...)
	g.DrawPile = append(g.DrawPile, g.Cards(FieldDealerHand)...)
	p.Hand = nil

	g.DrawPile = removeValues(g.DrawPile, "5", "Q", "K")
	g.Set(FieldDealerHand, hand("5", "Q"))
	g.DrawPile = append(g.DrawPile, hand("K")...)

	m.InitRound(g, p)

	// 15 drew the king and busted, so the empty hand wins.
	assert.Equal(t, StartCoins+DefaultBet, p.Int(FieldCoins))

	final := g.Cards(FieldDealerFinal)
	require.Len(t, final, 3)
	assert.Equal(t, "K", final[2].Value)
	assert.Equal(t, 25, HandValue(final))
}

// removeValues takes one card of each value out of pile.
func removeValues(pile []cards.Card, values ...string) []cards.Card {
	for _, v := range values {
		for i, c := range pile {
			if c.Value == v {
				pile = append(pile[:i], pile[i+1:]...)
				break
			}
		}
	}
	return pile
}
