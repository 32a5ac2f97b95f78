package cards

import (
	"math/rand/v2"
	"strconv"
)

// Card is a single playing card. Value is "2".."10", "J", "Q", "K", "A" or "Joker".
type Card struct {
	Value  string `json:"value"`
	Suit   string `json:"suit,omitempty"`
	Facing string `json:"facing"`
}

const (
	FaceDown = "down"
	FaceUp   = "up"
)

var Suits = []string{"hearts", "diamonds", "clubs", "spades"}

var Values = func() []string {
	vals := make([]string, 0, 13)
	for v := 2; v <= 10; v++ {
		vals = append(vals, strconv.Itoa(v))
	}
	return append(vals, "J", "Q", "K", "A")
}()

// NewPokerDeck returns a shuffled 52-card deck, plus two jokers when asked.
func NewPokerDeck(jokers bool) []Card {
	deck := make([]Card, 0, 54)
	for _, v := range Values {
		for _, s := range Suits {
			deck = append(deck, Card{Value: v, Suit: s, Facing: FaceDown})
		}
	}
	if jokers {
		deck = append(deck,
			Card{Value: "Joker", Suit: "grey", Facing: FaceDown},
			Card{Value: "Joker", Suit: "colorful", Facing: FaceDown},
		)
	}
	Shuffle(deck)
	return deck
}

// Shuffle shuffles cards in place.
func Shuffle(cards []Card) {
	rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
}

// Draw moves the top card of from onto into. It reports false when from is empty.
func Draw(from, into *[]Card) bool {
	if len(*from) == 0 {
		return false
	}
	last := len(*from) - 1
	*into = append(*into, (*from)[last])
	*from = (*from)[:last]
	return true
}

// Deal gives n cards to each hand in turn, stopping early if the pile runs out.
// It returns the number of cards dealt.
func Deal(from *[]Card, hands []*[]Card, n int) int {
	dealt := 0
	for i := 0; i < n; i++ {
		for _, h := range hands {
			if !Draw(from, h) {
				return dealt
			}
			dealt++
		}
	}
	return dealt
}
