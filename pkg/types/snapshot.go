package types

import "encoding/json"

type VarType string

const (
	VarGame    VarType = "game"
	VarPlayer  VarType = "player"
	VarPrivate VarType = "private"
)

// Update carries one changed field. Player is set for player-scoped public
// fields only.
type Update struct {
	VarType VarType         `json:"varType"`
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value"`
	Player  string          `json:"player,omitempty"`
}
