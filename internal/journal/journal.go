// Package journal keeps an append-only audit trail of rooms and settled
// rounds. Nothing is ever read back to restore state.
package journal

import (
	"context"
	"encoding/json"
)

type RoundEntry struct {
	RoomCode string
	GameType string
	Round    int
	// Players is the serialized public view of every player at settlement.
	Players json.RawMessage
}

type Journal interface {
	RoomOpened(ctx context.Context, code, gameType string) error
	RoundSettled(ctx context.Context, entry RoundEntry) error
}

// Nop discards everything. It is used when no database is configured.
type Nop struct{}

func (Nop) RoomOpened(context.Context, string, string) error { return nil }

func (Nop) RoundSettled(context.Context, RoundEntry) error { return nil }
