// Package snapshot computes which declared fields changed between dispatch
// steps. It keeps a shadow copy of the last serialization it reported for
// every field and compares by value.
package snapshot

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/pkg/types"
)

// Changes is the outcome of one diff. Room updates go to every connection in
// the room; Private updates only to the owning player's connection.
type Changes struct {
	Room    []types.Update
	Private map[string][]types.Update
}

func (c Changes) Empty() bool { return len(c.Room) == 0 && len(c.Private) == 0 }

type Tracker struct {
	game    map[string]string
	public  map[string]map[string]string
	private map[string]map[string]string
	log     *zap.Logger
}

func NewTracker(log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		game:    make(map[string]string),
		public:  make(map[string]map[string]string),
		private: make(map[string]map[string]string),
		log:     log,
	}
}

// Diff reports every declared field whose value differs from the last diff
// and records the new values.
func (t *Tracker) Diff(g *engine.GameState) Changes {
	var out Changes

	for _, name := range g.Public {
		if raw, ok := t.changed(t.game, name, g.Field(name)); ok {
			out.Room = append(out.Room, types.Update{VarType: types.VarGame, Key: name, Value: raw})
		}
	}

	seen := make(map[string]bool, len(g.Players))
	for _, p := range g.Players {
		seen[p.ID] = true
		pub := shadow(t.public, p.ID)
		for _, name := range p.Public {
			if raw, ok := t.changed(pub, name, p.Field(name)); ok {
				out.Room = append(out.Room, types.Update{VarType: types.VarPlayer, Key: name, Value: raw, Player: p.ID})
			}
		}
		priv := shadow(t.private, p.ID)
		for _, name := range p.PrivateFields() {
			if raw, ok := t.changed(priv, name, p.Field(name)); ok {
				if out.Private == nil {
					out.Private = make(map[string][]types.Update)
				}
				out.Private[p.ID] = append(out.Private[p.ID], types.Update{VarType: types.VarPrivate, Key: name, Value: raw})
			}
		}
	}

	for id := range t.public {
		if !seen[id] {
			delete(t.public, id)
			delete(t.private, id)
		}
	}
	return out
}

func (t *Tracker) changed(prev map[string]string, name string, v any) (json.RawMessage, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		t.log.Warn("field not serializable", zap.String("field", name), zap.Error(err))
		return nil, false
	}
	if old, ok := prev[name]; ok && old == string(raw) {
		return nil, false
	}
	prev[name] = string(raw)
	return raw, true
}

func shadow(m map[string]map[string]string, id string) map[string]string {
	s, ok := m[id]
	if !ok {
		s = make(map[string]string)
		m[id] = s
	}
	return s
}

// Full is everything viewer may see, as if every field had just changed.
// A nil viewer (a spectator) gets the public fields only.
func Full(g *engine.GameState, viewer *engine.Player) []types.Update {
	var out []types.Update
	add := func(u types.Update, v any) {
		raw, err := json.Marshal(v)
		if err != nil {
			return
		}
		u.Value = raw
		out = append(out, u)
	}

	for _, name := range g.Public {
		add(types.Update{VarType: types.VarGame, Key: name}, g.Field(name))
	}
	for _, p := range g.Players {
		for _, name := range p.Public {
			add(types.Update{VarType: types.VarPlayer, Key: name, Player: p.ID}, p.Field(name))
		}
	}
	if viewer != nil {
		for _, name := range viewer.PrivateFields() {
			add(types.Update{VarType: types.VarPrivate, Key: name}, viewer.Field(name))
		}
	}
	return out
}
